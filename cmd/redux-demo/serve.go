package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	redux "github.com/wjohnso-insight/scc-redux"
	"github.com/wjohnso-insight/scc-redux/pkg/middleware"
)

// serveConfig is loaded from the environment. The --addr flag overrides
// the address when set.
type serveConfig struct {
	Addr            string        `env:"REDUX_DEMO_ADDR"             envDefault:":8080"`
	LogLevel        string        `env:"REDUX_DEMO_LOG_LEVEL"        envDefault:"info"`
	LogState        bool          `env:"REDUX_DEMO_LOG_STATE"        envDefault:"false"`
	QueueDepth      int           `env:"REDUX_DEMO_QUEUE_DEPTH"      envDefault:"256"`
	ShutdownTimeout time.Duration `env:"REDUX_DEMO_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the demo HTTP and WebSocket server",
		Long: `Run an HTTP server around a single shared store.

The store holds a counter slice and a todos slice behind a combined
reducer, with logging, Prometheus, and OpenTelemetry middleware in the
dispatch chain. Endpoints:

  POST /api/dispatch  dispatch a JSON action, returns the settled state
  GET  /api/state     read the current state
  GET  /ws            WebSocket; send actions, receive state snapshots
  GET  /metrics       Prometheus metrics
  GET  /healthz       liveness check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg serveConfig
			if err := env.Parse(&cfg); err != nil {
				return fmt.Errorf("parse env: %w", err)
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides REDUX_DEMO_ADDR)")

	return cmd
}

func runServe(cfg serveConfig) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("parse log level %q: %w", cfg.LogLevel, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	srv, err := newDemoServer(cfg, logger)
	if err != nil {
		return err
	}

	go srv.loop.Run()
	defer srv.loop.Stop()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Set up graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", cfg.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil

	case <-shutdown:
		logger.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Error("shutdown error", "error", err)
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	}
}

// demoServer wires a store, its confinement loop, and the HTTP surface
// together. Handlers never touch the store directly; they go through
// dispatch and state, which queue work on the loop.
type demoServer struct {
	cfg    serveConfig
	logger *slog.Logger
	loop   *storeLoop
	store  redux.Store[map[string]any]

	upgrader websocket.Upgrader
}

func newDemoServer(cfg serveConfig, logger *slog.Logger) (*demoServer, error) {
	combined, err := redux.CombineReducers(map[string]redux.Reducer[any]{
		"counter": counterReducer,
		"todos":   todosReducer,
	})
	if err != nil {
		return nil, err
	}

	store, err := redux.New(combined, redux.WithEnhancer(middleware.Apply(
		middleware.Logger[map[string]any](
			middleware.WithLogger(logger),
			middleware.WithStateLogging(cfg.LogState),
		),
		middleware.Prometheus[map[string]any](
			middleware.WithNamespace("redux_demo"),
		),
		middleware.OpenTelemetry[map[string]any](),
	)))
	if err != nil {
		return nil, err
	}

	return &demoServer{
		cfg:    cfg,
		logger: logger,
		loop:   newStoreLoop(logger, cfg.QueueDepth),
		store:  store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}, nil
}

func (s *demoServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/dispatch", s.handleDispatch)
	})
	r.Get("/ws", s.handleWS)

	return r
}

// dispatch runs a store dispatch on the loop goroutine.
func (s *demoServer) dispatch(action any) (any, error) {
	var (
		result any
		err    error
	)
	if doErr := s.loop.Do(func() { result, err = s.store.Dispatch(action) }); doErr != nil {
		return nil, doErr
	}
	return result, err
}

// state reads the current state on the loop goroutine.
func (s *demoServer) state() (map[string]any, error) {
	var (
		state map[string]any
		err   error
	)
	if doErr := s.loop.Do(func() { state, err = s.store.GetState() }); doErr != nil {
		return nil, doErr
	}
	return state, err
}

func (s *demoServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *demoServer) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.state()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

func (s *demoServer) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var action map[string]any
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode action: %w", err))
		return
	}

	if _, err := s.dispatch(action); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, redux.ErrInvalidAction) || errors.Is(err, redux.ErrMissingType) {
			status = http.StatusBadRequest
		}
		s.writeError(w, status, err)
		return
	}

	state, err := s.state()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"state": state})
}

// wsEnvelope is a frame sent to WebSocket clients. Exactly one field is
// set per frame.
type wsEnvelope struct {
	State map[string]any `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

// handleWS upgrades the connection, subscribes to the store, and streams
// a state snapshot after every dispatch. Inbound messages are actions.
func (s *demoServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	outbound := make(chan wsEnvelope, 16)
	closed := make(chan struct{})

	// The observer runs on the loop goroutine during notification, so it
	// must not block. A slow client just misses intermediate snapshots.
	var (
		unsubscribe redux.Unsubscribe
		subErr      error
	)
	if err := s.loop.Do(func() {
		unsubscribe, subErr = s.store.Observable().Subscribe(redux.ObserverFunc[map[string]any](func(state map[string]any) {
			select {
			case outbound <- wsEnvelope{State: state}:
			default:
			}
		}))
	}); err != nil {
		return
	}
	if subErr != nil {
		s.logger.Error("websocket subscribe", "error", subErr)
		return
	}
	defer s.loop.Do(func() { _ = unsubscribe() })

	// Writer goroutine owns all writes on the connection.
	go func() {
		for {
			select {
			case env := <-outbound:
				if err := conn.WriteJSON(env); err != nil {
					return
				}

			case <-closed:
				return
			}
		}
	}()
	defer close(closed)

	// Read loop: every inbound message is an action to dispatch.
	for {
		var action map[string]any
		if err := conn.ReadJSON(&action); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("websocket read", "error", err)
			}
			return
		}

		if _, err := s.dispatch(action); err != nil {
			select {
			case outbound <- wsEnvelope{Error: err.Error()}:
			default:
			}
		}
	}
}

func (s *demoServer) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

func (s *demoServer) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]any{"error": err.Error()})
}

// counterReducer counts dispatches of counter/increment, counter/decrement,
// and counter/add. Amounts arrive as float64 when actions come in as JSON.
func counterReducer(state any, action any) (any, error) {
	count, _ := state.(int)

	typ, _ := redux.ActionType(action)
	switch typ {
	case "counter/increment":
		return count + 1, nil
	case "counter/decrement":
		return count - 1, nil
	case "counter/add":
		by, ok := intArg(action, "by")
		if !ok {
			return count, fmt.Errorf("counter/add requires a numeric %q field", "by")
		}
		return count + by, nil
	}
	return count, nil
}

// todosReducer maintains a list of todo entries. Entries are plain maps
// so the state serializes directly to JSON.
func todosReducer(state any, action any) (any, error) {
	todos, _ := state.([]any)
	if todos == nil {
		todos = []any{}
	}

	typ, _ := redux.ActionType(action)
	switch typ {
	case "todos/add":
		text, _ := stringArg(action, "text")
		if text == "" {
			return todos, fmt.Errorf("todos/add requires a non-empty %q field", "text")
		}
		next := make([]any, len(todos), len(todos)+1)
		copy(next, todos)
		return append(next, map[string]any{
			"id":   uuid.NewString(),
			"text": text,
			"done": false,
		}), nil

	case "todos/toggle":
		id, ok := stringArg(action, "id")
		if !ok {
			return todos, fmt.Errorf("todos/toggle requires a string %q field", "id")
		}
		next := make([]any, len(todos))
		for i, t := range todos {
			entry, ok := t.(map[string]any)
			if !ok || entry["id"] != id {
				next[i] = t
				continue
			}
			toggled := make(map[string]any, len(entry))
			for k, v := range entry {
				toggled[k] = v
			}
			done, _ := entry["done"].(bool)
			toggled["done"] = !done
			next[i] = toggled
		}
		return next, nil

	case "todos/clear":
		return []any{}, nil
	}

	return todos, nil
}

func intArg(action any, key string) (int, bool) {
	m, ok := action.(map[string]any)
	if !ok {
		return 0, false
	}
	switch v := m[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

func stringArg(action any, key string) (string, bool) {
	m, ok := action.(map[string]any)
	if !ok {
		return "", false
	}
	v, ok := m[key].(string)
	return v, ok
}
