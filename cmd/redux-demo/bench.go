package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"runtime"
	"runtime/metrics"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	redux "github.com/wjohnso-insight/scc-redux"
)

// profile describes a benchmark workload. Producers dispatch concurrently
// through the confinement loop; slices is the number of child reducers in
// the combined root; subscribers is the number of store listeners.
type profile struct {
	Name        string
	Producers   int
	Duration    time.Duration
	Slices      int
	Subscribers int
	QueueDepth  int
}

var profiles = map[string]profile{
	"fast": {
		Name:        "fast",
		Producers:   4,
		Duration:    5 * time.Second,
		Slices:      4,
		Subscribers: 4,
		QueueDepth:  256,
	},
	"standard": {
		Name:        "standard",
		Producers:   16,
		Duration:    15 * time.Second,
		Slices:      8,
		Subscribers: 16,
		QueueDepth:  1024,
	},
	"stress": {
		Name:        "stress",
		Producers:   64,
		Duration:    30 * time.Second,
		Slices:      16,
		Subscribers: 64,
		QueueDepth:  4096,
	},
}

// profileFile mirrors profile for YAML overrides. Fields are pointers so
// only keys present in the file replace the base profile, and the
// duration is a string so "30s" works in config files.
type profileFile struct {
	Producers   *int    `yaml:"producers"`
	Duration    *string `yaml:"duration"`
	Slices      *int    `yaml:"slices"`
	Subscribers *int    `yaml:"subscribers"`
	QueueDepth  *int    `yaml:"queue_depth"`
}

type benchCounters struct {
	dispatched     atomic.Uint64
	failed         atomic.Uint64
	droppedSamples atomic.Uint64
}

func benchCmd() *cobra.Command {
	var (
		profileName string
		producers   int
		duration    time.Duration
		configPath  string
		jsonOutput  string
		maxProcs    int
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure dispatch throughput and latency",
		Long: `Run an in-process load test against a store.

Producer goroutines dispatch actions through the confinement loop for a
fixed duration. Latency is the full round trip: enqueue, reduce across
every slice, notify every subscriber, return. Results print to stderr;
--json writes a machine-readable report.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := profiles[profileName]
			if !ok {
				return fmt.Errorf("unknown profile %q (have fast, standard, stress)", profileName)
			}
			if configPath != "" {
				if err := applyProfileFile(&p, configPath); err != nil {
					return err
				}
			}
			if producers > 0 {
				p.Producers = producers
			}
			if duration > 0 {
				p.Duration = duration
			}

			if maxProcs > 0 {
				runtime.GOMAXPROCS(maxProcs)
			}

			return runBench(p, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&profileName, "profile", "p", "standard", "Workload profile: fast|standard|stress")
	cmd.Flags().IntVar(&producers, "producers", 0, "Override producer count")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Override run duration")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML file with profile overrides")
	cmd.Flags().StringVar(&jsonOutput, "json", "", "Write JSON report to file (- for stdout)")
	cmd.Flags().IntVar(&maxProcs, "max-procs", 0, "Cap GOMAXPROCS")

	return cmd
}

func applyProfileFile(p *profile, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read profile config: %w", err)
	}

	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse profile config: %w", err)
	}

	if file.Producers != nil {
		p.Producers = *file.Producers
	}
	if file.Duration != nil {
		d, err := time.ParseDuration(*file.Duration)
		if err != nil {
			return fmt.Errorf("parse profile duration: %w", err)
		}
		p.Duration = d
	}
	if file.Slices != nil {
		p.Slices = *file.Slices
	}
	if file.Subscribers != nil {
		p.Subscribers = *file.Subscribers
	}
	if file.QueueDepth != nil {
		p.QueueDepth = *file.QueueDepth
	}
	return nil
}

func runBench(p profile, jsonOutput string) error {
	info("profile %s: %d producers, %d slices, %d subscribers, %s",
		p.Name, p.Producers, p.Slices, p.Subscribers, p.Duration)

	store, err := newBenchStore(p)
	if err != nil {
		return err
	}

	// The loop logger only fires on panics; keep it quiet otherwise.
	logger := newBenchLogger()
	loop := newStoreLoop(logger, p.QueueDepth)
	go loop.Run()
	defer loop.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), p.Duration)
	defer cancel()

	samplesCh := make(chan time.Duration, sampleBuffer(p.Producers))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var counters benchCounters

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(p.Producers)
	for i := 0; i < p.Producers; i++ {
		go func() {
			defer wg.Done()
			runProducer(ctx, loop, store, &counters, samplesCh)
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	report := buildReport(p, elapsed, samples, &counters, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if jsonOutput != "" {
		if err := writeJSON(jsonOutput, report); err != nil {
			return fmt.Errorf("write json: %w", err)
		}
		if jsonOutput != "-" {
			success("report written to %s", jsonOutput)
		}
	}
	return nil
}

// newBenchStore builds a store with p.Slices counting child reducers and
// p.Subscribers no-op listeners. Every bench/tick action touches every
// slice, so dispatch cost scales with the slice count.
func newBenchStore(p profile) (redux.Store[map[string]any], error) {
	reducers := make(map[string]redux.Reducer[any], p.Slices)
	for i := 0; i < p.Slices; i++ {
		reducers[fmt.Sprintf("slice_%d", i)] = benchReducer
	}

	combined, err := redux.CombineReducers(reducers)
	if err != nil {
		return nil, err
	}

	store, err := redux.New(combined)
	if err != nil {
		return nil, err
	}

	var notified atomic.Uint64
	for i := 0; i < p.Subscribers; i++ {
		if _, err := store.Subscribe(func() { notified.Add(1) }); err != nil {
			return nil, err
		}
	}

	return store, nil
}

func benchReducer(state any, action any) (any, error) {
	count, _ := state.(int)
	if typ, _ := redux.ActionType(action); typ == "bench/tick" {
		return count + 1, nil
	}
	return count, nil
}

// runProducer dispatches until the context expires. Each sample is the
// full Do round trip, so it includes queueing, reducing, and notifying.
func runProducer(ctx context.Context, loop *storeLoop, store redux.Store[map[string]any], counters *benchCounters, samplesCh chan<- time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		action := map[string]any{"type": "bench/tick"}

		start := time.Now()
		var dispatchErr error
		if err := loop.Do(func() { _, dispatchErr = store.Dispatch(action) }); err != nil {
			return
		}
		if dispatchErr != nil {
			counters.failed.Add(1)
			continue
		}
		counters.dispatched.Add(1)

		select {
		case samplesCh <- time.Since(start):
		default:
			counters.droppedSamples.Add(1)
		}
	}
}

// newBenchLogger keeps benchmark output clean; only panics from the
// loop surface as warnings or above.
func newBenchLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func sampleBuffer(producers int) int {
	if producers < 1 {
		return 1024
	}
	buf := producers * 256
	if buf < 1024 {
		buf = 1024
	}
	return buf
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds   float64
	cpuGCSeconds      float64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type workloadInfo struct {
	Profile     string `json:"profile"`
	Producers   int    `json:"producers"`
	DurationMS  int64  `json:"duration_ms"`
	Slices      int    `json:"slices"`
	Subscribers int    `json:"subscribers"`
	QueueDepth  int    `json:"queue_depth"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type throughputInfo struct {
	DispatchesTotal  uint64  `json:"dispatches_total"`
	DispatchesPerSec float64 `json:"dispatches_per_sec"`
	PerProducer      float64 `json:"dispatches_per_sec_per_producer"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type errorInfo struct {
	FailedDispatches uint64 `json:"failed_dispatches"`
	DroppedSamples   uint64 `json:"dropped_samples"`
}

func buildReport(
	p profile,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	dispatched := counters.dispatched.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	perSec := float64(dispatched) / elapsedSeconds
	perProducer := perSec / float64(p.Producers)

	latency := latencyInfo{}
	if len(latencies) > 0 {
		latency = latencyInfo{
			Min: ms(latencies[0]),
			P50: ms(percentile(latencies, 0.50)),
			P95: ms(percentile(latencies, 0.95)),
			P99: ms(percentile(latencies, 0.99)),
			Max: ms(latencies[len(latencies)-1]),
		}
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: workloadInfo{
			Profile:     p.Name,
			Producers:   p.Producers,
			DurationMS:  p.Duration.Milliseconds(),
			Slices:      p.Slices,
			Subscribers: p.Subscribers,
			QueueDepth:  p.QueueDepth,
		},
		LatencyMS: latency,
		Throughput: throughputInfo{
			DispatchesTotal:  dispatched,
			DispatchesPerSec: perSec,
			PerProducer:      perProducer,
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects,
		},
		Errors: errorInfo{
			FailedDispatches: counters.failed.Load(),
			DroppedSamples:   counters.droppedSamples.Load(),
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Store Dispatch Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Producers: %d\n", report.Workload.Producers)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Slices: %d\n", report.Workload.Slices)
	fmt.Fprintf(w, "Subscribers: %d\n", report.Workload.Subscribers)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total dispatches: %d\n", report.Throughput.DispatchesTotal)
	fmt.Fprintf(w, "Throughput: %.1f dispatches/s (%.2f per producer)\n",
		report.Throughput.DispatchesPerSec, report.Throughput.PerProducer)
	fmt.Fprintf(w, "Failed: %d\n", report.Errors.FailedDispatches)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Latency (enqueue -> reduce -> notify -> return):")
		fmt.Fprintf(w, "  min: %.3f ms\n", report.LatencyMS.Min)
		fmt.Fprintf(w, "  p50: %.3f ms\n", report.LatencyMS.P50)
		fmt.Fprintf(w, "  p95: %.3f ms\n", report.LatencyMS.P95)
		fmt.Fprintf(w, "  p99: %.3f ms\n", report.LatencyMS.P99)
		fmt.Fprintf(w, "  max: %.3f ms\n", report.LatencyMS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
