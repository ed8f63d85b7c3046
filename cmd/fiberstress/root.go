package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ygrebnov/fibers"
	"github.com/ygrebnov/fibers/metrics"
	"github.com/ygrebnov/fibers/sched"
)

type flags struct {
	workers     int
	fibers      int
	iterations  int
	pinnedEvery int
	verbose     bool
	metricsAddr string
	timeout     time.Duration
}

func newRootCmd() *cobra.Command {
	var fl flags

	cmd := &cobra.Command{
		Use:   "fiberstress",
		Short: "Stress the work-stealing scheduler with a contended mutex",
		Long: `
fiberstress spawns fibers that all increment one counter guarded by a
fibers.Mutex, yielding while they hold it, and reports the outcome together
with steal and park counters.
`,
		Example: `  $ fiberstress --workers 8 --fibers 1000 --iterations 100
  $ fiberstress --pinned-every 4 --metrics-addr :9090 --verbose
  `,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, fl)
		},
	}

	f := cmd.Flags()
	f.IntVarP(&fl.workers, "workers", "w", runtime.NumCPU(), "number of workers")
	f.IntVarP(&fl.fibers, "fibers", "n", 256, "number of fibers to spawn")
	f.IntVarP(&fl.iterations, "iterations", "i", 100, "lock/unlock rounds per fiber")
	f.IntVar(&fl.pinnedEvery, "pinned-every", 0, "pin every k-th fiber to its worker (0 disables)")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "log scheduler events")
	f.StringVar(&fl.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.DurationVar(&fl.timeout, "timeout", time.Minute, "abort the run after this long")
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if !verbose {
		return zap.NewNop(), nil
	}
	return zap.NewDevelopment()
}

func run(cmd *cobra.Command, fl flags) error {
	if fl.fibers <= 0 || fl.iterations <= 0 || fl.pinnedEvery < 0 {
		return fmt.Errorf("%w: fibers and iterations must be positive", fibers.ErrInvalidConfig)
	}

	logger, err := newLogger(fl.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	basic := metrics.NewBasicProvider()
	var provider metrics.Provider = basic
	if fl.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		provider = metrics.Tee(basic, metrics.NewPrometheusProvider(reg, "fiberstress"))
		srv := serveMetrics(fl.metricsAddr, reg, logger)
		defer func() { _ = srv.Close() }()
	}

	g, err := sched.New(
		sched.WithWorkers(fl.workers),
		sched.WithLogger(logger),
		sched.WithMetrics(provider),
	)
	if err != nil {
		return err
	}

	var (
		mu      fibers.Mutex
		counter int
	)
	body := func(f *sched.Fiber) {
		for i := range fl.iterations {
			if err := mu.Lock(f); err != nil {
				logger.Error("lock failed", zap.Error(err))
				return
			}
			counter++
			if i%4 == 0 {
				f.Yield()
			}
			if err := mu.Unlock(f); err != nil {
				logger.Error("unlock failed", zap.Error(err))
				return
			}
		}
	}

	spawned := make([]*sched.Fiber, 0, fl.fibers)
	for k := range fl.fibers {
		var opts []sched.SpawnOption
		if fl.pinnedEvery > 0 && k%fl.pinnedEvery == 0 {
			opts = append(opts, sched.Pinned())
		}
		f, err := g.Spawn(body, opts...)
		if err != nil {
			return err
		}
		spawned = append(spawned, f)
	}

	start := time.Now()
	g.Start(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), fl.timeout)
	defer cancel()
	if err := g.Close(closeCtx); err != nil {
		return err
	}
	elapsed := time.Since(start)

	var failed int
	for _, f := range spawned {
		if f.Err() != nil {
			failed++
		}
	}

	want := fl.fibers * fl.iterations
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "workers:   %d\n", g.Workers())
	_, _ = fmt.Fprintf(out, "fibers:    %d (failed %d)\n", fl.fibers, failed)
	_, _ = fmt.Fprintf(out, "counter:   %d/%d\n", counter, want)
	_, _ = fmt.Fprintf(out, "stolen:    %d\n", basic.Value(metrics.FibersStolen))
	_, _ = fmt.Fprintf(out, "parks:     %d\n", basic.Value(metrics.WorkerParks))
	_, _ = fmt.Fprintf(out, "elapsed:   %s\n", elapsed.Round(time.Microsecond))

	if counter != want || failed > 0 {
		return errors.New("fiberstress: lost updates or failed fibers")
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	logger.Info("serving metrics", zap.String("addr", addr))
	return srv
}
