package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/oguzatay/smartmeet/pkg/buildinfo"
	"github.com/oguzatay/smartmeet/pkg/db"
	"github.com/oguzatay/smartmeet/pkg/logging"
	"github.com/oguzatay/smartmeet/pkg/observability"
	"github.com/oguzatay/smartmeet/pkg/pipeline"
	"github.com/oguzatay/smartmeet/pkg/pipeline/queue"
	"github.com/oguzatay/smartmeet/pkg/pipeline/workers"
)

var workerMetricsAddr string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the meeting processing worker pool",
	Long: `Starts a pool of workers that drain the processing queue and run
the full pipeline for each enqueued meeting. Runs until interrupted;
on SIGINT/SIGTERM the pool drains in-flight meetings before exiting.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().StringVar(&workerMetricsAddr, "metrics-addr", ":9090", "address for the /metrics endpoint")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	logger := logging.MustGlobal()
	ctx := cmd.Context()

	pool, err := db.ConnectWithRetry(ctx, db.ConfigFromEnv(), 5, 3*time.Second)
	if err != nil {
		return err
	}
	defer pool.Close()

	rdb := connectRedis(cfg)
	defer rdb.Close()

	metrics := observability.DefaultPipelineMetrics()
	pipe := newPipeline(cfg, pool, rdb, logger, pipeline.WithMetrics(metrics))
	q := newQueue(rdb)

	workerCfg := workers.DefaultConfig()
	workerCfg.Count = cfg.Pipeline.Workers

	workerPool := workers.NewPool(workerCfg, q, func(ctx context.Context, msg *queue.ProcessMeetingMessage) error {
		return pipe.Process(ctx, msg.MeetingID)
	}, logger)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/buildinfo", buildinfo.Handler("smartmeet-worker"))
	srv := &http.Server{Addr: workerMetricsAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics server failed", logging.Err(err))
		}
	}()

	go reportQueueDepth(ctx, q, metrics, logger)

	workerPool.Start()
	logger.Info("Worker running",
		logging.F("workers", workerCfg.Count),
		logging.F("queue", q.Name()),
		logging.F("metrics_addr", workerMetricsAddr))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("Shutting down, draining in-flight meetings")
	workerPool.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)

	return nil
}

// reportQueueDepth polls the queue depth into the gauge.
func reportQueueDepth(ctx context.Context, q *queue.RedisQueue, metrics *observability.PipelineMetrics, logger logging.Logger) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth, err := q.Depth()
			if err != nil {
				logger.Warn("Failed to read queue depth", logging.Err(err))
				continue
			}
			metrics.RecordQueueDepth(q.Name(), float64(depth))
		}
	}
}
