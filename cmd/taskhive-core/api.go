package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/taskhive/taskhive-core/internal/api"
	"github.com/taskhive/taskhive-core/internal/core"
	"github.com/taskhive/taskhive-core/internal/logger"
	"github.com/taskhive/taskhive-core/internal/notify"
	"github.com/taskhive/taskhive-core/internal/store"
	workerpool "github.com/taskhive/taskhive-core/internal/worker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the taskhive-core API server to accept and execute task jobs.`,
	Run:   runAPIServer,
}

func init() {
	serveCmd.Flags().IntVarP(&workerCount, "workers", "w", 0, "Number of pool workers")
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to run the service on")
}

var (
	workerCount int
	port        string
)

func runAPIServer(cmd *cobra.Command, args []string) {
	logger, err := logger.InitForServer(cfg.App.LogLevel, true)
	if err != nil {
		fmt.Println("Failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI flags override env config
	if workerCount > 0 {
		cfg.Worker.Count = workerCount
	}
	if port != "" {
		cfg.Server.Port = port
	}

	redisStore := store.NewRedisStore(store.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisStore.Close()

	ctx := context.Background()
	if err := redisStore.Ping(ctx); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis successfully", zap.String("addr", cfg.Redis.Addr))

	coreInstance := core.New(core.Opts{DefaultTimeout: cfg.App.TaskTimeout})

	pool, err := workerpool.New(workerpool.Config{WorkerCount: cfg.Worker.Count}, logger)
	if err != nil {
		logger.Fatal("Failed to start worker pool", zap.Error(err))
	}

	onJobDone := jobDoneHandler(logger)

	versionInfo := api.VersionInfo{
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: goVersion,
		Platform:  platform,
	}

	handler := api.NewHandler(
		coreInstance,
		pool,
		redisStore,
		onJobDone,
		logger,
		versionInfo,
		cfg.Redis.ResultTTL,
		cfg.Redis.DedupeTTL)
	defer handler.Close()

	router := api.NewRouter(handler)

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("address", server.Addr),
			zap.Int("workers", cfg.Worker.Count),
			zap.Duration("read_timeout", cfg.Server.ReadTimeout),
			zap.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
}

// jobDoneHandler wires the optional webhook notifier, throttled so a burst
// of finished jobs does not hammer the endpoint.
func jobDoneHandler(logger *zap.Logger) api.JobDoneHandler {
	if cfg.Webhook.URL == "" {
		return nil
	}

	webhook := notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.Template, &http.Client{
		Timeout: 10 * time.Second,
	})
	limiter := rate.NewLimiter(rate.Every(cfg.Webhook.SendingInterval), 1)

	logger.Info("Webhook notifications enabled", zap.String("url", cfg.Webhook.URL))

	return func(job *api.Job) {
		summary := notify.Summary{
			JobID:  job.ID,
			Total:  job.TotalCount,
			Failed: job.FailedCount,
		}
		if job.StartTime != nil && job.EndTime != nil {
			summary.DurationMs = job.EndTime.Sub(*job.StartTime).Milliseconds()
		}

		go func() {
			if err := limiter.Wait(context.Background()); err != nil {
				logger.Error("Rate limit error", zap.Error(err))
				return
			}
			if err := webhook.Send(summary); err != nil {
				logger.Error("Failed to send webhook notification",
					zap.String("job_id", summary.JobID),
					zap.Error(err))
			}
		}()
	}
}
