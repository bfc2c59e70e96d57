package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/config"
	"github.com/BarkinBalci/action-event-service/internal/consumer"
	"github.com/BarkinBalci/action-event-service/internal/crm"
	"github.com/BarkinBalci/action-event-service/internal/logger"
	"github.com/BarkinBalci/action-event-service/internal/queue/sqs"
	"github.com/BarkinBalci/action-event-service/internal/service"
	"github.com/BarkinBalci/action-event-service/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Service, "consumer")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	log.Info("Starting consumer service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("store_driver", cfg.Store.Driver))

	ctx := context.Background()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open store", zap.Error(err))
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	eventsQueue, err := sqs.NewClient(ctx, cfg.SQS, log.Named("sqs"))
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	recorder, err := newRecorder(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to create CRM recorder", zap.Error(err))
	}

	dispatcher := crm.NewDispatcher(recorder, crm.DispatcherConfig{
		Workers:    cfg.CRM.Workers,
		BufferSize: cfg.CRM.BufferSize,
		Timeout:    cfg.CRM.Timeout,
	}, log.Named("crm"))
	dispatcher.Start()

	eventService := service.NewEventService(
		st.Events, st.Users, st.Pages, dispatcher, cfg.Store.Location(), log.Named("service"))

	c := consumer.NewConsumer(cfg, eventsQueue, eventService, log)

	healthServer := newHealthServer(cfg.Consumer.HealthCheckPort, st, log)
	go func() {
		log.Info("Health check server starting", zap.String("address", healthServer.Addr))
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health check server error", zap.Error(err))
		}
	}()

	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("Consumer starting")
		if err := c.Start(consumerCtx); err != nil {
			log.Error("Consumer error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Shutting down consumer gracefully")
	case <-done:
		log.Warn("Consumer stopped unexpectedly")
	}

	cancel()
	<-done

	// queued CRM activities are delivered before the store closes
	dispatcher.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop health check server", zap.Error(err))
	}
}

// newRecorder publishes CRM activities to the CRM queue, or only logs them
// when no queue is configured
func newRecorder(ctx context.Context, cfg *config.Config, log *zap.Logger) (crm.Recorder, error) {
	if cfg.CRM.QueueURL == "" {
		log.Warn("CRM_QUEUE_URL not set, CRM activities are only logged")
		return crm.NewLogRecorder(log.Named("crm")), nil
	}

	crmQueue, err := sqs.NewClient(ctx, config.SQS{
		Endpoint: cfg.SQS.Endpoint,
		QueueURL: cfg.CRM.QueueURL,
		Region:   cfg.SQS.Region,
	}, log.Named("crm_sqs"))
	if err != nil {
		return nil, err
	}
	return crm.NewQueueRecorder(crmQueue), nil
}

func newHealthServer(port string, st *store.Store, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := st.Events.Ping(r.Context()); err != nil {
			log.Warn("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
