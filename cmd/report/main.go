package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/BarkinBalci/action-event-service/internal/config"
	"github.com/BarkinBalci/action-event-service/internal/dto"
	"github.com/BarkinBalci/action-event-service/internal/logger"
	"github.com/BarkinBalci/action-event-service/internal/report"
	"github.com/BarkinBalci/action-event-service/internal/service"
	"github.com/BarkinBalci/action-event-service/internal/store"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		return fail(err)
	}

	opts, err := report.ParseOptions(os.Args[1:], cfg.Store.Location(), os.Stderr)
	if err != nil {
		return fail(err)
	}

	log, err := logger.New(cfg.Service, "report")
	if err != nil {
		return fail(err)
	}
	defer func(log *zap.Logger) {
		_ = log.Sync()
	}(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to open store", zap.Error(err))
		return fail(err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("Failed to close store", zap.Error(err))
		}
	}()

	// reports never create events, so no CRM dispatcher is wired
	eventService := service.NewEventService(
		st.Events, st.Users, st.Pages, nil, cfg.Store.Location(), log.Named("service"))

	result, err := report.NewReporter(eventService).Run(ctx, opts)
	if err != nil {
		log.Error("Report failed", zap.String("mode", opts.Mode), zap.Error(err))
		return fail(err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fail(err)
	}
	return 0
}

func fail(err error) int {
	response := dto.ErrorResponse{Error: "report failed", Message: err.Error()}
	code := 1
	if errors.Is(err, report.ErrUsage) {
		response.Error = "invalid arguments"
		code = 2
	}

	if encodeErr := json.NewEncoder(os.Stderr).Encode(response); encodeErr != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return code
}
