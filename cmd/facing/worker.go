package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/facing-direction-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/facing-direction-service/internal/adapter/kafka"
	"github.com/couchcryptid/facing-direction-service/internal/pipeline"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume address requests from Kafka and publish results",
	Args:  cobra.NoArgs,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(_ *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.KafkaEnabled() {
		return errors.New("worker requires KAFKA_BROKERS")
	}

	// The pipeline loader writes results itself, so the service must not publish.
	svc := a.service(false)

	reader := kafkaadapter.NewReader(a.cfg, a.logger)
	transformer := pipeline.NewTransformer(svc, a.logger)
	p := pipeline.New(reader, transformer, a.writer, a.logger, a.metrics, a.cfg.BatchSize)

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.cfg.SearchBudget(), p, svc, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			a.logger.Error("pipeline error", "error", err)
		}
		stop()
	}()

	<-ctx.Done()
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		a.logger.Error("kafka reader close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
