package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/auth"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/interp"
	"fintrack/internal/live"
	applog "fintrack/internal/log"
	"fintrack/internal/store"
)

func main() {
	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	st, err := store.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live mirrors feed the dashboard stream and back the readiness probe.
	expenses := live.NewCollection("expenses", st.ListAllExpenses, st.ExpenseFeed())
	income := live.NewCollection("income", st.ListAllIncome, st.IncomeFeed())
	go expenses.Run(ctx)
	go income.Run(ctx)

	// Relay store change events to the broker so the backup worker sees them.
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		relay := amqp.NewRelay(amqpClient, st.ExpenseFeed(), st.IncomeFeed())
		go relay.Run(ctx)
		logger.Info("Change relay started", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - change events stay local")
	}

	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.TokenTTL)
	terminal := interp.New(st)

	srv := apphttp.NewServer(":"+cfg.Port, st, authSvc, terminal, expenses, income)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 0 // event stream connections stay open
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting fintrack server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
