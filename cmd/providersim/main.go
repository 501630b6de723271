package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/review-messenger-service/internal/providersim"
	"github.com/joho/godotenv"
)

var (
	addr          = flag.String("addr", ":7070", "listen address")
	callbackDelay = flag.Duration("callback-delay", 500*time.Millisecond, "pause before each status callback")
	undeliverable = flag.String("undeliverable", "", "comma separated numbers reported as undelivered")
)

func main() {
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := providersim.Config{
		AccountSID:    os.Getenv("PROVIDER_ACCOUNT_SID"),
		AuthToken:     os.Getenv("PROVIDER_AUTH_TOKEN"),
		CallbackDelay: *callbackDelay,
	}
	for _, n := range strings.Split(*undeliverable, ",") {
		if n = strings.TrimSpace(n); n != "" {
			cfg.Undeliverable = append(cfg.Undeliverable, n)
		}
	}
	if cfg.AuthToken == "" {
		logger.Warn("PROVIDER_AUTH_TOKEN is not set, callbacks will carry signatures the service cannot verify")
	}

	sim := providersim.New(cfg, logger.With(slog.String("component", "providersim")))
	server := &http.Server{
		Addr:              *addr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg := sync.WaitGroup{}
	wg.Go(func() {
		sim.Run(notifyCtx)
	})
	wg.Go(func() {
		logger.Info("provider simulator listening", "addr", *addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		appCtxCancel()
	})
	wg.Go(func() {
		<-notifyCtx.Done()
		shutDownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutDownCtx)
	})

	wg.Wait()
}
