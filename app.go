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

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"optionchain/cache"
	"optionchain/config"
	"optionchain/controllers"
	"optionchain/metrics"
	"optionchain/nse"
	"optionchain/pipeline"
	"optionchain/render"
	"optionchain/workers"
)

func handler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Option chain service is running")
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	if render.IsTerminal(os.Stderr) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	client := nse.NewClient(nse.Config{
		BaseURL:        cfg.BaseURL,
		UserAgent:      cfg.UserAgent,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit,
		RateBurst:      cfg.RateBurst,
	}, reg)

	gateOpts := []cache.Option{cache.WithMetrics(reg)}
	if cfg.RedisURL != "" {
		redisClient, err := config.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("initializing redis client")
		}
		defer redisClient.Close()
		gateOpts = append(gateOpts, cache.WithRedis(redisClient))
	}
	gate := cache.New(client, gateOpts...)

	p := pipeline.New(pipeline.OptionsFrom(cfg), client, gate)
	if _, err := p.Start(ctx); err != nil {
		log.Fatal().Err(err).Str("kind", pipeline.ErrorKind(err)).Msg(pipeline.UserMessage(err))
	}

	hub := controllers.NewHub(p.Latest)
	sinks := []workers.Sink{hub}
	if cfg.RenderTerminal {
		sinks = append(sinks, render.NewStdout())
	}

	manager := workers.NewManager()
	manager.Add(ctx, workers.NewRefreshWorker(p, reg, sinks...))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           registerRoutes(controllers.NewHandler(p, manager), hub, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("server stopped")
	}
	manager.Wait()
}
