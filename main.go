package main

import (
	"context"
	"expvar"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"linehooks/internal"
	"linehooks/pkg/line"
	"linehooks/webhook"
)

func main() {
	logger := internal.NewLogger("server")
	configPath := flag.String("config", "config.yaml", "Path to config file")
	flag.Parse()

	config, err := internal.LoadConfig(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if config.Line.ChannelSecret == "" {
		logger.Fatalf("line channel_secret is required")
	}

	ruleEngine, err := internal.NewRuleEngine(internal.RulesConfig{
		Rules:  config.Rules,
		Strict: config.RulesStrict,
		Logger: logger,
	})
	if err != nil {
		logger.Fatalf("compile rules: %v", err)
	}

	publisher, err := internal.NewPublisher(config.Watermill)
	if err != nil {
		logger.Fatalf("publisher: %v", err)
	}
	defer publisher.Close()

	var fetcher webhook.ContentFetcher
	if config.Line.DownloadContent {
		if config.Line.ChannelAccessToken == "" {
			logger.Fatalf("line channel_access_token is required for content download")
		}
		opts := make([]line.Option, 0, 2)
		if config.Line.APIBaseURL != "" {
			opts = append(opts, line.WithAPIBaseURL(config.Line.APIBaseURL))
		}
		if config.Line.DataBaseURL != "" {
			opts = append(opts, line.WithDataBaseURL(config.Line.DataBaseURL))
		}
		fetcher = line.NewClient(config.Line.ChannelAccessToken, opts...)
	}

	handler, err := webhook.NewLineHandler(config.Line, fetcher, ruleEngine, publisher, logger)
	if err != nil {
		logger.Fatalf("line handler: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle(config.Line.Path, handler)
	logger.Printf("line webhook enabled on %s events=%v", config.Line.Path, config.Line.Events)

	if config.Server.MetricsEnabled {
		mux.Handle(config.Server.MetricsPath, expvar.Handler())
		logger.Printf("metrics enabled on %s", config.Server.MetricsPath)
	}

	var root http.Handler = mux
	root = http.MaxBytesHandler(root, config.Server.MaxBodyBytes)
	root = internal.NewRateLimitHandler(root, config.Server.RateLimitRPS, config.Server.RateLimitBurst, time.Minute)

	addr := ":" + strconv.Itoa(config.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       time.Duration(config.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:      time.Duration(config.Server.WriteTimeoutMS) * time.Millisecond,
		IdleTimeout:       time.Duration(config.Server.IdleTimeoutMS) * time.Millisecond,
		ReadHeaderTimeout: time.Duration(config.Server.ReadHeaderMS) * time.Millisecond,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Printf("listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
}
