package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/stackai/search-relay/config"
	"github.com/stackai/search-relay/internal/store"
	"github.com/stackai/search-relay/provider"
	"github.com/stackai/search-relay/tools/websearch"
	"github.com/stackai/search-relay/tools/websearch/mock"
)

// Run wires the dependencies and serves the HTTP API. A missing or
// unreachable Postgres does not abort startup: the store degrades to
// logged no-ops and searches still answer from the provider/mock.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()

	var st *store.Store
	if dsn := cfg.Storage.Postgres.DSN(); dsn != "" {
		var err error
		st, err = store.NewWithDSN(ctx, dsn)
		if err != nil {
			log.Printf("[STORE] postgres unavailable, persistence disabled: %v", err)
			st = nil
		}
	} else {
		log.Printf("[STORE] postgres not configured, persistence disabled")
	}

	mockSource, err := mock.Load()
	if err != nil {
		// Requests can still succeed while the live provider holds up.
		log.Printf("[MOCK] fallback source unavailable: %v", err)
		mockSource = nil
	}

	var searcher websearch.Searcher
	if cfg.SerpAPI.APIKey != "" {
		searcher, err = websearch.NewSearcher(websearch.SerpAPIProvider, cfg.SerpAPI.APIKey, cfg.SerpAPI.Timeout)
		if err != nil {
			return err
		}
	} else {
		log.Printf("[SEARCH] serpapi api key not set, all searches will use mock data")
	}

	var llm provider.Provider
	if cfg.OpenAI.APIKey != "" {
		llm, err = provider.NewProvider(provider.OpenAI, cfg.OpenAI.APIKey, cfg.OpenAI.Model,
			cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens, cfg.OpenAI.Timeout)
		if err != nil {
			return err
		}
	} else {
		log.Printf("[SUMMARY] openai api key not set, ai responses disabled")
	}

	metrics := NewMetrics()

	sh := &SearchHandler{
		Store:      st,
		Searcher:   searcher,
		Mock:       mockSource,
		Summarizer: llm,
		Metrics:    metrics,
		Timeout:    cfg.OpenAI.Timeout,
	}
	api := e.Group("/api")
	sh.Register(api)

	if cfg.Sweep.Enabled {
		var rdb *redis.Client
		if cfg.Storage.Redis.Host != "" && cfg.Storage.Redis.Port != "" {
			rdb = redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%s", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port),
				Password: cfg.Storage.Redis.Password,
				DB:       cfg.Storage.Redis.DB,
			})
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Printf("[SWEEP] redis unavailable, sweep runs without a lock: %v", err)
				rdb = nil
			}
		}
		sweeper := &Sweeper{
			Store:   st,
			Mock:    mockSource,
			Rdb:     rdb,
			Cron:    cfg.Sweep.Cron,
			Batch:   cfg.Sweep.BatchSize,
			Metrics: metrics,
			Stop:    make(chan struct{}),
		}
		sweeper.Start()
	}

	addr := cfg.General.Listen
	if addr == "" {
		addr = ":8000"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
