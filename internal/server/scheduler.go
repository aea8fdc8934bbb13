package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"

	"github.com/stackai/search-relay/internal/store"
	"github.com/stackai/search-relay/tools/websearch/mock"
)

// Sweeper periodically repairs stored records that came back without
// organic results, restoring their components from the mock bundle.
// With Redis configured it takes a short lock so concurrent instances
// do not double-repair.
type Sweeper struct {
	Store   *store.Store
	Mock    *mock.Source
	Rdb     *redis.Client
	Cron    string
	Batch   int
	Metrics *Metrics
	Stop    chan struct{}

	lastRun *time.Time
}

var sweepLogger = log.New(log.Writer(), "[SWEEP] ", log.LstdFlags)

func (s *Sweeper) Start() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				if !isDue(s.Cron, s.lastRun) {
					continue
				}
				now := time.Now()
				s.lastRun = &now
				s.tick()
			}
		}
	}()
}

func (s *Sweeper) tick() {
	if s.Mock == nil {
		return
	}
	ctx := context.Background()

	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, "sweep:lock", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "sweep:lock")
	}

	ids, err := s.Store.SearchIDsMissingResults(ctx, s.Batch)
	if err != nil {
		sweepLogger.Printf("list records missing results: %v", err)
		return
	}
	if len(ids) == 0 {
		return
	}
	sweepLogger.Printf("repairing %d records", len(ids))
	for _, id := range ids {
		fixed, err := s.Store.FixSearchRecord(ctx, id, s.Mock.Bundle())
		if err != nil {
			sweepLogger.Printf("fix %s: %v", id, err)
			continue
		}
		if fixed {
			s.Metrics.RecordsRepaired.Inc()
		}
	}
}

// isDue determines if a sweep with cronSpec should run now based on
// the last run time. Supports "@daily", "@hourly" and standard
// cron expressions.
func isDue(cronSpec string, last *time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= 24*time.Hour
	case "@hourly":
		if last == nil {
			return true
		}
		return now.Sub(*last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			// Invalid spec degrades to @daily.
			if last == nil {
				return true
			}
			return now.Sub(*last) >= 24*time.Hour
		}
		if last == nil {
			return true
		}
		next := expr.Next(*last)
		return !next.After(now)
	}
}
