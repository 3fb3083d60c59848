package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/routeledger/backend/internal/infrastructure/blob"
	"github.com/routeledger/backend/repository"
)

// JanitorConfig controls how often orphaned images are swept.
type JanitorConfig struct {
	Interval time.Duration
	MinAge   time.Duration
}

// Janitor periodically deletes image blobs no longer referenced by any
// route. Crashed sagas can leak an uploaded blob when the process dies
// between the upload and the compensating delete; this sweep is the
// backstop. MinAge keeps it from racing sagas that are still in flight.
type Janitor struct {
	images *blob.Store
	routes repository.RouteRepository
	logger *zap.Logger
	cron   *cron.Cron
	cfg    JanitorConfig
}

func NewJanitor(images *blob.Store, routes repository.RouteRepository, logger *zap.Logger, cfg JanitorConfig) *Janitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.MinAge <= 0 {
		cfg.MinAge = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	j := &Janitor{
		images: images,
		routes: routes,
		logger: logger,
		cfg:    cfg,
		cron:   cron.New(),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := j.Sweep(ctx); err != nil {
			j.logger.Error("image sweep failed", zap.Error(err))
		}
	})

	return j
}

// Start launches the cron scheduler.
func (j *Janitor) Start() {
	if j == nil || j.cron == nil {
		return
	}
	j.cron.Start()
	j.logger.Info("image janitor started", zap.Duration("interval", j.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (j *Janitor) Stop(ctx context.Context) {
	if j == nil || j.cron == nil {
		return
	}
	stopCtx := j.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

// Sweep deletes stored blobs that are old enough and unreferenced.
func (j *Janitor) Sweep(ctx context.Context) error {
	stored, err := j.images.URLs()
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}

	referenced, err := j.routes.ImageURLs(ctx)
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-j.cfg.MinAge)
	var removed int
	for url, uploadedAt := range stored {
		if _, ok := referenced[url]; ok {
			continue
		}
		if uploadedAt.After(cutoff) {
			continue
		}
		if err := j.images.Delete(url); err != nil {
			j.logger.Warn("orphaned image delete failed", zap.String("url", url), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("orphaned images removed", zap.Int("count", removed))
	}
	return nil
}
