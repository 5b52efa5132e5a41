package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"resumematch/scanner-web/internal/repositories"
)

// Janitor periodically drops idle tab storage and idle in-memory tabs.
type Janitor interface {
	Start(ctx context.Context) error
	Stop()
	RunOnce(ctx context.Context)
}

type janitor struct {
	storage  repositories.TabStorage
	registry *TabRegistry
	idle     time.Duration
	schedule string
	cron     *cron.Cron
}

func NewJanitor(
	storage repositories.TabStorage,
	registry *TabRegistry,
	schedule string,
	idle time.Duration,
) Janitor {
	return &janitor{
		storage:  storage,
		registry: registry,
		idle:     idle,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start implements Janitor.
func (j *janitor) Start(ctx context.Context) error {
	if _, err := j.cron.AddFunc(j.schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", j.schedule, err)
	}

	j.cron.Start()
	log.Printf("🧹 Janitor started (%s, idle after %s)\n", j.schedule, j.idle)
	return nil
}

// Stop implements Janitor.
func (j *janitor) Stop() {
	log.Println("🛑 Stopping janitor...")
	<-j.cron.Stop().Done()
	log.Println("✅ Janitor stopped")
}

// RunOnce implements Janitor.
func (j *janitor) RunOnce(ctx context.Context) {
	purged, err := j.storage.PurgeIdle(ctx, j.idle)
	if err != nil {
		log.Printf("⚠️  Failed to purge idle tab storage: %v\n", err)
	}

	signedOut, evicted := 0, 0
	if j.registry != nil {
		signedOut = j.registry.Sync(ctx)
		evicted = j.registry.Evict(j.idle)
	}

	if purged > 0 || signedOut > 0 || evicted > 0 {
		log.Printf("🧹 Purged %d idle tab(s) from storage, signed out %d, evicted %d from memory\n",
			purged, signedOut, evicted)
	}
}
