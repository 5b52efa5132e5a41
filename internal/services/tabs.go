package services

import (
	"context"
	"log"
	"sync"
	"time"

	"resumematch/scanner-web/internal/repositories"
)

// Tab bundles the per-tab client: its session store, request pipeline,
// auth context and the services built on them.
type Tab struct {
	ID       string
	Session  SessionStore
	Pipeline RequestPipeline
	Auth     *AuthContext
	Accounts AccountService
	Scans    ScanService
	History  HistoryService

	mu       sync.Mutex
	lastSeen time.Time
}

func NewTab(id string, storage repositories.TabStorage, cfg PipelineConfig, parser DocumentParserService) (*Tab, error) {
	if id == "" {
		return nil, repositories.ErrEmptyScope
	}

	session := NewSessionStore(storage, id)
	pipeline, err := NewRequestPipeline(cfg, session)
	if err != nil {
		return nil, err
	}

	return &Tab{
		ID:       id,
		Session:  session,
		Pipeline: pipeline,
		Auth:     NewAuthContext(session, pipeline),
		Accounts: NewAccountService(pipeline),
		Scans:    NewScanService(pipeline, parser),
		History:  NewHistoryService(pipeline),
		lastSeen: time.Now(),
	}, nil
}

func (t *Tab) touch(now time.Time) {
	t.mu.Lock()
	t.lastSeen = now
	t.mu.Unlock()
}

func (t *Tab) idleSince(cutoff time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen.Before(cutoff)
}

// TabRegistry keeps one Tab per tab id for the web front end.
type TabRegistry struct {
	storage repositories.TabStorage
	cfg     PipelineConfig
	parser  DocumentParserService
	now     func() time.Time

	mu   sync.Mutex
	tabs map[string]*Tab
}

func NewTabRegistry(storage repositories.TabStorage, cfg PipelineConfig, parser DocumentParserService) *TabRegistry {
	return &TabRegistry{
		storage: storage,
		cfg:     cfg,
		parser:  parser,
		now:     time.Now,
		tabs:    make(map[string]*Tab),
	}
}

// Open returns the tab for id, creating it on first use.
func (r *TabRegistry) Open(id string) (*Tab, error) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	if tab, ok := r.tabs[id]; ok {
		tab.touch(now)
		return tab, nil
	}

	tab, err := NewTab(id, r.storage, r.cfg, r.parser)
	if err != nil {
		return nil, err
	}
	tab.touch(now)
	r.tabs[id] = tab
	tabsActive.Set(float64(len(r.tabs)))
	return tab, nil
}

// Sync checks every open tab against storage and returns how many were
// signed out because their session is gone.
func (r *TabRegistry) Sync(ctx context.Context) int {
	r.mu.Lock()
	tabs := make([]*Tab, 0, len(r.tabs))
	for _, tab := range r.tabs {
		tabs = append(tabs, tab)
	}
	r.mu.Unlock()

	signedOut := 0
	for _, tab := range tabs {
		out, err := tab.Auth.Sync(ctx)
		if err != nil {
			log.Printf("⚠️  Tab %s could not be synced: %v\n", tab.ID, err)
			continue
		}
		if out {
			signedOut++
		}
	}
	return signedOut
}

// Evict drops tabs not opened for longer than idle. Their storage is left
// alone; a later Open rehydrates from it.
func (r *TabRegistry) Evict(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, tab := range r.tabs {
		if tab.idleSince(cutoff) {
			delete(r.tabs, id)
			evicted++
		}
	}
	tabsActive.Set(float64(len(r.tabs)))
	return evicted
}

func (r *TabRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tabs)
}
