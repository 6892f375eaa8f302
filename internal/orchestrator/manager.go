package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/akolanti/DocScanAPI/internal/config"
	"github.com/akolanti/DocScanAPI/internal/domain/appErrors"
	"github.com/akolanti/DocScanAPI/internal/domain/jobModel"
	"github.com/akolanti/DocScanAPI/internal/metrics"
	"github.com/akolanti/DocScanAPI/pkg/logger_i"
	"github.com/google/uuid"
)

// Manager holds the live scan contexts, one Orchestrator each, keyed by scan id.
type Manager struct {
	mu       sync.RWMutex
	contexts map[string]*Orchestrator
	claims   *claimSet

	extractor   Extractor
	persister   Persister
	maxContexts int
	idleTTL     time.Duration
	now         func() time.Time
	logger      *logger_i.Logger
}

type ManagerConfig struct {
	Extractor   Extractor
	Persister   Persister
	MaxContexts int
	IdleTTL     time.Duration
	Clock       func() time.Time
}

func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		contexts:    make(map[string]*Orchestrator),
		claims:      newClaimSet(),
		extractor:   cfg.Extractor,
		persister:   cfg.Persister,
		maxContexts: cfg.MaxContexts,
		idleTTL:     cfg.IdleTTL,
		now:         cfg.Clock,
		logger:      logger_i.NewLogger("ScanManager"),
	}
	if m.maxContexts <= 0 {
		m.maxContexts = config.MaxScanContexts
	}
	if m.idleTTL <= 0 {
		m.idleTTL = config.ScanContextIdleTTL
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Create opens a new scan context for userId. When the manager is full, idle
// contexts are swept first.
func (m *Manager) Create(userId string) (*Orchestrator, error) {
	if m.Len() >= m.maxContexts {
		m.Sweep()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.contexts) >= m.maxContexts {
		return nil, appErrors.Busy("TOO_MANY_SCANS", "too many scans are open; try again later")
	}
	o := New(Config{
		ScanId:    uuid.NewString(),
		UserId:    userId,
		Extractor: m.extractor,
		Persister: m.persister,
		Clock:     m.now,
		claims:    m.claims,
	})
	m.contexts[o.ScanId()] = o
	metrics.SetLiveScanContexts(len(m.contexts))
	m.logger.Debug("Scan context created", "scan Id", o.ScanId(), "user Id", userId)
	return o, nil
}

// Get returns the context of scanId when it belongs to userId.
func (m *Manager) Get(scanId string, userId string) (*Orchestrator, error) {
	m.mu.RLock()
	o, ok := m.contexts[scanId]
	m.mu.RUnlock()
	if !ok || o.UserId() != userId {
		return nil, appErrors.NotFound("SCAN_NOT_FOUND", "scan "+scanId+" does not exist or has expired")
	}
	return o, nil
}

// Remove discards and forgets a context. Its claims go with it.
func (m *Manager) Remove(scanId string, userId string) error {
	o, err := m.Get(scanId, userId)
	if err != nil {
		return err
	}
	o.Discard()
	m.mu.Lock()
	delete(m.contexts, scanId)
	metrics.SetLiveScanContexts(len(m.contexts))
	m.mu.Unlock()
	m.claims.releaseAll(scanId)
	return nil
}

// Execute runs a queued scan request against its context. A context removed in
// the meantime makes the request stale.
func (m *Manager) Execute(ctx context.Context, req jobModel.ScanRequest) error {
	m.mu.RLock()
	o, ok := m.contexts[req.ScanId]
	m.mu.RUnlock()
	if !ok {
		m.logger.WithContext(ctx).Info("Scan context gone before execution", "scan Id", req.ScanId)
		return appErrors.ErrStaleResult
	}
	return o.Execute(ctx, req)
}

// HolderOf returns the scan context currently scanning or committing documentId.
func (m *Manager) HolderOf(documentId string) (string, bool) {
	return m.claims.owner(documentId)
}

// InUse reports whether any context is working on documentId or holds it in
// its review buffer.
func (m *Manager) InUse(documentId string) bool {
	if _, held := m.claims.owner(documentId); held {
		return true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.contexts {
		if o.holds(documentId) {
			return true
		}
	}
	return false
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// Sweep drops contexts idle for longer than the TTL. Contexts with a call in
// flight are kept.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.idleTTL)

	m.mu.Lock()
	var expired []string
	for id, o := range m.contexts {
		lastUsed, active := o.idleSince()
		if !active && lastUsed.Before(cutoff) {
			expired = append(expired, id)
			delete(m.contexts, id)
		}
	}
	metrics.SetLiveScanContexts(len(m.contexts))
	m.mu.Unlock()

	for _, id := range expired {
		m.claims.releaseAll(id)
	}
	if len(expired) > 0 {
		m.logger.Info("Idle scan contexts removed", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps on every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = config.ScanContextSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Scan context sweeper stopped")
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// IsStale reports whether err only means a result was dropped.
func IsStale(err error) bool {
	return errors.Is(err, appErrors.ErrStaleResult)
}
