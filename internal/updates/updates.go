// Package updates collects the containers whose contents changed and bumps
// their update ids in batches, the way UPnP eventing expects a
// ContainerUpdateIDs value to move.
package updates

import (
	"context"
	"sort"
	"sync"
	"time"

	"media-directory/internal/logging"
	"media-directory/internal/metrics"
)

// Incrementer persists update id bumps. storage.Storage implements it.
type Incrementer interface {
	IncrementUpdateIDs(ctx context.Context, ids []int64) error
}

// Manager implements storage.ChangeNotifier.
type Manager struct {
	store     Incrementer
	interval  time.Duration
	threshold int

	mu      sync.Mutex
	pending map[int64]struct{}

	kick     chan struct{}
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

// NewManager creates a manager that flushes every interval, or sooner once
// threshold ids are pending.
func NewManager(store Incrementer, interval time.Duration, threshold int) *Manager {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if threshold <= 0 {
		threshold = 100
	}
	return &Manager{
		store:     store,
		interval:  interval,
		threshold: threshold,
		pending:   make(map[int64]struct{}),
		kick:      make(chan struct{}, 1),
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// ContainerChanged records id for the next flush. It never blocks on the
// database.
func (m *Manager) ContainerChanged(id int64) {
	m.mu.Lock()
	m.pending[id] = struct{}{}
	full := len(m.pending) >= m.threshold
	m.mu.Unlock()

	if full {
		select {
		case m.kick <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of ids waiting for a flush.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Start begins the flush loop.
func (m *Manager) Start() {
	go m.loop()
}

// Stop ends the flush loop after a final flush.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopChan)
		<-m.doneChan
	})
}

func (m *Manager) loop() {
	defer close(m.doneChan)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.flushLogged()
		case <-m.kick:
			m.flushLogged()
		case <-m.stopChan:
			m.flushLogged()
			return
		}
	}
}

func (m *Manager) flushLogged() {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval+5*time.Second)
	defer cancel()
	if err := m.Flush(ctx); err != nil {
		logging.Warn("Container update flush failed: %v", err)
	}
}

// Flush writes every pending id now. Ids whose write failed stay pending.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}
	ids := make([]int64, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	clear(m.pending)
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := m.store.IncrementUpdateIDs(ctx, ids); err != nil {
		m.mu.Lock()
		for _, id := range ids {
			m.pending[id] = struct{}{}
		}
		m.mu.Unlock()
		return err
	}

	metrics.ContainerUpdatesTotal.Add(float64(len(ids)))
	logging.Debug("Bumped update ids of %d containers", len(ids))
	return nil
}
