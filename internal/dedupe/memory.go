package dedupe

import (
	"context"
	"sync"
	"time"

	"gitlab.com/nevasik7/alerting/logger"
)

type memEntry struct {
	expireAt int64 // unix nano, 0 -> never
}

type MemoryLedger struct {
	log     logger.Logger
	ttl     time.Duration
	mu      sync.RWMutex
	items   map[string]memEntry
	stopCh  chan struct{}
	stopped bool
}

// for one process runs;
// ttl-how long a finished unit is remembered, 0 -> for the life of the process;
// janitorEvery-how often expired units are dropped; 0-> don't run collector
func NewMemoryLedger(log logger.Logger, ttl, janitorEvery time.Duration) *MemoryLedger {
	m := &MemoryLedger{
		log:    log,
		ttl:    ttl,
		items:  make(map[string]memEntry, 1024),
		stopCh: make(chan struct{}),
	}

	if janitorEvery > 0 && ttl > 0 {
		go m.janitor(janitorEvery)
	}

	return m
}

func (m *MemoryLedger) Done(_ context.Context, id string) (bool, error) {
	now := time.Now().UnixNano()

	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.items[id]
	if !ok {
		return false, nil
	}
	return e.expireAt == 0 || e.expireAt > now, nil
}

func (m *MemoryLedger) MarkDone(_ context.Context, id string) error {
	var exp int64
	if m.ttl > 0 {
		exp = time.Now().UnixNano() + m.ttl.Nanoseconds()
	}

	m.mu.Lock()
	m.items[id] = memEntry{expireAt: exp}
	m.mu.Unlock()

	m.log.Debugf("Unit marked done, unit_id=%s", id)

	return nil
}

func (m *MemoryLedger) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-t.C:
			now := time.Now().UnixNano()
			m.mu.Lock()
			for k, e := range m.items {
				if e.expireAt != 0 && e.expireAt <= now {
					m.log.Debugf("Removing expired unit: %s", k)
					delete(m.items, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

// Close garbage collector(if running)
func (m *MemoryLedger) Close() {
	m.mu.Lock()
	if !m.stopped {
		close(m.stopCh)
		m.stopped = true
	}
	m.mu.Unlock()
}
