package pool

import (
	"time"

	"github.com/rs/zerolog/log"

	"poold/internal/supervise"
)

// ShutdownAll terminates every instance in every pool and clears all state.
// Registered as best-effort cleanup on normal exit and termination signals;
// idempotent and safe to call when nothing is running.
func (m *Manager) ShutdownAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pools) == 0 {
		return
	}
	log.Info().Int("pools", len(m.pools)).Msg("pool: shutting down all instances")
	m.teardownAllLocked("shutdown")
	m.topoSnapshot = ""
}

// teardownAllLocked kills every instance and resets pool state. Caller
// holds the write lock.
func (m *Manager) teardownAllLocked(reason string) {
	for model, insts := range m.pools {
		for _, srv := range insts {
			m.dropInstanceLocked(srv, reason)
		}
		m.cfg.Publisher.Publish(Event{Name: "pool_teardown", Model: model, Fields: map[string]any{"reason": reason}})
	}
	m.pools = make(map[string][]*supervise.Server)
	m.cursor = make(map[string]int)
	m.unhealthy = make(map[string]time.Time)
}
