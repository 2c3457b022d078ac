package pool

// NextURL returns the base URL of the next instance to try, round robin
// with unhealthy-marker avoidance. When every member is currently marked
// unhealthy the next one is returned anyway: markers are heuristic, and
// traffic is what clears or re-confirms them.
func (m *Manager) NextURL(model string) (string, bool) {
	key := Normalize(model)
	m.mu.Lock()
	defer m.mu.Unlock()

	insts := m.pools[key]
	n := len(insts)
	if n == 0 {
		return "", false
	}
	// The cursor may point past the end after pool shrinkage; wrap first.
	start := m.cursor[key] % n
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		url := insts[idx].BaseURL
		if !m.isUnhealthyLocked(url) {
			m.cursor[key] = (idx + 1) % n
			return url, true
		}
	}
	url := insts[start].BaseURL
	m.cursor[key] = (start + 1) % n
	return url, true
}

// MarkUnhealthy records the current time against url. Purely advisory: the
// instance stays in the pool (it may recover); selection skips it until the
// marker's TTL elapses or a health check passes.
func (m *Manager) MarkUnhealthy(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unhealthy[url] = m.now()
	unhealthyMarksTotal.Inc()
}

// markHealthy clears the unhealthy marker eagerly once health is confirmed.
func (m *Manager) markHealthy(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.unhealthy, url)
}

// isUnhealthyLocked reports whether url carries a live unhealthy marker.
// Expired markers are dropped on observation.
func (m *Manager) isUnhealthyLocked(url string) bool {
	marked, ok := m.unhealthy[url]
	if !ok {
		return false
	}
	if m.now().Sub(marked) >= m.cfg.UnhealthyTTL {
		delete(m.unhealthy, url)
		return false
	}
	return true
}
