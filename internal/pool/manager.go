// Package pool owns the set of running local model servers. The Manager is
// the single writer of pool state: callers read membership via NextURL and
// may report a URL unhealthy, but only the Manager starts or kills servers.
package pool

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"poold/internal/supervise"
	"poold/pkg/types"
)

// Launcher starts, probes and stops server subprocesses. Satisfied by
// *supervise.Supervisor; tests substitute fakes.
type Launcher interface {
	Launch(ctx context.Context, spec supervise.LaunchSpec) (*supervise.Server, error)
	Terminate(srv *supervise.Server) error
	Healthy(baseURL string, timeout time.Duration) bool
}

// OrphanReclaimer frees leaked accelerator memory before a launch.
type OrphanReclaimer interface {
	Reclaim(gpuIDs []int, exclude []int)
}

// Topology reports the current accelerator set.
type Topology interface {
	IDs() []int
	Fingerprint() string
}

// Manager owns, per normalized model identifier, the running server
// instances. One process-wide instance is constructed at startup; tests
// build their own.
type Manager struct {
	cfg Config

	// mu guards all pool state. Mutating paths (launch, teardown,
	// topology handling) hold the write lock; the warm fast path and
	// status reads only take the read lock.
	mu           sync.RWMutex
	pools        map[string][]*supervise.Server
	cursor       map[string]int
	lastFailure  map[string]time.Time
	unhealthy    map[string]time.Time
	topoSnapshot string

	// Launch counters are atomic: replica launches run concurrently.
	launches       atomic.Uint64
	launchFailures atomic.Uint64
	startTime      time.Time

	now func() time.Time
}

func New(cfg Config) *Manager {
	return &Manager{
		cfg:         cfg.withDefaults(),
		pools:       make(map[string][]*supervise.Server),
		cursor:      make(map[string]int),
		lastFailure: make(map[string]time.Time),
		unhealthy:   make(map[string]time.Time),
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// Normalize canonicalizes a model identifier for pool keying. The original
// spelling is preserved for launches (model hub identifiers are
// case-sensitive); only the key is folded.
func Normalize(model string) string {
	return strings.ToLower(strings.TrimSpace(model))
}

// Has reports whether a pool with at least one registered instance exists.
func (m *Manager) Has(model string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pools[Normalize(model)]) > 0
}

// Status builds a read-only snapshot for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	resp := types.StatusResponse{
		GPUTopology:         m.cfg.Topology.IDs(),
		UptimeSeconds:       int64(now.Sub(m.startTime) / time.Second),
		ServerTimeUnix:      now.Unix(),
		LaunchesTotal:       m.launches.Load(),
		LaunchFailuresTotal: m.launchFailures.Load(),
	}
	for model, insts := range m.pools {
		ps := types.PoolStatus{Model: model}
		if t, ok := m.lastFailure[model]; ok {
			ps.LastFailureUnix = t.Unix()
		}
		for _, srv := range insts {
			marked, has := m.unhealthy[srv.BaseURL]
			ps.Instances = append(ps.Instances, types.InstanceStatus{
				ID:        srv.ID,
				Model:     srv.Model,
				URL:       srv.BaseURL,
				Port:      srv.Port,
				PID:       srv.PID,
				GPUs:      srv.GPUs,
				Unhealthy: has && now.Sub(marked) < m.cfg.UnhealthyTTL,
			})
		}
		resp.Pools = append(resp.Pools, ps)
	}
	return resp
}

// livePIDsLocked lists the pids of every registered instance across pools.
// Callers must hold at least the read lock.
func (m *Manager) livePIDsLocked() []int {
	var pids []int
	for _, insts := range m.pools {
		for _, srv := range insts {
			pids = append(pids, srv.PID)
		}
	}
	return pids
}
