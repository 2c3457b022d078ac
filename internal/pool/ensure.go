package pool

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"poold/internal/capacity"
	"poold/internal/supervise"
)

// EnsurePool makes sure at least one healthy server instance exists for
// model. Idempotent: concurrent callers for a cold model serialize on the
// pool lock and only the first one launches.
func (m *Manager) EnsurePool(ctx context.Context, model string) error {
	key := Normalize(model)
	if key == "" {
		return ErrUnavailable(model, errors.New("empty model identifier"))
	}

	// Fast path: an existing member answering its health check means the
	// pool is warm; no exclusive lock is taken.
	m.mu.RLock()
	insts := append([]*supervise.Server(nil), m.pools[key]...)
	m.mu.RUnlock()
	for _, srv := range insts {
		if m.cfg.Launcher.Healthy(srv.BaseURL, m.cfg.ProbeTimeout) {
			m.markHealthy(srv.BaseURL)
			return nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureLocked(ctx, key, strings.TrimSpace(model))
}

func (m *Manager) ensureLocked(ctx context.Context, key, model string) error {
	m.cfg.Publisher.Publish(Event{Name: "ensure_start", Model: key})

	// Every pool was provisioned against the topology snapshot. If the
	// live topology drifted, rebuild everything against it before any
	// new launch.
	fp := m.cfg.Topology.Fingerprint()
	if m.topoSnapshot != "" && fp != m.topoSnapshot {
		log.Warn().
			Str("was", m.topoSnapshot).
			Str("now", fp).
			Msg("pool: GPU topology changed, tearing down all pools")
		m.teardownAllLocked("topology_changed")
	}
	m.topoSnapshot = fp

	// Double-checked: another caller may have built the pool while we
	// waited for the lock. Prune members that died in the meantime.
	if insts := m.pools[key]; len(insts) > 0 {
		alive := insts[:0]
		for _, srv := range insts {
			if m.cfg.Launcher.Healthy(srv.BaseURL, m.cfg.ProbeTimeout) {
				alive = append(alive, srv)
				continue
			}
			log.Warn().
				Str("model", key).
				Int("pid", srv.PID).
				Str("url", srv.BaseURL).
				Msg("pool: instance no longer healthy, pruning")
			m.dropInstanceLocked(srv, "crashed")
		}
		if len(alive) > 0 {
			m.pools[key] = alive
			return nil
		}
		delete(m.pools, key)
		delete(m.cursor, key)
	}

	// A recent total failure suppresses relaunch attempts so a broken
	// model is not hammered.
	if t, ok := m.lastFailure[key]; ok {
		until := t.Add(m.cfg.FailureCooldown)
		if m.now().Before(until) {
			m.cfg.Publisher.Publish(Event{Name: "ensure_cooldown", Model: key})
			return cooldownError{model: key, until: until}
		}
		delete(m.lastFailure, key)
	}

	ids := m.cfg.Topology.IDs()
	par := capacity.EstimateParallelism(model, len(ids))

	// Leaked processes from a previous crash would fragment memory; the
	// reclaimer runs inside the lock so it cannot race a launch.
	if m.cfg.Reclaimer != nil {
		m.cfg.Reclaimer.Reclaim(ids, m.livePIDsLocked())
	}

	launched, lastErr := m.launchPoolLocked(ctx, model, par, ids)
	if len(launched) == 0 {
		m.lastFailure[key] = m.now()
		m.launchFailures.Add(1)
		m.cfg.Publisher.Publish(Event{Name: "pool_failed", Model: key})
		if lastErr == nil {
			lastErr = errors.New("no instance became healthy")
		}
		return ErrUnavailable(key, lastErr)
	}
	m.pools[key] = launched
	m.cursor[key] = 0
	instancesGauge.Add(float64(len(launched)))
	m.cfg.Publisher.Publish(Event{Name: "pool_ready", Model: key, Fields: map[string]any{"instances": len(launched)}})
	log.Info().
		Str("model", key).
		Int("instances", len(launched)).
		Int("parallelism", par).
		Msg("pool ready")
	return nil
}

// launchPoolLocked provisions the instances for one model. With parallelism
// 1 and multiple accelerators it launches one data-parallel replica per
// accelerator; otherwise a single instance spanning the estimated count.
// The pool is established if at least one instance becomes healthy.
func (m *Manager) launchPoolLocked(ctx context.Context, model string, par int, ids []int) ([]*supervise.Server, error) {
	if par == 1 && len(ids) > 1 {
		return m.launchReplicasLocked(ctx, model, ids)
	}
	srv, err := m.launchOne(ctx, model, par, ids[:par])
	if err != nil {
		return nil, err
	}
	return []*supervise.Server{srv}, nil
}

// launchReplicasLocked starts one replica per accelerator. The first one is
// launched serially and must become healthy before the rest start: its
// launch is also what fetches the model weights into the shared cache, and
// the followers benefit from the warm copy instead of racing the download.
func (m *Manager) launchReplicasLocked(ctx context.Context, model string, ids []int) ([]*supervise.Server, error) {
	first, err := m.launchOne(ctx, model, 1, ids[:1])
	if err != nil {
		return nil, err
	}
	servers := []*supervise.Server{first}

	var smu sync.Mutex
	g := new(errgroup.Group)
	for _, id := range ids[1:] {
		id := id
		g.Go(func() error {
			gctx, cancel := context.WithTimeout(ctx, m.cfg.ReplicaDeadline)
			defer cancel()
			srv, err := m.launchOne(gctx, model, 1, []int{id})
			if err != nil {
				// Transient: the pool is viable on the replicas
				// that did come up.
				log.Warn().Err(err).Str("model", model).Int("gpu", id).Msg("pool: replica launch failed")
				return nil
			}
			smu.Lock()
			servers = append(servers, srv)
			smu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return servers, nil
}

func (m *Manager) launchOne(ctx context.Context, model string, par int, gpus []int) (*supervise.Server, error) {
	m.launches.Add(1)
	srv, err := m.cfg.Launcher.Launch(ctx, supervise.LaunchSpec{
		Model:       model,
		Parallelism: par,
		GPUs:        gpus,
	})
	if err != nil {
		launchesTotal.WithLabelValues("failure").Inc()
		m.cfg.Publisher.Publish(Event{Name: "launch_failed", Model: model, Fields: map[string]any{"error": err.Error()}})
		return nil, err
	}
	launchesTotal.WithLabelValues("success").Inc()
	m.cfg.Publisher.Publish(Event{Name: "launch_ready", Model: model, Fields: map[string]any{"pid": srv.PID, "url": srv.BaseURL}})
	return srv, nil
}

// dropInstanceLocked terminates one instance and forgets its markers.
func (m *Manager) dropInstanceLocked(srv *supervise.Server, reason string) {
	_ = m.cfg.Launcher.Terminate(srv)
	delete(m.unhealthy, srv.BaseURL)
	instancesGauge.Dec()
	teardownsTotal.WithLabelValues(reason).Inc()
}

// ProbeTimeout returns the per-probe health check bound.
func (m *Manager) ProbeTimeout() time.Duration { return m.cfg.ProbeTimeout }
