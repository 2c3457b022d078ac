// Package reclaim kills leaked compute processes that still hold memory on
// accelerators about to be reused. Everything here is best effort: a failed
// hardware query or kill is logged and swallowed, never propagated.
package reclaim

import (
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"poold/internal/nvidia"
)

var reclaimKillsTotal = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "poold",
	Subsystem: "reclaim",
	Name:      "kills_total",
	Help:      "Total orphaned GPU processes killed before launches",
})

func init() {
	prometheus.MustRegister(reclaimKillsTotal)
}

// defaultAllowed are command-name substrings eligible for killing. Anything
// else on the accelerator is assumed to belong to someone and is left alone.
var defaultAllowed = []string{"python", "vllm", "pt_main_thread"}

const defaultSettle = 3 * time.Second

// Query is the hardware query surface the reclaimer needs.
type Query interface {
	DeviceBusIDs() (map[int]string, error)
	ComputeProcesses() ([]nvidia.ComputeProcess, error)
}

// Reclaimer scans accelerator compute-process tables and kills orphans.
type Reclaimer struct {
	query   Query
	allowed []string
	settle  time.Duration

	// seams for tests
	kill  func(pid int) error
	sleep func(time.Duration)
}

func New(q Query) *Reclaimer {
	return &Reclaimer{
		query:   q,
		allowed: defaultAllowed,
		settle:  defaultSettle,
		kill:    func(pid int) error { return syscall.Kill(pid, syscall.SIGKILL) },
		sleep:   time.Sleep,
	}
}

// Reclaim kills compute processes pinned to the given accelerators, except
// pids listed in exclude (the caller's own live instances) and our own pid.
// Candidates are cross-referenced by PCI bus id, not the transient query
// index, and their command name must match the allow-list before any signal
// is sent. Sleeps briefly after killing so memory is actually freed before
// the caller launches.
func (r *Reclaimer) Reclaim(gpuIDs []int, exclude []int) {
	if r.query == nil || len(gpuIDs) == 0 {
		return
	}
	busByIndex, err := r.query.DeviceBusIDs()
	if err != nil {
		log.Warn().Err(err).Msg("reclaim: bus id query failed, skipping")
		return
	}
	targetBus := make(map[string]bool, len(gpuIDs))
	for _, id := range gpuIDs {
		if bus, ok := busByIndex[id]; ok {
			targetBus[bus] = true
		}
	}
	if len(targetBus) == 0 {
		return
	}
	procs, err := r.query.ComputeProcesses()
	if err != nil {
		log.Warn().Err(err).Msg("reclaim: compute process query failed, skipping")
		return
	}

	skip := map[int]bool{os.Getpid(): true}
	for _, pid := range exclude {
		skip[pid] = true
	}

	killed := 0
	for _, p := range procs {
		if !targetBus[p.BusID] || skip[p.PID] {
			continue
		}
		if !r.commandAllowed(p.Name) {
			log.Warn().
				Int("pid", p.PID).
				Str("name", p.Name).
				Str("bus_id", p.BusID).
				Msg("reclaim: unrecognized process on target accelerator, leaving it alone")
			continue
		}
		if err := r.kill(p.PID); err != nil {
			log.Warn().Err(err).Int("pid", p.PID).Msg("reclaim: kill failed")
			continue
		}
		log.Info().
			Int("pid", p.PID).
			Str("name", p.Name).
			Str("bus_id", p.BusID).
			Msg("reclaim: killed orphaned GPU process")
		reclaimKillsTotal.Inc()
		killed++
	}
	if killed > 0 {
		// Give the driver a moment to release the memory.
		r.sleep(r.settle)
	}
}

func (r *Reclaimer) commandAllowed(name string) bool {
	lower := strings.ToLower(name)
	for _, a := range r.allowed {
		if strings.Contains(lower, a) {
			return true
		}
	}
	return false
}
