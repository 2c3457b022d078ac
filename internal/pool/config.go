package pool

import "time"

// Defaults applied when corresponding Config fields are unset.
const (
	defaultFailureCooldown = 5 * time.Minute
	defaultUnhealthyTTL    = 90 * time.Second
	defaultProbeTimeout    = 2 * time.Second
	defaultReplicaDeadline = 10 * time.Minute
)

// Config encapsulates all tunables and collaborators for Manager construction.
type Config struct {
	Launcher  Launcher
	Reclaimer OrphanReclaimer
	Topology  Topology

	// FailureCooldown is the minimum gap between launch attempts for a
	// model whose previous launch failed entirely.
	FailureCooldown time.Duration
	// UnhealthyTTL is how long an unhealthy marker keeps a URL out of
	// round-robin selection.
	UnhealthyTTL time.Duration
	// ProbeTimeout bounds each health probe.
	ProbeTimeout time.Duration
	// ReplicaDeadline bounds the parallel launch of the non-first
	// data-parallel replicas as a whole.
	ReplicaDeadline time.Duration

	Publisher EventPublisher
}

func (c Config) withDefaults() Config {
	if c.FailureCooldown <= 0 {
		c.FailureCooldown = defaultFailureCooldown
	}
	if c.UnhealthyTTL <= 0 {
		c.UnhealthyTTL = defaultUnhealthyTTL
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaultProbeTimeout
	}
	if c.ReplicaDeadline <= 0 {
		c.ReplicaDeadline = defaultReplicaDeadline
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	return c
}
