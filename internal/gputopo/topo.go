// Package gputopo reports which accelerators the daemon may use.
package gputopo

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// EnvVisibleDevices overrides the visible accelerator set with a
// comma-separated list of integer ids.
const EnvVisibleDevices = "CUDA_VISIBLE_DEVICES"

// DeviceLister is the hardware query needed by the probe.
type DeviceLister interface {
	DeviceIndexes() ([]int, error)
}

// Probe resolves the current accelerator topology. The environment is
// re-read on every call: provisioning decisions must see override changes,
// so nothing is cached here.
type Probe struct {
	lister DeviceLister
}

func New(l DeviceLister) *Probe { return &Probe{lister: l} }

// IDs returns the ordered accelerator ids currently visible.
// Resolution order: environment override, hardware query, fallback [0].
func (p *Probe) IDs() []int {
	if v, ok := os.LookupEnv(EnvVisibleDevices); ok {
		if ids := ParseVisible(v); len(ids) > 0 {
			return ids
		}
	}
	if p.lister != nil {
		ids, err := p.lister.DeviceIndexes()
		if err != nil {
			log.Warn().Err(err).Msg("gputopo: hardware query failed, assuming one accelerator")
		} else if len(ids) > 0 {
			return ids
		}
	}
	return []int{0}
}

// Count returns the number of visible accelerators.
func (p *Probe) Count() int { return len(p.IDs()) }

// Fingerprint renders the current topology as a canonical string. Pools
// snapshot it at initialization and tear down when it drifts.
func (p *Probe) Fingerprint() string {
	ids := p.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// ParseVisible parses a comma-separated id list; malformed entries are
// skipped rather than failing the whole override.
func ParseVisible(s string) []int {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			continue
		}
		ids = append(ids, n)
	}
	return ids
}
