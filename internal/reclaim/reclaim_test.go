package reclaim

import (
	"errors"
	"testing"
	"time"

	"poold/internal/nvidia"
)

type fakeQuery struct {
	bus    map[int]string
	procs  []nvidia.ComputeProcess
	busErr error
}

func (f fakeQuery) DeviceBusIDs() (map[int]string, error) { return f.bus, f.busErr }
func (f fakeQuery) ComputeProcesses() ([]nvidia.ComputeProcess, error) {
	return f.procs, nil
}

func newTestReclaimer(q Query) (*Reclaimer, *[]int) {
	r := New(q)
	var killed []int
	r.kill = func(pid int) error {
		killed = append(killed, pid)
		return nil
	}
	r.sleep = func(time.Duration) {}
	return r, &killed
}

func TestReclaimKillsOrphansOnTargetGPUs(t *testing.T) {
	r, killed := newTestReclaimer(fakeQuery{
		bus: map[int]string{0: "bus-0", 1: "bus-1"},
		procs: []nvidia.ComputeProcess{
			{PID: 100, BusID: "bus-0", Name: "python3"},
			{PID: 200, BusID: "bus-1", Name: "vllm"},
		},
	})
	r.Reclaim([]int{0}, nil)
	if len(*killed) != 1 || (*killed)[0] != 100 {
		t.Fatalf("expected only pid 100 killed, got %v", *killed)
	}
}

func TestReclaimVerifiesCommandName(t *testing.T) {
	r, killed := newTestReclaimer(fakeQuery{
		bus: map[int]string{0: "bus-0"},
		procs: []nvidia.ComputeProcess{
			{PID: 100, BusID: "bus-0", Name: "Xorg"},
			{PID: 101, BusID: "bus-0", Name: "pt_main_thread"},
		},
	})
	r.Reclaim([]int{0}, nil)
	if len(*killed) != 1 || (*killed)[0] != 101 {
		t.Fatalf("expected only pid 101 killed, got %v", *killed)
	}
}

func TestReclaimExcludesLivePids(t *testing.T) {
	r, killed := newTestReclaimer(fakeQuery{
		bus: map[int]string{0: "bus-0"},
		procs: []nvidia.ComputeProcess{
			{PID: 100, BusID: "bus-0", Name: "python3"},
			{PID: 200, BusID: "bus-0", Name: "python3"},
		},
	})
	r.Reclaim([]int{0}, []int{200})
	if len(*killed) != 1 || (*killed)[0] != 100 {
		t.Fatalf("expected only pid 100 killed, got %v", *killed)
	}
}

func TestReclaimQueryFailureIsSoft(t *testing.T) {
	r, killed := newTestReclaimer(fakeQuery{busErr: errors.New("smi gone")})
	r.Reclaim([]int{0}, nil) // must not panic or kill anything
	if len(*killed) != 0 {
		t.Fatalf("expected no kills, got %v", *killed)
	}
}

func TestReclaimSleepsOnlyAfterKills(t *testing.T) {
	r := New(fakeQuery{
		bus: map[int]string{0: "bus-0"},
		procs: []nvidia.ComputeProcess{
			{PID: 100, BusID: "bus-0", Name: "python3"},
		},
	})
	r.kill = func(int) error { return nil }
	slept := false
	r.sleep = func(time.Duration) { slept = true }
	r.Reclaim([]int{0}, nil)
	if !slept {
		t.Fatalf("expected settle sleep after kills")
	}

	slept = false
	r.query = fakeQuery{bus: map[int]string{0: "bus-0"}}
	r.Reclaim([]int{0}, nil)
	if slept {
		t.Fatalf("expected no sleep when nothing was killed")
	}
}
