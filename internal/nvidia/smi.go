// Package nvidia wraps the nvidia-smi tooling used for accelerator queries.
// All queries are best effort: callers treat failures as soft and continue.
package nvidia

import (
	"os/exec"
	"strconv"
	"strings"
)

// ComputeProcess is one row of the nvidia-smi compute-apps table.
type ComputeProcess struct {
	PID int
	// BusID is the PCI bus id of the device the process holds memory on.
	// It is stable across queries, unlike the log-order index.
	BusID string
	// Name is the process command name as reported by the driver.
	Name string
}

// Runner abstracts command execution so tests can stub nvidia-smi output.
type Runner interface {
	Output(name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Output(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// SMI queries accelerator state through the nvidia-smi binary.
type SMI struct {
	run Runner
}

func New() *SMI { return &SMI{run: execRunner{}} }

// NewWithRunner constructs an SMI backed by a custom Runner.
func NewWithRunner(r Runner) *SMI { return &SMI{run: r} }

// Available reports whether nvidia-smi is present on PATH.
func (s *SMI) Available() bool {
	_, err := exec.LookPath("nvidia-smi")
	return err == nil
}

// DeviceIndexes returns the indexes of all visible devices.
func (s *SMI) DeviceIndexes() ([]int, error) {
	out, err := s.run.Output("nvidia-smi", "--query-gpu=index", "--format=csv,noheader,nounits")
	if err != nil {
		return nil, err
	}
	var ids []int
	for _, line := range splitLines(out) {
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// DeviceBusIDs maps device index to its PCI bus id.
func (s *SMI) DeviceBusIDs() (map[int]string, error) {
	out, err := s.run.Output("nvidia-smi", "--query-gpu=index,pci.bus_id", "--format=csv,noheader")
	if err != nil {
		return nil, err
	}
	m := make(map[int]string)
	for _, line := range splitLines(out) {
		fields := strings.SplitN(line, ",", 2)
		if len(fields) != 2 {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		m[idx] = strings.TrimSpace(fields[1])
	}
	return m, nil
}

// ComputeProcesses lists all processes currently holding compute memory,
// keyed by the stable PCI bus id of the device they run on.
func (s *SMI) ComputeProcesses() ([]ComputeProcess, error) {
	out, err := s.run.Output("nvidia-smi", "--query-compute-apps=pid,gpu_bus_id,process_name", "--format=csv,noheader")
	if err != nil {
		return nil, err
	}
	var procs []ComputeProcess
	for _, line := range splitLines(out) {
		fields := strings.SplitN(line, ",", 3)
		if len(fields) != 3 {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		procs = append(procs, ComputeProcess{
			PID:   pid,
			BusID: strings.TrimSpace(fields[1]),
			Name:  strings.TrimSpace(fields[2]),
		})
	}
	return procs, nil
}

func splitLines(out []byte) []string {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}
