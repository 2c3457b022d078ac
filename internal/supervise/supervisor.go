// Package supervise launches and terminates model-serving subprocesses.
// Each server runs in its own process group so descendant workers (tensor
// parallel ranks, tokenizer helpers) can be signaled together.
package supervise

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultBinary        = "python3"
	defaultHost          = "127.0.0.1"
	defaultHealthTimeout = 5 * time.Minute
	defaultGraceTimeout  = 10 * time.Second
	defaultProbeTimeout  = 2 * time.Second
	healthPollInterval   = 200 * time.Millisecond
)

// Config holds tunables for subprocess launches.
type Config struct {
	// Binary to execute; defaults to python3 running the vLLM entrypoint.
	Binary string
	// ArgsTemplate overrides the default vLLM argument list. Placeholders
	// {model}, {host}, {port} and {tp} are substituted per launch.
	ArgsTemplate []string
	// ExtraArgs are appended after the built argument list.
	ExtraArgs []string
	Host      string
	// Port range to scan; when unset a kernel-assigned free port is used.
	PortStart int
	PortEnd   int
	// CacheDir becomes the model download/cache directory (HF_HOME).
	CacheDir string
	// HealthTimeout bounds how long a launch may take to become healthy.
	HealthTimeout time.Duration
	// GraceTimeout bounds how long Terminate waits after SIGTERM.
	GraceTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Binary == "" {
		c.Binary = defaultBinary
	}
	if c.Host == "" {
		c.Host = defaultHost
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = defaultHealthTimeout
	}
	if c.GraceTimeout <= 0 {
		c.GraceTimeout = defaultGraceTimeout
	}
	return c
}

// LaunchSpec describes one server instance to start.
type LaunchSpec struct {
	Model       string
	Parallelism int
	GPUs        []int
}

// Supervisor launches server subprocesses and owns their process handles
// until Terminate is called.
type Supervisor struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Supervisor {
	// Timeout stays 0: every request carries its own context deadline.
	return &Supervisor{cfg: cfg.withDefaults(), httpClient: &http.Client{Timeout: 0}}
}

// Healthy reports whether the server at baseURL answers its models endpoint.
func (s *Supervisor) Healthy(baseURL string, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Launch starts a server subprocess for spec, pinned to spec.GPUs via a
// scoped CUDA_VISIBLE_DEVICES, and waits until its health endpoint answers.
// If the process exits before becoming healthy the captured output tail is
// returned as the failure reason instead of waiting out the full timeout.
func (s *Supervisor) Launch(ctx context.Context, spec LaunchSpec) (*Server, error) {
	if strings.TrimSpace(spec.Model) == "" {
		return nil, fmt.Errorf("launch: model is empty")
	}
	if spec.Parallelism < 1 {
		spec.Parallelism = 1
	}

	port, err := s.pickPort()
	if err != nil {
		return nil, fmt.Errorf("launch %s: %w", spec.Model, err)
	}
	baseURL := fmt.Sprintf("http://%s:%d", s.cfg.Host, port)

	cmd := s.buildCmd(spec, port)
	tail := newTailBuffer(8 * 1024)
	cmd.Stdout = tail
	cmd.Stderr = tail
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: start: %w", spec.Model, err)
	}
	srv := &Server{
		ID:      uuid.NewString(),
		Model:   spec.Model,
		GPUs:    append([]int(nil), spec.GPUs...),
		Port:    port,
		BaseURL: baseURL,
		PID:     cmd.Process.Pid,
		cmd:     cmd,
		done:    make(chan struct{}),
		tail:    tail,
	}
	go func() {
		srv.waitErr = cmd.Wait()
		close(srv.done)
	}()

	log.Info().
		Str("model", spec.Model).
		Ints("gpus", spec.GPUs).
		Int("pid", srv.PID).
		Int("port", port).
		Msg("server subprocess started, waiting for health")

	deadline := time.NewTimer(s.cfg.HealthTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(healthPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.killGroup(srv)
			return nil, fmt.Errorf("launch %s: %w", spec.Model, ctx.Err())
		case <-srv.done:
			return nil, fmt.Errorf("launch %s: server exited before ready (%v); output tail: %s",
				spec.Model, srv.waitErr, srv.tail.String())
		case <-deadline.C:
			s.killGroup(srv)
			return nil, fmt.Errorf("launch %s: not healthy after %s at %s",
				spec.Model, s.cfg.HealthTimeout, baseURL)
		case <-ticker.C:
			if s.Healthy(baseURL, defaultProbeTimeout) {
				log.Info().
					Str("model", spec.Model).
					Int("pid", srv.PID).
					Str("url", baseURL).
					Msg("server healthy")
				return srv, nil
			}
		}
	}
}

// buildCmd assembles the serve command with a scoped environment. Only the
// variables the runtime needs are passed through, never the full parent env.
func (s *Supervisor) buildCmd(spec LaunchSpec, port int) *exec.Cmd {
	args := s.cfg.ArgsTemplate
	if len(args) == 0 {
		args = []string{
			"-m", "vllm.entrypoints.openai.api_server",
			"--model", "{model}",
			"--host", "{host}",
			"--port", "{port}",
			"--tensor-parallel-size", "{tp}",
		}
	}
	expanded := make([]string, 0, len(args)+len(s.cfg.ExtraArgs))
	replacer := strings.NewReplacer(
		"{model}", spec.Model,
		"{host}", s.cfg.Host,
		"{port}", strconv.Itoa(port),
		"{tp}", strconv.Itoa(spec.Parallelism),
	)
	for _, a := range args {
		expanded = append(expanded, replacer.Replace(a))
	}
	expanded = append(expanded, s.cfg.ExtraArgs...)

	cmd := exec.Command(s.cfg.Binary, expanded...)

	gpuList := make([]string, len(spec.GPUs))
	for i, id := range spec.GPUs {
		gpuList[i] = strconv.Itoa(id)
	}
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + os.Getenv("HOME"),
		"PYTHONUNBUFFERED=1",
		"CUDA_VISIBLE_DEVICES=" + strings.Join(gpuList, ","),
	}
	if s.cfg.CacheDir != "" {
		env = append(env, "HF_HOME="+s.cfg.CacheDir)
	}
	if tok := os.Getenv("HF_TOKEN"); tok != "" {
		env = append(env, "HF_TOKEN="+tok)
	}
	cmd.Env = env
	return cmd
}

func (s *Supervisor) pickPort() (int, error) {
	if s.cfg.PortStart > 0 && s.cfg.PortEnd >= s.cfg.PortStart {
		return pickPortInRange(s.cfg.Host, s.cfg.PortStart, s.cfg.PortEnd)
	}
	return pickFreePort(s.cfg.Host)
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, p))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", host+":0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener addr: %v", l.Addr())
	}
	return addr.Port, nil
}
