package supervise

import (
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// buildFakeServer builds the fake OpenAI-compatible server used for
// subprocess tests and returns its path.
func buildFakeServer(t *testing.T) string {
	t.Helper()
	tdir := t.TempDir()
	bin := filepath.Join(tdir, "fake_openai_server")
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_openai_server.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

// fakeServerTemplate passes the supervisor's placeholders straight to the
// fake server's flags.
var fakeServerTemplate = []string{"--model", "{model}", "--host", "{host}", "--port", "{port}"}

func TestLaunchBecomesHealthyAndTerminates(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeServer(t)
	s := New(Config{
		Binary:        bin,
		ArgsTemplate:  fakeServerTemplate,
		PortStart:     31100,
		PortEnd:       31120,
		HealthTimeout: 15 * time.Second,
		GraceTimeout:  3 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	srv, err := s.Launch(ctx, LaunchSpec{Model: "meta-llama/fake-8B", GPUs: []int{0}})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if srv.PID <= 0 || srv.Port < 31100 || srv.Port > 31120 {
		t.Fatalf("unexpected server: pid=%d port=%d", srv.PID, srv.Port)
	}
	if srv.ID == "" {
		t.Fatalf("expected instance id")
	}
	if !s.Healthy(srv.BaseURL, 2*time.Second) {
		t.Fatalf("expected healthy server at %s", srv.BaseURL)
	}
	if err := s.Terminate(srv); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if !srv.Exited() {
		t.Fatalf("expected server to have exited")
	}
	// Terminate is idempotent on an exited server.
	if err := s.Terminate(srv); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
}

func TestLaunchEarlyExitSurfacesOutputTail(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeServer(t)
	s := New(Config{
		Binary:        bin,
		ArgsTemplate:  append([]string{"-fail"}, fakeServerTemplate...),
		HealthTimeout: 30 * time.Second,
	})
	start := time.Now()
	_, err := s.Launch(context.Background(), LaunchSpec{Model: "m", GPUs: []int{0}})
	if err == nil {
		t.Fatalf("expected launch error")
	}
	if !strings.Contains(err.Error(), "exited before ready") {
		t.Fatalf("expected early-exit error, got: %v", err)
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected output tail in error, got: %v", err)
	}
	// Early exit must not wait out the health timeout.
	if time.Since(start) > 10*time.Second {
		t.Fatalf("early exit took too long: %s", time.Since(start))
	}
}

func TestLaunchHealthTimeoutKillsProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("short mode")
	}
	bin := buildFakeServer(t)
	s := New(Config{
		Binary:        bin,
		ArgsTemplate:  append([]string{"-mute"}, fakeServerTemplate...),
		HealthTimeout: 1 * time.Second,
		GraceTimeout:  1 * time.Second,
	})
	_, err := s.Launch(context.Background(), LaunchSpec{Model: "m", GPUs: []int{0}})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !strings.Contains(err.Error(), "not healthy after") {
		t.Fatalf("expected timeout error, got: %v", err)
	}
}

func TestBuildCmdScopesEnvironment(t *testing.T) {
	s := New(Config{CacheDir: "/tmp/cache"})
	cmd := s.buildCmd(LaunchSpec{Model: "org/m-8B", Parallelism: 2, GPUs: []int{1, 3}}, 30001)
	joined := strings.Join(cmd.Args, " ")
	if !strings.Contains(joined, "--model org/m-8B") {
		t.Fatalf("model missing from args: %q", joined)
	}
	if !strings.Contains(joined, "--tensor-parallel-size 2") {
		t.Fatalf("parallelism missing from args: %q", joined)
	}
	if !strings.Contains(joined, "--port 30001") {
		t.Fatalf("port missing from args: %q", joined)
	}
	var gotGPUs, gotCache bool
	for _, kv := range cmd.Env {
		if kv == "CUDA_VISIBLE_DEVICES=1,3" {
			gotGPUs = true
		}
		if kv == "HF_HOME=/tmp/cache" {
			gotCache = true
		}
	}
	if !gotGPUs {
		t.Fatalf("expected scoped CUDA_VISIBLE_DEVICES, env: %v", cmd.Env)
	}
	if !gotCache {
		t.Fatalf("expected HF_HOME, env: %v", cmd.Env)
	}
}

func TestPickPortInRangeSkipsBusyPorts(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	busy := l.Addr().(*net.TCPAddr).Port
	p, err := pickPortInRange("127.0.0.1", busy, busy+10)
	if err != nil {
		t.Fatalf("pickPortInRange: %v", err)
	}
	if p == busy {
		t.Fatalf("picked busy port %d", p)
	}
}

func TestTailBufferKeepsTail(t *testing.T) {
	tb := newTailBuffer(8)
	if _, err := tb.Write([]byte("0123456789")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := tb.String(); got != "23456789" {
		t.Fatalf("expected tail %q, got %q", "23456789", got)
	}
}
