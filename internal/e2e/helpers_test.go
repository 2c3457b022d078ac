package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"poold/internal/pool"
	"poold/internal/router"
	"poold/internal/supervise"
	"poold/pkg/types"
)

type env struct {
	launcher *fakeLauncher
	remote   *fakeRemote
	mgr      *pool.Manager
	svc      *svc
}

func newTestEnv(t *testing.T, gpus int) *env {
	t.Helper()
	ids := make([]int, gpus)
	for i := range ids {
		ids[i] = i
	}
	launcher := &fakeLauncher{t: t, healthy: make(map[string]bool)}
	mgr := pool.New(pool.Config{
		Launcher:        launcher,
		Topology:        fixedTopo(ids),
		FailureCooldown: time.Minute,
	})
	t.Cleanup(mgr.ShutdownAll)
	remote := &fakeRemote{}
	rt := router.New(router.Config{
		Rules:  router.Rules{AutoDeploy: true},
		Pool:   mgr,
		Remote: remote,
	})
	return &env{
		launcher: launcher,
		remote:   remote,
		mgr:      mgr,
		svc:      &svc{rt: rt, mgr: mgr},
	}
}

type fixedTopo []int

func (f fixedTopo) IDs() []int { return append([]int(nil), f...) }

func (f fixedTopo) Fingerprint() string {
	s := ""
	for i, id := range f {
		if i > 0 {
			s += ","
		}
		s += strconv.Itoa(id)
	}
	return s
}

// fakeLauncher spins up an httptest completion backend per launch so the
// router exercises its real HTTP path.
type fakeLauncher struct {
	t *testing.T

	mu         sync.Mutex
	healthy    map[string]bool
	launches   int
	terminates int
	failAll    bool
	next       int
}

func (f *fakeLauncher) Launch(_ context.Context, spec supervise.LaunchSpec) (*supervise.Server, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.launches++
	if f.failAll {
		return nil, errors.New("simulated launch failure")
	}
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/models":
			json.NewEncoder(w).Encode(map[string]any{"object": "list"})
		case "/v1/chat/completions":
			var req types.ChatCompletionRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(types.ChatCompletionResponse{
				Model:   req.Model,
				Choices: []types.ChatCompletionChoice{{Message: types.ChatMessage{Role: "assistant", Content: "served by " + spec.Model}}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
	f.t.Cleanup(backend.Close)
	f.next++
	f.healthy[backend.URL] = true
	return &supervise.Server{
		ID:      strconv.Itoa(f.next),
		Model:   spec.Model,
		GPUs:    spec.GPUs,
		BaseURL: backend.URL,
		PID:     4000 + f.next,
	}, nil
}

func (f *fakeLauncher) Terminate(srv *supervise.Server) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.terminates++
	delete(f.healthy, srv.BaseURL)
	return nil
}

func (f *fakeLauncher) Healthy(url string, _ time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.healthy[url]
}

func (f *fakeLauncher) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.launches
}

func (f *fakeLauncher) terminateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.terminates
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []types.ChatCompletionRequest
}

func (r *fakeRemote) Completion(_ context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	return &types.ChatCompletionResponse{
		Model:   req.Model,
		Choices: []types.ChatCompletionChoice{{Message: types.ChatMessage{Role: "assistant", Content: "remote"}}},
	}, nil
}
