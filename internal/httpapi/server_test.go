package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"poold/internal/pool"
	"poold/internal/router"
	"poold/pkg/types"
)

// stubService implements Service with canned responses.
type stubService struct {
	resp  *types.ChatCompletionResponse
	err   error
	ready bool
}

func (s *stubService) Completion(context.Context, types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	return s.resp, s.err
}

func (s *stubService) Route(model string) router.Decision {
	return router.Classify(model, router.Rules{AutoDeploy: true})
}

func (s *stubService) Models() []types.ModelCard {
	return []types.ModelCard{{ID: "meta-llama/fake-8B", Object: "model", Target: "local"}}
}

func (s *stubService) Status() types.StatusResponse {
	return types.StatusResponse{GPUTopology: []int{0}}
}

func (s *stubService) Ready() bool { return s.ready }

func postCompletion(t *testing.T, h http.Handler, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func validBody() string {
	b, _ := json.Marshal(types.ChatCompletionRequest{
		Model:    "meta-llama/fake-8B",
		Messages: []types.ChatMessage{{Role: "user", Content: "hi"}},
	})
	return string(b)
}

func TestCompletionEndpoint(t *testing.T) {
	svc := &stubService{resp: &types.ChatCompletionResponse{
		Model:   "meta-llama/fake-8B",
		Choices: []types.ChatCompletionChoice{{Message: types.ChatMessage{Role: "assistant", Content: "hello"}}},
	}}
	mux := NewMux(svc)

	rec := postCompletion(t, mux, "application/json", validBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Choices[0].Message.Content != "hello" {
		t.Fatalf("unexpected content %q", resp.Choices[0].Message.Content)
	}
}

func TestCompletionValidation(t *testing.T) {
	mux := NewMux(&stubService{})

	cases := []struct {
		name        string
		contentType string
		body        string
		want        int
	}{
		{"wrong content type", "text/plain", validBody(), http.StatusUnsupportedMediaType},
		{"invalid json", "application/json", "{not json", http.StatusBadRequest},
		{"missing model", "application/json", `{"messages":[{"role":"user","content":"hi"}]}`, http.StatusBadRequest},
		{"missing messages", "application/json", `{"model":"meta-llama/fake-8B"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postCompletion(t, mux, tc.contentType, tc.body)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var er types.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &er); err != nil {
				t.Fatalf("error payload not JSON: %v", err)
			}
			if er.Code != tc.want {
				t.Fatalf("payload code = %d, want %d", er.Code, tc.want)
			}
		})
	}
}

func TestCompletionErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"cooldown", pool.ErrCooldown("m", time.Now().Add(time.Minute)), http.StatusTooManyRequests},
		{"unavailable", pool.ErrUnavailable("m", errors.New("boom")), http.StatusServiceUnavailable},
		{"no fallback", router.ErrNoFallback("m", errors.New("boom")), http.StatusBadGateway},
		{"wrapped cooldown", router.ErrNoFallback("m", pool.ErrCooldown("m", time.Now())), http.StatusTooManyRequests},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mux := NewMux(&stubService{err: tc.err})
			rec := postCompletion(t, mux, "application/json", validBody())
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestModelsEndpoint(t *testing.T) {
	mux := NewMux(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Object != "list" || len(resp.Data) != 1 || resp.Data[0].ID != "meta-llama/fake-8B" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestStatusEndpoint(t *testing.T) {
	mux := NewMux(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(st.GPUTopology) != 1 {
		t.Fatalf("unexpected topology %v", st.GPUTopology)
	}
}

func TestHealthAndReadiness(t *testing.T) {
	mux := NewMux(&stubService{ready: true})
	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}

	notReady := NewMux(&stubService{ready: false})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	notReady.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mux := NewMux(&stubService{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("poold_http_requests_total")) {
		t.Fatalf("expected poold_http_requests_total in metrics output")
	}
}

func TestBodySizeLimit(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)
	mux := NewMux(&stubService{})
	big := `{"model":"meta-llama/fake-8B","messages":[{"role":"user","content":"` + strings.Repeat("x", 256) + `"}]}`
	rec := postCompletion(t, mux, "application/json", big)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
