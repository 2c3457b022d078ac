// Package router classifies completion requests as local or remote and
// drives retry/failover across pool members, falling back to the remote
// provider only when the model is not local-only.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"poold/pkg/types"
)

const (
	defaultAttempts       = 3
	defaultRequestTimeout = 5 * time.Minute
)

// Pool is the slice of the pool manager the router needs. The router never
// starts or kills processes; it only reads membership and reports failures.
type Pool interface {
	EnsurePool(ctx context.Context, model string) error
	NextURL(model string) (string, bool)
	MarkUnhealthy(url string)
}

type Config struct {
	Rules  Rules
	Pool   Pool
	Remote RemoteProvider

	// Attempts is the per-request retry budget across pool members.
	Attempts uint
	// RequestTimeout bounds one local completion attempt.
	RequestTimeout time.Duration
	// HTTPClient overrides the local-instance client, mainly for tests.
	HTTPClient *http.Client
}

type Router struct {
	cfg   Config
	local *http.Client
}

func New(cfg Config) *Router {
	if cfg.Attempts == 0 {
		cfg.Attempts = defaultAttempts
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	local := cfg.HTTPClient
	if local == nil {
		local = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Router{cfg: cfg, local: local}
}

// Route exposes the pure classification for the model listing endpoint.
func (r *Router) Route(model string) Decision {
	return Classify(model, r.cfg.Rules)
}

// Completion resolves routing and issues the request. Local targets ensure
// a pool and spend the retry budget across distinct members; exhaustion is
// fatal for local-only models and degrades to the remote provider otherwise.
func (r *Router) Completion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	d := Classify(req.Model, r.cfg.Rules)
	if d.Target == TargetRemote {
		return r.remoteCompletion(ctx, req, d)
	}

	if err := r.cfg.Pool.EnsurePool(ctx, req.Model); err != nil {
		return r.localFailed(ctx, req, d, err)
	}
	resp, err := r.tryPool(ctx, req)
	if err != nil {
		return r.localFailed(ctx, req, d, err)
	}
	completionsTotal.WithLabelValues("local", "success").Inc()
	return resp, nil
}

// tryPool spends the retry budget, selecting a different member each
// attempt and marking failed URLs unhealthy. Only transport-level failures
// and 5xx replies retry; anything else aborts immediately.
func (r *Router) tryPool(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	var resp *types.ChatCompletionResponse
	err := retry.Do(
		func() error {
			target, ok := r.cfg.Pool.NextURL(req.Model)
			if !ok {
				return retry.Unrecoverable(fmt.Errorf("no instance registered for model %q", req.Model))
			}
			out, err := r.postLocal(ctx, target, req)
			if err != nil {
				if !isTransient(err) {
					return retry.Unrecoverable(err)
				}
				log.Warn().Err(err).Str("url", target).Str("model", req.Model).Msg("router: instance attempt failed")
				r.cfg.Pool.MarkUnhealthy(target)
				return err
			}
			resp = out
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(r.cfg.Attempts),
		retry.Delay(200*time.Millisecond),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// localFailed decides between the fatal local-only error and remote
// fallback once the local path is exhausted.
func (r *Router) localFailed(ctx context.Context, req types.ChatCompletionRequest, d Decision, cause error) (*types.ChatCompletionResponse, error) {
	if d.LocalOnly {
		completionsTotal.WithLabelValues("local", "failure").Inc()
		return nil, ErrNoFallback(req.Model, cause)
	}
	log.Warn().Err(cause).Str("model", req.Model).Msg("router: local pool unavailable, falling back to remote")
	fallbacksTotal.Inc()
	return r.remoteCompletion(ctx, req, d)
}

func (r *Router) remoteCompletion(ctx context.Context, req types.ChatCompletionRequest, d Decision) (*types.ChatCompletionResponse, error) {
	if r.cfg.Remote == nil {
		completionsTotal.WithLabelValues("remote", "failure").Inc()
		return nil, fmt.Errorf("no remote provider configured for model %q", req.Model)
	}
	req.Model = d.Model
	resp, err := r.cfg.Remote.Completion(ctx, req)
	if err != nil {
		completionsTotal.WithLabelValues("remote", "failure").Inc()
		return nil, err
	}
	completionsTotal.WithLabelValues("remote", "success").Inc()
	return resp, nil
}

func (r *Router) postLocal(ctx context.Context, baseURL string, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := r.local.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, upstreamError{url: endpoint, status: resp.StatusCode, body: strings.TrimSpace(string(tail))}
	}
	var out types.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode completion from %s: %w", baseURL, err)
	}
	return &out, nil
}

// isTransient classifies failures worth retrying on another member:
// transport errors and 5xx replies. Client errors and malformed responses
// are contract violations and propagate immediately.
func isTransient(err error) bool {
	if ue, ok := err.(upstreamError); ok {
		return ue.transient()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
