package main

import (
	"context"
	"sort"

	"poold/internal/pool"
	"poold/internal/router"
	"poold/pkg/types"
)

// service glues the router and pool manager behind httpapi.Service.
type service struct {
	router *router.Router
	mgr    *pool.Manager
}

func (s *service) Completion(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	return s.router.Completion(ctx, req)
}

func (s *service) Route(model string) router.Decision {
	return s.router.Route(model)
}

// Models lists every model with a live pool. Remote models are unbounded and
// not enumerated here.
func (s *service) Models() []types.ModelCard {
	st := s.mgr.Status()
	cards := make([]types.ModelCard, 0, len(st.Pools))
	for _, p := range st.Pools {
		cards = append(cards, types.ModelCard{
			ID:     p.Model,
			Object: "model",
			Target: string(router.TargetLocal),
		})
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ID < cards[j].ID })
	return cards
}

func (s *service) Status() types.StatusResponse {
	return s.mgr.Status()
}

// Ready is true once the daemon is serving; pools launch on demand, so
// readiness does not depend on any instance being up.
func (s *service) Ready() bool { return true }
