package failover

import (
	"context"

	"github.com/ccdanpian/vision-agent/pkg/providers"
)

// guardedProvider is the providers.LLMProvider seam that classifier and
// executor code actually hold: it resolves the manager's current route
// before every call and retries once through the fallback chain on a rate
// limit, so callers never need to know failover is happening underneath
// them.
type guardedProvider struct {
	m *Manager
}

// Provider wraps a Manager as an LLMProvider. Pass the result anywhere a
// plain provider would go (classifier.Classify, the replanner, C9's
// handler planner) to make that call site failover-aware.
func Provider(m *Manager) providers.LLMProvider {
	return &guardedProvider{m: m}
}

func (g *guardedProvider) Chat(ctx context.Context, messages []providers.Message, tools []providers.ToolSpec, model string, opts map[string]interface{}) (*providers.ChatResponse, error) {
	if !g.m.Enabled() {
		route, err := g.m.ResolveRoute()
		if err != nil {
			return nil, err
		}
		return route.Provider.Chat(ctx, messages, tools, route.Model, opts)
	}

	route, err := g.m.ResolveRoute()
	if err != nil {
		return nil, err
	}
	resp, err := route.Provider.Chat(ctx, messages, tools, route.Model, opts)
	if err == nil {
		g.m.OnLLMSuccess(route.Model)
		return resp, nil
	}

	rl, ok := err.(*providers.RateLimitError)
	if !ok {
		return nil, err
	}
	ev := g.m.OnLLMRateLimited(route.Model, rl)
	if !ev.Switched {
		return nil, err
	}

	retryRoute, rerr := g.m.ResolveRoute()
	if rerr != nil {
		return nil, err
	}
	resp, rerr = retryRoute.Provider.Chat(ctx, messages, tools, retryRoute.Model, opts)
	if rerr != nil {
		return nil, rerr
	}
	g.m.OnLLMSuccess(retryRoute.Model)
	return resp, nil
}
