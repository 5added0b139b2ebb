package mcpserver

import (
	"context"

	"github.com/midos-mcp/midos-mcp/internal/gate"
)

type decisionKey struct{}

func withDecision(ctx context.Context, decision gate.Decision) context.Context {
	return context.WithValue(ctx, decisionKey{}, decision)
}

// decisionFromContext returns the Gate's decision for the in-flight call,
// letting a handler tell an authenticated caller from an anonymous one
// (get_skill's and the skill resource's truncation, agent_handshake's
// requested tier) without re-deriving it.
func decisionFromContext(ctx context.Context) gate.Decision {
	if d, ok := ctx.Value(decisionKey{}).(gate.Decision); ok {
		return d
	}
	return gate.Decision{Tier: gate.TierFree}
}

func isAuthenticated(ctx context.Context) bool {
	return decisionFromContext(ctx).Tier != gate.TierFree
}
