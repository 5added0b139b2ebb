package mcpserver

import (
	"context"

	"github.com/midos-mcp/midos-mcp/internal/handshake"
	"github.com/midos-mcp/midos-mcp/internal/profile"
)

func stringsArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// handleAgentHandshake implements agent_handshake: resolve the caller's
// self-reported profile against the catalogs and run the full onboarding
// pipeline against the live tool table.
func (s *Server) handleAgentHandshake() ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		model, _ := args["model"].(string)
		client, _ := args["client"].(string)
		platform, _ := args["platform"].(string)
		goal, _ := args["project_goal"].(string)
		contextWindow := 0
		if cw, ok := args["context_window"].(float64); ok {
			contextWindow = int(cw)
		}

		raw := profile.AgentProfile{
			Model:         model,
			ContextWindow: contextWindow,
			Client:        client,
			Languages:     stringsArg(args, "languages"),
			Frameworks:    stringsArg(args, "frameworks"),
			Platform:      platform,
			ProjectGoal:   goal,
		}

		req := handshake.Request{
			Profile:       profile.Resolve(raw),
			Tools:         s.handshakeTools(),
			RequestedTier: string(decisionFromContext(ctx).Tier),
		}

		if s.deps.HandshakeEngine == nil {
			return "", invalidParamsError("handshake engine not configured")
		}
		result := s.deps.HandshakeEngine.Handshake(ctx, req)
		return result.Markdown, nil
	}
}

// handshakeTools projects the registered tool table into the narrow
// descriptor shape internal/handshake ranks, avoiding an import cycle back
// into this package.
func (s *Server) handshakeTools() []handshake.ToolDescriptor {
	tools := make([]handshake.ToolDescriptor, 0, len(s.order))
	for _, name := range s.order {
		entry := s.tools[name]
		tools = append(tools, handshake.ToolDescriptor{
			Name:        entry.descriptor.Name,
			Description: entry.descriptor.Description,
			Tier:        entry.descriptor.Tier,
		})
	}
	return tools
}
