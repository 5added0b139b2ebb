package handshake

const smallModelContextCeiling = 32000

// universalGuardrails apply to every handshake regardless of model, client,
// or tier.
var universalGuardrails = []string{
	"Check search_knowledge before writing new documentation; don't duplicate existing knowledge.",
	"Never hardcode API keys or secrets; read them from environment configuration.",
	"Prefer editing existing files over creating new ones.",
}

// buildGuardrails concatenates universal rules with conditional rules keyed
// off the resolved model's and client's capabilities, plus tier-specific
// rules.
func buildGuardrails(req Request) []string {
	rules := append([]string{}, universalGuardrails...)

	model := req.Profile.Model
	if req.Profile.ModelResolved {
		if model.ContextWindow > 0 && model.ContextWindow <= smallModelContextCeiling {
			rules = append(rules, "Small context window: keep tool output terse and avoid large file dumps.")
		}
		if !model.SupportsTools {
			rules = append(rules, "Model has no native tool-calling: describe intended actions in prose instead of invoking tools.")
		}
		if !model.SupportsVision {
			rules = append(rules, "Model has no vision support: don't attach images, describe them in text.")
		}
		if !model.SupportsStructuredOutput {
			rules = append(rules, "Model has no structured-output mode: ask for plain Markdown or JSON-in-prose, not a schema-bound response.")
		}
	}

	client := req.Profile.Client
	if req.Profile.ClientResolved {
		if !client.HasHooks {
			rules = append(rules, "Client has no hook system: re-state important constraints at the top of each message instead of relying on hooks.")
		}
		if !client.HasMemory {
			rules = append(rules, "Client has no persistent memory: re-share relevant context at the start of each session.")
		}
		if !client.HasBackgroundAgents {
			rules = append(rules, "Client has no background agents: run long jobs synchronously or queue them via the research inbox.")
		}
	}

	switch req.RequestedTier {
	case "free":
		rules = append(rules, "Free tier: premium tools will be rejected; stick to search_knowledge, list_skills, and the status tools.")
	case "admin":
		rules = append(rules, "Admin tier: pool_signal and episodic_store are available; use them deliberately, they affect shared state.")
	}

	return rules
}
