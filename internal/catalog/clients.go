package catalog

// Clients is the static table of known MCP clients, keyed by canonical id.
var Clients = []ClientSpec{
	{
		ID: "claude-code", Name: "Claude Code",
		Transports: []string{"stdio"}, HasHooks: true, HasMemory: true, HasBackgroundAgents: true,
		MaxParallelAgents: 10, ContextManagement: ContextAutoCompact, MaxContext: 200000,
		Tips:    []string{"Use /compact before long sessions to manage context proactively."},
		Aliases: []string{"claudecode", "cc"},
	},
	{
		ID: "cursor", Name: "Cursor",
		Transports: []string{"stdio", "streamable-http"}, HasHooks: false, HasMemory: true, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextDynamicPruning, MaxContext: 128000,
		Tips:    []string{"Prefer smaller, targeted context windows; Cursor prunes aggressively."},
		Aliases: []string{"cursor-ide"},
	},
	{
		ID: "windsurf", Name: "Windsurf",
		Transports: []string{"stdio"}, HasHooks: false, HasMemory: false, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextManual, MaxContext: 128000,
		Aliases: []string{"codeium-windsurf"},
	},
	{
		ID: "cline", Name: "Cline",
		Transports: []string{"stdio"}, HasHooks: false, HasMemory: true, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextManual, MaxContext: 128000,
		Aliases: []string{"claude-dev"},
	},
	{
		ID: "zed", Name: "Zed",
		Transports: []string{"stdio"}, HasHooks: false, HasMemory: false, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextNone, MaxContext: 64000,
	},
	{
		ID: "vscode-copilot", Name: "VS Code Copilot Chat",
		Transports: []string{"stdio", "streamable-http"}, HasHooks: false, HasMemory: false, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextAutoCompact, MaxContext: 128000,
		Aliases: []string{"copilot", "vscode"},
	},
	{
		ID: "continue", Name: "Continue",
		Transports: []string{"stdio"}, HasHooks: false, HasMemory: false, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextManual, MaxContext: 32000,
		Aliases: []string{"continue-dev"},
	},
	{
		ID: "gemini-cli", Name: "Gemini CLI",
		Transports: []string{"stdio"}, HasHooks: false, HasMemory: true, HasBackgroundAgents: false,
		MaxParallelAgents: 1, ContextManagement: ContextAutoCompact, MaxContext: 1000000,
		Aliases: []string{"geminicli"},
	},
}
