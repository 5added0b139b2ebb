package mcpserver

// registerTools builds the full tool table. Order of registration is
// preserved in s.order; handleToolsList sorts it for a stable response.
// Each descriptor carries a hand-written JSON Schema for its arguments:
// every tool here takes a small, fixed set of scalar/array fields, so a
// runtime schema-reflection library buys nothing a literal map doesn't
// already give directly.
func (s *Server) registerTools() {
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "search_knowledge",
			Description: "Filesystem keyword search with snippet extraction",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{
				"query": stringProp("the search query to execute"),
				"limit": integerProp("maximum number of results, default 10"),
			}, "query"),
		},
		handler: handleSearchKnowledge(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "list_skills",
			Description: "Enumerate the skill inventory, optionally scored against a stack",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{
				"stack": stringArrayProp("technology stack to score skills against, e.g. [\"go\", \"postgres\"]"),
			}),
		},
		handler: handleListSkills(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "get_skill",
			Description: "Return a skill's content by id",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("the skill id or file name"),
			}, "name"),
		},
		handler: handleGetSkill(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "get_protocol",
			Description: "Return a protocol document by canonical name",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("the protocol's canonical name"),
			}, "name"),
		},
		handler: handleGetDoc(s.deps.ProtocolsDir),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "get_eureka",
			Description: "Return a EUREKA document by canonical name",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("the eureka document's canonical name"),
			}, "name"),
		},
		handler: handleGetDoc(s.deps.EurekasDir),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "get_truth",
			Description: "Return a Truth patch by canonical name",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"name": stringProp("the truth patch's canonical name"),
			}, "name"),
		},
		handler: handleGetDoc(s.deps.TruthsDir),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "hive_status",
			Description: "Server health summary",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{}),
		},
		handler: handleHiveStatus(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "project_status",
			Description: "Wired-dependency summary for this instance",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{}),
		},
		handler: handleProjectStatus(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "memory_stats",
			Description: "Vector Store chunk counts and embedding health",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{}),
		},
		handler: handleMemoryStats(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "pool_status",
			Description: "Coordination-pool wiring summary",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{}),
		},
		handler: handlePoolStatus(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "semantic_search",
			Description: "Vector Store hybrid search with optional stack re-ranking",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"query": stringProp("the search query to execute"),
				"limit": integerProp("maximum number of results, default 5"),
			}, "query"),
		},
		handler: handleSemanticSearch(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "research_youtube",
			Description: "Queue a YouTube research cycle for the sibling researcher process",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"url": stringProp("a youtube.com, m.youtube.com, or youtu.be video URL"),
			}, "url"),
		},
		handler: handleResearchYouTube(s.deps),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "episodic_search",
			Description: "Delegate a search to the sibling episodic-memory process",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"query": stringProp("the episodic memory query"),
			}, "query"),
		},
		handler: handleDelegate(s.deps, "episodic_search", priorityNormal),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "episodic_store",
			Description: "Delegate a store to the sibling episodic-memory process",
			Tier:        tierAdmin,
			InputSchema: objectSchema(map[string]any{
				"content": stringProp("the content to store in episodic memory"),
			}, "content"),
		},
		handler: handleDelegate(s.deps, "episodic_store", priorityNormal),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "chunk_code",
			Description: "Delegate a chunking job to the sibling AST-chunker",
			Tier:        tierPro,
			InputSchema: objectSchema(map[string]any{
				"path": stringProp("path to the file or directory to chunk"),
			}, "path"),
		},
		handler: handleDelegate(s.deps, "chunk_code", priorityNormal),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "agent_handshake",
			Description: "Run the onboarding pipeline and return a personalized Markdown config",
			Tier:        tierFree,
			InputSchema: objectSchema(map[string]any{
				"model":          stringProp("the calling agent's model identifier"),
				"context_window": integerProp("the calling agent's context window size in tokens"),
				"client":         stringProp("the calling client's identifier, e.g. claude-code, cursor"),
				"languages":      stringArrayProp("programming languages the current project uses"),
				"frameworks":     stringArrayProp("frameworks the current project uses"),
				"platform":       stringProp("the operating system or runtime platform"),
				"project_goal":   stringProp("a short description of what the project does"),
			}),
		},
		handler: s.handleAgentHandshake(),
	})
	s.register(toolEntry{
		descriptor: ToolDescriptor{
			Name:        "pool_signal",
			Description: "Signal the coordination pool",
			Tier:        tierAdmin,
			InputSchema: objectSchema(map[string]any{
				"signal": stringProp("the signal to send, e.g. pause, resume, drain"),
			}, "signal"),
		},
		handler: handleDelegate(s.deps, "pool_signal", priorityHigh),
	})
}
