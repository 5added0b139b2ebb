package mcpserver

import (
	"context"
	"encoding/json"
	"time"
)

type hiveStatusReport struct {
	Status        string `json:"status"`
	Server        string `json:"server"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// handleHiveStatus implements hive_status: a coarse health dashboard.
func handleHiveStatus(deps *Deps) ToolHandler {
	return func(_ context.Context, _ map[string]any) (string, error) {
		report := hiveStatusReport{
			Status:        "ok",
			Server:        serverName,
			UptimeSeconds: int64(time.Since(deps.StartedAt).Seconds()),
		}
		return marshalDashboard(report)
	}
}

type projectStatusReport struct {
	KnowledgeDirConfigured bool `json:"knowledge_dir_configured"`
	SkillsDirConfigured    bool `json:"skills_dir_configured"`
	SkillCount             int  `json:"skill_count"`
}

// handleProjectStatus implements project_status: a summary of what's wired
// into this server instance.
func handleProjectStatus(deps *Deps) ToolHandler {
	return func(_ context.Context, _ map[string]any) (string, error) {
		report := projectStatusReport{
			KnowledgeDirConfigured: deps.KnowledgeDir != "",
			SkillsDirConfigured:    deps.SkillsDir != "",
			SkillCount:             len(listSkillIDs(deps.SkillsDir)),
		}
		return marshalDashboard(report)
	}
}

type memoryStatsReport struct {
	ChunkCount         int  `json:"chunk_count"`
	VectorStoreWired   bool `json:"vector_store_wired"`
	EmbeddingDegraded  bool `json:"embedding_degraded"`
}

// handleMemoryStats implements memory_stats: Vector Store chunk counts and
// embedding health.
func handleMemoryStats(deps *Deps) ToolHandler {
	return func(ctx context.Context, _ map[string]any) (string, error) {
		report := memoryStatsReport{VectorStoreWired: deps.SearchTable != nil}
		if deps.SearchTable != nil {
			count, err := deps.SearchTable.Count(ctx)
			if err == nil {
				report.ChunkCount = count
			} else {
				report.EmbeddingDegraded = true
			}
		} else {
			report.EmbeddingDegraded = true
		}
		return marshalDashboard(report)
	}
}

type poolStatusReport struct {
	InboxConfigured bool `json:"inbox_configured"`
}

// handlePoolStatus implements pool_status: whether the sibling-process
// coordination channel (the inbox directory) is wired.
func handlePoolStatus(deps *Deps) ToolHandler {
	return func(_ context.Context, _ map[string]any) (string, error) {
		return marshalDashboard(poolStatusReport{InboxConfigured: deps.InboxDir != ""})
	}
}

func marshalDashboard(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
