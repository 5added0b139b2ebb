package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxYouTubeURLLength = 2048

var youTubeHosts = map[string]struct{}{
	"youtube.com":     {},
	"www.youtube.com": {},
	"m.youtube.com":   {},
	"youtu.be":        {},
}

type commandPriority string

const (
	priorityHigh   commandPriority = "HIGH"
	priorityNormal commandPriority = "NORMAL"
	priorityLow    commandPriority = "LOW"
)

type commandType string

const (
	commandUserCommand commandType = "USER_COMMAND"
	commandResearch     commandType = "RESEARCH_CYCLE"
)

// commandFile is the inter-process command file format every sibling
// process (researcher, episodic-memory, AST-chunker, coordination pool)
// reads from the inbox.
type commandFile struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Type      commandType     `json:"type"`
	Priority  commandPriority `json:"priority"`
	Payload   map[string]any  `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

func generateCommandID() string {
	return "CMD_" + uuid.NewString()
}

// dropCommand writes a command file into the inbox for a sibling process to
// pick up, atomically (write to a temp name, then rename).
func dropCommand(inboxDir string, kind commandType, priority commandPriority, payload map[string]any) (string, error) {
	if inboxDir == "" {
		return "", fmt.Errorf("no inbox directory configured")
	}
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return "", err
	}

	cmd := commandFile{
		ID:        generateCommandID(),
		Source:    serverName,
		Type:      kind,
		Priority:  priority,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	}
	data, err := json.MarshalIndent(cmd, "", "  ")
	if err != nil {
		return "", err
	}

	finalPath := filepath.Join(inboxDir, cmd.ID+".json")
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return "", err
	}
	return cmd.ID, nil
}

// validateYouTubeURL enforces the scheme/host/length constraints
// research_youtube applies before ever touching the inbox.
func validateYouTubeURL(raw string) error {
	if len(raw) > maxYouTubeURLLength {
		return invalidParamsError("url exceeds maximum length")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return invalidParamsError("malformed url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return invalidParamsError("url must be http or https")
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := youTubeHosts[host]; !ok {
		return invalidParamsError("url host restriction: must be a youtube.com or youtu.be URL")
	}
	return nil
}

// handleResearchYouTube implements research_youtube: validate, then queue a
// research command for the sibling process.
func handleResearchYouTube(deps *Deps) ToolHandler {
	return func(_ context.Context, args map[string]any) (string, error) {
		rawURL, _ := args["url"].(string)
		if err := validateYouTubeURL(rawURL); err != nil {
			return "", err
		}
		id, err := dropCommand(deps.InboxDir, commandResearch, priorityNormal, map[string]any{
			"action": "research_youtube",
			"url":    rawURL,
		})
		if err != nil {
			return "", err
		}
		return "Queued research job " + id, nil
	}
}

// handleDelegate builds a tool handler that forwards its arguments verbatim
// into a USER_COMMAND inbox file for a named sibling action, the shared
// shape episodic_search, episodic_store, chunk_code, and pool_signal use.
func handleDelegate(deps *Deps, action string, priority commandPriority) ToolHandler {
	return func(_ context.Context, args map[string]any) (string, error) {
		payload := map[string]any{"action": action}
		for k, v := range args {
			payload[k] = v
		}
		id, err := dropCommand(deps.InboxDir, commandUserCommand, priority, payload)
		if err != nil {
			return "", err
		}
		return "Queued " + action + " job " + id, nil
	}
}
