package handshake

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// compatRecord is one line of the compatibility log, appended once per
// handshake.
type compatRecord struct {
	Model        string `json:"model"`
	ModelKnown   bool   `json:"model_known"`
	Client       string `json:"client"`
	ClientKnown  bool   `json:"client_known"`
	TierLabel    string `json:"tier_label"`
	ToolCount    int    `json:"tool_count"`
	SkillCount   int    `json:"skill_count"`
	ChunkCount   int    `json:"chunk_count"`
	Timestamp    int64  `json:"timestamp"`
}

// logHandshake appends a one-line JSON record of this handshake to path.
// This is a non-blocking side effect: any failure is logged and swallowed,
// never surfaced to the caller.
func logHandshake(path string, req Request, result Result) {
	if path == "" {
		return
	}
	if err := appendCompatRecord(path, compatRecord{
		Model:       req.Profile.Raw.Model,
		ModelKnown:  req.Profile.ModelResolved,
		Client:      req.Profile.Raw.Client,
		ClientKnown: req.Profile.ClientResolved,
		TierLabel:   string(req.Profile.TierLabel),
		ToolCount:   len(result.Tools),
		SkillCount:  len(result.Skills),
		ChunkCount:  len(result.Chunks),
		Timestamp:   time.Now().Unix(),
	}); err != nil {
		slog.Error("compat_log_append_failed", slog.String("error", err.Error()))
	}
}

func appendCompatRecord(path string, rec compatRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = f.Write(append(line, '\n'))
	return err
}
