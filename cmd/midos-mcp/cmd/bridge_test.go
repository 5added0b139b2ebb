package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBridgeCmd_NoMatchesOnEmptyKnowledgeDir(t *testing.T) {
	root := t.TempDir()

	cmd := newBridgeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--root", root, "nonexistent topic"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "No matches")
}

func TestBridgeCmd_FindsSeededKnowledgeFile(t *testing.T) {
	root := t.TempDir()
	knowledgeDir := filepath.Join(root, "knowledge")
	require.NoError(t, os.MkdirAll(knowledgeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(knowledgeDir, "note.md"), []byte("midos-mcp onboarding notes"), 0o644))

	cmd := newBridgeCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--root", root, "onboarding"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "note.md")
}
