package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleModel = `
taxonomy:
  chat:
    display: "Chat Abuse"
    categories:
      Harassment: "Harassment"
      spam: "Spam"
stacking_window_seconds: 900
tie_break: oldest
page_size: 5
priority:
  enabled: true
  count: { enabled: true, weight: 2.0 }
  severity_table:
    chat/harassment: 1.5
`

func writeModel(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModel(t *testing.T) {
	ms, err := LoadModel(writeModel(t, sampleModel))
	require.NoError(t, err)

	snap := ms.Snapshot()
	assert.Equal(t, 15*time.Minute, snap.StackingWindow)
	assert.Equal(t, TieBreakOldest, snap.TieBreak)
	assert.Equal(t, 5, snap.PageSize)
	assert.True(t, snap.Priority.Enabled)
	assert.Equal(t, int64(DefaultDecayMs), snap.Priority.DecayMs)
	assert.Equal(t, 1.5, snap.Priority.SeverityBy["chat/harassment"])
}

func TestResolveClassification(t *testing.T) {
	ms, err := LoadModel(writeModel(t, sampleModel))
	require.NoError(t, err)
	snap := ms.Snapshot()

	// Keys are case-insensitive and trimmed.
	cls, ok := snap.Resolve(" Chat ", "HARASSMENT")
	require.True(t, ok)
	assert.Equal(t, "chat", cls.TypeKey)
	assert.Equal(t, "harassment", cls.CategoryKey)
	assert.Equal(t, "Chat Abuse", cls.TypeDisplay)
	assert.Equal(t, "Harassment", cls.CategoryDisplay)
	assert.Equal(t, "chat/harassment", cls.Key())

	_, ok = snap.Resolve("chat", "unknown")
	assert.False(t, ok)
	_, ok = snap.Resolve("unknown", "harassment")
	assert.False(t, ok)
}

func TestReloadSwapsSnapshot(t *testing.T) {
	path := writeModel(t, sampleModel)
	ms, err := LoadModel(path)
	require.NoError(t, err)
	before := ms.Snapshot()

	require.NoError(t, os.WriteFile(path, []byte("stacking_window_seconds: 60\n"), 0o644))
	require.NoError(t, ms.Reload())

	after := ms.Snapshot()
	assert.NotSame(t, before, after)
	assert.Equal(t, time.Minute, after.StackingWindow)
	// The previous snapshot is untouched for in-flight readers.
	assert.Equal(t, 15*time.Minute, before.StackingWindow)
}

func TestReloadFailureKeepsOldSnapshot(t *testing.T) {
	path := writeModel(t, sampleModel)
	ms, err := LoadModel(path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("tie_break: sideways\n"), 0o644))
	require.Error(t, ms.Reload())
	assert.Equal(t, TieBreakOldest, ms.Snapshot().TieBreak)

	require.NoError(t, os.WriteFile(path, []byte("taxonomy: ["), 0o644))
	require.Error(t, ms.Reload())
	assert.Equal(t, 15*time.Minute, ms.Snapshot().StackingWindow)
}

func TestInvalidModelRejected(t *testing.T) {
	_, err := LoadModel(writeModel(t, "stacking_window_seconds: -5\n"))
	require.Error(t, err)

	_, err = LoadModel(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
