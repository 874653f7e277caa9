package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	loaded, err := LoadChannels(dir)
	require.NoError(t, err)
	assert.Empty(t, loaded)

	channels := []string{"#qaix", "#secret hunter2"}
	require.NoError(t, SaveChannels(dir, channels))

	loaded, err = LoadChannels(dir)
	require.NoError(t, err)
	assert.Equal(t, channels, loaded)

	require.NoError(t, SaveChannels(dir, []string{"#other"}))
	loaded, err = LoadChannels(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"#other"}, loaded)

	_, err = os.Stat(filepath.Join(dir, "channels.txt.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestLogsRoundTrip(t *testing.T) {
	dir := t.TempDir()

	// Newest first in memory
	logs := []string{
		"[Thu Feb 20, 2025 12:00:00 GMT] [hub]: *** Notice -- link established",
		"[Thu Feb 20, 2025 11:00:00 GMT] [leaf]: *** Notice -- link lost",
	}
	require.NoError(t, SaveLogs(dir, logs))

	data, err := os.ReadFile(filepath.Join(dir, "logs.txt"))
	require.NoError(t, err)
	assert.Equal(t, logs[1]+"\n"+logs[0]+"\n", string(data))

	loaded, err := LoadLogs(dir)
	require.NoError(t, err)
	assert.Equal(t, logs, loaded)
}

func TestAddLog(t *testing.T) {
	logs := AddLog([]string{"old1", "old2"}, "new")
	assert.Equal(t, []string{"new", "old1", "old2"}, logs)

	full := make([]string, 500)
	for i := range full {
		full[i] = "entry"
	}
	full = AddLog(full, "newest")
	assert.Len(t, full, 500)
	assert.Equal(t, "newest", full[0])
}

func TestStatsKeepNewest(t *testing.T) {
	dir := t.TempDir()

	var stats []string
	for i := 0; i < 501; i++ {
		stats = append(stats, "entry")
	}
	stats = append(stats, "last")
	require.NoError(t, SaveStats(dir, stats))

	loaded, err := LoadStats(dir)
	require.NoError(t, err)
	assert.Len(t, loaded, 500)
	assert.Equal(t, "last", loaded[499])

	loaded = AddStat(loaded, "after")
	assert.Len(t, loaded, 500)
	assert.Equal(t, "after", loaded[499])
	assert.Equal(t, "last", loaded[498])
}

func TestGreetingRoundTrip(t *testing.T) {
	dir := t.TempDir()

	g := &Greeting{
		Setter:  "alice on Thu Feb 20, 2025",
		Message: "Welcome to #qaix",
	}
	require.NoError(t, SaveGreeting(dir, g))

	data, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alice on Thu Feb 20, 2025%%Welcome to #qaix\n", string(data))

	loaded, err := LoadGreeting(dir)
	require.NoError(t, err)
	assert.Equal(t, g, loaded)
}

func TestLoadGreetingMissing(t *testing.T) {
	g, err := LoadGreeting(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, &Greeting{}, g)
}

func TestLoadGreetingWithoutSetter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "greeting.txt"), []byte("just a message\n"), 0644))

	g, err := LoadGreeting(dir)
	require.NoError(t, err)
	assert.Equal(t, &Greeting{Message: "just a message"}, g)
}

func TestSaveIntoMissingDirFails(t *testing.T) {
	err := SaveChannels(filepath.Join(t.TempDir(), "missing"), []string{"#qaix"})
	assert.ErrorContains(t, err, "failed to save channels")
}
