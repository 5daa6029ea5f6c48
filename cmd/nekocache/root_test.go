package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LavishGent/nekocache/pkg/nekocache"
)

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, in := range []string{"0", "-3", "abc", ""} {
		_, err := parseID(in)
		assert.Error(t, err, in)
	}
}

func TestLoadConfigAppliesFlags(t *testing.T) {
	t.Cleanup(viper.Reset)
	dir := t.TempDir()

	viper.Set("storage_backend", "sqlite")
	viper.Set("storage_path", filepath.Join(dir, "entries.db"))
	viper.Set("log_level", "error")

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, filepath.Join(dir, "entries.db"), cfg.Storage.SQLite.Path)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Zero(t, cfg.Metrics.PublishInterval)

	viper.Set("storage_backend", "file")
	viper.Set("storage_path", dir)
	cfg, err = loadConfig()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.File.Dir)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("storage_backend", "floppy")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	assert.Contains(t, out.String(), "nekocache: dev")
}

func TestEntryKeys(t *testing.T) {
	keys := entryKeys([]nekocache.Entry{{Key: 3}, {Key: 1}})
	assert.Equal(t, []int{3, 1}, keys)
}

func TestPrintAnimeList(t *testing.T) {
	t.Cleanup(viper.Reset)
	var out bytes.Buffer

	require.NoError(t, printAnimeList(&out, []nekocache.Anime{{ID: 1, Kind: "tv", Name: "Title", Score: 8.5}}))
	assert.Contains(t, out.String(), "Title")
	assert.Contains(t, out.String(), "8.50")

	out.Reset()
	viper.Set("json", true)
	require.NoError(t, printAnimeList(&out, []nekocache.Anime{{ID: 1, Name: "Title"}}))
	assert.Contains(t, out.String(), `"name": "Title"`)
}

func TestLibraryCommands(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("storage_backend", "file")
	viper.Set("storage_path", t.TempDir())
	viper.Set("log_level", "disabled")

	run := func(cmd *cobra.Command, args ...string) string {
		t.Helper()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetContext(context.Background())
		require.NoError(t, cmd.RunE(cmd, args))
		return out.String()
	}

	run(favoritesAddCmd, "7")
	run(favoritesAddCmd, "3")
	run(favoritesRemoveCmd, "7")
	assert.Equal(t, "3\n", run(favoritesCmd))
	assert.Equal(t, "true\n", run(favoritesCheckCmd, "3"))

	run(watchTimeAddCmd, "75")
	assert.Equal(t, "1h 15m\n", run(watchTimeCmd))
	run(watchTimeResetCmd)
	assert.Equal(t, "0m\n", run(watchTimeCmd))

	assert.Equal(t, "watch history is empty\n", run(historyCmd))
	assert.Error(t, watchTimeAddCmd.RunE(watchTimeAddCmd, []string{"-1"}))
}

func TestPrintHistory(t *testing.T) {
	t.Cleanup(viper.Reset)
	var out bytes.Buffer
	history := []nekocache.HistoryItem{{AnimeID: 1, Title: "Cowboy Bebop", LastWatched: time.Now()}}

	require.NoError(t, printHistory(&out, history))
	assert.Contains(t, out.String(), "Cowboy Bebop")

	out.Reset()
	viper.Set("json", true)
	require.NoError(t, printHistory(&out, history))
	assert.Contains(t, out.String(), `"animeId": 1`)
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", formatMinutes(0))
	assert.Equal(t, "59m", formatMinutes(59))
	assert.Equal(t, "2h 5m", formatMinutes(125))
}
