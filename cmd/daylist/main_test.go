package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, time.January, 5, 9, 15, 30, 0, time.Local)

func run(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	opts := &options{now: func() time.Time { return fixedNow }}
	cmd := rootCmd(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAddAndList(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	out, err := run(t, cfgPath, "add", "Buy milk", "--at", "08:00")
	require.NoError(t, err)
	assert.Contains(t, out, `Added "Buy milk"`)

	_, err = run(t, cfgPath, "add", "Call mom", "--date", "2024-01-05", "--at", "18:30")
	require.NoError(t, err)

	_, err = run(t, cfgPath, "add", "Tomorrow", "--date", "2024-01-06")
	require.NoError(t, err)

	out, err = run(t, cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Friday, 05 Jan 2024")
	assert.Contains(t, out, "Pending (2)")
	assert.Contains(t, out, "Completed (0)")
	assert.NotContains(t, out, "Tomorrow")
	assert.Less(t, bytes.Index([]byte(out), []byte("Call mom")), bytes.Index([]byte(out), []byte("Buy milk")))

	out, err = run(t, cfgPath, "list", "--date", "2024-01-06")
	require.NoError(t, err)
	assert.Contains(t, out, "09:15  Tomorrow")
}

func TestAddBlankTitleIsDiscarded(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.toml")

	_, err := run(t, cfgPath, "add", "   ")
	assert.Error(t, err)

	out, err := run(t, cfgPath, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Pending (0)")
}

func TestParseDay(t *testing.T) {
	got, err := parseDay("", fixedNow)
	require.NoError(t, err)
	assert.True(t, got.Equal(fixedNow))

	got, err = parseDay("", fixedNow.Add(750*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, got.Equal(fixedNow))
	assert.Equal(t, 0, got.Nanosecond())

	got, err = parseDay("2024-02-29", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 9, 15, 30, 0, time.Local), got)

	_, err = parseDay("29/02/2024", fixedNow)
	assert.Error(t, err)
}

func TestAtTime(t *testing.T) {
	got, err := atTime(fixedNow, "23:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 5, 23, 45, 0, 0, time.Local), got)

	_, err = atTime(fixedNow, "25:00")
	assert.Error(t, err)
}
