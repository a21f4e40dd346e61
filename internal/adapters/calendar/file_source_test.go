package calendar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCalendar = `events:
  - date: "2026-10-20"
    name: Dussehra
    priority: High
    locations:
      - Main Square
      - Old Market
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestFileSourceLoadsDocument(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	writeFile(t, path, sampleCalendar)

	src, err := NewFileSource(path, nil)
	require.NoError(t, err)
	events, err := src.Events(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Dussehra", events[0].Name)
	assert.Equal(t, domain.PriorityHigh, events[0].Priority)
	assert.Equal(t, []string{"Main Square", "Old Market"}, events[0].Locations)
}

func TestFileSourceLoadsBareList(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	writeFile(t, path, "- date: \"2026-11-08\"\n  name: Diwali\n  priority: High\n  locations: [Main Square]\n")

	src, err := NewFileSource(path, nil)
	require.NoError(t, err)
	events, _ := src.Events(context.Background())
	require.Len(t, events, 1)
	assert.Equal(t, "2026-11-08", events[0].Date)
}

func TestFileSourceKeepsEventsOnBadReload(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	writeFile(t, path, sampleCalendar)
	src, err := NewFileSource(path, nil)
	require.NoError(t, err)

	writeFile(t, path, "events: [[[")
	require.Error(t, src.Reload())
	events, _ := src.Events(context.Background())
	assert.Len(t, events, 1)
}

func TestFileSourceMissingFile(t *testing.T) {
	t.Parallel()
	_, err := NewFileSource(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileSourceWatchReloads(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	writeFile(t, path, "events: []\n")
	src, err := NewFileSource(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = src.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	writeFile(t, path, sampleCalendar)
	assert.Eventually(t, func() bool {
		events, _ := src.Events(context.Background())
		return len(events) == 1
	}, 3*time.Second, 20*time.Millisecond)
}

func TestStaticSource(t *testing.T) {
	t.Parallel()
	src := NewStaticSource(domain.CalendarEvent{Name: "x"})
	events, err := src.Events(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
