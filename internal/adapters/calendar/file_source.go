package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bhavishyjain/SevaAI/internal/domain"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

type calendarFile struct {
	Events []domain.CalendarEvent `yaml:"events"`
}

// FileSource serves calendar events from a YAML file and reloads them when
// the file changes. A file that fails to parse leaves the previous events
// in place.
type FileSource struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	events []domain.CalendarEvent
}

func NewFileSource(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve calendar path: %w", err)
	}
	s := &FileSource{path: abs, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSource) Events(context.Context) ([]domain.CalendarEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *FileSource) Reload() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read calendar %s: %w", s.path, err)
	}
	events, err := parseEvents(raw)
	if err != nil {
		return fmt.Errorf("parse calendar %s: %w", s.path, err)
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			s.logger.Warn("calendar event is invalid and will be skipped by sweeps",
				"module", "calendar.file_source",
				"layer", "adapter",
				"operation", "reload",
				"outcome", "degraded",
				"event", ev.Name,
				"error", err,
			)
		}
	}
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
	s.logger.Info("calendar loaded",
		"module", "calendar.file_source",
		"layer", "adapter",
		"operation", "reload",
		"outcome", "success",
		"path", s.path,
		"events", len(events),
	)
	return nil
}

// parseEvents accepts either a top-level list or a document with an events
// key.
func parseEvents(raw []byte) ([]domain.CalendarEvent, error) {
	var list []domain.CalendarEvent
	if err := yaml.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var doc calendarFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc.Events, nil
}

// Watch reloads the file on change until ctx is done. The parent directory
// is watched so that editors replacing the file by rename are noticed.
func (s *FileSource) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != s.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.ErrorContext(ctx, "calendar reload failed",
					"module", "calendar.file_source",
					"layer", "adapter",
					"operation", "watch",
					"outcome", "failure",
					"error", err,
				)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.ErrorContext(ctx, "fsnotify error",
				"module", "calendar.file_source",
				"layer", "adapter",
				"operation", "watch",
				"outcome", "failure",
				"error", err,
			)
		}
	}
}

// StaticSource serves a fixed list, used when no calendar file is configured.
type StaticSource struct {
	events []domain.CalendarEvent
}

func NewStaticSource(events ...domain.CalendarEvent) StaticSource {
	return StaticSource{events: events}
}

func (s StaticSource) Events(context.Context) ([]domain.CalendarEvent, error) {
	out := make([]domain.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}
