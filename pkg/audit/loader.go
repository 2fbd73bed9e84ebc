package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Loader loads guardrails from files and directories.
type Loader struct {
	logger  zerolog.Logger
	cache   map[string]*Guardrail
	mu      sync.RWMutex
	watcher *fsnotify.Watcher
}

// NewLoader creates a new guardrail loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger: logger.With().Str("component", "guardrail-loader").Logger(),
		cache:  make(map[string]*Guardrail),
	}
}

// LoadFromPaths loads guardrails from a list of file or directory paths.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Guardrail, error) {
	var all []Guardrail

	for _, path := range paths {
		guardrails, err := l.loadFromPath(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
		all = append(all, guardrails...)
	}

	l.logger.Info().
		Int("total", len(all)).
		Int("sources", len(paths)).
		Msg("guardrails loaded from paths")

	return all, nil
}

// loadFromPath loads guardrails from a single path (file or directory).
func (l *Loader) loadFromPath(ctx context.Context, path string) ([]Guardrail, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	if info.IsDir() {
		return l.loadFromDirectory(ctx, path)
	}

	guardrail, err := l.loadFromFile(path)
	if err != nil {
		return nil, err
	}
	return []Guardrail{*guardrail}, nil
}

// loadFromDirectory loads all .rego and .json files from a directory
// recursively. A file that fails to parse is skipped with a warning so one
// bad file does not take down the whole directory.
func (l *Loader) loadFromDirectory(_ context.Context, dirPath string) ([]Guardrail, error) {
	var guardrails []Guardrail

	err := filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".rego") && !strings.HasSuffix(path, ".json") {
			return nil
		}

		guardrail, err := l.loadFromFile(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("failed to load guardrail file")
			return nil
		}

		guardrails = append(guardrails, *guardrail)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	return guardrails, nil
}

// loadFromFile loads a guardrail from a single file.
func (l *Loader) loadFromFile(filePath string) (*Guardrail, error) {
	l.mu.RLock()
	if cached, exists := l.cache[filePath]; exists {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var guardrail *Guardrail
	switch {
	case strings.HasSuffix(filePath, ".rego"):
		guardrail = l.parseRegoFile(filePath, data)
	case strings.HasSuffix(filePath, ".json"):
		guardrail, err = l.parseJSONFile(data)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported file type: %s", filePath)
	}

	l.mu.Lock()
	l.cache[filePath] = guardrail
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", filePath).
		Str("guardrail", guardrail.Name).
		Msg("guardrail loaded from file")

	return guardrail, nil
}

// parseRegoFile wraps a .rego file as a Guardrail named after the file.
func (l *Loader) parseRegoFile(filePath string, data []byte) *Guardrail {
	base := filepath.Base(filePath)
	name := strings.TrimSuffix(base, ".rego")

	return &Guardrail{
		Name:        name,
		Description: l.extractDescription(string(data)),
		Rego:        string(data),
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{},
		Metadata: map[string]interface{}{
			"source": filePath,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// parseJSONFile parses a JSON guardrail definition.
func (l *Loader) parseJSONFile(data []byte) (*Guardrail, error) {
	var guardrail Guardrail
	if err := json.Unmarshal(data, &guardrail); err != nil {
		return nil, fmt.Errorf("failed to parse JSON guardrail: %w", err)
	}

	if guardrail.Severity == "" {
		guardrail.Severity = SeverityWarning
	}
	if guardrail.CreatedAt.IsZero() {
		guardrail.CreatedAt = time.Now()
	}
	if guardrail.UpdatedAt.IsZero() {
		guardrail.UpdatedAt = time.Now()
	}

	return &guardrail, nil
}

// extractDescription extracts the leading comment block from Rego code.
func (l *Loader) extractDescription(content string) string {
	var description strings.Builder

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			comment := strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
			if comment != "" && !strings.HasPrefix(comment, "package") {
				if description.Len() > 0 {
					description.WriteString(" ")
				}
				description.WriteString(comment)
			}
		} else if trimmed != "" && description.Len() > 0 {
			break
		}
	}

	return description.String()
}

// Watch starts watching paths for guardrail changes and calls reloadFn with
// the freshly loaded set after each change, debounced.
func (l *Loader) Watch(ctx context.Context, paths []string, reloadFn func([]Guardrail) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	l.watcher = watcher

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("failed to stat path for watching")
			continue
		}

		if info.IsDir() {
			if err := l.watchDirectory(path); err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			}
		} else {
			if err := watcher.Add(path); err != nil {
				l.logger.Warn().Err(err).Str("path", path).Msg("failed to watch file")
			}
		}
	}

	go l.processEvents(ctx, paths, reloadFn)

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("started watching guardrail paths")

	return nil
}

// watchDirectory adds a directory tree to the watcher.
func (l *Loader) watchDirectory(dirPath string) error {
	return filepath.WalkDir(dirPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return l.watcher.Add(path)
		}
		return nil
	})
}

// processEvents processes filesystem events and triggers debounced reloads.
func (l *Loader) processEvents(ctx context.Context, paths []string, reloadFn func([]Guardrail) error) {
	var reloadTimer *time.Timer
	reloadDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			if l.watcher != nil {
				_ = l.watcher.Close()
			}
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, ".rego") && !strings.HasSuffix(event.Name, ".json") {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("guardrail file changed")

			l.mu.Lock()
			delete(l.cache, event.Name)
			l.mu.Unlock()

			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			reloadTimer = time.AfterFunc(reloadDelay, func() {
				if err := l.triggerReload(ctx, paths, reloadFn); err != nil {
					l.logger.Error().Err(err).Msg("failed to reload guardrails")
				}
			})

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

// triggerReload reloads all guardrails from the watched paths.
func (l *Loader) triggerReload(ctx context.Context, paths []string, reloadFn func([]Guardrail) error) error {
	guardrails, err := l.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to reload guardrails: %w", err)
	}

	if err := reloadFn(guardrails); err != nil {
		return fmt.Errorf("failed to apply reloaded guardrails: %w", err)
	}

	l.logger.Info().
		Int("count", len(guardrails)).
		Msg("guardrails reloaded")

	return nil
}

// StopWatching stops watching for file changes.
func (l *Loader) StopWatching() error {
	if l.watcher != nil {
		return l.watcher.Close()
	}
	return nil
}

// ClearCache clears the guardrail cache.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*Guardrail)
	l.logger.Debug().Msg("guardrail cache cleared")
}
