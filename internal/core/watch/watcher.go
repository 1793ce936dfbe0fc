// Package watch reloads the global rule file when it changes on disk.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/solatis/dialkeeper/internal/core/metrics"
	"github.com/solatis/dialkeeper/internal/rules"
	"github.com/solatis/dialkeeper/internal/types"
)

// DefaultDebounce is used when no positive debounce is configured.
const DefaultDebounce = 500 * time.Millisecond

// RuleFileWatcher installs the rule file into an engine as the global
// rule set and reinstalls it whenever its content changes.
//
// The parent directory is watched rather than the file so that editors
// that save by renaming a temp file over the original are seen. Events
// are collected and flushed once per debounce tick; a flush reloads only
// when the file's content hash differs from the last successful load.
// A failed reload leaves the installed rules untouched.
type RuleFileWatcher struct {
	path     string
	engine   *rules.Engine
	metrics  *metrics.Metrics
	logger   *slog.Logger
	debounce time.Duration
	watcher  *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   bool

	hashMu sync.Mutex
	hash   string
}

// NewRuleFileWatcher creates a watcher for path. m may be nil.
func NewRuleFileWatcher(path string, engine *rules.Engine, debounce time.Duration, m *metrics.Metrics, logger *slog.Logger) (*RuleFileWatcher, error) {
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve rule file %s: %w", path, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &RuleFileWatcher{
		path:     abs,
		engine:   engine,
		metrics:  m,
		logger:   logger.With("rules_file", abs),
		debounce: debounce,
		watcher:  fsw,
	}, nil
}

// Reload reads, validates and installs the rule file now. Returns the
// number of rules installed. Unchanged content is not reinstalled.
func (w *RuleFileWatcher) Reload() (int, error) {
	n, changed, err := w.reload()
	w.metrics.ObserveReload(err)
	if err != nil {
		w.logger.Error("rule file reload failed, keeping previous rules", "error", err)
		return 0, err
	}
	if changed {
		w.logger.Info("rule file loaded", "rules", n)
	}
	return n, nil
}

func (w *RuleFileWatcher) reload() (n int, changed bool, err error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return 0, false, fmt.Errorf("read rule file: %w", err)
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if hash == w.hash {
		return w.engine.Rewriter(rules.GlobalAccount, types.DirectionOutgoing).Len(), false, nil
	}

	doc, err := rules.ParseDocument(string(data))
	if err != nil {
		return 0, false, err
	}
	n, err = w.engine.InstallDocument(rules.GlobalAccount, doc)
	if err != nil {
		return 0, false, err
	}
	w.hash = hash

	for _, dir := range []types.Direction{types.DirectionOutgoing, types.DirectionIncoming} {
		w.metrics.SetRulesLoaded(rules.GlobalAccount, dir, countDirection(doc, dir))
	}
	return n, true, nil
}

// countDirection counts the document's rules evaluated for dir.
func countDirection(doc *rules.Document, dir types.Direction) int {
	n := 0
	for _, def := range doc.Defs() {
		if def.Direction() == dir {
			n++
		}
	}
	return n
}

// Start watches the rule file's directory until ctx is cancelled or Stop
// is called. The caller is expected to have loaded the file once with
// Reload; Start does not.
func (w *RuleFileWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go w.processEvents(ctx)

	w.logger.Info("rule file watcher started", "debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
func (w *RuleFileWatcher) Stop() error {
	return w.watcher.Close()
}

// processEvents handles fsnotify events with debouncing.
func (w *RuleFileWatcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent marks a reload pending for writes to the rule file.
// Removal is ignored: the rules stay installed until a new file appears.
func (w *RuleFileWatcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("rule file change detected", "op", event.Op.String())
}

func (w *RuleFileWatcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if pending {
		_, _ = w.Reload()
	}
}
