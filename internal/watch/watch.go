// Package watch imports backup files automatically as they appear in a
// directory. Dropping an exported file into the watched directory on the
// device is the transfer mechanism between installations.
package watch

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/kenneth/homevault/internal/audit"
	"github.com/kenneth/homevault/internal/backup"
	"github.com/kenneth/homevault/internal/importer"
	"github.com/kenneth/homevault/internal/metrics"
)

// Options configures a Watcher.
type Options struct {
	Dir string
	// Passphrase unlocks encrypted files. Plain files import without it.
	Passphrase string
	// Debounce is how long a file must stay quiet before it is imported,
	// so half-written files are not picked up.
	Debounce time.Duration
	Logger   *logrus.Logger
	Audit    audit.Logger
	Metrics  *metrics.Metrics
}

// Watcher imports every backup file written into one directory.
type Watcher struct {
	opts     Options
	importer *importer.Importer
}

// pendingFile is a file inside its quiet period. due is the earliest
// moment the file may be imported; it advances with every write, even ones
// arriving after the timer has fired.
type pendingFile struct {
	timer *time.Timer
	due   time.Time
}

// New creates a Watcher feeding imports through imp.
func New(imp *importer.Importer, opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	return &Watcher{opts: opts, importer: imp}
}

// IsBackupFile reports whether name carries one of the backup extensions.
func IsBackupFile(name string) bool {
	return strings.HasSuffix(name, backup.PlainExtension) ||
		strings.HasSuffix(name, backup.EncryptedExtension)
}

// Run watches the directory until ctx is cancelled. Files already present
// at startup are not imported; only new writes trigger an import.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.opts.Dir); err != nil {
		return err
	}
	w.opts.Logger.WithField("dir", w.opts.Dir).Info("watching for backup files")

	pending := make(map[string]*pendingFile)
	ready := make(chan string)
	defer func() {
		for _, p := range pending {
			p.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !IsBackupFile(event.Name) {
				continue
			}
			// Each write pushes the quiet-period deadline out. Reset is
			// only safe while the timer is still pending: Stop returning
			// false means it already fired and its send is in flight, in
			// which case the ready branch sees the future deadline and
			// re-arms instead of importing.
			due := time.Now().Add(w.opts.Debounce)
			if p, exists := pending[event.Name]; exists {
				p.due = due
				if p.timer.Stop() {
					p.timer.Reset(w.opts.Debounce)
				}
				continue
			}
			name := event.Name
			pending[name] = &pendingFile{
				due: due,
				timer: time.AfterFunc(w.opts.Debounce, func() {
					select {
					case ready <- name:
					case <-ctx.Done():
					}
				}),
			}

		case name := <-ready:
			p, exists := pending[name]
			if !exists {
				continue
			}
			// The file was written again while this send was in flight;
			// wait out the new quiet period. The callback has returned by
			// now, so re-arming the timer is safe.
			if remaining := time.Until(p.due); remaining > 0 {
				p.timer.Reset(remaining)
				continue
			}
			delete(pending, name)
			w.importFile(ctx, name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.WithError(err).Warn("filesystem watch error")
		}
	}
}

func (w *Watcher) importFile(ctx context.Context, name string) {
	start := time.Now()
	logger := w.opts.Logger.WithField("file", name)

	raw, err := os.ReadFile(name)
	if err != nil {
		logger.WithError(err).Warn("failed to read backup file")
		w.observe("error")
		return
	}

	encrypted := backup.SniffEncrypted(string(raw))
	file, result, err := w.importer.Import(ctx, string(raw), w.opts.Passphrase)
	if err != nil {
		logger.WithError(err).Warn("auto-import failed")
		w.observe("error")
		if w.opts.Audit != nil {
			w.opts.Audit.LogImport(audit.EventTypeWatch, name, encrypted, 0, 0, 0, err, time.Since(start))
		}
		return
	}

	skipped := 0
	for _, n := range result.Skipped {
		skipped += n
	}
	logger.WithFields(logrus.Fields{
		"schema":  file.Manifest.SchemaVersion,
		"created": result.TotalCreated(),
		"skipped": skipped,
		"errors":  len(result.Errors),
	}).Info("auto-import finished")
	w.observe("imported")
	if w.opts.Audit != nil {
		w.opts.Audit.LogImport(audit.EventTypeWatch, name, encrypted,
			result.TotalCreated(), skipped, len(result.Errors), nil, time.Since(start))
	}
}

func (w *Watcher) observe(outcome string) {
	if w.opts.Metrics != nil {
		w.opts.Metrics.ObserveWatchEvent(outcome)
	}
}
