package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tapedeck/internal/config"
	"tapedeck/internal/fileutil"
	"tapedeck/internal/logging"
)

// Store manages queue persistence backed by a single JSON document with a
// last-known-good backup beside it. Every mutation is a locked
// load-modify-save cycle so the file on disk is always a complete document.
type Store struct {
	mu         sync.Mutex
	path       string
	backupPath string
	logger     *slog.Logger
	now        func() time.Time
}

// Open initializes the queue store under the configured work directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.QueueFile(), logger)
}

// OpenPath initializes a queue store at an explicit document path. The backup
// lives beside the primary as <name>_backup.json.
func OpenPath(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("queue path must not be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create queue directory: %w", err)
	}

	store := &Store{
		path:       path,
		backupPath: backupPathFor(path),
		logger:     logging.NewComponentLogger(logger, "queue"),
		now:        func() time.Time { return time.Now().UTC() },
	}

	// Load once at open so corruption surfaces immediately instead of on the
	// first mutation.
	store.mu.Lock()
	defer store.mu.Unlock()
	if _, err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

// Close releases resources held by the store. The JSON store holds no open
// handles between operations; Close exists for interface symmetry.
func (s *Store) Close() error {
	return nil
}

// Path returns the location of the primary queue document.
func (s *Store) Path() string {
	return s.path
}

func backupPathFor(path string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return base + "_backup" + ext
}

// load reads the queue document, recovering from the backup when the primary
// is corrupt and resetting to an empty document as the last resort. Callers
// must hold s.mu.
func (s *Store) load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		doc := newDocument(s.now())
		if err := s.save(doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read queue document: %w", err)
	}

	doc, decodeErr := decodeDocument(data)
	if decodeErr == nil {
		return doc, nil
	}

	s.logger.Error("queue document corrupt, attempting backup recovery",
		logging.String(logging.FieldEventType, "queue-corrupt"),
		logging.String("path", s.path),
		logging.Error(decodeErr),
	)

	backupData, backupErr := os.ReadFile(s.backupPath)
	if backupErr == nil {
		if recovered, err := decodeDocument(backupData); err == nil {
			s.quarantineCorrupt()
			if err := s.save(recovered); err != nil {
				return nil, fmt.Errorf("restore queue from backup: %w", err)
			}
			s.logger.Warn("queue restored from backup",
				logging.String(logging.FieldEventType, "queue-restored"),
				logging.String("backup", s.backupPath),
				logging.Int("jobs", len(recovered.Jobs)),
			)
			return recovered, nil
		}
	}

	logging.ErrorWithContext(s.logger, "queue unrecoverable, resetting to empty document", "queue-reset",
		logging.String("path", s.path),
		logging.String(logging.FieldErrorHint, "previous queue contents were lost; the unreadable document was kept with a .corrupt suffix"),
	)
	s.quarantineCorrupt()
	doc = newDocument(s.now())
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// quarantineCorrupt moves the unreadable primary aside under a .corrupt
// suffix. save copies whatever sits at the primary path over the backup, so
// the corrupt document must be out of the way before recovery saves, or a
// crash mid-save would leave both files unreadable. The set-aside copy also
// lets operators inspect what went wrong.
func (s *Store) quarantineCorrupt() {
	corrupt := s.path + ".corrupt"
	if err := os.Rename(s.path, corrupt); err != nil {
		_ = os.Remove(s.path)
		return
	}
	s.logger.Warn("corrupt queue document set aside",
		logging.String("path", corrupt),
	)
}

// save persists the document crash-safely: the current primary is copied to
// the backup, the new contents go to a temp file in the same directory, and
// an atomic rename swaps it in. Callers must hold s.mu.
func (s *Store) save(doc *Document) error {
	if _, err := os.Stat(s.path); err == nil {
		if err := fileutil.CopyFile(s.path, s.backupPath); err != nil {
			return fmt.Errorf("backup queue document: %w", err)
		}
	}

	doc.Metadata.LastUpdated = s.now()
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = doc.Metadata.LastUpdated
	}
	if doc.Metadata.Version == "" {
		doc.Metadata.Version = documentVersion
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue document: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write queue document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace queue document: %w", err)
	}
	return nil
}

// mutate runs fn against the loaded document and saves it when fn reports a
// change. The entire cycle happens under the store mutex.
func (s *Store) mutate(fn func(doc *Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	changed, err := fn(doc)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.save(doc)
}

// view runs fn against a loaded document without saving.
func (s *Store) view(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	return fn(doc)
}
