package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"imageforge/internal/logging"

	"github.com/google/uuid"
)

// Sentinel errors for session access.
var (
	// ErrSessionNotFound means the session id does not map to a stored session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrMetadataUnreadable means the session directory exists but its
	// metadata record is corrupt.
	ErrMetadataUnreadable = errors.New("session metadata unreadable")
	// ErrInvalidSessionID means the id is not a well-formed session token.
	ErrInvalidSessionID = errors.New("invalid session id")
)

const metadataFile = "metadata.json"

// Store maps session ids to directories under a single upload root.
type Store struct {
	root string
}

// New creates a Store rooted at dir, creating it if necessary.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Root returns the upload root directory.
func (s *Store) Root() string {
	return s.root
}

// validateID rejects ids that are not UUIDs. Session ids are only ever
// minted by CreateSession, so anything else is either a typo or an
// attempt to escape the upload root.
func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidSessionID
	}
	return nil
}

// SessionDir returns the directory backing a session id.
func (s *Store) SessionDir(id string) string {
	return filepath.Join(s.root, id)
}

// CreateSession mints a new session with an empty asset list and creates
// its backing directory.
func (s *Store) CreateSession() (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusUploaded,
	}
	if err := os.MkdirAll(s.SessionDir(sess.ID), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return sess, nil
}

// Save writes the session's metadata record atomically (temp file plus
// rename), so a concurrent reader never sees a partial record.
func (s *Store) Save(sess *Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session metadata: %w", err)
	}

	dir := s.SessionDir(sess.ID)
	tmp := filepath.Join(dir, metadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write session metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, metadataFile)); err != nil {
		return fmt.Errorf("failed to publish session metadata: %w", err)
	}
	return nil
}

// Load reads a session record back from disk.
func (s *Store) Load(id string) (*Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.SessionDir(id), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnreadable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMetadataUnreadable, err)
	}
	return &sess, nil
}

// AddDirectAsset stores an uploaded file under a collision-free name and
// appends it to the session's asset list.
func (s *Store) AddDirectAsset(sess *Session, originalName string, src io.Reader) (*ImageAsset, error) {
	storedName := uuid.NewString() + "_" + filepath.Base(originalName)
	storedPath := filepath.Join(s.SessionDir(sess.ID), storedName)

	f, err := os.Create(storedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store %s: %w", originalName, err)
	}
	size, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("failed to store %s: %w", originalName, err)
	}

	asset := ImageAsset{
		ID:           uuid.NewString(),
		OriginalName: filepath.Base(originalName),
		StoredName:   storedName,
		StoredPath:   storedPath,
		Source:       SourceDirect,
		SizeBytes:    size,
	}
	sess.Assets = append(sess.Assets, asset)
	return &asset, nil
}

// CompleteProcessing records the outcome of a processing run. Status,
// options, and the full result set are published in one atomic metadata
// write, so no reader sees a processed session with partial results.
func (s *Store) CompleteProcessing(sess *Session, opts ProcessingOptions, results []ProcessingResult) error {
	now := time.Now().UTC()
	sess.Status = StatusProcessed
	sess.Options = &opts
	sess.Results = results
	sess.ProcessedAt = &now
	return s.Save(sess)
}

// Delete removes a session's directory and record. Deleting a session
// that never existed or is already gone is a no-op.
func (s *Store) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	// RemoveAll returns nil when the path does not exist, which is
	// exactly the idempotency the retention triggers rely on.
	if err := os.RemoveAll(s.SessionDir(id)); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}

// Exists reports whether a session directory is present.
func (s *Store) Exists(id string) bool {
	if err := validateID(id); err != nil {
		return false
	}
	info, err := os.Stat(s.SessionDir(id))
	return err == nil && info.IsDir()
}

// List returns the ids of every stored session.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload root: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if err := validateID(entry.Name()); err != nil {
			logging.Debug("skipping non-session directory %s", entry.Name())
			continue
		}
		ids = append(ids, entry.Name())
	}
	return ids, nil
}

// DeleteAll removes every stored session and returns how many were deleted.
func (s *Store) DeleteAll() (int, error) {
	ids, err := s.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range ids {
		if err := s.Delete(id); err != nil {
			logging.Warn("failed to delete session %s: %v", id, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// CreatedAt returns when a session was created, falling back to the
// directory's modification time when the metadata record is unreadable.
// The sweep uses this so even a session with corrupt metadata is
// eventually reclaimed.
func (s *Store) CreatedAt(id string) (time.Time, error) {
	if sess, err := s.Load(id); err == nil {
		return sess.CreatedAt, nil
	}
	info, err := os.Stat(s.SessionDir(id))
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}
