package store

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"imageforge/internal/logging"

	"github.com/google/uuid"
)

// ExtractArchive pulls the image entries out of an uploaded zip archive
// and appends them to the session as individual assets. Directory entries
// and non-image files are skipped. Returns how many assets were added.
//
// The archive file itself is removed afterwards; only its extracted
// entries remain in the session.
func (s *Store) ExtractArchive(sess *Session, archivePath string) (int, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive: %w", err)
	}
	defer reader.Close()

	dir := s.SessionDir(sess.ID)
	added := 0

	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		originalName := filepath.Base(entry.Name)
		if !IsImageFile(originalName) {
			logging.Debug("archive entry skipped (not an image): %s", entry.Name)
			continue
		}

		storedName := uuid.NewString() + "_" + originalName
		storedPath := filepath.Join(dir, storedName)

		if err := extractEntry(entry, storedPath); err != nil {
			logging.Warn("failed to extract %s: %v", entry.Name, err)
			continue
		}

		info, err := os.Stat(storedPath)
		if err != nil {
			logging.Warn("failed to stat extracted entry %s: %v", storedPath, err)
			continue
		}

		sess.Assets = append(sess.Assets, ImageAsset{
			ID:           uuid.NewString(),
			OriginalName: originalName,
			StoredName:   storedName,
			StoredPath:   storedPath,
			Source:       SourceArchive,
			SizeBytes:    info.Size(),
		})
		added++
	}

	if err := os.Remove(archivePath); err != nil {
		logging.Warn("failed to remove archive %s after extraction: %v", archivePath, err)
	}

	return added, nil
}

func extractEntry(entry *zip.File, dest string) error {
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	_, err = io.Copy(out, src)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dest)
	}
	return err
}
