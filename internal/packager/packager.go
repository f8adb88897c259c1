package packager

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"imageforge/internal/logging"
	"imageforge/internal/store"
	"imageforge/internal/workers"
)

// Packaging errors, reported at download time.
var (
	// ErrSessionNotProcessed means download was requested before process.
	ErrSessionNotProcessed = errors.New("session not processed")
	// ErrNothingProcessed means no asset in the session succeeded.
	ErrNothingProcessed = errors.New("no successfully processed files")
	// ErrEmptyArchive means every successful output was missing or empty
	// by packaging time.
	ErrEmptyArchive = errors.New("archive would be empty")
)

// Kind distinguishes the two deliverable shapes.
type Kind string

const (
	// KindSingle is one image delivered directly.
	KindSingle Kind = "single"
	// KindArchive is a zip of several outputs.
	KindArchive Kind = "archive"
)

// Deliverable is a fully buffered download payload.
type Deliverable struct {
	Kind        Kind
	Filename    string
	ContentType string
	Data        []byte
}

// Package builds the deliverable for a processed session. The returned
// bytes are complete; nothing holds the session's files open afterwards,
// so the caller may schedule the deferred delete immediately.
func Package(sess *store.Session) (*Deliverable, error) {
	if sess.Status != store.StatusProcessed {
		return nil, ErrSessionNotProcessed
	}

	successful := sess.SuccessfulResults()
	if len(successful) == 0 {
		return nil, ErrNothingProcessed
	}

	if len(successful) == 1 {
		return packageSingle(successful[0])
	}
	return packageArchive(successful)
}

func packageSingle(result store.ProcessingResult) (*Deliverable, error) {
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNothingProcessed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: output file is empty", ErrNothingProcessed)
	}

	return &Deliverable{
		Kind:        KindSingle,
		Filename:    result.ProcessedName,
		ContentType: contentTypeFor(result.ProcessedName),
		Data:        data,
	}, nil
}

func packageArchive(results []store.ProcessingResult) (*Deliverable, error) {
	// Reads are disk-bound, so they fan out across an IO-sized worker
	// set. The slice is indexed by result position to keep the archive
	// entry order identical to the processing order; a missing or empty
	// output leaves a nil slot and is skipped at write time.
	datas := make([][]byte, len(results))
	jobs := make(chan int, len(results))
	for i := range results {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for i := 0; i < workers.ForIO(len(results)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				result := results[idx]
				data, err := os.ReadFile(result.OutputPath)
				if err != nil {
					logging.Warn("archive skipping %s: %v", result.ProcessedName, err)
					continue
				}
				if len(data) == 0 {
					logging.Warn("archive skipping empty output %s", result.ProcessedName)
					continue
				}
				datas[idx] = data
			}
		}()
	}
	wg.Wait()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	entries := 0
	for i, result := range results {
		if datas[i] == nil {
			continue
		}
		entry, err := w.Create(result.ProcessedName)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive entry: %w", err)
		}
		if _, err := entry.Write(datas[i]); err != nil {
			return nil, fmt.Errorf("failed to write archive entry: %w", err)
		}
		entries++
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}
	if entries == 0 {
		return nil, ErrEmptyArchive
	}

	return &Deliverable{
		Kind:        KindArchive,
		Filename:    fmt.Sprintf("processed_images_%s.zip", time.Now().Format("20060102_150405")),
		ContentType: "application/zip",
		Data:        buf.Bytes(),
	}, nil
}

// contentTypeFor infers the delivery content type from the output
// extension. Outputs are either canonical PNGs or ladder JPEGs.
func contentTypeFor(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg") {
		return "image/jpeg"
	}
	return "image/png"
}
