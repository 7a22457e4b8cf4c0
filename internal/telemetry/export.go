package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/phantomos/governor/internal/fileutil"
)

// Export writes the mirrored audit entries from the last `minutes` as
// zstd-compressed JSON lines into dir, returning the file path written.
func (s *Storage) Export(dir string, minutes int) (string, error) {
	entries, err := s.GetRecent(minutes, 1_000_000)
	if err != nil {
		return "", err
	}
	if err := fileutil.MkdirOwnerOnly(dir); err != nil {
		return "", fmt.Errorf("failed to create export dir: %w", err)
	}

	name := fmt.Sprintf("audit-%s.jsonl.zst", time.Now().UTC().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	f, err := fileutil.OpenOwnerOnly(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return "", fmt.Errorf("failed to init compressor: %w", err)
	}

	enc := json.NewEncoder(zw)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to encode entry %d: %w", e.ID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish export: %w", err)
	}
	log.Info("exported %d audit entries to %s", len(entries), path)
	return path, nil
}

// ReadExport decompresses an export file back into entries, for tooling and
// tests.
func ReadExport(path string) ([]StoredEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to init decompressor: %w", err)
	}
	defer zr.Close()

	var out []StoredEntry
	dec := json.NewDecoder(zr)
	for dec.More() {
		var e StoredEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("failed to decode export: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}
