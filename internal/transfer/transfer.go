// Package transfer reads and writes catalog backup files. A backup has the
// same shape as the persisted catalog and may be gzip-compressed.
package transfer

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"catalog-cli/internal/model"
	"catalog-cli/internal/store"

	"github.com/klauspost/compress/gzip"
	"github.com/tidwall/jsonc"
)

// ErrMalformed marks a backup that is not a non-empty, well-formed catalog.
var ErrMalformed = errors.New("malformed backup")

const maxBackupBytes = 32 << 20

// FileName is the default backup name for the given day (UTC), e.g.
// templates-backup-2026-10-14.json.
func FileName(now time.Time, compressed bool) string {
	name := "templates-backup-" + now.UTC().Format("2006-01-02") + ".json"
	if compressed {
		name += ".gz"
	}
	return name
}

// Write encodes c as 2-space indented JSON, gzip-compressed when asked.
func Write(w io.Writer, c model.Catalog, compressed bool) error {
	b, err := model.MarshalFile(c)
	if err != nil {
		return err
	}
	if !compressed {
		_, err = w.Write(b)
		return err
	}
	zw := gzip.NewWriter(w)
	if _, err := zw.Write(b); err != nil {
		_ = zw.Close()
		return err
	}
	return zw.Close()
}

// WriteFile writes a backup to path. When path is a directory (or empty,
// meaning the working directory) the default file name is used inside it.
// It returns the path written.
func WriteFile(path string, c model.Catalog, now time.Time, compressed bool) (string, error) {
	if path == "" {
		path = "."
	}
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = filepath.Join(path, FileName(now, compressed))
	}
	var buf bytes.Buffer
	if err := Write(&buf, c, compressed); err != nil {
		return "", err
	}
	if err := store.AtomicWriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Read decodes a backup. Gzip input is detected by its magic bytes; comments
// and trailing commas are tolerated.
func Read(r io.Reader) (model.Catalog, error) {
	br := bufio.NewReader(io.LimitReader(r, maxBackupBytes))
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		defer zr.Close()
		return decode(io.LimitReader(zr, maxBackupBytes))
	}
	return decode(br)
}

func decode(r io.Reader) (model.Catalog, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	c, err := model.Decode(jsonc.ToJSON(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := model.ValidateCatalog(c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

func ReadFile(path string) (model.Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Summary describes a backup for the import confirmation prompt.
func Summary(c model.Catalog) string {
	return fmt.Sprintf("%d categories, %d templates", len(c), c.TemplateCount())
}
