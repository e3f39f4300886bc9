package records

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
)

// FileLog appends records to a CSV file. The file only ever appears on disk with its
// header already in place, and every row reaches the file in a single write on an
// O_APPEND descriptor, so concurrent writers, including other FileLogs or processes
// on the same path, never split a row or land ahead of the header. Rows from
// concurrent callers land in arbitrary relative order.
type FileLog struct {
	path string
	mu   sync.Mutex
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: filepath.Clean(path)}
}

func (l *FileLog) Path() string {
	return l.path
}

func (l *FileLog) Append(rec Record) error {
	header, row, err := encode(rec)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := ensureHeader(l.path, header); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return fmt.Errorf("open prediction log %s: %w", l.path, err)
	}
	if _, err := f.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("append record to %s: %w", l.path, err)
	}
	return f.Close()
}

// encode returns the header line and the data row for rec.
func encode(rec Record) ([]byte, []byte, error) {
	rows := []Record{rec}
	var full, row bytes.Buffer
	if err := gocsv.Marshal(rows, &full); err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}
	if err := gocsv.MarshalWithoutHeaders(rows, &row); err != nil {
		return nil, nil, fmt.Errorf("encode record: %w", err)
	}
	if !bytes.HasSuffix(full.Bytes(), row.Bytes()) {
		return nil, nil, fmt.Errorf("encode record: header and row encodings disagree")
	}
	return full.Bytes()[:full.Len()-row.Len()], row.Bytes(), nil
}

// ensureHeader creates path holding only the header unless it already exists. The
// header is written to a temporary file in the same directory and hard-linked into
// place, which fails when path exists, so creation is atomic with its content.
func ensureHeader(path string, header []byte) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat prediction log %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create prediction log %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("write prediction log header: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("write prediction log header: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prediction log header: %w", err)
	}

	if err := os.Link(tmp.Name(), path); err != nil && !errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("create prediction log %s: %w", path, err)
	}
	return nil
}

// ReadAll loads every record in the log. A missing or empty file yields no records.
func ReadAll(path string) ([]Record, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open prediction log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		return nil, nil
	}

	var out []Record
	if err := gocsv.UnmarshalFile(f, &out); err != nil {
		return nil, fmt.Errorf("decode prediction log: %w", err)
	}
	return out, nil
}

// Tail returns the last n records, newest last.
func Tail(path string, n int) ([]Record, error) {
	all, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
