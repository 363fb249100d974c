package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"tgminer/internal/app/ports"

	"github.com/klauspost/compress/zstd"
)

// Writer appends drift records as zstd-compressed JSON lines, one file per
// UTC day.
type Writer struct {
	dir    string
	prefix string

	mu     sync.Mutex
	curDay string
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
}

func NewWriter(dir, prefix string) *Writer {
	if prefix == "" {
		prefix = "drift"
	}
	return &Writer{dir: dir, prefix: prefix}
}

func (w *Writer) Record(rec ports.DriftRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}
	day := at.UTC().Format("2006-01-02")
	if day != w.curDay {
		if err := w.rotateLocked(day); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// PathFor is the file holding records of the given day.
func (w *Writer) PathFor(day time.Time) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day.UTC().Format("2006-01-02")))
}

func (w *Writer) rotateLocked(day string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, day))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 32*1024)
	w.curDay = day
	return nil
}

func (w *Writer) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		err = errors.Join(err, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		err = errors.Join(err, w.f.Close())
		w.f = nil
	}
	w.w = nil
	w.curDay = ""
	return err
}

// ReadFile decodes every record in a journal file. Appended sessions produce
// concatenated zstd frames, which the decoder reads in sequence.
func ReadFile(path string) ([]ports.DriftRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var out []ports.DriftRecord
	jd := json.NewDecoder(dec)
	for {
		var rec ports.DriftRecord
		if err := jd.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		out = append(out, rec)
	}
}

// Tee fans a record out to several journals and joins their errors.
type Tee []ports.DriftJournal

func (t Tee) Record(rec ports.DriftRecord) error {
	var errs []error
	for _, j := range t {
		if j == nil {
			continue
		}
		if err := j.Record(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
