package archive

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Writer writes entries into a tar.gz stream.
type Writer struct {
	gz      *gzip.Writer
	tw      *tar.Writer
	modTime time.Time
	entries int
}

// NewWriter starts a tar.gz stream on w. Close must be called to flush
// the trailer; w itself is not closed.
func NewWriter(w io.Writer) *Writer {
	gz := gzip.NewWriter(w)
	return &Writer{gz: gz, tw: tar.NewWriter(gz), modTime: time.Now().UTC()}
}

// NewTarWriter is NewWriter without compression.
func NewTarWriter(w io.Writer) *Writer {
	return &Writer{tw: tar.NewWriter(w), modTime: time.Now().UTC()}
}

// WriteStream writes an entry of exactly size bytes copied from r.
// pax may carry extra PAX records (vendor keys) for the entry.
func (w *Writer) WriteStream(name string, size int64, r io.Reader, pax map[string]string) error {
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Size:     size,
		Mode:     0o644,
		ModTime:  w.modTime,
	}
	if len(pax) > 0 {
		hdr.PAXRecords = pax
		hdr.Format = tar.FormatPAX
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("write header %s: %w", name, err)
	}
	n, err := io.Copy(w.tw, r)
	if err != nil {
		return fmt.Errorf("write payload %s: %w", name, err)
	}
	if n != size {
		return fmt.Errorf("write payload %s: got %d bytes, want %d", name, n, size)
	}
	w.entries++
	return nil
}

// WriteBytes writes a small in-memory entry.
func (w *Writer) WriteBytes(name string, b []byte) error {
	return w.WriteStream(name, int64(len(b)), bytes.NewReader(b), nil)
}

// WriteJSON marshals v and writes it as an entry.
func (w *Writer) WriteJSON(name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	return w.WriteBytes(name, b)
}

// Entries returns how many entries have been written so far.
func (w *Writer) Entries() int {
	return w.entries
}

func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		return err
	}
	if w.gz != nil {
		return w.gz.Close()
	}
	return nil
}
