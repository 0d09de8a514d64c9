// Package archive frames mirror archives: a gzip-compressed tar stream read
// and written one entry at a time.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
)

type walkBreak struct{}

func (walkBreak) Error() string { return "walk break" }

// WalkBreak can be returned from a Walker to stop walking without error.
func WalkBreak() error {
	return walkBreak{}
}

// Walker handles one tar entry.
//
// payload is valid only until the Walker returns; whatever it leaves unread
// is discarded before the next entry is read.
type Walker func(header *tar.Header, payload io.Reader) error

// Walk reads the tar.gz stream from r entry by entry and calls walker for
// each regular file, in stream order. Directories and links are skipped.
//
// It returns nil at the end of the stream, the walker's error, or the
// stream's own error. r is not closed.
func Walk(r io.Reader, walker Walker) error {
	gzin, err := gzip.NewReader(r)
	if err != nil {
		return err
	}
	defer gzin.Close()

	return WalkTar(gzin, walker)
}

// WalkTar is Walk for an uncompressed tar stream.
func WalkTar(r io.Reader, walker Walker) error {
	tarin := tar.NewReader(r)
	for {
		header, err := tarin.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}

		err = walker(header, tarin)
		if err == nil {
			continue
		}
		if errors.As(err, new(walkBreak)) {
			return nil
		}
		return err
	}
}

// ContextReader fails reads once ctx is done. When the underlying reader
// is an io.Closer it is closed as soon as ctx is cancelled, which also
// unblocks a Read already waiting on a stalled source.
type ContextReader struct {
	ctx  context.Context
	r    io.Reader
	stop func() bool
}

func NewContextReader(ctx context.Context, r io.Reader) *ContextReader {
	cr := &ContextReader{ctx: ctx, r: r, stop: func() bool { return false }}
	if closer, ok := r.(io.Closer); ok {
		cr.stop = context.AfterFunc(ctx, func() { _ = closer.Close() })
	}
	return cr
}

func (r *ContextReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := r.r.Read(p)
	if err != nil && r.ctx.Err() != nil {
		return n, r.ctx.Err()
	}
	return n, err
}

// Release stops watching ctx without closing the underlying reader.
func (r *ContextReader) Release() {
	r.stop()
}

func (r *ContextReader) Close() error {
	r.stop()
	if closer, ok := r.r.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
