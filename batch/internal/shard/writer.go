// Package shard writes the CSV shard files the exporters hand to the map phase.
package shard

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Writer buffers lines into one shard. A shard is only complete once Close
// returned nil; a failed flush or close means rows are missing from it.
type Writer struct {
	name string
	dst  io.WriteCloser
	w    *bufio.Writer
	err  error
}

// Create opens name for writing and writes the header line.
func Create(name, header string) (*Writer, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return New(name, f, header)
}

// New wraps dst. name is only used in error messages.
func New(name string, dst io.WriteCloser, header string) (*Writer, error) {
	sw := &Writer{name: name, dst: dst, w: bufio.NewWriterSize(dst, 1<<20)}
	if err := sw.WriteLine(header); err != nil {
		sw.Abort()
		return nil, err
	}
	return sw, nil
}

// WriteLine appends line and a newline. The first error sticks.
func (sw *Writer) WriteLine(line string) error {
	if sw.err != nil {
		return sw.err
	}
	if _, err := sw.w.WriteString(line); err != nil {
		sw.err = errors.Wrapf(err, "write shard %s", sw.name)
		return sw.err
	}
	if err := sw.w.WriteByte('\n'); err != nil {
		sw.err = errors.Wrapf(err, "write shard %s", sw.name)
	}
	return sw.err
}

// Close flushes buffered lines and closes the file, returning the first
// write, flush or close error.
func (sw *Writer) Close() error {
	flushErr := sw.w.Flush()
	closeErr := sw.dst.Close()
	switch {
	case sw.err != nil:
		return sw.err
	case flushErr != nil:
		return errors.Wrapf(flushErr, "flush shard %s", sw.name)
	case closeErr != nil:
		return errors.Wrapf(closeErr, "close shard %s", sw.name)
	}
	return nil
}

// Abort closes the file without reporting anything, for error paths that
// already have an error to return.
func (sw *Writer) Abort() {
	_ = sw.dst.Close()
}
