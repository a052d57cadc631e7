package shard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var errDiskFull = errors.New("no space left on device")

// limitedFile accepts up to room bytes and fails after that.
type limitedFile struct {
	room     int
	written  []byte
	closed   bool
	closeErr error
}

func (f *limitedFile) Write(p []byte) (int, error) {
	if len(p) > f.room {
		n := f.room
		f.written = append(f.written, p[:n]...)
		f.room = 0
		return n, errDiskFull
	}
	f.room -= len(p)
	f.written = append(f.written, p...)
	return len(p), nil
}

func (f *limitedFile) Close() error {
	f.closed = true
	return f.closeErr
}

func TestCloseReportsShortWrite(t *testing.T) {
	dst := &limitedFile{room: 20}
	w, err := New("trips-00000.csv", dst, "ride_id,rideable_type")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for i := 0; i < 10; i++ {
		if err := w.WriteLine("r1,classic_bike"); err != nil {
			t.Fatalf("buffered write must not fail yet: %v", err)
		}
	}
	if err := w.Close(); !errors.Is(err, errDiskFull) {
		t.Fatalf("expected flush error, got %v", err)
	}
	if !dst.closed {
		t.Fatalf("file must be closed even when flush fails")
	}
}

func TestCloseReportsCloseError(t *testing.T) {
	closeErr := errors.New("close failed")
	dst := &limitedFile{room: 1 << 10, closeErr: closeErr}
	w, err := New("trips-00000.csv", dst, "ride_id")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := w.Close(); !errors.Is(err, closeErr) {
		t.Fatalf("expected close error, got %v", err)
	}
}

func TestCreateWritesHeaderAndLines(t *testing.T) {
	name := filepath.Join(t.TempDir(), "trips-00000.csv")
	w, err := Create(name, "ride_id,start_station_name")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := w.WriteLine("r1,Clark St"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "ride_id,start_station_name\nr1,Clark St\n" {
		t.Fatalf("unexpected content %q", b)
	}
}
