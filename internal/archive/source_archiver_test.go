package archive

import (
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestGzipSource_RoundTrips(t *testing.T) {
	const source = "print('hello, judge')\n"

	buf, err := gzipSource(source)
	if err != nil {
		t.Fatalf("gzipSource: %v", err)
	}

	r, err := gzip.NewReader(buf)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer r.Close()

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != source {
		t.Fatalf("decompressed = %q, want %q", got, source)
	}
}

func TestObjectKey(t *testing.T) {
	if got, want := objectKey("sub-1", "python"), "sub-1/python.gz"; got != want {
		t.Fatalf("objectKey = %q, want %q", got, want)
	}
}
