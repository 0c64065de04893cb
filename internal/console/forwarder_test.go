package console

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
)

type closableBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closableBuffer) Close() error {
	b.closed = true
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestForwarderPumpsUntilEOF(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := New(&out)

	if _, err := pw.WriteString("first\nsecond\n"); err != nil {
		t.Fatal(err)
	}
	_ = pw.Close()

	f := NewForwarder("api", "web", pr, c, nil, testLogger())
	f.Run()

	got := out.String()
	if !strings.Contains(got, "first\n") || !strings.Contains(got, "second\n") {
		t.Fatalf("forwarded output missing lines: %q", got)
	}
	// Descriptor is owned by the forwarder and must be closed on exit.
	if _, err := pr.Read(make([]byte, 1)); err == nil {
		t.Fatal("forwarder did not close its descriptor")
	}
}

func TestForwarderReplacesMalformedBytes(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := New(&out)

	if _, err := pw.Write([]byte{'o', 'k', 0xff, 0xfe, '!', '\n'}); err != nil {
		t.Fatal(err)
	}
	_ = pw.Close()

	NewForwarder("api", "web", pr, c, nil, testLogger()).Run()

	got := out.String()
	if !strings.Contains(got, "�") {
		t.Fatalf("malformed bytes not substituted: %q", got)
	}
	if strings.ContainsRune(got, 0xff) {
		t.Fatalf("raw malformed byte leaked into console: %q", got)
	}
}

func TestForwarderTeesRawCapture(t *testing.T) {
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	c := New(&out)
	capture := &closableBuffer{}

	raw := "progress 10%\rprogress 99%\rdone\n"
	if _, err := pw.WriteString(raw); err != nil {
		t.Fatal(err)
	}
	_ = pw.Close()

	NewForwarder("api", "web", pr, c, capture, testLogger()).Run()

	if capture.String() != raw {
		t.Fatalf("capture must receive raw bytes untouched:\ngot  %q\nwant %q", capture.String(), raw)
	}
	if !capture.closed {
		t.Fatal("capture writer not closed on forwarder exit")
	}
}
