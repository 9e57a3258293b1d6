package protocol

import (
	"errors"
	"strings"
	"testing"
)

func TestLineAssemblerChunkSizeIndependence(t *testing.T) {
	msg := "IDENTIFY {\"level\":20,\"filename\":\"x.log\"}\n"
	for size := 1; size <= len(msg); size++ {
		asm := NewLineAssembler(0)
		var got string
		var done bool
		for i := 0; i < len(msg); i += size {
			end := i + size
			if end > len(msg) {
				end = len(msg)
			}
			line, ok, err := asm.Feed([]byte(msg[i:end]))
			if err != nil {
				t.Fatalf("chunk size %d: unexpected error: %v", size, err)
			}
			if ok {
				got, done = line, true
			}
		}
		if !done {
			t.Fatalf("chunk size %d: line never completed", size)
		}
		if got != msg {
			t.Fatalf("chunk size %d: got %q, want %q", size, got, msg)
		}
	}
}

func TestLineAssemblerTrailingBytesSameRead(t *testing.T) {
	asm := NewLineAssembler(0)
	_, _, err := asm.Feed([]byte("HELLO 1.0\nextra"))
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("got %v, want ErrFraming", err)
	}
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("ErrFraming should wrap ErrProtocol")
	}
}

func TestLineAssemblerTrailingBytesLaterRead(t *testing.T) {
	asm := NewLineAssembler(0)
	if _, _, err := asm.Feed([]byte("HELLO 1.0")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _, err := asm.Feed([]byte("\nextra"))
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("got %v, want ErrFraming", err)
	}
}

func TestLineAssemblerEmbeddedTerminator(t *testing.T) {
	asm := NewLineAssembler(0)
	_, _, err := asm.Feed([]byte("LOG\nQUIT\n"))
	if !errors.Is(err, ErrFraming) {
		t.Fatalf("got %v, want ErrFraming", err)
	}
}

func TestLineAssemblerInvalidUTF8(t *testing.T) {
	asm := NewLineAssembler(0)
	_, _, err := asm.Feed([]byte{'H', 'I', 0xff, 0xfe, '\n'})
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("got %v, want ErrEncoding", err)
	}
}

func TestLineAssemblerTooLong(t *testing.T) {
	asm := NewLineAssembler(16)
	var err error
	for i := 0; i < 4 && err == nil; i++ {
		_, _, err = asm.Feed([]byte(strings.Repeat("a", 8)))
	}
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("got %v, want ErrFrameTooLarge", err)
	}
}

func TestLineAssemblerResetsAfterLine(t *testing.T) {
	asm := NewLineAssembler(0)
	if _, ok, _ := asm.Feed([]byte("LOG\n")); !ok {
		t.Fatal("first line did not complete")
	}
	line, ok, err := asm.Feed([]byte("QUIT\n"))
	if err != nil || !ok {
		t.Fatalf("second line: ok=%v err=%v", ok, err)
	}
	if line != "QUIT\n" {
		t.Fatalf("second line = %q, want QUIT", line)
	}
}

func TestBlockAssemblerCollectsExactly(t *testing.T) {
	var asm BlockAssembler
	asm.Expect(10)

	payload := []byte("0123456789")
	for i := 0; i < 9; i++ {
		if block, done := asm.Feed(payload[i : i+1]); done {
			t.Fatalf("complete after %d bytes: %q", i+1, block)
		}
	}
	block, done := asm.Feed(payload[9:])
	if !done {
		t.Fatal("incomplete after final byte")
	}
	if string(block) != string(payload) {
		t.Fatalf("block = %q, want %q", block, payload)
	}
	if asm.Remaining() != 0 {
		t.Fatalf("remaining = %d after completion, want 0", asm.Remaining())
	}
}

func TestBlockAssemblerReuse(t *testing.T) {
	var asm BlockAssembler
	asm.Expect(4)
	if _, done := asm.Feed([]byte{0, 0, 0, 5}); !done {
		t.Fatal("header incomplete")
	}
	asm.Expect(5)
	if asm.Remaining() != 5 {
		t.Fatalf("remaining = %d, want 5", asm.Remaining())
	}
	block, done := asm.Feed([]byte("hello"))
	if !done || string(block) != "hello" {
		t.Fatalf("body = %q done=%v", block, done)
	}
}
