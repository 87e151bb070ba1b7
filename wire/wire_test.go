package wire

import (
	"bytes"
	"testing"
)

func TestFeedNeedsMore(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
	}{
		{"no newline yet", []byte("VALUE foo 0 5")},
		{"header complete, value short", []byte("VALUE foo 0 5\r\nhel")},
		{"header complete, value exact but no trailer", []byte("VALUE foo 0 5\r\nhello")},
		{"meta VA short value", []byte("VA 10 c123\r\nshort")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Feed(tt.buf)
			if !out.NeedMore {
				t.Fatalf("expected NeedMore, got %+v", out)
			}
			if out.Consumed != 0 {
				t.Fatalf("NeedMore must not consume bytes, got %d", out.Consumed)
			}
		})
	}
}

func TestFeedGet(t *testing.T) {
	buf := []byte("VALUE foo 0 5\r\nhello\r\nEND\r\n")
	out := Feed(buf)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Kind != KindGet {
		t.Fatalf("expected KindGet, got %v", out.Kind)
	}
	if !bytes.Equal(out.Value, []byte("hello")) {
		t.Fatalf("expected value hello, got %q", out.Value)
	}
	rest := buf[out.Consumed:]
	end := Feed(rest)
	if end.Kind != KindEnd || end.Consumed != EndLen {
		t.Fatalf("expected END of length %d, got %+v", EndLen, end)
	}
}

func TestFeedMetaValue(t *testing.T) {
	buf := []byte("VA 3 c123 t60\r\nabc\r\n")
	out := Feed(buf)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if out.Kind != KindMeta {
		t.Fatalf("expected KindMeta, got %v", out.Kind)
	}
	if !bytes.Equal(out.Value, []byte("abc")) {
		t.Fatalf("expected value abc, got %q", out.Value)
	}
	if out.Consumed != len(buf) {
		t.Fatalf("expected to consume entire buffer, got %d of %d", out.Consumed, len(buf))
	}
}

func TestFeedMetaNoValue(t *testing.T) {
	tests := []string{"HD\r\n", "HD O123\r\n", "EN\r\n", "NS\r\n", "EX\r\n", "NF\r\n", "MN\r\n", "ME\r\n"}
	for _, line := range tests {
		out := Feed([]byte(line))
		if out.Err != nil {
			t.Fatalf("%q: unexpected error: %v", line, out.Err)
		}
		if out.Kind != KindMeta {
			t.Fatalf("%q: expected KindMeta, got %v", line, out.Kind)
		}
		if out.Consumed != len(line) {
			t.Fatalf("%q: expected Consumed=%d, got %d", line, len(line), out.Consumed)
		}
	}
}

func TestFeedGeneric(t *testing.T) {
	tests := []string{"STORED\r\n", "NOT_STORED\r\n", "DELETED\r\n", "NOT_FOUND\r\n",
		"EXISTS\r\n", "OK\r\n", "TOUCHED\r\n", "ERROR\r\n",
		"CLIENT_ERROR bad command line\r\n", "SERVER_ERROR out of memory\r\n"}
	for _, line := range tests {
		out := Feed([]byte(line))
		if out.Err != nil {
			t.Fatalf("%q: unexpected error: %v", line, out.Err)
		}
		if out.Kind != KindGeneric {
			t.Fatalf("%q: expected KindGeneric, got %v", line, out.Kind)
		}
	}
}

func TestFeedNumeric(t *testing.T) {
	out := Feed([]byte("42\r\n"))
	if out.Err != nil || out.Kind != KindNumeric {
		t.Fatalf("expected KindNumeric, got %+v", out)
	}
}

func TestFeedUnhandled(t *testing.T) {
	out := Feed([]byte("BOGUS_STATUS\r\n"))
	if !IsUnhandled(out.Err) {
		t.Fatalf("expected unhandled error, got %+v", out)
	}
}

func TestFeedTrailingData(t *testing.T) {
	// value length says 5 but byte 6 isn't the start of "\r\n"
	out := Feed([]byte("VALUE foo 0 5\r\nhelloXX\r\n"))
	if !IsTrailingData(out.Err) {
		t.Fatalf("expected trailing data error, got %+v", out)
	}
}

func TestFeedWantReadAcrossMultipleRefills(t *testing.T) {
	// A value far larger than one read's worth of bytes must still
	// round-trip once the full buffer is finally assembled, regardless of
	// how many partial refills it took to get there.
	value := bytes.Repeat([]byte("x"), 9000)
	full := append([]byte("VALUE big 0 9000\r\n"), append(append([]byte{}, value...), []byte("\r\nEND\r\n")...)...)

	for cut := 1; cut < len(full); cut += 37 {
		partial := full[:cut]
		out := Feed(partial)
		if out.NeedMore {
			continue
		}
		if out.Err != nil {
			t.Fatalf("cut=%d: unexpected error %v", cut, out.Err)
		}
	}

	out := Feed(full)
	if out.Err != nil || out.Kind != KindGet || !bytes.Equal(out.Value, value) {
		t.Fatalf("final parse mismatch: err=%v kind=%v vlen=%d", out.Err, out.Kind, len(out.Value))
	}
}

func TestFeedPipelinedResponsesInOneRead(t *testing.T) {
	buf := []byte("STORED\r\nVALUE k 0 1\r\nx\r\nEND\r\n")
	out1 := Feed(buf)
	if out1.Kind != KindGeneric {
		t.Fatalf("expected first response generic, got %v", out1.Kind)
	}
	rest := buf[out1.Consumed:]
	out2 := Feed(rest)
	if out2.Kind != KindGet {
		t.Fatalf("expected second response get, got %v", out2.Kind)
	}
	rest = rest[out2.Consumed:]
	out3 := Feed(rest)
	if out3.Kind != KindEnd {
		t.Fatalf("expected third response end, got %v", out3.Kind)
	}
	if len(rest)-out3.Consumed != 0 {
		t.Fatalf("expected buffer fully consumed")
	}
}
