package ntag424

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildNDEFMessageHTTPS(t *testing.T) {
	url := "https://lnurl.example.com/ln/card01?p=3A93F1694D624AE2B5BB&c=3939729BDB516E88"
	msg, err := BuildNDEFMessage(url)
	if err != nil {
		t.Fatalf("BuildNDEFMessage: %v", err)
	}

	uri := strings.TrimPrefix(url, "https://")
	wantRecordLen := 4 + 1 + len(uri)

	if msg[0] != 0x03 {
		t.Fatalf("TLV tag = 0x%02X", msg[0])
	}
	if int(msg[1]) != wantRecordLen {
		t.Fatalf("TLV length = %d, want %d", msg[1], wantRecordLen)
	}
	if msg[2] != 0xD1 || msg[3] != 0x01 || msg[5] != 0x55 {
		t.Fatalf("record header = % X", msg[2:6])
	}
	if int(msg[4]) != 1+len(uri) {
		t.Fatalf("payload length = %d, want %d", msg[4], 1+len(uri))
	}
	if msg[6] != 0x04 {
		t.Fatalf("URI identifier = 0x%02X, want 0x04", msg[6])
	}
	if string(msg[7:7+len(uri)]) != uri {
		t.Fatalf("URI body mismatch")
	}
	if msg[len(msg)-1] != 0xFE {
		t.Fatalf("terminator = 0x%02X", msg[len(msg)-1])
	}
}

func TestBuildNDEFMessageNonHTTPS(t *testing.T) {
	url := "lnurlw://lnurl.example.com/ln/card01"
	msg, err := BuildNDEFMessage(url)
	if err != nil {
		t.Fatalf("BuildNDEFMessage: %v", err)
	}
	if msg[6] != 0x00 {
		t.Fatalf("URI identifier = 0x%02X, want 0x00", msg[6])
	}
	if string(msg[7:7+len(url)]) != url {
		t.Fatalf("URI body should carry the full URL")
	}
}

func TestBuildNDEFMessageRejectsOverlongURL(t *testing.T) {
	url := "https://lnurl.example.com/" + strings.Repeat("x", 300)
	if _, err := BuildNDEFMessage(url); err == nil {
		t.Fatal("expected error for overlong URL")
	}
}

func TestParseNDEFMessageTLVRoundTrip(t *testing.T) {
	for _, url := range []string{
		"https://lnurl.example.com/ln/card01?p=AABB&c=CCDD",
		"lnurlw://lnurl.example.com/ln/card01",
	} {
		msg, err := BuildNDEFMessage(url)
		if err != nil {
			t.Fatalf("%s: build: %v", url, err)
		}
		got, err := ParseNDEFMessage(msg)
		if err != nil {
			t.Fatalf("%s: parse: %v", url, err)
		}
		if got != url {
			t.Fatalf("round trip = %s, want %s", got, url)
		}
	}
}

// A physical NTAG424 serves the NDEF file NLEN-framed rather than
// TLV-framed; the parser must take both.
func TestParseNDEFMessageNLENFraming(t *testing.T) {
	uri := "www.example.com/tag"
	record := []byte{0xD1, 0x01, byte(1 + len(uri)), 0x55, 0x02}
	record = append(record, uri...)

	file := []byte{byte(len(record) >> 8), byte(len(record))}
	file = append(file, record...)

	got, err := ParseNDEFMessage(file)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got != "https://www."+uri {
		t.Fatalf("url = %s", got)
	}
}

func TestParseNDEFMessageRejectsGarbage(t *testing.T) {
	cases := [][]byte{
		nil,
		{0x03},
		{0x03, 0x10, 0xD1},       // TLV length past end
		{0x00, 0x00},             // empty NLEN
		{0x03, 0x02, 0xD1, 0x01}, // record too short
	}
	for i, c := range cases {
		if _, err := ParseNDEFMessage(c); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestParseNDEFMessageRejectsNonURIRecord(t *testing.T) {
	// Well-known text record instead of URI.
	record := []byte{0xD1, 0x01, 0x04, 0x54, 0x02, 'e', 'n'}
	file := append([]byte{0x03, byte(len(record))}, record...)
	file = append(file, 0xFE)
	if _, err := ParseNDEFMessage(file); err == nil {
		t.Fatal("expected error for text record")
	}
	if !bytes.Equal(file[2:2+len(record)], record) {
		t.Fatal("test framing broken")
	}
}
