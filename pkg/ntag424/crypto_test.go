package ntag424

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad test hex %q: %v", s, err)
	}
	return b
}

func TestAESECBKnownVector(t *testing.T) {
	key := mustHex(t, "2B7E151628AED2A6ABF7158809CF4F3C")
	plain := mustHex(t, "6BC1BEE22E409F96E93D7E117393172A")
	want := mustHex(t, "3AD77BB40D7A3660A89ECAF32466EF97")

	ct, err := aesECBEncrypt(key, plain)
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !bytes.Equal(ct, want) {
		t.Fatalf("ciphertext = %X, want %X", ct, want)
	}

	pt, err := aesECBDecrypt(key, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(pt, plain) {
		t.Fatalf("decrypt = %X, want %X", pt, plain)
	}
}

func TestAESECBRejectsUnalignedData(t *testing.T) {
	key := make([]byte, 16)
	if _, err := aesECBEncrypt(key, make([]byte, 15)); err == nil {
		t.Fatal("expected error for 15-byte input")
	}
	if _, err := aesECBDecrypt(key, make([]byte, 17)); err == nil {
		t.Fatal("expected error for 17-byte input")
	}
}

func TestCTRSelfInverse(t *testing.T) {
	key := mustHex(t, "2B7E151628AED2A6ABF7158809CF4F3C")
	iv := make([]byte, 16)
	for _, size := range []int{0, 1, 10, 16, 17, 33, 100} {
		plain := make([]byte, size)
		for i := range plain {
			plain[i] = byte(i * 7)
		}
		ct, err := aesCTRCrypt(key, iv, plain)
		if err != nil {
			t.Fatalf("size %d: encrypt: %v", size, err)
		}
		if len(ct) != size {
			t.Fatalf("size %d: ciphertext length %d", size, len(ct))
		}
		pt, err := aesCTRCrypt(key, iv, ct)
		if err != nil {
			t.Fatalf("size %d: decrypt: %v", size, err)
		}
		if !bytes.Equal(pt, plain) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestCTRRejectsBadIVLength(t *testing.T) {
	key := make([]byte, 16)
	if _, err := aesCTRCrypt(key, make([]byte, 15), []byte{1}); err == nil {
		t.Fatal("expected error for 15-byte IV")
	}
}

func TestCTRCounterCarries(t *testing.T) {
	ctr := mustHex(t, "000000000000000000000000000000FF")
	incrementCounterBlock(ctr)
	if !bytes.Equal(ctr, mustHex(t, "00000000000000000000000000000100")) {
		t.Fatalf("carry failed: %X", ctr)
	}
	all := bytes.Repeat([]byte{0xFF}, 16)
	incrementCounterBlock(all)
	if !bytes.Equal(all, make([]byte, 16)) {
		t.Fatalf("full wrap failed: %X", all)
	}
}
