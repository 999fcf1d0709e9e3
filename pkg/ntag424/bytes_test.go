package ntag424

import (
	"bytes"
	"testing"
)

func TestUint24BERoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x000100, 0xABCDEF, 0xFFFFFF} {
		b := make([]byte, 3)
		PutUint24BE(b, v)
		if got := Uint24BE(b); got != v {
			t.Fatalf("round trip %06X -> %06X", v, got)
		}
	}
	b := make([]byte, 3)
	PutUint24BE(b, 0xABCDEF)
	if !bytes.Equal(b, []byte{0xAB, 0xCD, 0xEF}) {
		t.Fatalf("encoding not big-endian: % X", b)
	}
}

func TestHexHelpers(t *testing.T) {
	if got := HexUpper([]byte{0xDE, 0xAD, 0x0F}); got != "DEAD0F" {
		t.Fatalf("HexUpper = %s", got)
	}

	key, err := DecodeHexKey("00112233445566778899aabbccddeeff")
	if err != nil {
		t.Fatalf("DecodeHexKey: %v", err)
	}
	if len(key) != 16 {
		t.Fatalf("key length %d", len(key))
	}
	if _, err := DecodeHexKey("0011"); err == nil {
		t.Fatal("short key accepted")
	}
	if _, err := DecodeHexKey("ZZ112233445566778899AABBCCDDEEFF"); err == nil {
		t.Fatal("non-hex key accepted")
	}

	uid, err := DecodeHexUID(" 04AABBCCDDEEFF\n")
	if err != nil {
		t.Fatalf("DecodeHexUID: %v", err)
	}
	if uid[0] != 0x04 {
		t.Fatalf("uid[0] = %02X", uid[0])
	}
	if _, err := DecodeHexUID("04AABBCCDDEE"); err == nil {
		t.Fatal("short UID accepted")
	}
}

func TestConstantTimeEqual(t *testing.T) {
	a := []byte{1, 2, 3}
	if !ConstantTimeEqual(a, []byte{1, 2, 3}) {
		t.Fatal("equal slices compare unequal")
	}
	if ConstantTimeEqual(a, []byte{1, 2, 4}) {
		t.Fatal("unequal slices compare equal")
	}
	if ConstantTimeEqual(a, []byte{1, 2}) {
		t.Fatal("different lengths compare equal")
	}
}

func TestPKCS7RoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 15, 16, 17} {
		data := bytes.Repeat([]byte{0x7F}, size)
		padded, err := PadPKCS7(data, 16)
		if err != nil {
			t.Fatalf("size %d: pad: %v", size, err)
		}
		if len(padded)%16 != 0 || len(padded) == size {
			t.Fatalf("size %d: padded length %d", size, len(padded))
		}
		out, err := UnpadPKCS7(padded, 16)
		if err != nil {
			t.Fatalf("size %d: unpad: %v", size, err)
		}
		if !bytes.Equal(out, data) {
			t.Fatalf("size %d: round trip mismatch", size)
		}
	}
}

func TestUnpadPKCS7RejectsBadPadding(t *testing.T) {
	cases := [][]byte{
		nil,
		bytes.Repeat([]byte{0x00}, 16),                     // pad length 0
		append(bytes.Repeat([]byte{0x01}, 15), 0x11),       // pad length > block
		append(bytes.Repeat([]byte{0x02}, 14), 0x01, 0x02), // inconsistent bytes
	}
	for i, c := range cases {
		if _, err := UnpadPKCS7(c, 16); err == nil {
			t.Fatalf("case %d: bad padding accepted", i)
		}
	}
}

func TestLeftShift1(t *testing.T) {
	src := []byte{0x80, 0x01}
	dst := make([]byte, 2)
	leftShift1(dst, src)
	if !bytes.Equal(dst, []byte{0x00, 0x02}) {
		t.Fatalf("shift = % X", dst)
	}
}
