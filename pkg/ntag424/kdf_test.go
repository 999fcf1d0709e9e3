package ntag424

import (
	"bytes"
	"testing"
)

func TestDeriveKeyMatchesCMACConstruction(t *testing.T) {
	master := mustHex(t, "2B7E151628AED2A6ABF7158809CF4F3C")
	sv := bytes.Repeat([]byte{0x5A}, 16)

	got, err := deriveKey(master, labelSDMEncFileData, sv)
	if err != nil {
		t.Fatalf("deriveKey: %v", err)
	}

	input := []byte{0x00, 0x01}
	input = append(input, []byte(labelSDMEncFileData)...)
	input = append(input, 0x00)
	input = append(input, sv...)
	input = append(input, 0x00, 0x80)
	want, err := aesCMAC(master, input)
	if err != nil {
		t.Fatalf("aesCMAC: %v", err)
	}

	if !bytes.Equal(got, want) {
		t.Fatalf("derived = %X, want %X", got, want)
	}
}

// Session keys for the all-zero master and all-zero SV, the configuration
// every end-to-end scenario in this package uses.
func TestDeriveSessionKeysZeroMasters(t *testing.T) {
	zero := make([]byte, 16)
	sesEnc, sesMac, err := DeriveSessionKeys(zero, zero)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	if !bytes.Equal(sesEnc, mustHex(t, "560B19468872B4C7D98607E8C3629A74")) {
		t.Fatalf("sesEnc = %X", sesEnc)
	}
	if !bytes.Equal(sesMac, mustHex(t, "07796C9189BB1C281A90B7846DD7141F")) {
		t.Fatalf("sesMac = %X", sesMac)
	}
}

func TestDeriveKeyLengthPreconditions(t *testing.T) {
	if _, err := deriveKey(make([]byte, 15), labelSDMEncFileData, make([]byte, 16)); err == nil {
		t.Fatal("expected error for short master key")
	}
	if _, err := deriveKey(make([]byte, 16), labelSDMEncFileData, make([]byte, 15)); err == nil {
		t.Fatal("expected error for short SV")
	}
	if _, _, err := DeriveSessionKeys(make([]byte, 16), make([]byte, 17)); err == nil {
		t.Fatal("expected error for bad MAC master")
	}
}

func TestSessionKeysDifferPerLabel(t *testing.T) {
	zero := make([]byte, 16)
	sesEnc, sesMac, err := DeriveSessionKeys(zero, zero)
	if err != nil {
		t.Fatalf("DeriveSessionKeys: %v", err)
	}
	if bytes.Equal(sesEnc, sesMac) {
		t.Fatal("ENC and MAC session keys must differ under identical masters")
	}
}
