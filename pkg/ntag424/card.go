package ntag424

import (
	"fmt"
	"log/slog"
)

// NDEFAppAID is the NFC Forum Type 4 Tag application identifier.
var NDEFAppAID = []byte{0xD2, 0x76, 0x00, 0x00, 0x85, 0x01, 0x01}

// ndefFileIDs lists the NDEF file IDs in the order they are tried: the ISO
// ID a physical NTAG424 exposes, then the short ID of the emulated tag.
var ndefFileIDs = []uint16{0xE104, 0x0002}

// Card abstracts tag transmit behavior for PC/SC connections and test doubles.
type Card interface {
	Transmit(apdu []byte) ([]byte, error)
}

// exchange sends one APDU and splits the status word off the response.
func exchange(card Card, apdu []byte) ([]byte, uint16, error) {
	resp, err := card.Transmit(apdu)
	if err != nil {
		return nil, 0, err
	}
	if len(resp) < 2 {
		return nil, 0, fmt.Errorf("short response: %d bytes", len(resp))
	}
	sw := uint16(resp[len(resp)-2])<<8 | uint16(resp[len(resp)-1])
	return resp[:len(resp)-2], sw, nil
}

// selectNDEFApp selects the Type 4 Tag application by DF name. This resets
// any session state the tag holds, so it is always the first command of a
// read.
func selectNDEFApp(card Card) error {
	apdu := make([]byte, 0, 6+len(NDEFAppAID))
	apdu = append(apdu, 0x00, 0xA4, 0x04, 0x00, byte(len(NDEFAppAID)))
	apdu = append(apdu, NDEFAppAID...)
	apdu = append(apdu, 0x00)

	_, sw, err := exchange(card, apdu)
	if err != nil {
		return fmt.Errorf("select application: %w", err)
	}
	if !SwOK(sw) {
		return &SWError{Cmd: 0xA4, SW: sw}
	}
	return nil
}

// selectNDEFFile selects the NDEF file. There is no reason to select
// anything else here: the CC of both the physical tag and the emulator is
// fixed and the NDEF file ID is known, so the CC indirection is skipped.
func selectNDEFFile(card Card) error {
	var lastErr error
	for _, id := range ndefFileIDs {
		_, sw, err := exchange(card, []byte{0x00, 0xA4, 0x00, 0x0C, 0x02, byte(id >> 8), byte(id)})
		if err != nil {
			return fmt.Errorf("select NDEF file: %w", err)
		}
		if SwOK(sw) {
			return nil
		}
		lastErr = &SWError{Cmd: 0xA4, SW: sw}
	}
	return fmt.Errorf("select NDEF file: %w", lastErr)
}

// readChunk reads from the selected file at offset with a wildcard Le,
// retrying once with the corrected length when the tag answers 6CXX.
func readChunk(card Card, offset uint16) ([]byte, error) {
	apdu := []byte{0x00, 0xB0, byte(offset >> 8), byte(offset), 0x00}
	data, sw, err := exchange(card, apdu)
	if err != nil {
		return nil, err
	}

	if (sw & 0xFF00) == SWWrongLe {
		slog.Debug("re-reading with corrected Le", "offset", offset, "le", sw&0xFF)
		apdu[4] = byte(sw)
		data, sw, err = exchange(card, apdu)
		if err != nil {
			return nil, err
		}
	}

	if !SwOK(sw) {
		return nil, &SWError{Cmd: 0xB0, SW: sw}
	}
	return data, nil
}

// ReadNDEFFile performs one complete tap from the reader side: it selects
// the NDEF application and file and reads the raw NDEF file image in
// chunks. The image is returned as served, including its length framing,
// so it can be fed to ParseNDEFMessage whether the tag frames with a TLV
// or with NLEN.
//
// Note that against an SDM tag this read is the tap: the tag advances its
// counter and the returned image is valid for that counter only.
func ReadNDEFFile(card Card) ([]byte, error) {
	if err := selectNDEFApp(card); err != nil {
		return nil, err
	}
	if err := selectNDEFFile(card); err != nil {
		return nil, err
	}

	var file []byte
	offset := 0
	for {
		chunk, err := readChunk(card, uint16(offset))
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			break
		}
		file = append(file, chunk...)
		offset += len(chunk)
		if len(chunk) < 0xFF || offset > 0xFFFF {
			break
		}
	}
	if len(file) == 0 {
		return nil, fmt.Errorf("NDEF file is empty")
	}
	return file, nil
}
