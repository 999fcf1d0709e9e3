package ntag424

import (
	"fmt"
	"strings"
)

const (
	ndefTLVTag        = 0x03
	ndefTLVTerminator = 0xFE

	uriRecordHeader = 0xD1 // MB=1 ME=1 SR=1 TNF=well-known
	uriRecordType   = 0x55 // 'U'
)

// uriPrefixes maps NFC Forum URI identifier codes to their abbreviated
// prefixes. The emulator only ever emits 0x04 (https://) or 0x00 (none);
// the rest are needed to decode records read back from physical tags.
var uriPrefixes = []struct {
	code   byte
	prefix string
}{
	{0x01, "http://www."},
	{0x02, "https://www."},
	{0x03, "http://"},
	{0x04, "https://"},
}

// BuildNDEFMessage wraps a URL into a Type 4 Tag NDEF file image: a
// single short-form well-known URI record inside an NDEF-Message TLV,
// followed by a terminator TLV.
//
// Layout:
//
//	03 <len> D1 01 <payloadLen> 55 <idCode> <uri...> FE
//
// URLs beginning https:// use identifier code 0x04 with the prefix
// stripped; everything else is carried verbatim under code 0x00.
// Only the one-byte TLV length form is supported: a record longer than
// 254 bytes is a configuration error, never silently re-encoded.
func BuildNDEFMessage(fullURL string) ([]byte, error) {
	idCode := byte(0x00)
	uri := fullURL
	if strings.HasPrefix(fullURL, "https://") {
		idCode = 0x04
		uri = fullURL[len("https://"):]
	}

	payloadLen := 1 + len(uri)
	if payloadLen > 255 {
		return nil, fmt.Errorf("URI payload %d bytes exceeds short record limit", payloadLen)
	}
	recordLen := 4 + payloadLen
	if recordLen > 254 {
		return nil, fmt.Errorf("NDEF record %d bytes exceeds one-byte TLV length", recordLen)
	}

	msg := make([]byte, 0, 3+recordLen)
	msg = append(msg, ndefTLVTag, byte(recordLen))
	msg = append(msg, uriRecordHeader, 0x01, byte(payloadLen), uriRecordType, idCode)
	msg = append(msg, uri...)
	msg = append(msg, ndefTLVTerminator)
	return msg, nil
}

// ParseNDEFMessage extracts the URL from an NDEF file image. Both framings
// in the wild are accepted: the TLV form this emulator serves
// (03 len record FE) and the NLEN form a physical NTAG424 serves over ISO
// READ BINARY (2-byte big-endian length then record).
func ParseNDEFMessage(file []byte) (string, error) {
	if len(file) < 2 {
		return "", fmt.Errorf("NDEF file too short: %d bytes", len(file))
	}

	var record []byte
	switch {
	case file[0] == ndefTLVTag:
		n := int(file[1])
		if n == 0xFF {
			return "", fmt.Errorf("extended TLV length not supported")
		}
		if 2+n > len(file) {
			return "", fmt.Errorf("TLV length %d exceeds file (%d bytes)", n, len(file))
		}
		record = file[2 : 2+n]
	default:
		n := int(file[0])<<8 | int(file[1])
		if n == 0 {
			return "", fmt.Errorf("empty NDEF file")
		}
		if 2+n > len(file) {
			return "", fmt.Errorf("NLEN %d exceeds file (%d bytes)", n, len(file))
		}
		record = file[2 : 2+n]
	}

	return parseURIRecord(record)
}

func parseURIRecord(record []byte) (string, error) {
	if len(record) < 5 {
		return "", fmt.Errorf("NDEF record too short: %d bytes", len(record))
	}
	header := record[0]
	if header&0x10 == 0 {
		return "", fmt.Errorf("long-form NDEF record not supported")
	}
	if header&0x07 != 0x01 {
		return "", fmt.Errorf("record TNF 0x%02X, want well-known", header&0x07)
	}
	typeLen := int(record[1])
	payloadLen := int(record[2])
	idLen := 0
	hdrLen := 3
	if header&0x08 != 0 {
		idLen = int(record[3])
		hdrLen = 4
	}
	if typeLen != 1 || record[hdrLen] != uriRecordType {
		return "", fmt.Errorf("record type is not URI")
	}
	payloadStart := hdrLen + typeLen + idLen
	if payloadStart+payloadLen > len(record) || payloadLen < 1 {
		return "", fmt.Errorf("record payload out of range")
	}
	payload := record[payloadStart : payloadStart+payloadLen]

	idCode := payload[0]
	rest := string(payload[1:])
	if idCode == 0x00 {
		return rest, nil
	}
	for _, p := range uriPrefixes {
		if p.code == idCode {
			return p.prefix + rest, nil
		}
	}
	return "", fmt.Errorf("unknown URI identifier code 0x%02X", idCode)
}
