package ntag424

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	uidLen      = 7
	counterLen  = 3
	piccDataLen = uidLen + counterLen
	counterMax  = 0xFFFFFF
)

// BuildPICCData assembles the 10-byte SDM plaintext: UID(7) || Counter(3 BE).
func BuildPICCData(uid []byte, counter uint32) ([]byte, error) {
	if len(uid) != uidLen {
		return nil, fmt.Errorf("UID must be %d bytes, got %d", uidLen, len(uid))
	}
	if counter > counterMax {
		return nil, fmt.Errorf("counter must be <= 0x%06X, got %d", counterMax, counter)
	}
	picc := make([]byte, piccDataLen)
	copy(picc, uid)
	PutUint24BE(picc[uidLen:], counter)
	return picc, nil
}

// TapMessage is one SDM read as it appears on the wire: the ciphertext of
// the PICCData and the truncated authenticator over its plaintext.
type TapMessage struct {
	EncPICCData []byte // 10 bytes, AES-CTR under the session ENC key, IV=0
	MAC         []byte // leftmost 8 bytes of CMAC under the session MAC key
}

// BuildTapMessage derives the session keys and produces the encrypted
// PICCData plus truncated MAC for one read.
//
// Parameters:
//   - uid: 7-byte tag UID
//   - counter: read counter (0..0xFFFFFF)
//   - metaReadKey: 16-byte SDMMetaReadKey master
//   - fileReadKey: 16-byte SDMFileReadKey master
//
// The MAC is computed over the *plaintext* PICCData, so the server must
// decrypt before verifying. Session keys are zeroed before returning.
func BuildTapMessage(uid []byte, counter uint32, metaReadKey, fileReadKey []byte) (*TapMessage, error) {
	picc, err := BuildPICCData(uid, counter)
	if err != nil {
		return nil, err
	}

	sesEnc, sesMac, err := DeriveSessionKeys(metaReadKey, fileReadKey)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(sesEnc)
	defer zeroBytes(sesMac)

	iv := make([]byte, 16)
	enc, err := aesCTRCrypt(sesEnc, iv, picc)
	if err != nil {
		return nil, fmt.Errorf("encrypt PICCData: %w", err)
	}

	cmac, err := aesCMAC(sesMac, picc)
	if err != nil {
		return nil, fmt.Errorf("MAC PICCData: %w", err)
	}

	return &TapMessage{
		EncPICCData: enc,
		MAC:         truncateMAC(cmac),
	}, nil
}

// GenerateTapURL builds the full LNURL for one read:
//
//	{base}/{cardId}?p=<20 hex>&c=<16 hex>
//
// A single trailing slash is stripped from baseURL; hex is uppercase.
func GenerateTapURL(baseURL, cardID string, uid []byte, counter uint32, metaReadKey, fileReadKey []byte) (string, error) {
	if strings.TrimSpace(baseURL) == "" {
		return "", fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cardID) == "" {
		return "", fmt.Errorf("card ID is required")
	}

	msg, err := BuildTapMessage(uid, counter, metaReadKey, fileReadKey)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(baseURL, "/")
	return fmt.Sprintf("%s/%s?p=%s&c=%s", base, cardID, HexUpper(msg.EncPICCData), HexUpper(msg.MAC)), nil
}

// VerifyTapURL is the cooperating-server side of a tap: it parses the p and
// c query parameters, decrypts the PICCData, and verifies the truncated MAC
// in constant time.
//
// Returns the decrypted UID and counter on success. A UID whose first byte
// is not the NXP manufacturer code 0x04 is rejected even when the MAC
// matches.
func VerifyTapURL(rawURL string, metaReadKey, fileReadKey []byte) (uid []byte, counter uint32, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, 0, fmt.Errorf("parse URL: %w", err)
	}
	q := u.Query()
	p := q.Get("p")
	c := q.Get("c")
	if p == "" || c == "" {
		return nil, 0, fmt.Errorf("missing p/c parameters")
	}
	return VerifyTapParams(p, c, metaReadKey, fileReadKey)
}

// VerifyTapParams verifies a raw p/c parameter pair as extracted from an
// LNURL query string.
func VerifyTapParams(p, c string, metaReadKey, fileReadKey []byte) (uid []byte, counter uint32, err error) {
	if len(p) != piccDataLen*2 || len(c) != sdmMACLen*2 {
		return nil, 0, fmt.Errorf("invalid parameter lengths: p=%d c=%d (want %d,%d)", len(p), len(c), piccDataLen*2, sdmMACLen*2)
	}

	enc, err := decodeHexField("p", p, piccDataLen)
	if err != nil {
		return nil, 0, err
	}
	mac, err := decodeHexField("c", c, sdmMACLen)
	if err != nil {
		return nil, 0, err
	}

	sesEnc, sesMac, err := DeriveSessionKeys(metaReadKey, fileReadKey)
	if err != nil {
		return nil, 0, err
	}
	defer zeroBytes(sesEnc)
	defer zeroBytes(sesMac)

	iv := make([]byte, 16)
	picc, err := aesCTRCrypt(sesEnc, iv, enc)
	if err != nil {
		return nil, 0, fmt.Errorf("decrypt PICCData: %w", err)
	}

	ok, err := verifyCMAC(sesMac, picc, mac)
	if err != nil {
		return nil, 0, fmt.Errorf("verify MAC: %w", err)
	}
	if !ok {
		return nil, 0, fmt.Errorf("MAC mismatch")
	}

	if picc[0] != 0x04 {
		return nil, 0, fmt.Errorf("UID manufacturer byte 0x%02X, want 0x04", picc[0])
	}

	uid = make([]byte, uidLen)
	copy(uid, picc[:uidLen])
	return uid, Uint24BE(picc[uidLen:]), nil
}

func decodeHexField(name, value string, wantLen int) ([]byte, error) {
	b, err := DecodeHexN(value, wantLen)
	if err != nil {
		return nil, fmt.Errorf("%s parameter: %w", name, err)
	}
	return b, nil
}
