package ntag424

import "fmt"

// KDF labels for the two SDM session keys, per NIST SP 800-108 counter mode
// with AES-CMAC as the PRF.
const (
	labelSDMEncFileData = "SDMENCFileData"
	labelSDMFileReadMAC = "SDMFileReadMAC"
)

// deriveKey runs one iteration of the SP 800-108 counter-mode KDF:
//
//	DerivedKey = CMAC(master, 0001 || label || 00 || sv || 0080)
//
// One iteration suffices because the requested output length (128 bits)
// equals the PRF output width.
func deriveKey(master []byte, label string, sv []byte) ([]byte, error) {
	if len(master) != 16 {
		return nil, fmt.Errorf("KDF master key must be 16 bytes, got %d", len(master))
	}
	if len(sv) != 16 {
		return nil, fmt.Errorf("KDF session vector must be 16 bytes, got %d", len(sv))
	}

	input := make([]byte, 0, 2+len(label)+1+16+2)
	input = append(input, 0x00, 0x01)
	input = append(input, label...)
	input = append(input, 0x00)
	input = append(input, sv...)
	input = append(input, 0x00, 0x80)

	return aesCMAC(master, input)
}

// DeriveSessionKeys derives the per-read SDM session keys from the two
// master keys. The session vector is all-zero in the unauthenticated
// read-only mode, so the derivation depends only on the masters.
//
// Parameters:
//   - metaReadKey: 16-byte SDMMetaReadKey (PICCData encryption master)
//   - fileReadKey: 16-byte SDMFileReadKey (MAC master)
//
// Returns:
//   - sesEnc: AES-CTR key for PICCData encryption
//   - sesMac: CMAC key for the truncated authenticator
//
// Callers own the returned keys and should zero them after use.
func DeriveSessionKeys(metaReadKey, fileReadKey []byte) (sesEnc, sesMac []byte, err error) {
	sv := make([]byte, 16)
	sesEnc, err = deriveKey(metaReadKey, labelSDMEncFileData, sv)
	if err != nil {
		return nil, nil, fmt.Errorf("derive session ENC key: %w", err)
	}
	sesMac, err = deriveKey(fileReadKey, labelSDMFileReadMAC, sv)
	if err != nil {
		zeroBytes(sesEnc)
		return nil, nil, fmt.Errorf("derive session MAC key: %w", err)
	}
	return sesEnc, sesMac, nil
}
