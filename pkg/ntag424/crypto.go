package ntag424

import (
	"crypto/aes"
	"fmt"
)

func aesECBEncrypt(key, data []byte) ([]byte, error) {
	if len(data)%16 != 0 {
		return nil, fmt.Errorf("ECB encrypt: data length %d not block aligned", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += 16 {
		block.Encrypt(out[i:i+16], data[i:i+16])
	}
	return out, nil
}

func aesECBDecrypt(key, data []byte) ([]byte, error) {
	if len(data)%16 != 0 {
		return nil, fmt.Errorf("ECB decrypt: data length %d not block aligned", len(data))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += 16 {
		block.Decrypt(out[i:i+16], data[i:i+16])
	}
	return out, nil
}

// aesCTRCrypt runs AES-128 in CTR mode. The IV is treated as a big-endian
// 128-bit counter incremented once per block; the final keystream block is
// truncated to the data length. Encryption and decryption are the same
// operation.
func aesCTRCrypt(key, iv, data []byte) ([]byte, error) {
	if len(iv) != 16 {
		return nil, fmt.Errorf("CTR IV must be 16 bytes, got %d", len(iv))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	ctr := make([]byte, 16)
	copy(ctr, iv)
	keystream := make([]byte, 16)

	out := make([]byte, len(data))
	for off := 0; off < len(data); off += 16 {
		block.Encrypt(keystream, ctr)
		end := off + 16
		if end > len(data) {
			end = len(data)
		}
		xorBlock(out[off:end], data[off:end], keystream)
		incrementCounterBlock(ctr)
	}
	zeroBytes(keystream)
	return out, nil
}

func incrementCounterBlock(ctr []byte) {
	for i := len(ctr) - 1; i >= 0; i-- {
		ctr[i]++
		if ctr[i] != 0 {
			return
		}
	}
}
