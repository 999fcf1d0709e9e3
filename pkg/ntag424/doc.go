/*
Package ntag424 implements the cryptographic core of an NXP NTAG 424 DNA tag
operated in SDM (Secure Dynamic Messaging) plain read-only mode, as used by
Bolt Card Lightning payment tags. It provides:
  - Cryptographic primitives (AES-128 ECB/CTR, AES-CMAC per NIST SP 800-38B)
  - SP 800-108 counter-mode session key derivation with CMAC as the PRF
  - Tap message construction (PICCData encryption + truncated MAC) and the
    matching server-side decryption/verification
  - NDEF Type 4 Tag URI message construction and parsing
  - PC/SC card connection wrapper and read-only ISO 7816 helpers for
    checking a tag (real or emulated) from the reader side

# SDM Read Derivation

On every read the tag mints two session keys from the stored masters. In
plain read-only mode the session vector SV is all-zero, so each key is one
SP 800-108 counter-mode iteration:

	K_SesEnc = CMAC(K1, 00 01 || "SDMENCFileData" || 00 || SV(16) || 00 80)
	K_SesMac = CMAC(K2, 00 01 || "SDMFileReadMAC" || 00 || SV(16) || 00 80)

The 10-byte plaintext is PICCData = UID(7) || ReadCtr(3, big-endian). The
wire fields are:

	EncPICCData = AES-CTR(K_SesEnc, IV=0, PICCData)      → "p", 20 hex chars
	SDM_MAC     = CMAC(K_SesMac, PICCData)[0:8]          → "c", 16 hex chars

Note the MAC covers the *plaintext*; a verifier must decrypt p before
recomputing the MAC. The full tap URL is:

	{base}/{cardId}?p=<EncPICCData hex>&c=<SDM_MAC hex>

# Emulated Command Set

The emulator answers the NFC Forum Type 4 Tag command subset a reader needs
for an SDM read. Everything else is rejected with a status word.

	SELECT AID      00 A4 04 00 07 D2 76 00 00 85 01 01   → 9000
	SELECT CC       00 A4 00 00 02 00 01                  → 9000
	SELECT NDEF     00 A4 00 00 02 00 02                  → 9000
	READ BINARY     00 B0 <offset_hi> <offset_lo> <Le>    → <data> 9000
	unknown AID     00 A4 04 00 ...                       → 6A82
	unknown INS     00 XX ...                             → 6D00
	unknown CLA     XX ...                                → 6E00

# File Map

File 1 — Capability Container (short ID 0x01, ISO ID 0xE103)

	Fixed content E1 40 00 40 00 00: mapping version 4.0, 64-byte max
	read, free read, free write. Always readable.

File 2 — NDEF file (short ID 0x02, ISO ID 0xE104)

	Regenerated on each tap: a short-form well-known URI record inside an
	NDEF-Message TLV (03 <len> ... FE). The read counter embedded in the
	URL advances exactly once per tap.

File 3 — proprietary data (short ID 0x03, ISO ID 0xE105)

	Selectable for compatibility; zero length.

# Status Word Reference

	SW=9000  Success
	SW=6700  Wrong length
	SW=6982  Security status not satisfied (READ BINARY before SELECT file)
	SW=6A82  Application or file not found
	SW=6A86  Incorrect P1/P2
	SW=6C00  Wrong Le (correct Le in SW2 low byte; emitted by real tags)
	SW=6D00  Instruction not supported
	SW=6E00  Class not supported
	SW=6F00  No precise diagnosis (malformed APDU or internal failure)

Authenticated EV2/LRP sessions, WRITE/UPDATE BINARY, and file management
commands are deliberately absent: a Bolt Card read never needs them.
*/
package ntag424
