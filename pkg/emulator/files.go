package emulator

// FileID enumerates the closed set of selectable files.
type FileID byte

const (
	FileNone        FileID = 0x00
	FileCC          FileID = 0x01
	FileNDEF        FileID = 0x02
	FileProprietary FileID = 0x03
)

// ccFileBytes is the fixed Capability Container served for reads of the CC
// file: mapping version 4.0, 64-byte max read size, free read, free write.
var ccFileBytes = []byte{0xE1, 0x40, 0x00, 0x40, 0x00, 0x00}

// resolveFileID maps SELECT-by-file-ID data onto a FileID. One-byte short
// IDs and two-byte IDs are accepted; the ISO file IDs 0xE103/0xE104/0xE105
// a strict NFC Forum reader sends select the same three files.
func resolveFileID(data []byte) (FileID, bool) {
	switch len(data) {
	case 1:
		switch data[0] {
		case 0x01:
			return FileCC, true
		case 0x02:
			return FileNDEF, true
		case 0x03:
			return FileProprietary, true
		}
	case 2:
		id := uint16(data[0])<<8 | uint16(data[1])
		switch id {
		case 0x0001, 0xE103:
			return FileCC, true
		case 0x0002, 0xE104:
			return FileNDEF, true
		case 0x0003, 0xE105:
			return FileProprietary, true
		}
	}
	return FileNone, false
}
