package ntag424

import "fmt"

// Status word constants for the ISO 7816-4 subset the emulator speaks.
const (
	SWSuccess              = 0x9000 // success
	SWWrongLength          = 0x6700 // wrong length
	SWSecurityNotSatisfied = 0x6982 // security status not satisfied (no file selected)
	SWFileNotFound         = 0x6A82 // application or file not found
	SWWrongP1P2            = 0x6A86 // incorrect P1/P2 parameters
	SWWrongLe              = 0x6C00 // wrong Le (mask: correct Le in SW2)
	SWInsNotSupported      = 0x6D00 // instruction not supported
	SWClaNotSupported      = 0x6E00 // class not supported
	SWUnknown              = 0x6F00 // no precise diagnosis (framing or internal failure)
)

// SWError represents a status word error from a card or the emulator.
type SWError struct {
	Cmd byte   // Command INS byte
	SW  uint16 // Status word
}

func (e *SWError) Error() string {
	return fmt.Sprintf("card command 0x%02X failed with SW=0x%04X (%s)", e.Cmd, e.SW, swDescription(e.SW))
}

func swDescription(sw uint16) string {
	switch sw {
	case SWSuccess:
		return "success"
	case SWWrongLength:
		return "wrong length"
	case SWSecurityNotSatisfied:
		return "security not satisfied"
	case SWFileNotFound:
		return "file not found"
	case SWWrongP1P2:
		return "wrong P1/P2"
	case SWInsNotSupported:
		return "instruction not supported"
	case SWClaNotSupported:
		return "class not supported"
	case SWUnknown:
		return "no precise diagnosis"
	default:
		if (sw & 0xFF00) == SWWrongLe {
			return fmt.Sprintf("wrong Le (correct Le=%d)", sw&0xFF)
		}
		return "unknown error"
	}
}

// IsNotFound checks if an error is a file/application-not-found status word.
func IsNotFound(err error) bool {
	if swErr, ok := err.(*SWError); ok {
		return swErr.SW == SWFileNotFound
	}
	return false
}

// IsSecurityNotSatisfied checks if an error is the no-file-selected status word.
func IsSecurityNotSatisfied(err error) bool {
	if swErr, ok := err.(*SWError); ok {
		return swErr.SW == SWSecurityNotSatisfied
	}
	return false
}

// SwOK checks if a status word indicates success.
func SwOK(sw uint16) bool {
	return sw == SWSuccess
}
