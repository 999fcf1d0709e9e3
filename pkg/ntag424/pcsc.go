package ntag424

import (
	"fmt"
	"time"

	"github.com/ebfe/scard"
)

// Connection is a PC/SC connection to the tag presented on one reader.
type Connection struct {
	ctx    *scard.Context
	card   *scard.Card
	Reader string
}

// ConnectTag connects to the tag on the given reader. A Bolt Card is only
// in the field for the moment of the tap, so when wait is positive and the
// reader is empty the call blocks until a tag arrives or the wait elapses.
// With wait zero the tag must already be present.
func ConnectTag(readerIndex int, wait time.Duration) (*Connection, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish PC/SC context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		return nil, fmt.Errorf("no readers found: %v", err)
	}
	if readerIndex < 0 || readerIndex >= len(readers) {
		ctx.Release()
		return nil, fmt.Errorf("reader index out of range (0..%d)", len(readers)-1)
	}
	reader := readers[readerIndex]

	if wait > 0 {
		if err := waitForTag(ctx, reader, wait); err != nil {
			ctx.Release()
			return nil, err
		}
	}

	card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolAny)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("connect to %q: %w", reader, err)
	}

	return &Connection{ctx: ctx, card: card, Reader: reader}, nil
}

// waitForTag blocks until the reader reports a tag in the field.
func waitForTag(ctx *scard.Context, reader string, wait time.Duration) error {
	states := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}
	deadline := time.Now().Add(wait)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("no tag on %q within %s", reader, wait)
		}
		if err := ctx.GetStatusChange(states, remaining); err != nil {
			if err == scard.ErrTimeout {
				return fmt.Errorf("no tag on %q within %s", reader, wait)
			}
			return fmt.Errorf("wait for tag: %w", err)
		}
		if states[0].EventState&scard.StatePresent != 0 {
			return nil
		}
		states[0].CurrentState = states[0].EventState
	}
}

// Close disconnects the tag and releases the PC/SC context.
func (c *Connection) Close() {
	if c == nil {
		return
	}
	if c.card != nil {
		_ = c.card.Disconnect(scard.LeaveCard)
	}
	if c.ctx != nil {
		_ = c.ctx.Release()
	}
}

// Transmit sends an APDU to the tag (implements Card).
func (c *Connection) Transmit(apdu []byte) ([]byte, error) {
	if c == nil || c.card == nil {
		return nil, fmt.Errorf("connection not established")
	}
	return c.card.Transmit(apdu)
}
