package emulator

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/sasha-s/go-deadlock"

	"github.com/barnettlynn/boltemu/pkg/ntag424"
	"github.com/barnettlynn/boltemu/pkg/store"
)

type machineState int

const (
	stateIdle machineState = iota
	stateAppSelected
	stateFileSelected
)

// defaultIdleTimeout bounds how long a generated NDEF image keeps serving
// fragmented reads without a re-selection. Must stay >= 1s.
const defaultIdleTimeout = 2 * time.Second

// ReadEvent is published once per counter increment, i.e. once per tap.
type ReadEvent struct {
	CardID  string
	Counter uint32
}

// Emulator is the Type 4 Tag state machine. It owns the currently selected
// application and file, drives the read counter through the persistence
// adapter, and builds the SDM NDEF message lazily on each tap.
//
// All APDU processing is serialized under one mutex whose critical section
// spans read-counter, increment, persist, and build-response, so a
// multi-threaded transport observes strictly ordered responses.
type Emulator struct {
	mu deadlock.Mutex

	store   store.Store
	cfg     *store.CardConfig
	enabled bool

	state    machineState
	selected FileID

	ndefCache []byte
	cacheAt   time.Time

	idleTimeout time.Duration
	now         func() time.Time
	onRead      func(ReadEvent)
}

// NewEmulator creates a disabled emulator bound to a persistence adapter.
func NewEmulator(st store.Store) *Emulator {
	return &Emulator{
		store:       st,
		idleTimeout: defaultIdleTimeout,
		now:         time.Now,
	}
}

// SetIdleTimeout overrides the NDEF cache idle timeout. Values below one
// second are clamped to one second.
func (e *Emulator) SetIdleTimeout(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if d < time.Second {
		d = time.Second
	}
	e.idleTimeout = d
}

// SetOnRead registers a callback invoked once per counter increment. The
// callback runs on the APDU-processing goroutine and must not call back
// into the emulator.
func (e *Emulator) SetOnRead(f func(ReadEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRead = f
}

// Enable loads and validates the card configuration and arms the state
// machine. Configuration problems (missing card, bad key sizes, an NDEF
// message that cannot fit the one-byte length form) fail here, before any
// reader can observe the tag.
func (e *Emulator) Enable() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.store.Load()
	if err != nil {
		return fmt.Errorf("load card: %w", err)
	}
	if cfg == nil {
		return fmt.Errorf("no card configured")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("card config: %w", err)
	}
	if !cfg.Enabled {
		return fmt.Errorf("card is disabled")
	}

	// Probe the NDEF build once so an overlong URL surfaces to the
	// configuration caller instead of failing mid-tap.
	url, err := ntag424.GenerateTapURL(cfg.BaseURL, cfg.CardID, cfg.UID, cfg.Counter, cfg.Key1, cfg.Key2)
	if err != nil {
		return fmt.Errorf("card config: %w", err)
	}
	if _, err := ntag424.BuildNDEFMessage(url); err != nil {
		return fmt.Errorf("card config: %w", err)
	}

	e.cfg = cfg
	e.enabled = true
	e.resetSessionLocked()
	return nil
}

// Disable stops emulation and reverts to Idle. The stored counter is not
// touched; only session state is dropped.
func (e *Emulator) Disable() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.enabled = false
	if e.cfg != nil {
		zeroKey(e.cfg.Key0)
		zeroKey(e.cfg.Key1)
		zeroKey(e.cfg.Key2)
		e.cfg = nil
	}
	e.resetSessionLocked()
}

func (e *Emulator) resetSessionLocked() {
	e.state = stateIdle
	e.selected = FileNone
	e.invalidateCacheLocked()
}

func (e *Emulator) invalidateCacheLocked() {
	e.ndefCache = nil
	e.cacheAt = time.Time{}
}

// HandleAPDU processes one command APDU and returns the response APDU.
// Every error is converted to a status word; nothing escapes to the
// transport as anything other than a well-formed R-APDU.
func (e *Emulator) HandleAPDU(raw []byte) []byte {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.enabled {
		return Response(nil, ntag424.SWUnknown)
	}

	cmd, err := ParseCommand(raw)
	if err != nil {
		slog.Debug("malformed APDU", "err", err)
		return Response(nil, ntag424.SWUnknown)
	}

	if cmd.CLA != 0x00 {
		return Response(nil, ntag424.SWClaNotSupported)
	}

	switch cmd.INS {
	case 0xA4:
		return e.handleSelect(cmd)
	case 0xB0:
		return e.handleReadBinary(cmd)
	default:
		return Response(nil, ntag424.SWInsNotSupported)
	}
}

func (e *Emulator) handleSelect(cmd *Command) []byte {
	switch cmd.P1 {
	case 0x04: // SELECT by DF name
		if !bytes.Equal(cmd.Data, ntag424.NDEFAppAID) {
			return Response(nil, ntag424.SWFileNotFound)
		}
		e.state = stateAppSelected
		e.selected = FileNone
		e.invalidateCacheLocked()
		return Response(nil, ntag424.SWSuccess)

	case 0x00: // SELECT by file ID
		if e.state == stateIdle {
			return Response(nil, ntag424.SWFileNotFound)
		}
		id, ok := resolveFileID(cmd.Data)
		if !ok {
			return Response(nil, ntag424.SWFileNotFound)
		}
		e.state = stateFileSelected
		e.selected = id
		e.invalidateCacheLocked()
		return Response(nil, ntag424.SWSuccess)

	default:
		return Response(nil, ntag424.SWWrongP1P2)
	}
}

func (e *Emulator) handleReadBinary(cmd *Command) []byte {
	if e.state != stateFileSelected {
		return Response(nil, ntag424.SWSecurityNotSatisfied)
	}

	offset := cmd.Offset()
	content, err := e.fileContentLocked(offset)
	if err != nil {
		slog.Error("read failed", "file", e.selected, "err", err)
		return Response(nil, ntag424.SWUnknown)
	}

	if offset >= len(content) {
		return Response(nil, ntag424.SWSuccess)
	}
	end := offset + cmd.ExpectedLength()
	if end > len(content) {
		end = len(content)
	}
	return Response(content[offset:end], ntag424.SWSuccess)
}

// fileContentLocked returns the bytes of the selected file. For the NDEF
// file a read at offset 0 with no live cache is a tap: the counter is
// incremented and persisted first, then the message is generated and
// cached so fragmented reads see one consistent image.
func (e *Emulator) fileContentLocked(offset int) ([]byte, error) {
	switch e.selected {
	case FileCC:
		return ccFileBytes, nil
	case FileProprietary:
		return nil, nil
	case FileNDEF:
	default:
		return nil, fmt.Errorf("no file selected")
	}

	now := e.now()
	if e.ndefCache != nil && now.Sub(e.cacheAt) > e.idleTimeout {
		e.invalidateCacheLocked()
	}
	if e.ndefCache != nil {
		e.cacheAt = now
		return e.ndefCache, nil
	}
	if offset != 0 {
		// A fragmented read whose initial segment expired; the reader
		// must start over at offset 0.
		return nil, nil
	}

	counter, err := e.store.IncrementCounter()
	if err != nil {
		return nil, fmt.Errorf("persist counter: %w", err)
	}

	url, err := ntag424.GenerateTapURL(e.cfg.BaseURL, e.cfg.CardID, e.cfg.UID, counter, e.cfg.Key1, e.cfg.Key2)
	if err != nil {
		return nil, fmt.Errorf("build tap URL: %w", err)
	}
	msg, err := ntag424.BuildNDEFMessage(url)
	if err != nil {
		return nil, fmt.Errorf("build NDEF: %w", err)
	}

	e.ndefCache = msg
	e.cacheAt = now
	if e.onRead != nil {
		e.onRead(ReadEvent{CardID: e.cfg.CardID, Counter: counter})
	}
	return msg, nil
}

func zeroKey(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
