package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/barnettlynn/boltemu/pkg/emulator"
	"github.com/barnettlynn/boltemu/pkg/ntag424"
	"github.com/barnettlynn/boltemu/pkg/store"
)

func main() {
	var (
		cardFile  = flag.String("card", "card.yaml", "Path to card config YAML")
		doInit    = flag.Bool("init", false, "Create a new card config interactively")
		randomize = flag.Bool("random", false, "With -init: generate keys and UID instead of prompting")
		doGen     = flag.Bool("gen", false, "Print the tap URL for the current counter and exit (no increment)")
		genCtr    = flag.Int("ctr", -1, "With -gen: counter value to use instead of the stored one")
		verify    = flag.Bool("verify", false, "With -gen: self-verify the generated URL")
		verbose   = flag.Bool("v", false, "Enable debug logging")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	setupLogging(*logFormat, *verbose)

	st := store.NewFileStore(*cardFile)

	switch {
	case *doInit:
		if err := runInit(st, *randomize); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *doGen:
		if err := runGen(st, *genCtr, *verify); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := runEmulator(st); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

func setupLogging(format string, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	var logger *slog.Logger
	if format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}
	slog.SetDefault(logger)
}

func runInit(st *store.FileStore, randomize bool) error {
	existing, err := st.Load()
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("card config already exists; remove it first to re-initialize")
	}

	cfg := &store.CardConfig{Enabled: true}
	in := bufio.NewReader(os.Stdin)

	if randomize {
		if cfg.Key0, err = randomKey(); err != nil {
			return err
		}
		if cfg.Key1, err = randomKey(); err != nil {
			return err
		}
		if cfg.Key2, err = randomKey(); err != nil {
			return err
		}
		if cfg.UID, err = randomUID(); err != nil {
			return err
		}
		fmt.Printf("UID: %s\n", ntag424.HexUpper(cfg.UID))
	} else {
		if cfg.Key0, err = promptKey("K0 (master key, 32 hex)"); err != nil {
			return err
		}
		if cfg.Key1, err = promptKey("K1 (SDM meta read key, 32 hex)"); err != nil {
			return err
		}
		if cfg.Key2, err = promptKey("K2 (SDM file read key, 32 hex)"); err != nil {
			return err
		}
		uidHex, err := promptLine(in, "UID (14 hex, starts 04)")
		if err != nil {
			return err
		}
		if cfg.UID, err = ntag424.DecodeHexUID(uidHex); err != nil {
			return err
		}
	}

	if cfg.BaseURL, err = promptLine(in, "LNURL base (e.g. https://lnurl.example.com/ln)"); err != nil {
		return err
	}
	if cfg.CardID, err = promptLine(in, "Card ID"); err != nil {
		return err
	}

	if err := st.Save(cfg); err != nil {
		return err
	}
	fmt.Println("Card config saved.")
	return nil
}

// promptKey reads a hex key from the terminal without echoing it.
func promptKey(label string) ([]byte, error) {
	fmt.Printf("%s: ", label)
	line, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	return ntag424.DecodeHexKey(string(line))
}

func promptLine(in *bufio.Reader, label string) (string, error) {
	fmt.Printf("%s: ", label)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func randomKey() ([]byte, error) {
	key := make([]byte, 16)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func randomUID() ([]byte, error) {
	uid := make([]byte, 7)
	if _, err := rand.Read(uid[1:]); err != nil {
		return nil, fmt.Errorf("generate UID: %w", err)
	}
	uid[0] = 0x04
	return uid, nil
}

func runGen(st *store.FileStore, ctr int, verify bool) error {
	cfg, err := st.Load()
	if err != nil {
		return err
	}
	if cfg == nil {
		return fmt.Errorf("no card configured; run -init first")
	}

	counter := cfg.Counter
	if ctr >= 0 {
		counter = uint32(ctr)
	}

	url, err := ntag424.GenerateTapURL(cfg.BaseURL, cfg.CardID, cfg.UID, counter, cfg.Key1, cfg.Key2)
	if err != nil {
		return err
	}

	fmt.Printf("UID:     %s\n", ntag424.HexUpper(cfg.UID))
	fmt.Printf("Counter: %d\n", counter)
	fmt.Printf("URL:     %s\n", url)

	if verify {
		uid, gotCtr, err := ntag424.VerifyTapURL(url, cfg.Key1, cfg.Key2)
		if err != nil {
			fmt.Printf("Verify:  FAILED (%v)\n", err)
			os.Exit(1)
		}
		fmt.Printf("Verify:  OK (uid=%s ctr=%d)\n", ntag424.HexUpper(uid), gotCtr)
	}
	return nil
}

// stdioTransport delivers hex APDUs from stdin and writes hex responses to
// stdout, one exchange per line. It stands in for the host's card-emulation
// surface on the bench.
type stdioTransport struct{}

func (t *stdioTransport) Enable(h emulator.Handler) error {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := hex.DecodeString(strings.ReplaceAll(line, " ", ""))
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad hex: %v\n", err)
			continue
		}
		resp := h.HandleAPDU(cmd)
		fmt.Println(ntag424.HexUpper(resp))
	}
	return scanner.Err()
}

func (t *stdioTransport) Disable() error { return nil }

func runEmulator(st *store.FileStore) error {
	emu := emulator.NewEmulator(st)
	emu.SetOnRead(func(ev emulator.ReadEvent) {
		slog.Info("tap", "card", ev.CardID, "counter", ev.Counter)
	})

	if err := emu.Enable(); err != nil {
		return err
	}
	defer emu.Disable()

	slog.Info("emulation enabled; reading hex APDUs from stdin")
	var transport emulator.Transport = &stdioTransport{}
	if err := transport.Enable(emu); err != nil {
		return err
	}
	return transport.Disable()
}
