// tapcheck plays the cooperating server's role: it reads the SDM URL off a
// tag (physical or emulated) through a PC/SC reader, or takes a pasted URL,
// and verifies the p/c parameters against the card's master keys.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/barnettlynn/boltemu/pkg/ntag424"
	"github.com/barnettlynn/boltemu/pkg/store"
)

func main() {
	var (
		readerIdx = flag.Int("reader", 0, "PC/SC reader index")
		wait      = flag.Duration("wait", 10*time.Second, "How long to wait for a tap (0 = tag must be present)")
		rawURL    = flag.String("url", "", "Verify this URL instead of reading a tag")
		cardFile  = flag.String("card", "", "Card config YAML holding K1/K2")
		k1File    = flag.String("k1-file", "", "Path to SDM meta read key .hex file")
		k2File    = flag.String("k2-file", "", "Path to SDM file read key .hex file")
		verbose   = flag.Bool("v", false, "Enable debug logging")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	k1, k2, err := loadKeys(*cardFile, *k1File, *k2File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	url := *rawURL
	if url == "" {
		url, err = readTagURL(*readerIdx, *wait)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("URL:     %s\n", url)
	}

	uid, counter, err := ntag424.VerifyTapURL(url, k1, k2)
	if err != nil {
		fmt.Printf("Verify:  FAILED (%v)\n", err)
		os.Exit(1)
	}
	fmt.Printf("UID:     %s\n", ntag424.HexUpper(uid))
	fmt.Printf("Counter: %d\n", counter)
	fmt.Printf("Verify:  OK\n")
}

func loadKeys(cardFile, k1File, k2File string) (k1, k2 []byte, err error) {
	switch {
	case cardFile != "":
		cfg, err := store.NewFileStore(cardFile).Load()
		if err != nil {
			return nil, nil, err
		}
		if cfg == nil {
			return nil, nil, fmt.Errorf("no card configured in %s", cardFile)
		}
		return cfg.Key1, cfg.Key2, nil
	case k1File != "" && k2File != "":
		if k1, err = ntag424.LoadKeyHexFile(k1File); err != nil {
			return nil, nil, err
		}
		if k2, err = ntag424.LoadKeyHexFile(k2File); err != nil {
			return nil, nil, err
		}
		return k1, k2, nil
	default:
		return nil, nil, fmt.Errorf("provide -card, or both -k1-file and -k2-file")
	}
}

func readTagURL(readerIdx int, wait time.Duration) (string, error) {
	conn, err := ntag424.ConnectTag(readerIdx, wait)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	slog.Debug("connected", "reader", conn.Reader)

	file, err := ntag424.ReadNDEFFile(conn)
	if err != nil {
		return "", err
	}
	return ntag424.ParseNDEFMessage(file)
}
