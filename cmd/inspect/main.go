// Command inspect dumps the on-disk records as a table, for poking at a
// database without going through the API. Opens the store read-only, so it
// is safe to run against a live server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" required:"true"`
	Colours        bool   `envconfig:"INSPECT_COLOURS" default:"true"`
}

// Mirrors of the stored record shapes; the field numbers must stay in sync
// with the repositories package.
type userRecord struct {
	ID        string `cbor:"1,keyasint"`
	Username  string `cbor:"2,keyasint"`
	Name      string `cbor:"3,keyasint"`
	CreatedAt int64  `cbor:"7,keyasint"`
}

type conversationRecord struct {
	ID           string    `cbor:"1,keyasint"`
	Participants [2]string `cbor:"2,keyasint"`
	CreatedAt    int64     `cbor:"3,keyasint"`
}

type messageRecord struct {
	ID             string `cbor:"1,keyasint"`
	ConversationID string `cbor:"2,keyasint"`
	SenderID       string `cbor:"3,keyasint"`
	Content        string `cbor:"4,keyasint"`
	At             int64  `cbor:"5,keyasint"`
}

func main() {
	prefix := flag.String("prefix", "msg:", "Key prefix to scan (user:, conv:, msg:)")
	flag.Parse()

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatal("Config error: ", err)
	}

	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)
	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Created", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	count := 0
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				kind, created, detail := decode(key, v)
				if config.Colours {
					kind = colourKind(kind)
				}
				table.Append([]string{key, kind, created, detail})
				count++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Scan failed: ", err)
	}

	table.Render()
	fmt.Printf("\n%d record(s) under prefix %q\n", count, *prefix)
}

func decode(key string, val []byte) (kind, created, detail string) {
	switch {
	case strings.HasPrefix(key, "user:"):
		var r userRecord
		if err := cbor.Unmarshal(val, &r); err != nil {
			return "USER", "", fmt.Sprintf("unreadable: %v", err)
		}
		return "USER", formatNanos(r.CreatedAt),
			fmt.Sprintf("%s (%s) id=%s", r.Username, r.Name, r.ID)
	case strings.HasPrefix(key, "conv:"):
		var r conversationRecord
		if err := cbor.Unmarshal(val, &r); err != nil {
			return "CONV", "", fmt.Sprintf("unreadable: %v", err)
		}
		return "CONV", formatNanos(r.CreatedAt),
			fmt.Sprintf("%s <-> %s", r.Participants[0], r.Participants[1])
	case strings.HasPrefix(key, "msg:"):
		var r messageRecord
		if err := cbor.Unmarshal(val, &r); err != nil {
			return "MSG", "", fmt.Sprintf("unreadable: %v", err)
		}
		return "MSG", formatNanos(r.At),
			fmt.Sprintf("from=%s %q", r.SenderID, r.Content)
	default:
		// Index rows store plain IDs, not cbor records.
		return "INDEX", "", string(val)
	}
}

func colourKind(kind string) string {
	switch kind {
	case "USER":
		return color.New(color.FgGreen).Render(kind)
	case "CONV":
		return color.New(color.FgCyan).Render(kind)
	case "MSG":
		return color.New(color.FgYellow).Render(kind)
	default:
		return color.New(color.FgGray).Render(kind)
	}
}

func formatNanos(nanos int64) string {
	if nanos == 0 {
		return ""
	}
	return time.Unix(0, nanos).UTC().Format(time.RFC3339)
}
