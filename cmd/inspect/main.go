package main

import (
	"collab-lab/domain"
	"collab-lab/repositories"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var (
	dbPath    string
	sessionID string
	limit     int
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the chat log stored in a badger directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(dbPath)
			if err != nil {
				return fmt.Errorf("opening badger: %w", err)
			}
			defer func() { _ = db.Close() }()
			return printMessages(cmd.OutOrStdout(), db, domain.SessionID(sessionID), limit)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", database.DefaultPath, "Path to badger DB")
	cmd.Flags().StringVar(&sessionID, "session", "", "Only print the messages of this session")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of rows, 0 means no limit")
	return cmd
}

// printMessages renders messages in key order: by session, oldest first.
func printMessages(w io.Writer, db *badger.DB, sessionID domain.SessionID, limit int) error {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Session", "Time", "Message ID", "Sender", "Kind", "Message"})
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

	prefix := []byte(repositories.MessagePrefix)
	if sessionID != "" {
		prefix = []byte(repositories.SessionPrefix(sessionID))
	}

	rows := 0
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && rows == limit {
				return nil
			}
			item := it.Item()
			err := item.Value(func(v []byte) error {
				message, err := repositories.DecodeMessage(v)
				if err != nil {
					// A broken record doesn't stop the listing
					fmt.Fprintf(w, "Error decoding key %s: %v\n", string(item.Key()), err)
					return nil
				}

				// The first 8 characters of the id are enough to tell messages apart
				displayID := message.ID.String()[:8]
				table.Append([]string{
					string(message.SessionID),
					message.CreatedAt.Format("2006-01-02 15:04:05"),
					displayID,
					message.User.Username,
					string(message.Kind),
					message.Message,
				})
				rows++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	table.Render()
	return nil
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	db, err := badger.Open(opts)
	if err != nil {
		// A log left dirty by a crash must be truncated by a writable open first
		if strings.Contains(err.Error(), "Log truncate required") {
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
