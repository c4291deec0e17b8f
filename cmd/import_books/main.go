package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-catalog/config"
	"library-catalog/library"
)

// Imports a CSV catalog (id,title,author,copies) into a new checkpoint. Books
// are added on top of the latest checkpoint when one exists.
func main() {
	var (
		dbPath  string
		csvPath string
	)

	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Import books from a CSV file into a checkpoint database",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(dbPath, csvPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "library.db", "SQLite checkpoint file")
	cmd.Flags().StringVar(&csvPath, "file", "books.csv", "CSV file with id,title,author,copies rows")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, csvPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	db, err := library.NewDatabase(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	manager := library.NewLibraryManager(policy, library.WithLogger(cfg.Logger()))
	snap, _, err := db.LoadLatest()
	switch {
	case errors.Is(err, library.ErrNoCheckpoint):
	case err != nil:
		return err
	default:
		if err := manager.Restore(snap); err != nil {
			return err
		}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Printf("Importing books from %s...\n", csvPath)
	successCount, errorCount, err := importBooks(manager, f)
	if err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount == 0 {
		return nil
	}
	cp, err := db.SaveSnapshot(manager.Snapshot())
	if err != nil {
		return err
	}
	fmt.Printf("Saved checkpoint %s\n", cp.ID)

	fmt.Println("\nCatalog:")
	fmt.Printf("%-5s %-50s %-30s %s\n", "ID", "Title", "Author", "Copies")
	fmt.Println(strings.Repeat("-", 95))
	for _, book := range manager.ListBooks() {
		fmt.Printf("%-5d %-50s %-30s %d\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30), book.TotalCopies)
	}
	return nil
}

// importBooks adds one book per CSV row. A header row starting with "id" is
// skipped; bad rows are reported and counted but do not stop the import.
func importBooks(manager *library.LibraryManager, r io.Reader) (successCount, errorCount int, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			return successCount, errorCount, nil
		}
		if err != nil {
			return successCount, errorCount, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "id") {
			continue
		}
		if len(record) < 3 {
			fmt.Printf("line %d: ERROR - want id,title,author[,copies]\n", line)
			errorCount++
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			fmt.Printf("line %d: ERROR - invalid id %q\n", line, record[0])
			errorCount++
			continue
		}
		copies := 1
		if len(record) > 3 && strings.TrimSpace(record[3]) != "" {
			if copies, err = strconv.Atoi(strings.TrimSpace(record[3])); err != nil {
				fmt.Printf("line %d: ERROR - invalid copies %q\n", line, record[3])
				errorCount++
				continue
			}
		}

		title, author := strings.TrimSpace(record[1]), strings.TrimSpace(record[2])
		fmt.Printf("Importing: %s by %s... ", title, author)
		if _, err := manager.AddBook(id, title, author, copies); err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
