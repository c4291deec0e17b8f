package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-catalog/config"
	"library-catalog/library"
)

var (
	// interactive is false when stdin is piped; prompts are then suppressed.
	interactive = term.IsTerminal(int(os.Stdin.Fd()))
	jsonOutput  bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg, cfgErr := config.Load()

	root := &cobra.Command{
		Use:           "library",
		Short:         "Library catalog manager: books, members, loans and fines",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			return runShell(cfg)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite file for checkpoints (empty keeps state in memory only)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	flags.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format: text or json")
	flags.IntVar(&cfg.LoanDays, "loan-days", cfg.LoanDays, "days until a loan is due")
	flags.StringVar(&cfg.FinePerDay, "fine-per-day", cfg.FinePerDay, "fine charged per late day")
	flags.StringVar(&cfg.MaxFine, "max-fine", cfg.MaxFine, "maximum fine per loan")
	flags.IntVar(&cfg.StudentLimit, "student-limit", cfg.StudentLimit, "books a student may hold")
	flags.IntVar(&cfg.FacultyLimit, "faculty-limit", cfg.FacultyLimit, "books a faculty member may hold")
	flags.BoolVar(&jsonOutput, "json", false, "print listings as JSON")

	root.AddCommand(&cobra.Command{
		Use:   "checkpoints",
		Short: "List checkpoints saved in the --db file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			if cfg.DBPath == "" {
				return errors.New("--db is required")
			}
			db, err := library.NewDatabase(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()
			return listCheckpoints(db)
		},
	})

	return root
}

func runShell(cfg config.App) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}
	manager := library.NewLibraryManager(policy, library.WithLogger(cfg.Logger()))

	var db *library.Database
	if cfg.DBPath != "" {
		if db, err = library.NewDatabase(cfg.DBPath); err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		snap, cp, err := db.LoadLatest()
		switch {
		case errors.Is(err, library.ErrNoCheckpoint):
		case err != nil:
			return fmt.Errorf("loading checkpoint: %w", err)
		default:
			if err := manager.Restore(snap); err != nil {
				return err
			}
			fmt.Printf("Loaded checkpoint %s (%d books, %d members, %d transactions)\n", cp.ID, cp.Books, cp.Members, cp.Transactions)
		}
	}

	scanner := bufio.NewScanner(os.Stdin)

	if interactive {
		fmt.Println("===== LIBRARY MANAGEMENT SYSTEM =====")
		fmt.Println("Available commands:")
		fmt.Println("  Books: add book, search book, remove book, list books")
		fmt.Println("  Members: register member, delete member, list members")
		fmt.Println("  Circulation: borrow, return, cancel waitlist")
		fmt.Println("  Reports: list active, list overdue, member history")
		fmt.Println("  System: save, exit")
	}

	for {
		prompt("\n> ")
		if !scanner.Scan() {
			break
		}
		cmd := strings.TrimSpace(scanner.Text())

		switch cmd {
		case "":
		case "add book":
			handleAddBook(scanner, manager)
		case "search book":
			handleSearchBook(scanner, manager)
		case "remove book":
			handleRemoveBook(scanner, manager)
		case "list books":
			handleListBooks(manager)
		case "register member":
			handleRegisterMember(scanner, manager)
		case "delete member":
			handleDeleteMember(scanner, manager)
		case "list members":
			handleListMembers(manager)
		case "borrow":
			handleBorrow(scanner, manager)
		case "return":
			handleReturn(scanner, manager)
		case "cancel waitlist":
			handleCancelWaitlist(scanner, manager)
		case "list active":
			printTransactions("ACTIVE TRANSACTIONS", manager.ActiveTransactions(), "No active transactions.")
		case "list overdue":
			printTransactions("OVERDUE TRANSACTIONS", manager.OverdueTransactions(), "No overdue books.")
		case "member history":
			handleMemberHistory(scanner, manager)
		case "save":
			handleSave(db, manager)
		case "exit":
			fmt.Println("Exiting...")
			return nil
		default:
			fmt.Println("Unknown command. Type one of the available commands listed above.")
		}
	}
	return scanner.Err()
}

func prompt(s string) {
	if interactive {
		fmt.Print(s)
	}
}

func readLine(sc *bufio.Scanner, label string) (string, bool) {
	prompt(label)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func readID(sc *bufio.Scanner, label string) (int, bool) {
	s, ok := readLine(sc, label)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		fmt.Printf("Invalid %s%s\n", strings.ToLower(label), s)
		return 0, false
	}
	return id, true
}

func handleAddBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	title, ok := readLine(sc, "Title: ")
	if !ok {
		return
	}
	author, ok := readLine(sc, "Author: ")
	if !ok {
		return
	}
	copies, ok := readID(sc, "Total Copies: ")
	if !ok {
		return
	}

	book, err := mgr.AddBook(id, title, author, copies)
	if err != nil {
		fail("Error adding book", err)
		return
	}
	fmt.Printf("Added book ID %d with %d copies.\n", book.ID, book.TotalCopies)
}

func handleSearchBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	b, err := mgr.SearchBook(id)
	if err != nil {
		fail("Error", err)
		return
	}
	fmt.Printf("Book ID: %d\nTitle: %s\nAuthor: %s\nTotal Copies: %d\nAvailable: %d\n",
		b.ID, b.Title, b.Author, b.TotalCopies, b.AvailableCopies)
	if !b.Waitlist.Empty() {
		ids := make([]string, len(b.Waitlist))
		for i, memberID := range b.Waitlist {
			ids[i] = strconv.Itoa(memberID)
		}
		fmt.Printf("Waitlist: %s\n", strings.Join(ids, ", "))
	}
}

func handleRemoveBook(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	if err := mgr.RemoveBook(id); err != nil {
		fail("Cannot remove book", err)
		return
	}
	fmt.Println("Book removed successfully.")
}

func handleListBooks(mgr *library.LibraryManager) {
	books := mgr.ListBooks()
	if jsonOutput {
		printJSON(books)
		return
	}
	if len(books) == 0 {
		fmt.Println("No books in library.")
		return
	}
	fmt.Printf("%-5s %-30s %-25s %-6s %-9s %s\n", "ID", "Title", "Author", "Total", "Available", "Waiting")
	fmt.Println(strings.Repeat("-", 90))
	for _, b := range books {
		c := *b
		c.Title = truncateString(c.Title, 30)
		c.Author = truncateString(c.Author, 25)
		fmt.Println(library.PrettyBook(&c))
	}
}

func handleRegisterMember(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	name, ok := readLine(sc, "Name: ")
	if !ok {
		return
	}
	typStr, ok := readLine(sc, "Member Type (1 = Student, 2 = Faculty): ")
	if !ok {
		return
	}
	typ, valid := library.ParseMemberType(typStr)
	if !valid {
		fmt.Println("Invalid type. Setting as Student.")
	}

	m, err := mgr.RegisterMember(id, name, typ)
	if err != nil {
		fail("Error", err)
		return
	}
	fmt.Printf("Registered %s '%s' with ID %d\n", strings.ToLower(m.Type.String()), m.Name, m.ID)
}

func handleDeleteMember(sc *bufio.Scanner, mgr *library.LibraryManager) {
	id, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	if err := mgr.DeleteMember(id); err != nil {
		fail("Cannot delete member", err)
		return
	}
	fmt.Println("Member deleted successfully.")
}

func handleListMembers(mgr *library.LibraryManager) {
	members := mgr.ListMembers()
	if jsonOutput {
		printJSON(members)
		return
	}
	if len(members) == 0 {
		fmt.Println("No members registered.")
		return
	}
	fmt.Printf("%-5s %-30s %-10s %s\n", "ID", "Name", "Type", "Active borrows")
	fmt.Println(strings.Repeat("-", 65))
	for _, m := range members {
		fmt.Printf("%-5d %-30s %-10s %d/%d\n", m.ID, truncateString(m.Name, 30), m.Type, m.BorrowedCount, mgr.MaxBooksAllowed(m))
	}
}

func handleBorrow(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}

	res, err := mgr.BorrowBook(memberID, bookID)
	if err != nil {
		fail("Error borrowing book", err)
		return
	}
	if res.Status == library.BorrowWaitlisted {
		fmt.Printf("No copies available. Member added to waitlist (position %d).\n", res.Position)
		return
	}
	fmt.Println("Book issued successfully.")
	fmt.Printf("Borrow Date: %s\nDue Date: %s\n", res.Transaction.BorrowDate, res.Transaction.DueDate)
}

func handleReturn(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}

	res, err := mgr.ReturnBook(memberID, bookID)
	if err != nil {
		fail("Error returning book", err)
		return
	}
	fmt.Println("Book returned successfully.")
	fmt.Printf("Return Date: %s\nFine: %s\n", res.Transaction.ReturnDate, res.Fine().StringFixed(2))

	switch p := res.Promotion; {
	case p == nil:
	case p.Promoted():
		fmt.Printf("Book auto-assigned from waitlist to Member ID %d (due %s).\n", p.MemberID, p.Transaction.DueDate)
	default:
		fmt.Printf("Waitlisted member (ID %d) skipped: %s.\n", p.MemberID, p.SkipReason)
	}
}

func handleCancelWaitlist(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	bookID, ok := readID(sc, "Book ID: ")
	if !ok {
		return
	}
	if err := mgr.CancelWaitlist(memberID, bookID); err != nil {
		fail("Error cancelling waitlist entry", err)
		return
	}
	fmt.Println("Waitlist entry cancelled.")
}

func handleMemberHistory(sc *bufio.Scanner, mgr *library.LibraryManager) {
	memberID, ok := readID(sc, "Member ID: ")
	if !ok {
		return
	}
	txs, err := mgr.MemberTransactions(memberID)
	if err != nil {
		fail("Error", err)
		return
	}
	if jsonOutput {
		printJSON(txs)
		return
	}
	fmt.Printf("===== TRANSACTIONS FOR MEMBER %d =====\n", memberID)
	if len(txs) == 0 {
		fmt.Println("No transactions found.")
		return
	}
	for _, t := range txs {
		fmt.Printf("TID: %d | BookID: %d | Borrow: %s | Due: %s", t.ID, t.BookID, t.BorrowDate, t.DueDate)
		if t.IsReturned {
			fmt.Printf(" | Returned: %s | Fine: %s\n", t.ReturnDate, t.Fine.StringFixed(2))
		} else {
			fmt.Println(" | Not yet returned")
		}
	}
}

// fail prints err with its lending error code, if it has one.
func fail(action string, err error) {
	if code := library.Code(err); code != "" {
		fmt.Printf("%s [%s]: %v\n", action, code, err)
		return
	}
	fmt.Printf("%s: %v\n", action, err)
}

func printTransactions(title string, txs []*library.Transaction, empty string) {
	if jsonOutput {
		printJSON(txs)
		return
	}
	fmt.Printf("===== %s =====\n", title)
	if len(txs) == 0 {
		fmt.Println(empty)
		return
	}
	for _, t := range txs {
		fmt.Printf("TID: %d | BookID: %d | MemberID: %d | Borrow: %s | Due: %s\n",
			t.ID, t.BookID, t.MemberID, t.BorrowDate, t.DueDate)
	}
}

func handleSave(db *library.Database, mgr *library.LibraryManager) {
	if db == nil {
		fmt.Println("No database configured. Start with --db to save checkpoints.")
		return
	}
	cp, err := db.SaveSnapshot(mgr.Snapshot())
	if err != nil {
		fmt.Printf("Error saving checkpoint: %v\n", err)
		return
	}
	fmt.Printf("Saved checkpoint %s\n", cp.ID)
}

func listCheckpoints(db *library.Database) error {
	cps, err := db.ListCheckpoints()
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(cps)
		return nil
	}
	if len(cps) == 0 {
		fmt.Println("No checkpoints saved.")
		return nil
	}
	fmt.Printf("%-36s %-20s %-6s %-8s %s\n", "ID", "Taken", "Books", "Members", "Transactions")
	fmt.Println(strings.Repeat("-", 90))
	for _, cp := range cps {
		fmt.Printf("%-36s %-20s %-6d %-8d %d\n", cp.ID, cp.TakenAt.Local().Format("2006-01-02 15:04:05"), cp.Books, cp.Members, cp.Transactions)
	}
	return nil
}

func printJSON(v any) {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

// truncateString shortens s to maxLength runes, ending in "..." when cut.
func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
