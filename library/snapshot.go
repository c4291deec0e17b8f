package library

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/blake2b"
)

var snapshotJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is a detached copy of the whole library state.
type Snapshot struct {
	Books             []Book        `json:"books"`
	Members           []Member      `json:"members"`
	Transactions      []Transaction `json:"transactions"`
	NextTransactionID int           `json:"next_transaction_id"`
}

// Encode renders the snapshot as JSON. Books are ordered by id and members by
// registration, so equal states encode to equal bytes.
func (s *Snapshot) Encode() ([]byte, error) {
	return snapshotJSON.Marshal(s)
}

func DecodeSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := snapshotJSON.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Digest is the hex BLAKE2b-256 of the encoded snapshot.
func (s *Snapshot) Digest() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Snapshot copies the current state.
func (lm *LibraryManager) Snapshot() *Snapshot {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	s := &Snapshot{NextTransactionID: lm.sys.Ledger.nextID}
	for _, b := range lm.sys.Catalog.List() {
		s.Books = append(s.Books, *cloneBook(b))
	}
	for _, m := range lm.sys.Roster.List() {
		s.Members = append(s.Members, *m)
	}
	for _, t := range lm.sys.Ledger.All() {
		s.Transactions = append(s.Transactions, *t)
	}
	return s
}

// Restore replaces the current state with s. The snapshot is checked first,
// each record and then the copy, loan and waitlist counts against each other,
// and the current state is kept when it is inconsistent.
func (lm *LibraryManager) Restore(s *Snapshot) error {
	if s == nil {
		return errors.New("restore: nil snapshot")
	}
	sys, err := buildSystem(s, lm.policy, lm.log)
	if err != nil {
		return err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.sys = sys
	lm.log.Info("state restored", "books", sys.Catalog.Len(), "members", sys.Roster.Len(), "transactions", len(s.Transactions))
	return nil
}

func buildSystem(s *Snapshot, policy Policy, log *slog.Logger) (*LibrarySystem, error) {
	sys := NewLibrarySystem(policy, log)

	for _, b := range s.Books {
		if b.TotalCopies < 1 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalCopies {
			return nil, fmt.Errorf("restore book %d: copies %d/%d out of range", b.ID, b.AvailableCopies, b.TotalCopies)
		}
		added, err := sys.Catalog.Add(b.ID, b.Title, b.Author, b.TotalCopies)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		added.AvailableCopies = b.AvailableCopies
		added.Waitlist = append(Waitlist(nil), b.Waitlist...)
	}

	for _, m := range s.Members {
		added, err := sys.Roster.Register(m.ID, m.Name, m.Type)
		if err != nil {
			return nil, fmt.Errorf("restore: %w", err)
		}
		added.BorrowedCount = m.BorrowedCount
	}

	maxID := 0
	for i := range s.Transactions {
		t := s.Transactions[i]
		if t.ID <= maxID {
			return nil, fmt.Errorf("restore transaction %d: ids must be increasing", t.ID)
		}
		maxID = t.ID
		sys.Ledger.transactions = append(sys.Ledger.transactions, &t)
	}
	sys.Ledger.nextID = maxID + 1
	if s.NextTransactionID > sys.Ledger.nextID {
		sys.Ledger.nextID = s.NextTransactionID
	}

	if err := checkConsistency(sys, policy); err != nil {
		return nil, fmt.Errorf("restore: %w", err)
	}
	return sys, nil
}

// checkConsistency cross-checks the counters against the ledger and the
// waitlists against the roster.
func checkConsistency(sys *LibrarySystem, policy Policy) error {
	onLoan := make(map[int]int)
	borrowed := make(map[int]int)
	type pair struct{ book, member int }
	open := make(map[pair]bool)

	for _, t := range sys.Ledger.Active() {
		if sys.Catalog.Find(t.BookID) == nil {
			return fmt.Errorf("transaction %d: book %d: %w", t.ID, t.BookID, ErrBookNotFound)
		}
		if sys.Roster.Find(t.MemberID) == nil {
			return fmt.Errorf("transaction %d: member %d: %w", t.ID, t.MemberID, ErrMemberNotFound)
		}
		k := pair{t.BookID, t.MemberID}
		if open[k] {
			return fmt.Errorf("transaction %d: %w", t.ID, ErrAlreadyBorrowed)
		}
		open[k] = true
		onLoan[t.BookID]++
		borrowed[t.MemberID]++
	}

	for _, b := range sys.Catalog.List() {
		if b.AvailableCopies+onLoan[b.ID] != b.TotalCopies {
			return fmt.Errorf("book %d: %d available and %d on loan, want %d copies", b.ID, b.AvailableCopies, onLoan[b.ID], b.TotalCopies)
		}
		seen := make(map[int]bool, len(b.Waitlist))
		for _, id := range b.Waitlist {
			if seen[id] {
				return fmt.Errorf("book %d: member %d: %w", b.ID, id, ErrAlreadyWaitlisted)
			}
			seen[id] = true
			if sys.Roster.Find(id) == nil {
				return fmt.Errorf("book %d waitlist: member %d: %w", b.ID, id, ErrMemberNotFound)
			}
		}
	}

	for _, m := range sys.Roster.List() {
		if m.BorrowedCount != borrowed[m.ID] {
			return fmt.Errorf("member %d: borrowed count %d, %d open loans", m.ID, m.BorrowedCount, borrowed[m.ID])
		}
		if m.BorrowedCount > policy.MaxBooksAllowed(m) {
			return fmt.Errorf("member %d: %w", m.ID, ErrBorrowLimitReached)
		}
	}
	return nil
}
