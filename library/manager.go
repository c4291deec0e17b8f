package library

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LibrarySystem is the whole in-memory state: books, members and loans.
type LibrarySystem struct {
	Catalog *Catalog
	Roster  *Roster
	Ledger  *Ledger
}

// NewLibrarySystem returns empty state using the fine rules from policy.
func NewLibrarySystem(policy Policy, log *slog.Logger) *LibrarySystem {
	return &LibrarySystem{
		Catalog: NewCatalog(),
		Roster:  NewRoster(log),
		Ledger:  NewLedger(policy.FinePerDay, policy.MaxFine),
	}
}

// LibraryManager is the lending engine. It is the only writer of the state it
// owns, and every operation checks before it mutates, so a failed call leaves
// the state untouched. One mutex serializes all operations.
type LibraryManager struct {
	mu     sync.Mutex
	sys    *LibrarySystem
	policy Policy
	clock  func() time.Time
	log    *slog.Logger
}

// Option configures a LibraryManager.
type Option func(*LibraryManager)

// WithClock replaces time.Now as the source of "today".
func WithClock(clock func() time.Time) Option {
	return func(lm *LibraryManager) { lm.clock = clock }
}

func WithLogger(log *slog.Logger) Option {
	return func(lm *LibraryManager) { lm.log = log }
}

func NewLibraryManager(policy Policy, opts ...Option) *LibraryManager {
	lm := &LibraryManager{policy: policy, clock: time.Now}
	for _, opt := range opts {
		opt(lm)
	}
	lm.log = orDiscard(lm.log)
	lm.sys = NewLibrarySystem(policy, lm.log)
	return lm
}

func (lm *LibraryManager) Policy() Policy { return lm.policy }

// Today is the engine's notion of the current date.
func (lm *LibraryManager) Today() Date { return Today(lm.clock) }

// ------------------ Book helpers ------------------

func (lm *LibraryManager) AddBook(id int, title, author string, totalCopies int) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	b, err := lm.sys.Catalog.Add(id, title, author, totalCopies)
	if err != nil {
		return nil, err
	}
	lm.log.Info("book added", "book_id", id, "copies", b.TotalCopies)
	return cloneBook(b), nil
}

// SearchBook returns a copy of the book, waitlist included.
func (lm *LibraryManager) SearchBook(id int) (*Book, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	b := lm.sys.Catalog.Find(id)
	if b == nil {
		return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	return cloneBook(b), nil
}

func (lm *LibraryManager) RemoveBook(id int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.sys.Catalog.Remove(id, lm.sys.Ledger); err != nil {
		return err
	}
	lm.log.Info("book removed", "book_id", id)
	return nil
}

func (lm *LibraryManager) ListBooks() []*Book {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	books := lm.sys.Catalog.List()
	out := make([]*Book, len(books))
	for i, b := range books {
		out[i] = cloneBook(b)
	}
	return out
}

// ------------------ Member helpers ------------------

func (lm *LibraryManager) RegisterMember(id int, name string, typ MemberType) (*Member, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	m, err := lm.sys.Roster.Register(id, name, typ)
	if err != nil {
		return nil, err
	}
	lm.log.Info("member registered", "member_id", id, "type", m.Type.String())
	c := *m
	return &c, nil
}

func (lm *LibraryManager) GetMember(id int) (*Member, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	m := lm.sys.Roster.Find(id)
	if m == nil {
		return nil, fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	c := *m
	return &c, nil
}

func (lm *LibraryManager) DeleteMember(id int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if err := lm.sys.Roster.Delete(id, lm.sys.Ledger, lm.sys.Catalog); err != nil {
		return err
	}
	lm.log.Info("member deleted", "member_id", id)
	return nil
}

func (lm *LibraryManager) ListMembers() []*Member {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	members := lm.sys.Roster.List()
	out := make([]*Member, len(members))
	for i, m := range members {
		c := *m
		out[i] = &c
	}
	return out
}

// MaxBooksAllowed returns the borrow limit for member under the current policy.
func (lm *LibraryManager) MaxBooksAllowed(member *Member) int {
	return lm.policy.MaxBooksAllowed(member)
}

// ------------------ Circulation ------------------

// BorrowBook issues a copy to the member when one is on the shelf, and
// otherwise appends the member to the book's waitlist. The borrow limit is
// checked here and again when a waitlisted member is promoted.
func (lm *LibraryManager) BorrowBook(memberID, bookID int) (*BorrowResult, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	m, b, err := lm.resolve(memberID, bookID)
	if err != nil {
		return nil, err
	}
	if m.BorrowedCount >= lm.policy.MaxBooksAllowed(m) {
		return nil, fmt.Errorf("member %d: %w", memberID, ErrBorrowLimitReached)
	}
	if lm.sys.Ledger.FindActive(bookID, memberID) != nil {
		return nil, fmt.Errorf("member %d, book %d: %w", memberID, bookID, ErrAlreadyBorrowed)
	}

	if b.AvailableCopies > 0 {
		t := lm.issue(b, m)
		lm.log.Info("book issued", "book_id", bookID, "member_id", memberID, "transaction_id", t.ID, "due", t.DueDate.String())
		return &BorrowResult{Status: BorrowIssued, Transaction: cloneTransaction(t)}, nil
	}

	if b.Waitlist.Contains(memberID) {
		return nil, fmt.Errorf("member %d, book %d: %w", memberID, bookID, ErrAlreadyWaitlisted)
	}
	b.Waitlist.Enqueue(memberID)
	pos := b.Waitlist.Position(memberID)
	lm.log.Info("member waitlisted", "book_id", bookID, "member_id", memberID, "position", pos)
	return &BorrowResult{Status: BorrowWaitlisted, Position: pos}, nil
}

// ReturnBook closes the member's open loan for the book, charges any fine and
// offers the freed copy to the head of the waitlist.
func (lm *LibraryManager) ReturnBook(memberID, bookID int) (*ReturnResult, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	m, b, err := lm.resolve(memberID, bookID)
	if err != nil {
		return nil, err
	}
	t := lm.sys.Ledger.FindActive(bookID, memberID)
	if t == nil {
		return nil, fmt.Errorf("member %d, book %d: %w", memberID, bookID, ErrNoActiveTransaction)
	}

	lm.sys.Ledger.Close(t, lm.Today())
	b.AvailableCopies++
	if m.BorrowedCount > 0 {
		m.BorrowedCount--
	}
	lm.log.Info("book returned", "book_id", bookID, "member_id", memberID, "transaction_id", t.ID, "fine", t.Fine.StringFixed(2))

	return &ReturnResult{
		Transaction: cloneTransaction(t),
		Promotion:   lm.autoAssign(b),
	}, nil
}

// CancelWaitlist takes the member out of the book's waitlist.
func (lm *LibraryManager) CancelWaitlist(memberID, bookID int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	_, b, err := lm.resolve(memberID, bookID)
	if err != nil {
		return err
	}
	if !b.Waitlist.Remove(memberID) {
		return fmt.Errorf("member %d, book %d: %w", memberID, bookID, ErrNotWaitlisted)
	}
	lm.log.Info("waitlist entry cancelled", "book_id", bookID, "member_id", memberID)
	return nil
}

// AutoAssign offers an available copy of the book to the head of its waitlist.
// It is run after every return; calling it directly lets a caller cascade past
// a skipped candidate.
func (lm *LibraryManager) AutoAssign(bookID int) (*Promotion, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	b := lm.sys.Catalog.Find(bookID)
	if b == nil {
		return nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	return lm.autoAssign(b), nil
}

// autoAssign promotes at most one member. A candidate who is gone or at the
// borrow limit is dropped from the queue and the copy stays on the shelf; the
// next entry is not tried.
func (lm *LibraryManager) autoAssign(b *Book) *Promotion {
	if b.AvailableCopies <= 0 || b.Waitlist.Empty() {
		return nil
	}
	memberID, _ := b.Waitlist.Dequeue()

	m := lm.sys.Roster.Find(memberID)
	if m == nil {
		lm.log.Warn("waitlisted member not found, skipping", "book_id", b.ID, "member_id", memberID)
		return &Promotion{MemberID: memberID, SkipReason: "member not found"}
	}
	if m.BorrowedCount >= lm.policy.MaxBooksAllowed(m) {
		lm.log.Warn("waitlisted member reached borrow limit, skipping", "book_id", b.ID, "member_id", memberID)
		return &Promotion{MemberID: memberID, SkipReason: "borrow limit reached"}
	}

	t := lm.issue(b, m)
	lm.log.Info("book auto-assigned from waitlist", "book_id", b.ID, "member_id", memberID, "transaction_id", t.ID, "due", t.DueDate.String())
	return &Promotion{MemberID: memberID, Transaction: cloneTransaction(t)}
}

func (lm *LibraryManager) issue(b *Book, m *Member) *Transaction {
	today := lm.Today()
	b.AvailableCopies--
	m.BorrowedCount++
	return lm.sys.Ledger.Open(b.ID, m.ID, today, AddDays(today, lm.policy.LoanDays))
}

func (lm *LibraryManager) resolve(memberID, bookID int) (*Member, *Book, error) {
	m := lm.sys.Roster.Find(memberID)
	if m == nil {
		return nil, nil, fmt.Errorf("member %d: %w", memberID, ErrMemberNotFound)
	}
	b := lm.sys.Catalog.Find(bookID)
	if b == nil {
		return nil, nil, fmt.Errorf("book %d: %w", bookID, ErrBookNotFound)
	}
	return m, b, nil
}

// ------------------ Reports ------------------

func (lm *LibraryManager) ActiveTransactions() []*Transaction {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return cloneTransactions(lm.sys.Ledger.Active())
}

// OverdueTransactions lists open loans that were due before today.
func (lm *LibraryManager) OverdueTransactions() []*Transaction {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return cloneTransactions(lm.sys.Ledger.Overdue(lm.Today()))
}

// MemberTransactions returns the full loan history of a member.
func (lm *LibraryManager) MemberTransactions(memberID int) ([]*Transaction, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.sys.Roster.Find(memberID) == nil {
		return nil, fmt.Errorf("member %d: %w", memberID, ErrMemberNotFound)
	}
	return cloneTransactions(lm.sys.Ledger.ForMember(memberID)), nil
}

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists.
func PrettyBook(b *Book) string {
	return fmt.Sprintf("%-5d %-30s %-25s %-6d %-9d %d", b.ID, b.Title, b.Author, b.TotalCopies, b.AvailableCopies, len(b.Waitlist))
}

func cloneBook(b *Book) *Book {
	c := *b
	c.Waitlist = append(Waitlist(nil), b.Waitlist...)
	return &c
}

func cloneTransaction(t *Transaction) *Transaction {
	c := *t
	return &c
}

func cloneTransactions(ts []*Transaction) []*Transaction {
	out := make([]*Transaction, len(ts))
	for i, t := range ts {
		out[i] = cloneTransaction(t)
	}
	return out
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log != nil {
		return log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
