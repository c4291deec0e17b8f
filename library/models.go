package library

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MemberType decides how many books a member may hold at once.
type MemberType int

const (
	Student MemberType = 1
	Faculty MemberType = 2
)

func (t MemberType) String() string {
	switch t {
	case Student:
		return "Student"
	case Faculty:
		return "Faculty"
	}
	return "Unknown"
}

// ParseMemberType accepts "student"/"faculty" or the menu numbers 1/2.
func ParseMemberType(s string) (MemberType, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "student":
		return Student, true
	case "2", "faculty":
		return Faculty, true
	}
	return 0, false
}

// Book is a catalog title with a number of interchangeable copies.
// The waitlist holds member ids, not members.
type Book struct {
	ID              int      `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	TotalCopies     int      `json:"total_copies"`
	AvailableCopies int      `json:"available_copies"`
	Waitlist        Waitlist `json:"waitlist"`
}

// Member represents a registered library member.
type Member struct {
	ID            int        `json:"id"`
	Name          string     `json:"name"`
	Type          MemberType `json:"type"`
	BorrowedCount int        `json:"borrowed_count"`
}

// Transaction is a single loan. Only the return fields change, once, when it closes.
type Transaction struct {
	ID         int             `json:"id"`
	BookID     int             `json:"book_id"`
	MemberID   int             `json:"member_id"`
	BorrowDate Date            `json:"borrow_date"`
	DueDate    Date            `json:"due_date"`
	ReturnDate Date            `json:"return_date"`
	IsReturned bool            `json:"is_returned"`
	Fine       decimal.Decimal `json:"fine"`
}

// Active reports whether the book is still out.
func (t *Transaction) Active() bool { return !t.IsReturned }

// Policy holds the lending rules.
type Policy struct {
	LoanDays     int
	FinePerDay   decimal.Decimal
	MaxFine      decimal.Decimal
	StudentLimit int
	FacultyLimit int
}

// DefaultPolicy: 14 day loans, 5.00 per late day capped at 200.00, 3 books for
// students and 5 for faculty.
func DefaultPolicy() Policy {
	return Policy{
		LoanDays:     14,
		FinePerDay:   decimal.NewFromFloat(5.0),
		MaxFine:      decimal.NewFromFloat(200.0),
		StudentLimit: 3,
		FacultyLimit: 5,
	}
}

// MaxBooksAllowed returns 0 for a member type the policy does not know.
func (p Policy) MaxBooksAllowed(m *Member) int {
	switch m.Type {
	case Student:
		return p.StudentLimit
	case Faculty:
		return p.FacultyLimit
	}
	return 0
}

// BorrowStatus tells whether a borrow request was issued or queued.
type BorrowStatus int

const (
	BorrowIssued BorrowStatus = iota + 1
	BorrowWaitlisted
)

func (s BorrowStatus) String() string {
	if s == BorrowWaitlisted {
		return "waitlisted"
	}
	return "issued"
}

// BorrowResult carries the new transaction when issued, or the 1-based queue
// position when waitlisted.
type BorrowResult struct {
	Status      BorrowStatus
	Transaction *Transaction
	Position    int
}

// Promotion is the outcome of offering a returned copy to the head of the waitlist.
// Transaction is nil when the candidate was skipped.
type Promotion struct {
	MemberID    int
	Transaction *Transaction
	SkipReason  string
}

// Promoted reports whether the candidate got the copy.
func (p *Promotion) Promoted() bool { return p != nil && p.Transaction != nil }

// ReturnResult describes a closed loan and what happened to the freed copy.
// Promotion is nil when no waitlist entry was considered.
type ReturnResult struct {
	Transaction *Transaction
	Promotion   *Promotion
}

// Fine is the fine charged on the closed transaction.
func (r *ReturnResult) Fine() decimal.Decimal { return r.Transaction.Fine }
