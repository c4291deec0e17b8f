package library

import "github.com/shopspring/decimal"

// Ledger is the append-only history of loans. Transactions are never deleted.
type Ledger struct {
	transactions []*Transaction
	nextID       int
	finePerDay   decimal.Decimal
	maxFine      decimal.Decimal
}

func NewLedger(finePerDay, maxFine decimal.Decimal) *Ledger {
	return &Ledger{nextID: 1, finePerDay: finePerDay, maxFine: maxFine}
}

// Open appends a new active transaction. Validation is the caller's job.
func (l *Ledger) Open(bookID, memberID int, borrowDate, dueDate Date) *Transaction {
	t := &Transaction{
		ID:         l.nextID,
		BookID:     bookID,
		MemberID:   memberID,
		BorrowDate: borrowDate,
		DueDate:    dueDate,
		Fine:       decimal.Zero,
	}
	l.nextID++
	l.transactions = append(l.transactions, t)
	return t
}

// FindActive returns the open transaction for the pair, or nil.
func (l *Ledger) FindActive(bookID, memberID int) *Transaction {
	for _, t := range l.transactions {
		if t.Active() && t.BookID == bookID && t.MemberID == memberID {
			return t
		}
	}
	return nil
}

// Close marks t returned on returnDate and charges the late fine. A transaction
// that is already closed keeps its return date and fine.
func (l *Ledger) Close(t *Transaction, returnDate Date) {
	if t.IsReturned {
		return
	}
	t.ReturnDate = returnDate
	t.IsReturned = true
	t.Fine = l.FineFor(t.DueDate, returnDate)
}

// FineFor charges finePerDay for each day after due, capped at maxFine.
// Returning on the due date is free.
func (l *Ledger) FineFor(due, returned Date) decimal.Decimal {
	late := DaysBetween(due, returned)
	if late <= 0 {
		return decimal.Zero
	}
	fine := l.finePerDay.Mul(decimal.NewFromInt(int64(late)))
	if fine.GreaterThan(l.maxFine) {
		fine = l.maxFine
	}
	return fine.Round(2)
}

func (l *Ledger) Active() []*Transaction {
	return l.filter(func(t *Transaction) bool { return t.Active() })
}

func (l *Ledger) ForMember(memberID int) []*Transaction {
	return l.filter(func(t *Transaction) bool { return t.MemberID == memberID })
}

// Overdue returns open transactions whose due date is strictly before asOf.
func (l *Ledger) Overdue(asOf Date) []*Transaction {
	return l.filter(func(t *Transaction) bool { return t.Active() && t.DueDate.Before(asOf) })
}

func (l *Ledger) All() []*Transaction {
	return append([]*Transaction(nil), l.transactions...)
}

func (l *Ledger) HasActiveForBook(bookID int) bool {
	for _, t := range l.transactions {
		if t.Active() && t.BookID == bookID {
			return true
		}
	}
	return false
}

func (l *Ledger) HasActiveForMember(memberID int) bool {
	for _, t := range l.transactions {
		if t.Active() && t.MemberID == memberID {
			return true
		}
	}
	return false
}

func (l *Ledger) filter(keep func(*Transaction) bool) []*Transaction {
	var out []*Transaction
	for _, t := range l.transactions {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}
