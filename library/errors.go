package library

import "errors"

// Every lending failure is recoverable and reported before any state changes.
var (
	ErrNotFound                = errors.New("not found")
	ErrBookNotFound            = &notFoundError{what: "book"}
	ErrMemberNotFound          = &notFoundError{what: "member"}
	ErrDuplicateID             = errors.New("id already exists")
	ErrBooksOnLoan             = errors.New("some copies are currently borrowed")
	ErrWaitlistNotEmpty        = errors.New("waitlist is not empty")
	ErrActiveTransactionsExist = errors.New("active transactions exist")
	ErrHasActiveBorrows        = errors.New("member has active borrowed books")
	ErrInWaitlist              = errors.New("member is in a waitlist")
	ErrBorrowLimitReached      = errors.New("borrow limit reached")
	ErrNoActiveTransaction     = errors.New("no active transaction for this member and book")
	ErrAlreadyBorrowed         = errors.New("member already has this book checked out")
	ErrAlreadyWaitlisted       = errors.New("member is already in this book's waitlist")
	ErrNotWaitlisted           = errors.New("member is not in this book's waitlist")
)

// notFoundError lets ErrBookNotFound and ErrMemberNotFound also match ErrNotFound.
type notFoundError struct{ what string }

func (e *notFoundError) Error() string        { return e.what + " not found" }
func (e *notFoundError) Is(target error) bool { return target == ErrNotFound }

// ErrCode is a stable identifier for rendering errors outside the engine.
type ErrCode string

const (
	CodeNotFound                ErrCode = "NOT_FOUND"
	CodeDuplicateID             ErrCode = "DUPLICATE_ID"
	CodeBooksOnLoan             ErrCode = "BOOKS_ON_LOAN"
	CodeWaitlistNotEmpty        ErrCode = "WAITLIST_NOT_EMPTY"
	CodeActiveTransactionsExist ErrCode = "ACTIVE_TRANSACTIONS_EXIST"
	CodeHasActiveBorrows        ErrCode = "HAS_ACTIVE_BORROWS"
	CodeInWaitlist              ErrCode = "IN_WAITLIST"
	CodeBorrowLimitReached      ErrCode = "BORROW_LIMIT_REACHED"
	CodeNoActiveTransaction     ErrCode = "NO_ACTIVE_TRANSACTION"
	CodeAlreadyBorrowed         ErrCode = "ALREADY_BORROWED"
	CodeAlreadyWaitlisted       ErrCode = "ALREADY_WAITLISTED"
	CodeNotWaitlisted           ErrCode = "NOT_WAITLISTED"
)

var codes = []struct {
	err  error
	code ErrCode
}{
	{ErrNotFound, CodeNotFound},
	{ErrDuplicateID, CodeDuplicateID},
	{ErrBooksOnLoan, CodeBooksOnLoan},
	{ErrWaitlistNotEmpty, CodeWaitlistNotEmpty},
	{ErrActiveTransactionsExist, CodeActiveTransactionsExist},
	{ErrHasActiveBorrows, CodeHasActiveBorrows},
	{ErrInWaitlist, CodeInWaitlist},
	{ErrBorrowLimitReached, CodeBorrowLimitReached},
	{ErrNoActiveTransaction, CodeNoActiveTransaction},
	{ErrAlreadyBorrowed, CodeAlreadyBorrowed},
	{ErrAlreadyWaitlisted, CodeAlreadyWaitlisted},
	{ErrNotWaitlisted, CodeNotWaitlisted},
}

// Code extracts the error code, or "" for errors outside the lending taxonomy.
func Code(err error) ErrCode {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ""
}
