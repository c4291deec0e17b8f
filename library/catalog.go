package library

import (
	"fmt"
	"sort"
)

// Catalog owns the book records, keyed by id.
type Catalog struct {
	books map[int]*Book
}

func NewCatalog() *Catalog {
	return &Catalog{books: make(map[int]*Book)}
}

func (c *Catalog) Find(id int) *Book { return c.books[id] }

// Add inserts a book with all copies available. totalCopies below 1 is raised to 1.
func (c *Catalog) Add(id int, title, author string, totalCopies int) (*Book, error) {
	if _, ok := c.books[id]; ok {
		return nil, fmt.Errorf("book %d: %w", id, ErrDuplicateID)
	}
	if totalCopies < 1 {
		totalCopies = 1
	}
	b := &Book{
		ID:              id,
		Title:           title,
		Author:          author,
		TotalCopies:     totalCopies,
		AvailableCopies: totalCopies,
	}
	c.books[id] = b
	return b, nil
}

// Remove deletes a book only when every copy is on the shelf, nobody is
// waiting for it, and the ledger has no open loan for it.
func (c *Catalog) Remove(id int, ledger *Ledger) error {
	b, ok := c.books[id]
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	if b.AvailableCopies != b.TotalCopies {
		return fmt.Errorf("book %d: %w", id, ErrBooksOnLoan)
	}
	if !b.Waitlist.Empty() {
		return fmt.Errorf("book %d: %w", id, ErrWaitlistNotEmpty)
	}
	if ledger.HasActiveForBook(id) {
		return fmt.Errorf("book %d: %w", id, ErrActiveTransactionsExist)
	}
	delete(c.books, id)
	return nil
}

// List returns the books ordered by id.
func (c *Catalog) List() []*Book {
	books := make([]*Book, 0, len(c.books))
	for _, b := range c.books {
		books = append(books, b)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

// WaitlistsContain reports whether memberID is queued for any book.
func (c *Catalog) WaitlistsContain(memberID int) bool {
	for _, b := range c.books {
		if b.Waitlist.Contains(memberID) {
			return true
		}
	}
	return false
}

func (c *Catalog) Len() int { return len(c.books) }
