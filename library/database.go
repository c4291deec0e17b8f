package library

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

var (
	ErrNoCheckpoint   = errors.New("no checkpoint saved")
	ErrDigestMismatch = errors.New("checkpoint digest mismatch")
)

// Checkpoint describes one saved snapshot.
type Checkpoint struct {
	ID           string
	TakenAt      time.Time
	Digest       string
	Books        int
	Members      int
	Transactions int
}

// Database stores snapshots of the library state in SQLite. The engine never
// writes here on its own; saving and loading are explicit.
type Database struct {
	db *sql.DB

	insertBookStmt        *sql.Stmt
	insertWaitStmt        *sql.Stmt
	insertMemberStmt      *sql.Stmt
	insertTransactionStmt *sql.Stmt
}

// NewDatabase opens (or creates) the SQLite database at dbPath, applies schema
// migrations, and prepares common statements.
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, "create db dir")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	database := &Database{db: db}
	if err := database.prepareStatements(); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// Close releases prepared statements and closes the DB.
func (d *Database) Close() error {
	for _, stmt := range []*sql.Stmt{d.insertBookStmt, d.insertWaitStmt, d.insertMemberStmt, d.insertTransactionStmt} {
		if stmt != nil {
			stmt.Close()
		}
	}
	return d.db.Close()
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return errors.Wrap(err, "enable WAL")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return errors.Wrap(err, "create meta")
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return errors.Wrap(err, "begin migration")
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS checkpoints (
            id TEXT PRIMARY KEY,
            taken_at DATETIME NOT NULL,
            digest TEXT NOT NULL,
            next_transaction_id INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS books (
            checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id) ON DELETE CASCADE,
            id INTEGER NOT NULL,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            total_copies INTEGER NOT NULL,
            available_copies INTEGER NOT NULL,
            PRIMARY KEY (checkpoint_id, id)
        );`,
		`CREATE TABLE IF NOT EXISTS waitlist (
            checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id) ON DELETE CASCADE,
            book_id INTEGER NOT NULL,
            position INTEGER NOT NULL,
            member_id INTEGER NOT NULL,
            PRIMARY KEY (checkpoint_id, book_id, position)
        );`,
		`CREATE TABLE IF NOT EXISTS members (
            checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id) ON DELETE CASCADE,
            id INTEGER NOT NULL,
            position INTEGER NOT NULL,
            name TEXT NOT NULL,
            type INTEGER NOT NULL,
            borrowed_count INTEGER NOT NULL,
            PRIMARY KEY (checkpoint_id, id)
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            checkpoint_id TEXT NOT NULL REFERENCES checkpoints(id) ON DELETE CASCADE,
            id INTEGER NOT NULL,
            book_id INTEGER NOT NULL,
            member_id INTEGER NOT NULL,
            borrow_date TEXT NOT NULL,
            due_date TEXT NOT NULL,
            return_date TEXT,
            is_returned BOOLEAN NOT NULL DEFAULT 0,
            fine TEXT NOT NULL,
            PRIMARY KEY (checkpoint_id, id)
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return errors.Wrap(err, "apply migration")
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Prepared statements
// ---------------------------------------------------------------------------

func (d *Database) prepareStatements() error {
	var err error
	if d.insertBookStmt, err = d.db.Prepare(`INSERT INTO books(checkpoint_id,id,title,author,total_copies,available_copies) VALUES(?,?,?,?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare books")
	}
	if d.insertWaitStmt, err = d.db.Prepare(`INSERT INTO waitlist(checkpoint_id,book_id,position,member_id) VALUES(?,?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare waitlist")
	}
	if d.insertMemberStmt, err = d.db.Prepare(`INSERT INTO members(checkpoint_id,id,position,name,type,borrowed_count) VALUES(?,?,?,?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare members")
	}
	if d.insertTransactionStmt, err = d.db.Prepare(`INSERT INTO transactions(checkpoint_id,id,book_id,member_id,borrow_date,due_date,return_date,is_returned,fine) VALUES(?,?,?,?,?,?,?,?,?)`); err != nil {
		return errors.Wrap(err, "prepare transactions")
	}
	return nil
}

// ---------------------------------------------------------------------------
// Checkpoints
// ---------------------------------------------------------------------------

// SaveSnapshot writes s as a new checkpoint in one transaction.
func (d *Database) SaveSnapshot(s *Snapshot) (*Checkpoint, error) {
	digest, err := s.Digest()
	if err != nil {
		return nil, errors.Wrap(err, "digest snapshot")
	}
	cp := &Checkpoint{
		ID:           uuid.NewString(),
		TakenAt:      time.Now().UTC(),
		Digest:       digest,
		Books:        len(s.Books),
		Members:      len(s.Members),
		Transactions: len(s.Transactions),
	}

	tx, err := d.db.Begin()
	if err != nil {
		return nil, errors.Wrap(err, "begin save")
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO checkpoints(id,taken_at,digest,next_transaction_id) VALUES(?,?,?,?)`,
		cp.ID, cp.TakenAt, cp.Digest, s.NextTransactionID); err != nil {
		return nil, errors.Wrap(err, "insert checkpoint")
	}

	for _, b := range s.Books {
		if _, err := tx.Stmt(d.insertBookStmt).Exec(cp.ID, b.ID, b.Title, b.Author, b.TotalCopies, b.AvailableCopies); err != nil {
			return nil, errors.Wrapf(err, "insert book %d", b.ID)
		}
		for i, memberID := range b.Waitlist {
			if _, err := tx.Stmt(d.insertWaitStmt).Exec(cp.ID, b.ID, i, memberID); err != nil {
				return nil, errors.Wrapf(err, "insert waitlist entry for book %d", b.ID)
			}
		}
	}
	for i, m := range s.Members {
		if _, err := tx.Stmt(d.insertMemberStmt).Exec(cp.ID, m.ID, i, m.Name, int(m.Type), m.BorrowedCount); err != nil {
			return nil, errors.Wrapf(err, "insert member %d", m.ID)
		}
	}
	for _, t := range s.Transactions {
		var returned sql.NullString
		if t.IsReturned {
			returned = sql.NullString{String: formatSQLDate(t.ReturnDate), Valid: true}
		}
		if _, err := tx.Stmt(d.insertTransactionStmt).Exec(cp.ID, t.ID, t.BookID, t.MemberID,
			formatSQLDate(t.BorrowDate), formatSQLDate(t.DueDate), returned, t.IsReturned, t.Fine.StringFixed(2)); err != nil {
			return nil, errors.Wrapf(err, "insert transaction %d", t.ID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit checkpoint")
	}
	return cp, nil
}

// LoadLatest returns the most recent checkpoint.
func (d *Database) LoadLatest() (*Snapshot, *Checkpoint, error) {
	var id string
	err := d.db.QueryRow(`SELECT id FROM checkpoints ORDER BY taken_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil, ErrNoCheckpoint
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "find latest checkpoint")
	}
	return d.LoadCheckpoint(id)
}

// LoadCheckpoint reads a checkpoint back and verifies its digest.
func (d *Database) LoadCheckpoint(id string) (*Snapshot, *Checkpoint, error) {
	cp := &Checkpoint{ID: id}
	s := &Snapshot{}
	err := d.db.QueryRow(`SELECT taken_at, digest, next_transaction_id FROM checkpoints WHERE id=?`, id).
		Scan(&cp.TakenAt, &cp.Digest, &s.NextTransactionID)
	if err == sql.ErrNoRows {
		return nil, nil, errors.Wrapf(ErrNoCheckpoint, "checkpoint %s", id)
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "read checkpoint %s", id)
	}

	if s.Books, err = d.loadBooks(id); err != nil {
		return nil, nil, err
	}
	if s.Members, err = d.loadMembers(id); err != nil {
		return nil, nil, err
	}
	if s.Transactions, err = d.loadTransactions(id); err != nil {
		return nil, nil, err
	}
	cp.Books, cp.Members, cp.Transactions = len(s.Books), len(s.Members), len(s.Transactions)

	digest, err := s.Digest()
	if err != nil {
		return nil, nil, errors.Wrap(err, "digest snapshot")
	}
	if digest != cp.Digest {
		return nil, nil, errors.Wrapf(ErrDigestMismatch, "checkpoint %s", id)
	}
	return s, cp, nil
}

// ListCheckpoints returns checkpoints newest first.
func (d *Database) ListCheckpoints() ([]*Checkpoint, error) {
	rows, err := d.db.Query(`
        SELECT c.id, c.taken_at, c.digest,
            (SELECT COUNT(*) FROM books b WHERE b.checkpoint_id = c.id),
            (SELECT COUNT(*) FROM members m WHERE m.checkpoint_id = c.id),
            (SELECT COUNT(*) FROM transactions t WHERE t.checkpoint_id = c.id)
        FROM checkpoints c
        ORDER BY c.taken_at DESC, c.rowid DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list checkpoints")
	}
	defer rows.Close()

	var out []*Checkpoint
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.ID, &cp.TakenAt, &cp.Digest, &cp.Books, &cp.Members, &cp.Transactions); err != nil {
			return nil, errors.Wrap(err, "scan checkpoint")
		}
		out = append(out, &cp)
	}
	return out, rows.Err()
}

func (d *Database) loadBooks(checkpointID string) ([]Book, error) {
	rows, err := d.db.Query(`SELECT id,title,author,total_copies,available_copies FROM books WHERE checkpoint_id=? ORDER BY id`, checkpointID)
	if err != nil {
		return nil, errors.Wrap(err, "query books")
	}
	defer rows.Close()

	var books []Book
	for rows.Next() {
		var b Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.TotalCopies, &b.AvailableCopies); err != nil {
			return nil, errors.Wrap(err, "scan book")
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate books")
	}

	waits, err := d.db.Query(`SELECT book_id, member_id FROM waitlist WHERE checkpoint_id=? ORDER BY book_id, position`, checkpointID)
	if err != nil {
		return nil, errors.Wrap(err, "query waitlist")
	}
	defer waits.Close()

	byID := make(map[int]*Book, len(books))
	for i := range books {
		byID[books[i].ID] = &books[i]
	}
	for waits.Next() {
		var bookID, memberID int
		if err := waits.Scan(&bookID, &memberID); err != nil {
			return nil, errors.Wrap(err, "scan waitlist")
		}
		if b, ok := byID[bookID]; ok {
			b.Waitlist.Enqueue(memberID)
		}
	}
	return books, errors.Wrap(waits.Err(), "iterate waitlist")
}

func (d *Database) loadMembers(checkpointID string) ([]Member, error) {
	rows, err := d.db.Query(`SELECT id,name,type,borrowed_count FROM members WHERE checkpoint_id=? ORDER BY position`, checkpointID)
	if err != nil {
		return nil, errors.Wrap(err, "query members")
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Type, &m.BorrowedCount); err != nil {
			return nil, errors.Wrap(err, "scan member")
		}
		members = append(members, m)
	}
	return members, errors.Wrap(rows.Err(), "iterate members")
}

func (d *Database) loadTransactions(checkpointID string) ([]Transaction, error) {
	rows, err := d.db.Query(`SELECT id,book_id,member_id,borrow_date,due_date,return_date,is_returned,fine FROM transactions WHERE checkpoint_id=? ORDER BY id`, checkpointID)
	if err != nil {
		return nil, errors.Wrap(err, "query transactions")
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var (
			t             Transaction
			borrowed, due string
			returned      sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.BookID, &t.MemberID, &borrowed, &due, &returned, &t.IsReturned, &t.Fine); err != nil {
			return nil, errors.Wrap(err, "scan transaction")
		}
		if t.BorrowDate, err = parseSQLDate(borrowed); err != nil {
			return nil, err
		}
		if t.DueDate, err = parseSQLDate(due); err != nil {
			return nil, err
		}
		if returned.Valid {
			if t.ReturnDate, err = parseSQLDate(returned.String); err != nil {
				return nil, err
			}
		}
		txs = append(txs, t)
	}
	return txs, errors.Wrap(rows.Err(), "iterate transactions")
}

func formatSQLDate(d Date) string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func parseSQLDate(s string) (Date, error) {
	var d Date
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &d.Year, &d.Month, &d.Day); err != nil {
		return Date{}, errors.Wrapf(err, "parse date %q", s)
	}
	return d, nil
}
