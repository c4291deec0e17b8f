package library

import (
	"fmt"
	"log/slog"
)

// Roster owns the member records in registration order.
type Roster struct {
	members []*Member
	index   map[int]*Member
	log     *slog.Logger
}

func NewRoster(log *slog.Logger) *Roster {
	return &Roster{index: make(map[int]*Member), log: orDiscard(log)}
}

func (r *Roster) Find(id int) *Member { return r.index[id] }

// Register adds a member with no borrowed books. An unknown type falls back to Student.
func (r *Roster) Register(id int, name string, typ MemberType) (*Member, error) {
	if _, ok := r.index[id]; ok {
		return nil, fmt.Errorf("member %d: %w", id, ErrDuplicateID)
	}
	if typ != Student && typ != Faculty {
		r.log.Warn("invalid member type, registering as student", "member_id", id, "type", int(typ))
		typ = Student
	}
	m := &Member{ID: id, Name: name, Type: typ}
	r.members = append(r.members, m)
	r.index[id] = m
	return m, nil
}

// Delete removes a member who has no open loans and is not waiting for any book.
func (r *Roster) Delete(id int, ledger *Ledger, catalog *Catalog) error {
	if _, ok := r.index[id]; !ok {
		return fmt.Errorf("member %d: %w", id, ErrMemberNotFound)
	}
	if ledger.HasActiveForMember(id) {
		return fmt.Errorf("member %d: %w", id, ErrHasActiveBorrows)
	}
	if catalog.WaitlistsContain(id) {
		return fmt.Errorf("member %d: %w", id, ErrInWaitlist)
	}
	for i, m := range r.members {
		if m.ID == id {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	delete(r.index, id)
	return nil
}

func (r *Roster) List() []*Member {
	return append([]*Member(nil), r.members...)
}

func (r *Roster) Len() int { return len(r.members) }
