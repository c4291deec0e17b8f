package library

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRosterRegister(t *testing.T) {
	r := NewRoster(nil)

	m, err := r.Register(5, "Ann", Faculty)
	require.NoError(t, err)
	assert.Equal(t, Faculty, m.Type)
	assert.Equal(t, 0, m.BorrowedCount)

	m, err = r.Register(6, "Bob", MemberType(9))
	require.NoError(t, err)
	assert.Equal(t, Student, m.Type)

	_, err = r.Register(5, "Again", Student)
	assert.ErrorIs(t, err, ErrDuplicateID)

	members := r.List()
	require.Len(t, members, 2)
	assert.Equal(t, 5, members[0].ID)
	assert.Equal(t, 6, members[1].ID)
}

func TestRosterDeleteChecks(t *testing.T) {
	r := NewRoster(nil)
	c := NewCatalog()
	l := newLedger()
	_, err := r.Register(5, "Ann", Faculty)
	require.NoError(t, err)
	_, err = c.Add(1, "A", "B", 1)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Delete(9, l, c), ErrMemberNotFound)

	day := Date{1, 1, 2024}
	tx := l.Open(1, 5, day, AddDays(day, 14))
	assert.ErrorIs(t, r.Delete(5, l, c), ErrHasActiveBorrows)
	l.Close(tx, day)

	c.Find(1).Waitlist.Enqueue(5)
	assert.ErrorIs(t, r.Delete(5, l, c), ErrInWaitlist)
	c.Find(1).Waitlist.Remove(5)

	assert.NoError(t, r.Delete(5, l, c))
	assert.Nil(t, r.Find(5))
	assert.Equal(t, 0, r.Len())
}
