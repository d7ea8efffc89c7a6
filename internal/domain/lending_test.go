package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukeofgo/librarius/internal/domain"
)

var today = time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

func available() *domain.Book {
	return &domain.Book{ID: 1, ISBN: "9780316414241", Title: "T", Author: "A"}
}

func TestDecideBorrow(t *testing.T) {
	b := available()
	u := &domain.User{ID: 7, Email: "a@x.com"}

	tr, err := domain.DecideBorrow(b, u, false, today)
	require.NoError(t, err)
	assert.Equal(t, domain.OpBorrow, tr.Op)
	assert.False(t, tr.ExpectBorrowed)

	tr.Apply(b)
	require.NoError(t, b.CheckLoan())
	assert.True(t, b.IsBorrowed)
	assert.Equal(t, uint(7), *b.UserID)
	assert.Equal(t, "2024-03-09", time.Time(*b.BorrowedDate).Format("2006-01-02"))
	assert.Nil(t, b.ReturnedDate)
	assert.Same(t, u, b.Borrower)

	_, err = domain.DecideBorrow(b, &domain.User{ID: 8}, false, today)
	assert.ErrorIs(t, err, domain.ErrAlreadyBorrowed)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// 同一用户重复借也是冲突
	_, err = domain.DecideBorrow(b, u, false, today)
	assert.ErrorIs(t, err, domain.ErrAlreadyBorrowed)
}

func TestDecideBorrowEligibility(t *testing.T) {
	u := &domain.User{ID: 1, IsActive: true}
	_, err := domain.DecideBorrow(available(), u, true, today)
	assert.ErrorIs(t, err, domain.ErrIneligibleBorrower)

	_, err = domain.DecideBorrow(available(), u, false, today)
	assert.NoError(t, err)

	u.IsBorrower = true
	_, err = domain.DecideBorrow(available(), u, true, today)
	assert.NoError(t, err)
}

func TestDecideReturn(t *testing.T) {
	a := &domain.User{ID: 1}
	b := &domain.User{ID: 2}
	book := available()

	_, err := domain.DecideReturn(book, a, today)
	assert.ErrorIs(t, err, domain.ErrNotBorrowed)

	tr, err := domain.DecideBorrow(book, a, false, today)
	require.NoError(t, err)
	tr.Apply(book)

	_, err = domain.DecideReturn(book, b, today)
	assert.ErrorIs(t, err, domain.ErrWrongBorrower)
	assert.True(t, book.IsBorrowed)

	tr, err = domain.DecideReturn(book, a, today.Add(48*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, tr.ExpectBorrowerID)
	assert.Equal(t, uint(1), *tr.ExpectBorrowerID)
	tr.Apply(book)

	require.NoError(t, book.CheckLoan())
	assert.False(t, book.IsBorrowed)
	assert.Nil(t, book.UserID)
	assert.Nil(t, book.BorrowedDate)
	assert.Nil(t, book.Borrower)
	assert.Equal(t, "2024-03-11", time.Time(*book.ReturnedDate).Format("2006-01-02"))
}

func TestLoanTransitionColumns(t *testing.T) {
	tr, err := domain.DecideBorrow(available(), &domain.User{ID: 3}, false, today)
	require.NoError(t, err)
	cols := tr.Columns()
	assert.Equal(t, true, cols["is_borrowed"])
	assert.Equal(t, uint(3), cols["user_id"])
	assert.Nil(t, cols["returned_date"])
	assert.Len(t, cols, 4)
}

func TestCheckLoan(t *testing.T) {
	uid := uint(1)
	b := available()
	assert.NoError(t, b.CheckLoan())

	b.IsBorrowed = true
	assert.Error(t, b.CheckLoan())

	b.UserID = &uid
	assert.Error(t, b.CheckLoan())

	b.IsBorrowed = false
	assert.Error(t, b.CheckLoan())
}

func TestNormalizeISBN(t *testing.T) {
	cases := map[string]struct {
		want string
		ok   bool
	}{
		"978-0-316-41424-1": {"9780316414241", true},
		"0-306-40615-x":     {"030640615X", true},
		"12345":             {"", false},
		"97803164142AB":     {"", false},
	}
	for in, c := range cases {
		got, ok := domain.NormalizeISBN(in)
		assert.Equal(t, c.ok, ok, in)
		assert.Equal(t, c.want, got, in)
	}
}
