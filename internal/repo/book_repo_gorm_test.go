package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/testutil"
)

const isbn = "9780316414241"

func TestBookCreateDuplicateISBN(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedBook(t, db, isbn)

	dup := &domain.Book{ISBN: isbn, Title: "Other", Author: "Someone else"}
	err := repo.NewBookRepo(db).Create(context.Background(), dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateISBN)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestBookFindByISBNOrID(t *testing.T) {
	db := testutil.NewDB(t)
	b := testutil.SeedBook(t, db, isbn)
	r := repo.NewBookRepo(db)
	ctx := context.Background()

	got, err := r.FindByISBNOrID(ctx, "978-0-316-41424-1")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	got, err = r.FindByISBNOrID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, isbn, got.ISBN)

	_, err = r.FindByISBNOrID(ctx, "99")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
	_, err = r.FindByISBNOrID(ctx, "abc")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestBookTransitionConditional(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "a@x.com", domain.RoleUser)
	other := testutil.SeedUser(t, db, "b@x.com", domain.RoleUser)
	b := testutil.SeedBook(t, db, isbn)
	r := repo.NewBookRepo(db)
	ctx := context.Background()

	borrow, err := domain.DecideBorrow(b, u, false, testutil.Today)
	require.NoError(t, err)

	ok, err := r.Transition(ctx, b.ID, borrow)
	require.NoError(t, err)
	assert.True(t, ok)

	// 同一个“可借”前提再执行一次不会生效
	ok, err = r.Transition(ctx, b.ID, borrow)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := r.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, got.CheckLoan())
	assert.True(t, got.IsBorrowed)
	require.NotNil(t, got.Borrower)
	assert.Equal(t, "a@x.com", got.Borrower.Email)
	assert.Equal(t, "2024-03-09", time.Time(*got.BorrowedDate).Format("2006-01-02"))

	// 非借阅人的条件不命中
	wrong := domain.LoanTransition{ExpectBorrowed: true, ExpectBorrowerID: &other.ID, ReturnedDate: got.BorrowedDate}
	ok, err = r.Transition(ctx, b.ID, wrong)
	require.NoError(t, err)
	assert.False(t, ok)

	ret, err := domain.DecideReturn(got, u, testutil.Today)
	require.NoError(t, err)
	ok, err = r.Transition(ctx, b.ID, ret)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = r.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NoError(t, got.CheckLoan())
	assert.False(t, got.IsBorrowed)
	assert.Nil(t, got.UserID)
	assert.Nil(t, got.Borrower)
	assert.NotNil(t, got.ReturnedDate)
}

func TestBookDeleteBlockedWhileBorrowed(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "a@x.com", domain.RoleUser)
	b := testutil.SeedBook(t, db, isbn)
	r := repo.NewBookRepo(db)
	ctx := context.Background()

	tr, err := domain.DecideBorrow(b, u, false, testutil.Today)
	require.NoError(t, err)
	_, err = r.Transition(ctx, b.ID, tr)
	require.NoError(t, err)

	assert.ErrorIs(t, r.Delete(ctx, b.ID), domain.ErrActiveLoan)
	assert.ErrorIs(t, r.Delete(ctx, 404), domain.ErrBookNotFound)

	n, err := r.CountActiveLoans(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	loans, err := r.ListByBorrower(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, loans, 1)
	assert.Equal(t, isbn, loans[0].ISBN)
}

func TestBookUpdateAndList(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedBook(t, db, isbn)
	testutil.SeedBook(t, db, "9780441013593")
	r := repo.NewBookRepo(db)
	ctx := context.Background()

	title := "Dune"
	got, err := r.Update(ctx, 2, domain.BookPatch{Title: &title}.Columns())
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)

	_, err = r.Update(ctx, 42, domain.BookPatch{Title: &title}.Columns())
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	books, total, err := r.List(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, books, 1)
	assert.Equal(t, "Dune", books[0].Title)
}

func TestStoreTxRollback(t *testing.T) {
	db := testutil.NewDB(t)
	s := repo.NewStore(db)
	ctx := context.Background()

	boom := assert.AnError
	err := s.Tx(ctx, func(tx domain.Store) error {
		require.NoError(t, tx.Books().Create(ctx, &domain.Book{ISBN: isbn, Title: "T", Author: "A"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Books().FindByISBN(ctx, isbn)
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}
