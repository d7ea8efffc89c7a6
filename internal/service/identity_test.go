package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/service"
	"github.com/dukeofgo/librarius/internal/testutil"
)

func newIdentity(t *testing.T) (*service.IdentityService, domain.Store) {
	t.Helper()
	store := repo.NewStore(testutil.NewDB(t))
	return service.NewIdentityService(store, testutil.Clock, nil), store
}

func register(t *testing.T, svc *service.IdentityService, email string) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), service.Registration{Email: email, Name: "Alice", Password: "secret123"})
	require.NoError(t, err)
	return u
}

func TestRegisterDefaults(t *testing.T) {
	svc, _ := newIdentity(t)
	u := register(t, svc, " Alice@X.com ")

	assert.Equal(t, "alice@x.com", u.Email)
	assert.Equal(t, domain.RoleUser, u.Status)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsBorrower)
	assert.False(t, u.IsMember)
	assert.Equal(t, domain.DateOf(testutil.Today), u.RegisteredDate)
	assert.NotEqual(t, "secret123", u.PasswordHash)

	_, err := svc.Register(context.Background(), service.Registration{Email: "alice@x.com", Name: "A", Password: "secret123"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newIdentity(t)
	ctx := context.Background()
	age := 200
	cases := []service.Registration{
		{Email: "nope", Name: "A", Password: "secret123"},
		{Email: "a@x.com", Name: " ", Password: "secret123"},
		{Email: "a@x.com", Name: "A", Password: "123"},
		{Email: "a@x.com", Name: "A", Password: "secret123", Age: &age},
	}
	for _, c := range cases {
		_, err := svc.Register(ctx, c)
		assert.ErrorIs(t, err, domain.ErrValidation, c.Email)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, store := newIdentity(t)
	u := register(t, svc, "alice@x.com")
	ctx := context.Background()

	got, err := svc.Authenticate(ctx, "ALICE@x.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice@x.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "ghost@x.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = store.Users().Update(ctx, u.ID, map[string]any{"is_active": false})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "alice@x.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrInactiveUser)
}

func TestUpdatePrivilegedFields(t *testing.T) {
	svc, _ := newIdentity(t)
	register(t, svc, "alice@x.com")
	ctx := context.Background()
	self := domain.Principal{Email: "alice@x.com", Role: domain.RoleUser}
	admin := domain.Principal{Email: "root@x.com", Role: domain.RoleAdmin}
	yes := true
	name := "Alice B"
	pw := "newsecret"

	u, err := svc.Update(ctx, self, "alice@x.com", domain.UserPatch{Name: &name, Password: &pw})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", u.Name)
	_, err = svc.Authenticate(ctx, "alice@x.com", "newsecret")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, self, "alice@x.com", domain.UserPatch{IsBorrower: &yes})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err = svc.Update(ctx, admin, "alice@x.com", domain.UserPatch{IsBorrower: &yes})
	require.NoError(t, err)
	assert.True(t, u.IsBorrower)

	su := domain.RoleSuperuser
	_, err = svc.Update(ctx, admin, "alice@x.com", domain.UserPatch{Status: &su})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	u, err = svc.SetRole(ctx, "alice@x.com", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Status)

	_, err = svc.Update(ctx, admin, "ghost@x.com", domain.UserPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeleteUserWithActiveLoan(t *testing.T) {
	db := testutil.NewDB(t)
	store := repo.NewStore(db)
	svc := service.NewIdentityService(store, testutil.Clock, nil)
	register(t, svc, "alice@x.com")
	b := testutil.SeedBook(t, db, isbn)
	ctx := context.Background()

	_, err := newLending(store, false).Borrow(ctx, b.ID, "alice@x.com")
	require.NoError(t, err)

	books, err := svc.BorrowedBooks(ctx, "alice@x.com")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, isbn, books[0].ISBN)

	assert.ErrorIs(t, svc.Delete(ctx, "alice@x.com"), domain.ErrActiveLoan)

	_, err = newLending(store, false).Return(ctx, b.ID, "alice@x.com")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice@x.com"))
	_, err = svc.Get(ctx, "alice@x.com")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "alice@x.com"), domain.ErrUserNotFound)
}

func TestListUsers(t *testing.T) {
	svc, _ := newIdentity(t)
	register(t, svc, "alice@x.com")
	register(t, svc, "bob@x.com")

	users, total, err := svc.List(context.Background(), 0, 0, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, "bob@x.com", users[0].Email)
}
