package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukeofgo/librarius/internal/domain"
	"github.com/dukeofgo/librarius/internal/repo"
	"github.com/dukeofgo/librarius/internal/testutil"
)

func TestUserCreateDuplicateEmail(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "a@x.com", domain.RoleUser)

	err := repo.NewUserRepo(db).Create(context.Background(), domain.NewUser("a@x.com", "Again", nil, "h", testutil.Today))
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestUserDefaultsPersisted(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "a@x.com", domain.RoleUser)

	got, err := repo.NewUserRepo(db).FindByEmail(context.Background(), " a@x.com ")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, domain.RoleUser, got.Status)
	assert.True(t, got.IsActive)
	assert.False(t, got.IsBorrower)
	assert.False(t, got.IsMember)
}

func TestUserListFilter(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.SeedUser(t, db, "ann@x.com", domain.RoleUser)
	testutil.SeedUser(t, db, "bob@x.com", domain.RoleAdmin)
	r := repo.NewUserRepo(db)

	users, total, err := r.List(context.Background(), 0, 10, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, domain.RoleAdmin, users[0].Status)

	_, total, err = r.List(context.Background(), 0, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestUserUpdateDelete(t *testing.T) {
	db := testutil.NewDB(t)
	u := testutil.SeedUser(t, db, "a@x.com", domain.RoleUser)
	r := repo.NewUserRepo(db)
	ctx := context.Background()

	yes := true
	got, err := r.Update(ctx, u.ID, domain.UserPatch{IsBorrower: &yes}.Columns(""))
	require.NoError(t, err)
	assert.True(t, got.IsBorrower)

	require.NoError(t, r.Delete(ctx, u.ID))
	assert.ErrorIs(t, r.Delete(ctx, u.ID), domain.ErrUserNotFound)
	_, err = r.FindByID(ctx, u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
