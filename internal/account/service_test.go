package account_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/account"
	"rollcall/internal/memstore"
)

func newService(t *testing.T) *account.Service {
	t.Helper()
	return account.NewService(memstore.NewAccountRepo())
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "S-100", "Ada Lovelace", "secret", account.RoleStudent)
	require.NoError(t, err)
	assert.NotEmpty(t, acct.ID)
	assert.Equal(t, "S-100", acct.IDNumber)
	assert.Equal(t, account.RoleStudent, acct.Role)
	assert.NotEqual(t, "secret", acct.PasswordHash)

	got, err := svc.Authenticate(ctx, "S-100", "secret")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, got.ID)

	_, err = svc.Authenticate(ctx, "S-100", "wrong")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)

	// Unknown IDs fail the same way as wrong passwords.
	_, err = svc.Authenticate(ctx, "S-999", "secret")
	assert.ErrorIs(t, err, account.ErrInvalidCredentials)
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)
	tests := []struct {
		name                             string
		idNumber, fullName, passwd, role string
	}{
		{"missing id number", "", "Ada", "secret", account.RoleStudent},
		{"missing name", "S-100", "  ", "secret", account.RoleStudent},
		{"missing password", "S-100", "Ada", "", account.RoleStudent},
		{"unknown role", "S-100", "Ada", "secret", "superuser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.idNumber, tt.fullName, tt.passwd, tt.role)
			assert.Error(t, err)
		})
	}
}

func TestCreateDuplicateIDNumber(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "S-100", "Ada Lovelace", "secret", account.RoleStudent)
	require.NoError(t, err)

	_, err = svc.Create(ctx, "S-100", "Someone Else", "other", account.RoleInstructor)
	assert.ErrorIs(t, err, account.ErrDuplicateID)
}

func TestUpdateAndDelete(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	acct, err := svc.Create(ctx, "S-100", "Ada Lovelace", "secret", account.RoleStudent)
	require.NoError(t, err)

	got, err := svc.Update(ctx, acct.ID, "S-101", "Ada King")
	require.NoError(t, err)
	assert.Equal(t, "S-101", got.IDNumber)
	assert.Equal(t, "Ada King", got.FullName)

	require.NoError(t, svc.Delete(ctx, acct.ID))
	_, err = svc.Get(ctx, acct.ID)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestSearch(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "S-100", "Ada Lovelace", "secret", account.RoleStudent)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "S-200", "Grace Hopper", "secret", account.RoleStudent)
	require.NoError(t, err)
	_, err = svc.Create(ctx, "I-300", "Ada Instructor", "secret", account.RoleInstructor)
	require.NoError(t, err)

	got, err := svc.Search(ctx, account.RoleStudent, "ada")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "S-100", got[0].IDNumber)

	got, err = svc.Search(ctx, account.RoleStudent, "S-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Grace Hopper", got[0].FullName)
}
