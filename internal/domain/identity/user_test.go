package identity

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

func TestNewUser(t *testing.T) {
	t.Run("creates user with hashed password", func(t *testing.T) {
		u, err := NewUser("Ana Gómez", " Ana@Example.COM ", "s3cretpass", RoleUser)
		require.NoError(t, err)
		assert.Equal(t, "ana@example.com", u.Email)
		assert.NotEqual(t, "s3cretpass", u.PasswordHash)
		assert.True(t, u.VerifyPassword("s3cretpass"))
		assert.False(t, u.VerifyPassword("wrong-pass"))
		assert.NotEqual(t, uuid.Nil, u.ID)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewUser("", "a@b.co", "s3cretpass", RoleUser)
		assert.Error(t, err)
		_, err = NewUser("Ana", "not-an-email", "s3cretpass", RoleUser)
		assert.Error(t, err)
		_, err = NewUser("Ana", "a@b.co", "short", RoleUser)
		assert.Error(t, err)
		_, err = NewUser("Ana", "a@b.co", "s3cretpass", Role("guest"))
		assert.Error(t, err)
	})
}

func TestActor(t *testing.T) {
	id := uuid.New()

	assert.True(t, Actor{}.IsGuest())
	assert.False(t, Actor{}.IsAdmin())
	assert.True(t, NewActor(id, RoleAdmin).IsAdmin())
	assert.False(t, NewActor(id, RoleUser).IsAdmin())
	assert.True(t, NewActor(id, RoleUser).Owns(id))
	assert.False(t, NewActor(id, RoleUser).Owns(uuid.New()))
	assert.True(t, NewActor(id, Role("root")).IsGuest())
}

func TestParseRole(t *testing.T) {
	r, ok := ParseRole(" ADMIN ")
	assert.True(t, ok)
	assert.Equal(t, RoleAdmin, r)

	_, ok = ParseRole("owner")
	assert.False(t, ok)
}

func TestUser_ChangeRole(t *testing.T) {
	u, err := NewUser("Ana", "ana@example.com", "s3cretpass", RoleUser)
	require.NoError(t, err)

	require.NoError(t, u.ChangeRole(RoleAdmin))
	assert.True(t, u.IsAdmin())
	assert.Error(t, u.ChangeRole(Role("nobody")))
}
