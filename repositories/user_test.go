package repositories

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain"
	"pairchat/errors"
)

func openTestUserRepository(t *testing.T) UserRepository {
	t.Helper()
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = writer.Close() })
	return NewUserRepository(openTestDB(t), writer, slog.Default())
}

func testUser(username, name string) domain.User {
	return domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Name:         name,
		AvatarURL:    "https://avatars.example/" + username,
		PasswordHash: "$argon2id$fake",
		Roles:        []string{"user"},
		CreatedAt:    time.Now().UTC(),
	}
}

func TestUserRepository_Create_And_Get(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)
	user := testUser("alice", "Alice Nguyen")

	req.NoError(repo.Create(user))

	byName, err := repo.GetByUsername("alice")
	req.NoError(err)
	req.Equal(user, byName)

	byID, err := repo.GetByID(user.ID)
	req.NoError(err)
	req.Equal(user, byID)

	exists, err := repo.Exists(user.ID)
	req.NoError(err)
	req.True(exists)
}

func TestUserRepository_Duplicate_Username_Rejected(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)

	req.NoError(repo.Create(testUser("alice", "Alice Nguyen")))
	err := repo.Create(testUser("alice", "Another Alice"))
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_Unknown_User(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)

	_, err := repo.GetByUsername("ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	exists, err := repo.Exists(uuid.NewString())
	req.NoError(err)
	req.False(exists)
}

func TestUserRepository_Search_By_Username_And_Name(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)
	ctx := context.Background()

	alice := testUser("alice", "Alice Nguyen")
	bob := testUser("bob", "Bob Alicework")
	carol := testUser("carol", "Carol Tran")
	for _, u := range []domain.User{alice, bob, carol} {
		req.NoError(repo.Create(u))
	}

	// When searching a fragment present in one username and one name
	found, err := repo.Search(ctx, "alice", carol.ID, 20)
	req.NoError(err)

	// Then both matches come back, carol is not among them
	req.Len(found, 2)
	ids := []string{found[0].ID, found[1].ID}
	req.Contains(ids, alice.ID)
	req.Contains(ids, bob.ID)
}

func TestUserRepository_Search_Excludes_Caller(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)
	ctx := context.Background()

	alice := testUser("alice", "Alice Nguyen")
	req.NoError(repo.Create(alice))

	found, err := repo.Search(ctx, "alice", alice.ID, 20)
	req.NoError(err)
	req.Empty(found)
}

func TestUserRepository_Search_Respects_Limit(t *testing.T) {
	req := require.New(t)
	repo := openTestUserRepository(t)
	ctx := context.Background()

	for _, username := range []string{"dev_one", "dev_two", "dev_three"} {
		req.NoError(repo.Create(testUser(username, "Developer")))
	}

	found, err := repo.Search(ctx, "dev", uuid.NewString(), 2)
	req.NoError(err)
	req.Len(found, 2)
}
