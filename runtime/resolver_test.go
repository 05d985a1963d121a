package runtime

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain"
	"pairchat/domain/event"
	"pairchat/errors"
	"pairchat/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testStores struct {
	conversations repositories.ConversationRepository
	users         repositories.UserRepository
	messages      repositories.MessageRepository
}

func newTestStores(t *testing.T) testStores {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	log := discardLogger()
	return testStores{
		conversations: repositories.NewConversationRepository(db, log),
		users:         repositories.NewUserRepository(db, index, log),
		messages:      repositories.NewMessageRepository(db, log),
	}
}

func seedUser(t *testing.T, users repositories.UserRepository, username string) domain.User {
	t.Helper()
	user := domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Name:      username,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, users.Create(user))
	return user
}

func TestResolver_Resolve_Creates_On_First_Contact(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	bob := seedUser(t, stores.users, "bob")
	created := make(chan event.ConversationCreated, 1)
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, created)

	// When two users talk for the first time
	conv, err := resolver.Resolve(alice.ID, bob.ID)

	// Then a conversation exists and holds exactly that pair
	req.NoError(err)
	req.NotEmpty(conv.ID)
	req.True(conv.Contains(alice.ID))
	req.True(conv.Contains(bob.ID))

	// And the notifier is told about the other participant
	select {
	case evt := <-created:
		req.Equal(conv.ID.String(), evt.ConversationID)
		req.Equal(alice.ID, evt.InitiatorID)
		req.Equal(bob.ID, evt.OtherID)
	default:
		req.Fail("expected a conversation-created event")
	}
}

func TestResolver_Resolve_Is_Symmetric(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	bob := seedUser(t, stores.users, "bob")
	created := make(chan event.ConversationCreated, 4)
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, created)

	// Given a conversation started by alice
	first, err := resolver.Resolve(alice.ID, bob.ID)
	req.NoError(err)

	// When bob resolves the reversed pair
	second, err := resolver.Resolve(bob.ID, alice.ID)

	// Then he lands in the same conversation
	req.NoError(err)
	req.Equal(first.ID, second.ID)
}

func TestResolver_Resolve_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	bob := seedUser(t, stores.users, "bob")
	created := make(chan event.ConversationCreated, 8)
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, created)

	first, err := resolver.Resolve(alice.ID, bob.ID)
	req.NoError(err)

	// When the same pair resolves again and again
	for i := 0; i < 5; i++ {
		conv, err := resolver.Resolve(alice.ID, bob.ID)
		req.NoError(err)
		req.Equal(first.ID, conv.ID)
	}

	// Then only the first contact emitted a creation event
	req.Len(created, 1)
}

func TestResolver_Resolve_Rejects_Self_And_Empty(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, make(chan event.ConversationCreated, 1))

	_, err := resolver.Resolve(alice.ID, alice.ID)
	req.ErrorIs(err, errors.ErrInvalidInput)

	_, err = resolver.Resolve(alice.ID, "")
	req.ErrorIs(err, errors.ErrInvalidInput)

	_, err = resolver.Resolve("", alice.ID)
	req.ErrorIs(err, errors.ErrInvalidInput)
}

func TestResolver_Resolve_Unknown_User_Is_NotFound(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, make(chan event.ConversationCreated, 1))

	// When resolving against a user that was never registered
	_, err := resolver.Resolve(alice.ID, uuid.NewString())

	// Then no conversation is created
	req.ErrorIs(err, errors.ErrNotFound)
	convs, listErr := stores.conversations.ListFor(alice.ID)
	req.NoError(listErr)
	req.Empty(convs)
}

// Run with -race: concurrent first contacts for the same pair must converge
// on a single conversation.
func TestResolver_Resolve_Concurrent_First_Contact_Single_Winner(t *testing.T) {
	req := require.New(t)
	stores := newTestStores(t)
	alice := seedUser(t, stores.users, "alice")
	bob := seedUser(t, stores.users, "bob")
	created := make(chan event.ConversationCreated, 16)
	resolver := NewResolver(discardLogger(), stores.conversations, stores.users, created)

	const resolvers = 8
	results := make([]domain.Conversation, resolvers)
	errs := make([]error, resolvers)
	var wg sync.WaitGroup
	wg.Add(resolvers)
	for i := 0; i < resolvers; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				results[i], errs[i] = resolver.Resolve(alice.ID, bob.ID)
			} else {
				results[i], errs[i] = resolver.Resolve(bob.ID, alice.ID)
			}
		}(i)
	}
	wg.Wait()

	// Then every resolver got the same conversation
	for i := 0; i < resolvers; i++ {
		req.NoError(errs[i])
		req.Equal(results[0].ID, results[i].ID)
	}

	// And the store holds exactly one row for the pair
	convs, err := stores.conversations.ListFor(alice.ID)
	req.NoError(err)
	req.Len(convs, 1)

	// And exactly one creation event was emitted
	req.Len(created, 1)
}
