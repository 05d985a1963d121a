package runtime

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"pairchat/domain/event"
)

type fakeConn struct {
	id     string
	userID string
}

func newFakeConn(userID string) *fakeConn {
	return &fakeConn{id: uuid.NewString(), userID: userID}
}

func (c *fakeConn) ID() string     { return c.id }
func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) Push(_ context.Context, _ event.Outbound) error { return nil }

func TestRegistry_Register_One_User_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConn(userID)

	// Given no user is connected
	req.Empty(registry.ConnectionsOf(userID))
	req.False(registry.Online(userID))

	// When a connection registers
	registry.Register(userID, conn)

	// Then
	req.Len(registry.ConnectionsOf(userID), 1)
	req.Contains(registry.ConnectionsOf(userID), conn)
	req.True(registry.Online(userID))
}

func TestRegistry_Register_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConn(userID)

	// When the same connection registers twice
	registry.Register(userID, conn)
	registry.Register(userID, conn)

	// Then it is not duplicated
	req.Len(registry.ConnectionsOf(userID), 1)
}

func TestRegistry_Register_Multiple_Connections_Same_User(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn1 := newFakeConn(userID)
	conn2 := newFakeConn(userID)

	// When two devices of the same user register
	registry.Register(userID, conn1)
	registry.Register(userID, conn2)

	// Then both are returned
	conns := registry.ConnectionsOf(userID)
	req.Len(conns, 2)
	req.Contains(conns, conn1)
	req.Contains(conns, conn2)
}

func TestRegistry_Deregister_Absent_Connection_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn := newFakeConn(userID)

	// When deregistering a connection that was never registered
	registry.Deregister(userID, conn)

	// Then nothing blows up and the user stays offline
	req.Empty(registry.ConnectionsOf(userID))
}

func TestRegistry_Deregister_Removes_Only_That_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn1 := newFakeConn(userID)
	conn2 := newFakeConn(userID)

	// Given two connections for one user
	registry.Register(userID, conn1)
	registry.Register(userID, conn2)

	// When one disconnects
	registry.Deregister(userID, conn1)

	// Then the other stays
	conns := registry.ConnectionsOf(userID)
	req.Len(conns, 1)
	req.Contains(conns, conn2)

	// And when the last one disconnects the user is gone entirely
	registry.Deregister(userID, conn2)
	req.Nil(registry.ConnectionsOf(userID))
	req.False(registry.Online(userID))
}

func TestRegistry_Snapshot_Is_Isolated_From_Mutation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()
	conn1 := newFakeConn(userID)
	conn2 := newFakeConn(userID)
	registry.Register(userID, conn1)
	registry.Register(userID, conn2)

	// Given a snapshot taken before a disconnect
	snapshot := registry.ConnectionsOf(userID)

	// When a connection deregisters
	registry.Deregister(userID, conn1)

	// Then the snapshot still holds both entries
	req.Len(snapshot, 2)
	req.Len(registry.ConnectionsOf(userID), 1)
}

// Run with -race: many sessions of the same user open and close while a
// reader keeps taking snapshots.
func TestRegistry_Concurrent_Register_Deregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	userID := uuid.NewString()

	const sessions = 64
	var wg sync.WaitGroup
	wg.Add(sessions + 1)

	for i := 0; i < sessions; i++ {
		go func() {
			defer wg.Done()
			conn := newFakeConn(userID)
			registry.Register(userID, conn)
			registry.Deregister(userID, conn)
		}()
	}

	go func() {
		defer wg.Done()
		for i := 0; i < sessions; i++ {
			for _, conn := range registry.ConnectionsOf(userID) {
				req.Equal(userID, conn.UserID())
			}
		}
	}()

	wg.Wait()

	// Then every session cleaned up after itself
	req.Empty(registry.ConnectionsOf(userID))
}
