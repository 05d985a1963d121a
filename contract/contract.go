//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"pairchat/domain/event"
)

// LiveConnection is one open duplex transport session for one user.
// Valid only for its session lifetime; never persisted.
type LiveConnection interface {
	ID() string
	UserID() string
	// Push delivers one outbound event, or fails fast if the connection
	// is closed or its send buffer is saturated. A failed push is never
	// retried by callers.
	Push(ctx context.Context, e event.Outbound) error
}

// IRegistry answers "which live connections belong to user U" and keeps
// that answer correct under concurrent connects and disconnects.
type IRegistry interface {
	Register(userID string, conn LiveConnection)
	Deregister(userID string, conn LiveConnection)
	ConnectionsOf(userID string) []LiveConnection
}

// Worker doesn't protect itself; the supervisor does.
type Worker interface {
	Run(ctx context.Context) error
}

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker,
// for logging and supervision purposes.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
