package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pairchat/errors"
)

// countingWorker runs fn once per (re)start and counts the starts.
type countingWorker struct {
	starts atomic.Int32
	fn     func(ctx context.Context, start int32) error
}

func (w *countingWorker) Run(ctx context.Context) error {
	return w.fn(ctx, w.starts.Add(1))
}

func TestSupervisor_Restarts_Crashed_Worker(t *testing.T) {
	req := require.New(t)
	recovered := make(chan struct{})
	worker := &countingWorker{}
	worker.fn = func(ctx context.Context, start int32) error {
		if start == 1 {
			return errors.ErrWorkerPanic
		}
		close(recovered)
		<-ctx.Done()
		return ctx.Err()
	}

	supervisor := NewSupervisor(discardLogger(), time.Millisecond)
	supervisor.Add(worker)
	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Then the worker is started again after the crash
	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		req.Fail("worker was not restarted")
	}

	supervisor.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor did not drain")
	}
	req.GreaterOrEqual(worker.starts.Load(), int32(2))
}

func TestSupervisor_Recovers_Panicking_Worker(t *testing.T) {
	req := require.New(t)
	recovered := make(chan struct{})
	worker := &countingWorker{}
	worker.fn = func(ctx context.Context, start int32) error {
		if start == 1 {
			panic("worker blew up")
		}
		close(recovered)
		<-ctx.Done()
		return ctx.Err()
	}

	supervisor := NewSupervisor(discardLogger(), time.Millisecond)
	supervisor.Add(worker)
	go supervisor.Run(context.Background())
	defer supervisor.Stop()

	// Then the panic is contained and the worker restarted
	select {
	case <-recovered:
	case <-time.After(2 * time.Second):
		req.Fail("panicking worker was not restarted")
	}
}

func TestSupervisor_Finished_Worker_Is_Not_Restarted(t *testing.T) {
	req := require.New(t)
	worker := &countingWorker{}
	worker.fn = func(_ context.Context, _ int32) error {
		return nil
	}

	supervisor := NewSupervisor(discardLogger(), time.Millisecond)
	supervisor.Add(worker)
	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Then Run returns on its own: a clean finish ends supervision
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor kept a finished worker alive")
	}
	req.Equal(int32(1), worker.starts.Load())
}

func TestSupervisor_Stop_Drains_All_Workers(t *testing.T) {
	req := require.New(t)
	makeWorker := func() *countingWorker {
		w := &countingWorker{}
		w.fn = func(ctx context.Context, _ int32) error {
			<-ctx.Done()
			return ctx.Err()
		}
		return w
	}
	first, second := makeWorker(), makeWorker()

	supervisor := NewSupervisor(discardLogger(), time.Millisecond)
	supervisor.Add(first, second)
	done := make(chan struct{})
	go func() {
		supervisor.Run(context.Background())
		close(done)
	}()

	// Give both workers time to block on their contexts.
	time.Sleep(50 * time.Millisecond)
	supervisor.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		req.Fail("supervisor did not stop all workers")
	}
	req.Equal(int32(1), first.starts.Load())
	req.Equal(int32(1), second.starts.Load())
}
