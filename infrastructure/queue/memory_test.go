package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryQueueFIFO(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	first, err := NewRouteCommandTask(RouteCommandPayload{DecisionID: "d-1", CommandType: "annotate", AgentID: "a"})
	if err != nil {
		t.Fatalf("NewRouteCommandTask: %v", err)
	}
	second, err := NewRouteCommandTask(RouteCommandPayload{DecisionID: "d-2", CommandType: "annotate", AgentID: "a"})
	if err != nil {
		t.Fatalf("NewRouteCommandTask: %v", err)
	}

	if err := q.Enqueue(ctx, first); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Enqueue(ctx, second); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if size, _ := q.Size(ctx); size != 2 {
		t.Errorf("Size = %d, want 2", size)
	}

	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	var p RouteCommandPayload
	if err := got.Unmarshal(&p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.DecisionID != "d-1" {
		t.Errorf("first dequeued decision = %s, want d-1", p.DecisionID)
	}
}

func TestMemoryQueueDequeueBlocksUntilEnqueue(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	done := make(chan *Task, 1)
	go func() {
		task, err := q.Dequeue(ctx)
		if err != nil {
			done <- nil
			return
		}
		done <- task
	}()

	task, err := NewRouteCommandTask(RouteCommandPayload{DecisionID: "d-1", CommandType: "annotate", AgentID: "a"})
	if err != nil {
		t.Fatalf("NewRouteCommandTask: %v", err)
	}
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	select {
	case got := <-done:
		if got == nil || got.ID != task.ID {
			t.Errorf("dequeued task = %v, want %s", got, task.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after Enqueue")
	}
}

func TestMemoryQueueDequeueHonorsCancellation(t *testing.T) {
	q := NewMemoryQueue()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := q.Dequeue(ctx)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Dequeue after cancel = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Dequeue did not return after cancel")
	}
}

func TestMemoryQueueCloseDrainsThenFails(t *testing.T) {
	q := NewMemoryQueue()
	ctx := context.Background()

	task, err := NewRouteCommandTask(RouteCommandPayload{DecisionID: "d-1", CommandType: "annotate", AgentID: "a"})
	if err != nil {
		t.Fatalf("NewRouteCommandTask: %v", err)
	}
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Queued tasks remain drainable after close.
	if _, err := q.Dequeue(ctx); err != nil {
		t.Fatalf("Dequeue after close: %v", err)
	}
	if _, err := q.Dequeue(ctx); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Dequeue on drained closed queue = %v, want ErrQueueClosed", err)
	}
	if err := q.Enqueue(ctx, task); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue on closed queue = %v, want ErrQueueClosed", err)
	}
}
