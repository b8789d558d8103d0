package channel

import (
	"context"
	"testing"
	"time"
)

func TestSendReceive(t *testing.T) {
	ch := New[int](4)
	ch.Send(1)
	ch.Send(2)

	if got := ch.Len(); got != 2 {
		t.Errorf("expected backlog 2, got %d", got)
	}
	if got := <-ch.Receive(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if got := <-ch.Receive(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := ch.Len(); got != 0 {
		t.Errorf("expected empty backlog, got %d", got)
	}
}

func TestSendContextDelivers(t *testing.T) {
	ch := New[string](1)
	if err := ch.SendContext(context.Background(), "v"); err != nil {
		t.Fatal(err)
	}
	if got := <-ch.Receive(); got != "v" {
		t.Errorf("expected v, got %q", got)
	}
}

func TestSendContextUnblocksOnCancel(t *testing.T) {
	ch := New[int](1)
	ch.Send(1) // fill the buffer

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ch.SendContext(ctx, 2) }()

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("SendContext did not return on cancel")
	}
}

func TestCloseEndsReceive(t *testing.T) {
	ch := New[string](1)
	ch.Send("last")
	ch.Close()

	if got, ok := <-ch.Receive(); !ok || got != "last" {
		t.Errorf("expected buffered value after close, got %q ok=%v", got, ok)
	}
	if _, ok := <-ch.Receive(); ok {
		t.Error("expected closed channel")
	}
}
