package pipeline

import (
	"fmt"
	"testing"
)

func TestQueue_FIFO(t *testing.T) {
	q := newMessageQueue()

	q.Push([]byte("a"))
	q.Push([]byte("b"))
	q.Push([]byte("c"))

	for _, want := range []string{"a", "b", "c"} {
		raw, ok := q.Pop()
		if !ok {
			t.Fatalf("expected entry %q, queue empty", want)
		}
		if string(raw) != want {
			t.Errorf("expected %q, got %q", want, raw)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("expected empty queue")
	}
}

func TestQueue_OverflowKeepsMostRecent(t *testing.T) {
	q := newMessageQueue()

	var dropped int
	for i := 0; i < queueCapacity+1; i++ {
		dropped += q.Push([]byte(fmt.Sprintf("msg-%d", i)))
	}

	if dropped != queueCapacity+1-queueKeepOnOverflow {
		t.Errorf("expected %d dropped, got %d", queueCapacity+1-queueKeepOnOverflow, dropped)
	}
	if q.Len() != queueKeepOnOverflow {
		t.Fatalf("expected %d entries after overflow, got %d", queueKeepOnOverflow, q.Len())
	}

	// The survivors are the most recent 50 in original relative order,
	// including the entry whose push triggered the overflow.
	for i := 0; i < queueKeepOnOverflow; i++ {
		want := fmt.Sprintf("msg-%d", queueCapacity+1-queueKeepOnOverflow+i)
		raw, ok := q.Pop()
		if !ok {
			t.Fatalf("queue exhausted at %d", i)
		}
		if string(raw) != want {
			t.Errorf("position %d: expected %q, got %q", i, want, raw)
		}
	}
}

func TestQueue_NeverExceedsCapacity(t *testing.T) {
	q := newMessageQueue()

	for i := 0; i < 500; i++ {
		q.Push([]byte("x"))
		if n := q.Len(); n > queueCapacity {
			t.Fatalf("queue length %d exceeds capacity after push %d", n, i)
		}
	}
}

func BenchmarkQueue_PushPop(b *testing.B) {
	q := newMessageQueue()
	raw := []byte(`{"channel":"book","type":"update"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		q.Push(raw)
		q.Pop()
	}
}
