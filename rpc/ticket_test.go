package rpc

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestPruneCompletionsEvictsByTTL(t *testing.T) {
	completions := map[uuid.UUID]*completion{}
	old := uuid.New()
	completions[old] = &completion{ticket: old, created: time.Now().Add(-2 * completionTTL)}
	fresh := uuid.New()
	completions[fresh] = &completion{ticket: fresh, created: time.Now()}

	pruneCompletions(completions)

	if _, ok := completions[old]; ok {
		t.Fatalf("expired ticket was not pruned")
	}
	if _, ok := completions[fresh]; !ok {
		t.Fatalf("fresh ticket was pruned")
	}
}

func TestPruneCompletionsEvictsByCapOldestFirst(t *testing.T) {
	completions := map[uuid.UUID]*completion{}
	base := time.Now()
	var oldest uuid.UUID
	for i := 0; i < maxCompletions+10; i++ {
		id := uuid.New()
		if i == 0 {
			oldest = id
		}
		completions[id] = &completion{ticket: id, created: base.Add(time.Duration(i) * time.Millisecond)}
	}

	pruneCompletions(completions)

	if len(completions) > maxCompletions {
		t.Fatalf("len(completions) = %d, want <= %d", len(completions), maxCompletions)
	}
	if _, ok := completions[oldest]; ok {
		t.Fatalf("oldest ticket should have been evicted first")
	}
}

func TestStatusTerminal(t *testing.T) {
	cases := map[Status]bool{
		StatusPending:    false,
		StatusRunning:    false,
		StatusOK:         true,
		StatusError:      true,
		StatusTimeout:    true,
		StatusWorkerDown: true,
	}
	for status, want := range cases {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
