package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ghazisdi/followsync/engine"
	"github.com/ghazisdi/followsync/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGraph is a scripted graph.Client for engine tests: it serves fixed
// following/followers sets as single pages and records unfollow calls.
type fakeGraph struct {
	lk        sync.Mutex
	following []graph.Entity
	followers []graph.Entity

	unfollowed  []string
	rejectIDs   map[string]bool // MutateEdge answers Succeeded=false
	errorIDs    map[string]bool // MutateEdge returns a transport error
	listErrors  bool            // every ListEdge call fails
	failingEdge graph.EdgeType  // with listEdgeFails, which edge fails
}

func (f *fakeGraph) ListEdge(ctx context.Context, subjectID string, edge graph.EdgeType, cursor graph.Cursor) (*graph.Page, error) {
	if f.listErrors && edge == f.failingEdge {
		return nil, &graph.TransportError{Wrapped: fmt.Errorf("unreachable")}
	}
	entities := f.following
	if edge == graph.EdgeFollowers {
		entities = f.followers
	}
	return &graph.Page{Entities: entities, HasMore: false}, nil
}

func (f *fakeGraph) MutateEdge(ctx context.Context, targetID string, action graph.EdgeAction) (*graph.MutateResult, error) {
	f.lk.Lock()
	defer f.lk.Unlock()
	if f.errorIDs[targetID] {
		return nil, &graph.TransportError{Wrapped: fmt.Errorf("connection reset")}
	}
	if f.rejectIDs[targetID] {
		return &graph.MutateResult{Succeeded: false, Diagnostic: "rate limited"}, nil
	}
	f.unfollowed = append(f.unfollowed, targetID)
	return &graph.MutateResult{Succeeded: true}, nil
}

func noDelay() *engine.SchedulerOptions {
	return &engine.SchedulerOptions{}
}

func targets(n int) []graph.Entity {
	out := make([]graph.Entity, n)
	for i := range out {
		out[i] = graph.Entity{ID: fmt.Sprintf("%d", i), Username: fmt.Sprintf("user%d", i)}
	}
	return out
}

func TestSchedulerProcessesAllTargets(t *testing.T) {
	assert := assert.New(t)

	client := &fakeGraph{}
	sched := engine.NewScheduler(client, noDelay())

	outcomes := sched.Run(context.Background(), targets(5))
	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		assert.True(o.Succeeded, "target %d", i)
		assert.Empty(o.ErrorDetail)
	}
	assert.Equal([]string{"0", "1", "2", "3", "4"}, client.unfollowed)
}

func TestSchedulerFailureDoesNotAbortRun(t *testing.T) {
	assert := assert.New(t)

	client := &fakeGraph{rejectIDs: map[string]bool{"2": true}}
	sched := engine.NewScheduler(client, noDelay())

	outcomes := sched.Run(context.Background(), targets(5))
	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		if i == 2 {
			assert.False(o.Succeeded)
			assert.Equal("rate limited", o.ErrorDetail)
		} else {
			assert.True(o.Succeeded, "target %d", i)
		}
	}
}

func TestSchedulerTransportErrorRecorded(t *testing.T) {
	assert := assert.New(t)

	client := &fakeGraph{errorIDs: map[string]bool{"0": true}}
	sched := engine.NewScheduler(client, noDelay())

	outcomes := sched.Run(context.Background(), targets(2))
	require.Len(t, outcomes, 2)
	assert.False(outcomes[0].Succeeded)
	assert.Contains(outcomes[0].ErrorDetail, "transport error")
	assert.True(outcomes[1].Succeeded)
}

func TestSchedulerCancellation(t *testing.T) {
	assert := assert.New(t)

	client := &fakeGraph{}
	sched := engine.NewScheduler(client, noDelay())

	ctx, cancel := context.WithCancel(context.Background())
	sched.OnOutcome = func(o engine.Outcome) {
		if o.Entity.ID == "2" {
			cancel()
		}
	}

	outcomes := sched.Run(ctx, targets(10))
	// cancellation after index 2: exactly indices 0..2 were processed
	assert.Len(outcomes, 3)
	assert.Equal([]string{"0", "1", "2"}, client.unfollowed)
}

func TestSchedulerCancellationInterruptsDelay(t *testing.T) {
	assert := assert.New(t)

	client := &fakeGraph{}
	sched := engine.NewScheduler(client, &engine.SchedulerOptions{
		MinDelay: 30 * time.Second,
		MaxDelay: 30 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sched.OnOutcome = func(o engine.Outcome) {
		cancel()
	}

	start := time.Now()
	outcomes := sched.Run(ctx, targets(3))
	// the pause before the second target is abandoned as soon as the
	// context ends, not waited out
	assert.Less(time.Since(start), 5*time.Second)
	require.Len(t, outcomes, 1)
	assert.Equal([]string{"0"}, client.unfollowed)
}

func TestSchedulerEmptyTargets(t *testing.T) {
	sched := engine.NewScheduler(&fakeGraph{}, noDelay())
	assert.Empty(t, sched.Run(context.Background(), nil))
}
