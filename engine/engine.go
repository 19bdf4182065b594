package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ghazisdi/followsync/gender"
	"github.com/ghazisdi/followsync/graph"
)

// ErrBusy is returned when a run of the same kind is already in progress.
// The request is rejected synchronously with no state change.
var ErrBusy = errors.New("a run of this kind is already in progress")

type taskKind int

const (
	taskSync taskKind = iota
	taskMutation
	taskClassification
)

// Session carries everything scoped to one logged-in account: the graph
// client with its resolved credentials, the account's durable gender store
// and the classifier. Switching accounts constructs a fresh Session; nothing
// account-scoped lives in package globals.
type Session struct {
	AccountID  string
	Client     graph.Client
	Store      *gender.Store
	Classifier gender.Classifier
}

type Options struct {
	Fetch           *graph.FetchOptions
	Scheduler       *SchedulerOptions
	DisplayPageSize int
}

func DefaultOptions() *Options {
	return &Options{
		Fetch:           graph.DefaultFetchOptions(),
		Scheduler:       DefaultSchedulerOptions(),
		DisplayPageSize: 10,
	}
}

// Engine coordinates the sync, mutation and classification tasks for one
// Session and holds the resulting working set. At most one task of each kind
// may be in flight; a second start of the same kind fails with ErrBusy.
//
// Each long-running operation comes in a blocking form (Sync, Unfollow,
// ClassifyFollowers) and a background form (StartSync, StartUnfollow,
// StartClassification) whose results arrive through the On* callbacks.
// Callbacks are invoked from the task goroutine.
type Engine struct {
	session *Session
	opts    *Options
	fetcher *graph.Fetcher
	log     *slog.Logger

	lk           sync.Mutex
	snapshot     *graph.Snapshot
	nonFollowers []graph.Entity
	filter       string
	lastStats    *gender.Stats
	running      map[taskKind]context.CancelFunc

	OnSyncProgress           func(edge graph.EdgeType, fetched int)
	OnSyncComplete           func(snapshot *graph.Snapshot, nonFollowers []graph.Entity)
	OnMutationOutcome        func(Outcome)
	OnMutationComplete       func(succeeded, failed int)
	OnClassificationProgress func(done, total int)
	OnClassificationComplete func(stats gender.Stats)
}

func New(session *Session, opts *Options) *Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.DisplayPageSize <= 0 {
		opts.DisplayPageSize = 10
	}
	e := &Engine{
		session: session,
		opts:    opts,
		log:     slog.Default().With("system", "engine", "account", session.AccountID),
		running: make(map[taskKind]context.CancelFunc),
	}
	e.fetcher = graph.NewFetcher(session.Client, opts.Fetch)
	e.fetcher.Progress = func(edge graph.EdgeType, fetched int) {
		if e.OnSyncProgress != nil {
			e.OnSyncProgress(edge, fetched)
		}
	}
	return e
}

func (e *Engine) begin(kind taskKind, parent context.Context) (context.Context, error) {
	e.lk.Lock()
	defer e.lk.Unlock()
	if _, ok := e.running[kind]; ok {
		return nil, ErrBusy
	}
	ctx, cancel := context.WithCancel(parent)
	e.running[kind] = cancel
	return ctx, nil
}

func (e *Engine) finish(kind taskKind) {
	e.lk.Lock()
	defer e.lk.Unlock()
	if cancel, ok := e.running[kind]; ok {
		cancel()
		delete(e.running, kind)
	}
}

func (e *Engine) cancelTask(kind taskKind) {
	e.lk.Lock()
	defer e.lk.Unlock()
	if cancel, ok := e.running[kind]; ok {
		cancel()
	}
}

func (e *Engine) busy(kind taskKind) bool {
	e.lk.Lock()
	defer e.lk.Unlock()
	_, ok := e.running[kind]
	return ok
}

// Sync fetches both edges of the graph and rebuilds the working set.
func (e *Engine) Sync(ctx context.Context) (*graph.Snapshot, []graph.Entity, error) {
	ctx, err := e.begin(taskSync, ctx)
	if err != nil {
		return nil, nil, err
	}
	defer e.finish(taskSync)
	return e.runSync(ctx)
}

// StartSync runs Sync in the background; results arrive via OnSyncComplete.
func (e *Engine) StartSync(ctx context.Context) error {
	ctx, err := e.begin(taskSync, ctx)
	if err != nil {
		return err
	}
	go func() {
		defer e.finish(taskSync)
		if _, _, err := e.runSync(ctx); err != nil {
			e.log.Warn("background sync ended early", "err", err)
		}
	}()
	return nil
}

func (e *Engine) CancelSync() { e.cancelTask(taskSync) }

func (e *Engine) runSync(ctx context.Context) (*graph.Snapshot, []graph.Entity, error) {
	start := time.Now()
	e.log.Info("starting relationship sync")

	following, err := e.fetcher.FetchAll(ctx, e.session.AccountID, graph.EdgeFollowing)
	if err != nil {
		syncsCompleted.WithLabelValues("cancelled").Inc()
		return nil, nil, err
	}
	followers, err := e.fetcher.FetchAll(ctx, e.session.AccountID, graph.EdgeFollowers)
	if err != nil {
		syncsCompleted.WithLabelValues("cancelled").Inc()
		return nil, nil, err
	}

	snap := &graph.Snapshot{
		Following: following.Entities,
		Followers: followers.Entities,
		FetchedAt: time.Now(),
		Truncated: following.Truncated || followers.Truncated,
	}
	nf := graph.NonFollowers(snap.Following, snap.Followers)

	e.lk.Lock()
	e.snapshot = snap
	e.nonFollowers = nf
	e.lk.Unlock()
	nonFollowersGauge.Set(float64(len(nf)))

	if snap.Truncated {
		syncsCompleted.WithLabelValues("truncated").Inc()
	} else {
		syncsCompleted.WithLabelValues("full").Inc()
	}
	e.log.Info("relationship sync complete",
		"following", len(snap.Following),
		"followers", len(snap.Followers),
		"nonFollowers", len(nf),
		"truncated", snap.Truncated,
		"duration", time.Since(start))

	if e.OnSyncComplete != nil {
		e.OnSyncComplete(snap, nf)
	}
	return snap, nf, nil
}

// Unfollow runs a mutation pass over the subset of the working set whose IDs
// appear in selected. The target list is snapshotted at start; selection or
// working-set changes made while the run is in flight do not affect it.
// Succeeded targets leave the working set so a repeated partial run can never
// target them twice.
func (e *Engine) Unfollow(ctx context.Context, selected []string) ([]Outcome, error) {
	ctx, err := e.begin(taskMutation, ctx)
	if err != nil {
		return nil, err
	}
	defer e.finish(taskMutation)
	return e.runUnfollow(ctx, selected), nil
}

// StartUnfollow runs Unfollow in the background; per-target results arrive
// via OnMutationOutcome and the summary via OnMutationComplete.
func (e *Engine) StartUnfollow(ctx context.Context, selected []string) error {
	ctx, err := e.begin(taskMutation, ctx)
	if err != nil {
		return err
	}
	go func() {
		defer e.finish(taskMutation)
		e.runUnfollow(ctx, selected)
	}()
	return nil
}

func (e *Engine) CancelUnfollow() { e.cancelTask(taskMutation) }

func (e *Engine) runUnfollow(ctx context.Context, selected []string) []Outcome {
	targets := e.selectTargets(selected)
	e.log.Info("starting unfollow run", "selected", len(selected), "targets", len(targets))

	sched := NewScheduler(e.session.Client, e.opts.Scheduler)
	sched.OnOutcome = func(o Outcome) {
		if o.Succeeded {
			e.removeFromWorkingSet(o.Entity.ID)
		}
		if e.OnMutationOutcome != nil {
			e.OnMutationOutcome(o)
		}
	}
	outcomes := sched.Run(ctx, targets)

	succeeded, failed := 0, 0
	for _, o := range outcomes {
		if o.Succeeded {
			succeeded++
		} else {
			failed++
		}
	}
	e.log.Info("unfollow run complete", "succeeded", succeeded, "failed", failed, "requested", len(targets))
	if e.OnMutationComplete != nil {
		e.OnMutationComplete(succeeded, failed)
	}
	return outcomes
}

// selectTargets snapshots the working-set entities whose ID is in selected,
// preserving working-set order. IDs not (or no longer) in the working set are
// ignored.
func (e *Engine) selectTargets(selected []string) []graph.Entity {
	want := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}

	e.lk.Lock()
	defer e.lk.Unlock()
	out := make([]graph.Entity, 0, len(want))
	for _, ent := range e.nonFollowers {
		if _, ok := want[ent.ID]; ok {
			out = append(out, ent)
		}
	}
	return out
}

func (e *Engine) removeFromWorkingSet(id string) {
	e.lk.Lock()
	defer e.lk.Unlock()
	for i, ent := range e.nonFollowers {
		if ent.ID == id {
			e.nonFollowers = append(e.nonFollowers[:i], e.nonFollowers[i+1:]...)
			break
		}
	}
	nonFollowersGauge.Set(float64(len(e.nonFollowers)))
}

// ClassifyFollowers fetches a fresh follower set and runs the batch
// classifier over display names (falling back to the handle), aggregating
// label counts. Cancellation during the fetch abandons the batch; during the
// batch it fills the remaining entries as unknown, per the store contract.
func (e *Engine) ClassifyFollowers(ctx context.Context) (gender.Stats, error) {
	ctx, err := e.begin(taskClassification, ctx)
	if err != nil {
		return gender.Stats{}, err
	}
	defer e.finish(taskClassification)
	return e.runClassification(ctx)
}

// StartClassification runs ClassifyFollowers in the background; progress and
// stats arrive via OnClassificationProgress/OnClassificationComplete.
func (e *Engine) StartClassification(ctx context.Context) error {
	ctx, err := e.begin(taskClassification, ctx)
	if err != nil {
		return err
	}
	go func() {
		defer e.finish(taskClassification)
		if _, err := e.runClassification(ctx); err != nil {
			e.log.Warn("background classification ended early", "err", err)
		}
	}()
	return nil
}

func (e *Engine) CancelClassification() { e.cancelTask(taskClassification) }

func (e *Engine) runClassification(ctx context.Context) (gender.Stats, error) {
	fetcher := graph.NewFetcher(e.session.Client, e.opts.Fetch)
	res, err := fetcher.FetchAll(ctx, e.session.AccountID, graph.EdgeFollowers)
	if err != nil {
		return gender.Stats{}, err
	}

	names := make([]string, len(res.Entities))
	for i, ent := range res.Entities {
		names[i] = ent.DisplayName
		if names[i] == "" {
			names[i] = ent.Username
		}
	}

	entries := e.session.Store.ClassifyBatch(ctx, e.session.Classifier, names, e.OnClassificationProgress)
	stats := gender.Aggregate(entries)

	e.lk.Lock()
	e.lastStats = &stats
	e.lk.Unlock()
	classificationsCompleted.Inc()

	e.log.Info("classification complete",
		"total", stats.Total,
		"male", stats.Male,
		"female", stats.Female,
		"unknown", stats.Unknown,
		"truncatedFetch", res.Truncated)
	if e.OnClassificationComplete != nil {
		e.OnClassificationComplete(stats)
	}
	return stats, nil
}

// Snapshot returns the current relationship snapshot, nil before the first
// completed sync.
func (e *Engine) Snapshot() *graph.Snapshot {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.snapshot
}

// NonFollowers returns a copy of the current working set.
func (e *Engine) NonFollowers() []graph.Entity {
	e.lk.Lock()
	defer e.lk.Unlock()
	out := make([]graph.Entity, len(e.nonFollowers))
	copy(out, e.nonFollowers)
	return out
}

// SetFilter sets the case-insensitive username substring filter applied by
// Filtered and Page.
func (e *Engine) SetFilter(query string) {
	e.lk.Lock()
	defer e.lk.Unlock()
	e.filter = query
}

// Filtered returns the working set restricted to the current filter.
func (e *Engine) Filtered() []graph.Entity {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.filteredLocked(e.filter)
}

// FilteredBy returns the working set restricted to the given query, leaving
// the stored filter untouched.
func (e *Engine) FilteredBy(query string) []graph.Entity {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.filteredLocked(query)
}

func (e *Engine) filteredLocked(query string) []graph.Entity {
	out := make([]graph.Entity, 0, len(e.nonFollowers))
	query = strings.ToLower(query)
	for _, ent := range e.nonFollowers {
		if query == "" || strings.Contains(strings.ToLower(ent.Username), query) {
			out = append(out, ent)
		}
	}
	return out
}

// Page returns one fixed-size display page of the filtered working set, the
// clamped index actually served, and the page count. An empty set yields an
// empty page, index zero and a count of zero.
func (e *Engine) Page(index int) ([]graph.Entity, int, int) {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.pageLocked(e.filter, index)
}

// FilteredPage is Page against an explicit query, leaving the stored filter
// untouched. Read-only callers like HTTP handlers use this so concurrent
// views never clobber each other's filter.
func (e *Engine) FilteredPage(query string, index int) ([]graph.Entity, int, int) {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.pageLocked(query, index)
}

func (e *Engine) pageLocked(query string, index int) ([]graph.Entity, int, int) {
	filtered := e.filteredLocked(query)
	size := e.opts.DisplayPageSize
	pages := (len(filtered) + size - 1) / size
	if pages == 0 {
		return []graph.Entity{}, 0, 0
	}
	if index < 0 {
		index = 0
	}
	if index >= pages {
		index = pages - 1
	}
	start := index * size
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], index, pages
}

// LastStats returns the most recent classification aggregate, nil before the
// first completed batch.
func (e *Engine) LastStats() *gender.Stats {
	e.lk.Lock()
	defer e.lk.Unlock()
	return e.lastStats
}

// Status is a point-in-time view of engine activity for control surfaces.
type Status struct {
	Account      string `json:"account"`
	Syncing      bool   `json:"syncing"`
	Unfollowing  bool   `json:"unfollowing"`
	Classifying  bool   `json:"classifying"`
	Truncated    bool   `json:"truncated"`
	Following    int    `json:"following"`
	Followers    int    `json:"followers"`
	NonFollowers int    `json:"nonFollowers"`
}

func (e *Engine) Status() Status {
	e.lk.Lock()
	defer e.lk.Unlock()

	s := Status{
		Account:      e.session.AccountID,
		NonFollowers: len(e.nonFollowers),
	}
	_, s.Syncing = e.running[taskSync]
	_, s.Unfollowing = e.running[taskMutation]
	_, s.Classifying = e.running[taskClassification]
	if e.snapshot != nil {
		s.Truncated = e.snapshot.Truncated
		s.Following = len(e.snapshot.Following)
		s.Followers = len(e.snapshot.Followers)
	}
	return s
}
