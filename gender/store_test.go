package gender

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClassifier answers from a fixed table and counts invocations.
type stubClassifier struct {
	lk      sync.Mutex
	entries map[string]Entry
	calls   int
}

func newStubClassifier() *stubClassifier {
	return &stubClassifier{
		entries: map[string]Entry{
			"sirine":  {Label: LabelFemale, Confidence: 0.9},
			"yassine": {Label: LabelMale, Confidence: 0.8},
			"fatima":  {Label: LabelFemale, Confidence: 0.95},
		},
	}
}

func (c *stubClassifier) Classify(ctx context.Context, name string) (Entry, error) {
	c.lk.Lock()
	defer c.lk.Unlock()
	c.calls++
	entry, ok := c.entries[name]
	if !ok {
		return Entry{Name: name}, nil
	}
	entry.Name = name
	return entry, nil
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "gender-cache-test.json"))
}

func TestClassifyBatch(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := tempStore(t)
	cls := newStubClassifier()

	out := store.ClassifyBatch(ctx, cls, []string{"Sirine", "Yassine"}, nil)
	require.Len(t, out, 2)

	assert.Equal("sirine", out[0].Name)
	assert.Equal(LabelFemale, out[0].Label)
	assert.InDelta(0.9, out[0].Confidence, 1e-9)

	assert.Equal("yassine", out[1].Name)
	assert.Equal(LabelMale, out[1].Label)
	assert.InDelta(0.8, out[1].Confidence, 1e-9)

	_, ok := store.Get("sirine")
	assert.True(ok)
	_, ok = store.Get("yassine")
	assert.True(ok)
}

func TestClassifyBatchIdempotent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	store := tempStore(t)
	cls := newStubClassifier()
	names := []string{"Sirine", "Yassine", "Fatima"}

	first := store.ClassifyBatch(ctx, cls, names, nil)
	assert.Equal(3, cls.calls)

	second := store.ClassifyBatch(ctx, cls, names, nil)
	assert.Equal(first, second)
	// full cache hit: no further classifier invocations
	assert.Equal(3, cls.calls)
}

func TestClassifyBatchSharedKey(t *testing.T) {
	assert := assert.New(t)

	store := tempStore(t)
	cls := newStubClassifier()

	// same normalized first name, one classifier call, one cache entry
	out := store.ClassifyBatch(context.Background(), cls, []string{"Sirine_b", "sirine.trabelsi"}, nil)
	assert.Equal(out[0], out[1])
	assert.Equal(1, cls.calls)
	assert.Equal(1, store.Len())
}

func TestClassifyBatchEmptyName(t *testing.T) {
	assert := assert.New(t)

	store := tempStore(t)
	cls := newStubClassifier()

	out := store.ClassifyBatch(context.Background(), cls, []string{"", "   ", "Sirine"}, nil)
	assert.Equal(Unknown(""), out[0])
	assert.Equal(Unknown(""), out[1])
	assert.Equal(LabelFemale, out[2].Label)
	// blank names never reach the classifier
	assert.Equal(1, cls.calls)
}

func TestClassifyBatchProgress(t *testing.T) {
	assert := assert.New(t)

	store := tempStore(t)
	var done []int
	total := 0
	store.ClassifyBatch(context.Background(), newStubClassifier(), []string{"a", "b", "c"}, func(d, tot int) {
		done = append(done, d)
		total = tot
	})
	assert.Equal([]int{1, 2, 3}, done)
	assert.Equal(3, total)
}

func TestClassifyBatchCancellation(t *testing.T) {
	assert := assert.New(t)

	store := tempStore(t)
	cls := newStubClassifier()

	ctx, cancel := context.WithCancel(context.Background())
	names := []string{"Sirine", "Yassine", "Fatima", "Amal"}

	out := store.ClassifyBatch(ctx, cls, names, func(done, total int) {
		if done == 2 {
			cancel()
		}
	})

	// output keeps full length; unresolved indices are the unknown entry
	require.Len(t, out, 4)
	assert.Equal(LabelFemale, out[0].Label)
	assert.Equal(LabelMale, out[1].Label)
	assert.Equal(LabelUnknown, out[2].Label)
	assert.Equal(LabelUnknown, out[3].Label)
	assert.Equal(2, cls.calls)

	// already-cached resolutions stay cached
	_, ok := store.Get("yassine")
	assert.True(ok)
}

func TestClassifyBatchFlushFailureKeepsState(t *testing.T) {
	assert := assert.New(t)

	// the parent of the store path is a regular file, so every flush fails
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))
	store := NewStore(filepath.Join(blocker, "cache.json"))
	cls := newStubClassifier()

	out := store.ClassifyBatch(context.Background(), cls, []string{"Sirine", "Yassine"}, nil)
	require.Len(t, out, 2)
	assert.Equal(LabelFemale, out[0].Label)
	assert.Equal(LabelMale, out[1].Label)

	// the flush failure is not fatal: resolutions stay in memory so a later
	// flush against a fixed path can still persist them
	assert.Error(store.Flush())
	assert.Equal(2, store.Len())
	snap := store.Snapshot()
	assert.Equal(LabelFemale, snap["sirine"].Label)
	assert.Equal(LabelMale, snap["yassine"].Label)
}

func TestStoreRoundTrip(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "gender-cache-roundtrip.json")
	store := NewStore(path)
	for i := 0; i < 10; i++ {
		store.put(fmt.Sprintf("name%d", i), Entry{
			Name:        fmt.Sprintf("name%d", i),
			Label:       LabelFemale,
			Confidence:  0.5 + float64(i)/100,
			SampleCount: i,
		})
	}
	require.NoError(t, store.Flush())

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	assert.Equal(store.Snapshot(), reloaded.Snapshot())
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, store.Load())
	assert.Zero(t, store.Len())
}

func TestClassifyBatchPersists(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "gender-cache-batch.json")
	store := NewStore(path)
	store.ClassifyBatch(context.Background(), newStubClassifier(), []string{"Sirine"}, nil)

	reloaded := NewStore(path)
	require.NoError(t, reloaded.Load())
	entry, ok := reloaded.Get("sirine")
	assert.True(ok)
	assert.Equal(LabelFemale, entry.Label)
}
