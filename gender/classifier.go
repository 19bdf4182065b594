package gender

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Label is a predicted gender class.
type Label string

const (
	LabelUnknown Label = ""
	LabelMale    Label = "male"
	LabelFemale  Label = "female"
)

// Entry is one classification result. Confidence is in [0,1]; SampleCount
// carries how many observations backed the prediction when the model exposes
// that, zero otherwise.
type Entry struct {
	Name        string  `json:"name"`
	Label       Label   `json:"gender,omitempty"`
	Confidence  float64 `json:"probability"`
	SampleCount int     `json:"count"`
}

// Unknown returns the entry used for names that cannot be classified.
func Unknown(name string) Entry {
	return Entry{Name: name}
}

// Classifier predicts a gender label for a single first-name token.
// Implementations must be deterministic for a given name and must not block
// indefinitely; remote-backed models should enforce their own timeout.
type Classifier interface {
	Classify(ctx context.Context, name string) (Entry, error)
}

// CachedClassifier wraps an inner Classifier with a process-wide expirable
// LRU. Durable stores are per account while name classification is account
// independent, so this avoids re-running the model for names already seen
// under another account in the same process.
type CachedClassifier struct {
	Inner Classifier
	cache *expirable.LRU[string, Entry]
}

// Capacity of zero means unlimited size. Similarly, ttl of zero means unlimited duration.
func NewCachedClassifier(inner Classifier, capacity int, ttl time.Duration) *CachedClassifier {
	return &CachedClassifier{
		Inner: inner,
		cache: expirable.NewLRU[string, Entry](capacity, nil, ttl),
	}
}

func (c *CachedClassifier) Classify(ctx context.Context, name string) (Entry, error) {
	key := strings.ToLower(name)
	if entry, ok := c.cache.Get(key); ok {
		classifierCacheHits.Inc()
		return entry, nil
	}
	classifierCacheMisses.Inc()

	entry, err := c.Inner.Classify(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	c.cache.Add(key, entry)
	return entry, nil
}
