package gender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPClassifier calls an external inference service for gender prediction.
// The service contract is a POST of {"name": ...} answered with an Entry
// shaped body. Every call is bounded by Timeout so a stuck model can never
// wedge a batch.
type HTTPClassifier struct {
	// Client is the HTTP client to use. If not set, defaults to http.DefaultClient.
	Client *http.Client
	URL    string
	// Timeout bounds a single prediction, defaulting to 10s.
	Timeout time.Duration
}

var _ Classifier = (*HTTPClassifier)(nil)

func (c *HTTPClassifier) getClient() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

func (c *HTTPClassifier) Classify(ctx context.Context, name string) (Entry, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return Entry{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(b))
	if err != nil {
		return Entry{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.getClient().Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Entry{}, fmt.Errorf("classifier returned status %d", resp.StatusCode)
	}

	var entry Entry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return Entry{}, fmt.Errorf("decoding classifier response: %w", err)
	}
	switch entry.Label {
	case LabelMale, LabelFemale, LabelUnknown:
	default:
		return Entry{}, fmt.Errorf("classifier returned unknown label %q", entry.Label)
	}
	if entry.Confidence < 0 || entry.Confidence > 1 {
		return Entry{}, fmt.Errorf("classifier confidence out of range: %f", entry.Confidence)
	}
	entry.Name = name
	return entry, nil
}
