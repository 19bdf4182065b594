package graph_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/ghazisdi/followsync/graph"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedClient serves a scripted sequence of pages, optionally failing at a
// given page index.
type pagedClient struct {
	pages   []*graph.Page
	failAt  int // 0-indexed page that returns an error, -1 to disable
	calls   int
	cursors []graph.Cursor
}

func newPagedClient(pages []*graph.Page) *pagedClient {
	return &pagedClient{pages: pages, failAt: -1}
}

func (c *pagedClient) ListEdge(ctx context.Context, subjectID string, edge graph.EdgeType, cursor graph.Cursor) (*graph.Page, error) {
	c.cursors = append(c.cursors, cursor)
	i := c.calls
	c.calls++
	if c.failAt >= 0 && i == c.failAt {
		return nil, &graph.TransportError{Wrapped: fmt.Errorf("connection reset")}
	}
	if i >= len(c.pages) {
		return nil, &graph.ProtocolError{Wrapped: fmt.Errorf("no page at index %d", i)}
	}
	return c.pages[i], nil
}

func (c *pagedClient) MutateEdge(ctx context.Context, targetID string, action graph.EdgeAction) (*graph.MutateResult, error) {
	return nil, fmt.Errorf("not implemented")
}

func makePages(counts ...int) []*graph.Page {
	pages := make([]*graph.Page, len(counts))
	n := 0
	for i, count := range counts {
		page := &graph.Page{
			HasMore:    i < len(counts)-1,
			NextCursor: graph.Cursor(fmt.Sprintf("cursor-%d", i+1)),
		}
		if !page.HasMore {
			page.NextCursor = ""
		}
		for j := 0; j < count; j++ {
			page.Entities = append(page.Entities, graph.Entity{
				ID:       fmt.Sprintf("%d", n),
				Username: fmt.Sprintf("user%d", n),
			})
			n++
		}
		pages[i] = page
	}
	return pages
}

func unpacedFetcher(client graph.Client) *graph.Fetcher {
	return graph.NewFetcher(client, &graph.FetchOptions{PagesPerSecond: 0})
}

func TestFetchAllWalksEveryPage(t *testing.T) {
	assert := assert.New(t)

	client := newPagedClient(makePages(3, 3, 2))
	f := unpacedFetcher(client)

	res, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowing)
	require.NoError(t, err)
	assert.False(res.Truncated)
	assert.Equal(3, res.Pages)
	assert.Len(res.Entities, 8)

	// cursor chaining: first request empty, then the server-issued tokens
	assert.Equal([]graph.Cursor{"", "cursor-1", "cursor-2"}, client.cursors)
}

func TestFetchAllDeduplicatesAcrossPages(t *testing.T) {
	assert := assert.New(t)

	pages := makePages(2, 2)
	// server repeats the last entity of page 0 at the head of page 1
	pages[1].Entities = append([]graph.Entity{pages[0].Entities[1]}, pages[1].Entities...)

	f := unpacedFetcher(newPagedClient(pages))
	res, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowers)
	require.NoError(t, err)
	assert.Len(res.Entities, 4)
}

func TestFetchAllDropsEmptyIDs(t *testing.T) {
	assert := assert.New(t)

	pages := makePages(2)
	pages[0].Entities = append(pages[0].Entities, graph.Entity{Username: "ghost"})

	f := unpacedFetcher(newPagedClient(pages))
	res, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowing)
	require.NoError(t, err)
	assert.Len(res.Entities, 2)
}

func TestFetchAllTruncatesOnPageFailure(t *testing.T) {
	assert := assert.New(t)

	client := newPagedClient(makePages(3, 3, 2))
	client.failAt = 2
	f := unpacedFetcher(client)

	res, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowing)
	require.NoError(t, err)
	assert.True(res.Truncated)
	assert.Equal(2, res.Pages)
	assert.Len(res.Entities, 6)
}

func TestFetchAllFirstPageFailure(t *testing.T) {
	assert := assert.New(t)

	client := newPagedClient(makePages(3))
	client.failAt = 0
	f := unpacedFetcher(client)

	res, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowers)
	require.NoError(t, err)
	assert.True(res.Truncated)
	assert.Empty(res.Entities)
}

func TestFetchAllReportsProgress(t *testing.T) {
	assert := assert.New(t)

	f := unpacedFetcher(newPagedClient(makePages(3, 2)))
	var counts []int
	f.Progress = func(edge graph.EdgeType, fetched int) {
		counts = append(counts, fetched)
	}

	_, err := f.FetchAll(context.Background(), "42", graph.EdgeFollowing)
	require.NoError(t, err)
	assert.Equal([]int{3, 5}, counts)
}

func TestFetchAllHonorsCancellation(t *testing.T) {
	assert := assert.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := unpacedFetcher(newPagedClient(makePages(3, 2)))
	res, err := f.FetchAll(ctx, "42", graph.EdgeFollowing)
	assert.ErrorIs(err, context.Canceled)
	assert.True(res.Truncated)
}
