package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ghazisdi/followsync/graph"
)

const (
	DefaultHost      = "https://www.instagram.com"
	DefaultUserAgent = "Instagram 155.0.0.37.107"

	// GraphQL persisted-query hashes for the two edge connections.
	queryHashFollowing = "3dec7e2c57367ef3da3d987d89f9dbc8"
	queryHashFollowers = "c76146de99bb02f6415203be841dd25a"

	defaultPageSize = 50
)

// AuthInfo holds already-resolved web session credentials. Acquiring them
// (login flow, cookie extraction) is outside this package.
type AuthInfo struct {
	CSRFToken string
	SessionID string
	UserID    string
}

// Client implements graph.Client against the Instagram web API.
type Client struct {
	// Client is the HTTP client to use. If not set, defaults to RobustHTTPClient().
	Client    *http.Client
	Auth      *AuthInfo
	Host      string
	UserAgent string
	// PageSize is the per-page entity count requested from the edge
	// connection, defaulting to 50.
	PageSize int
}

var _ graph.Client = (*Client)(nil)

func NewClient(auth *AuthInfo) *Client {
	return &Client{
		Client: RobustHTTPClient(),
		Auth:   auth,
	}
}

func (c *Client) getClient() *http.Client {
	if c.Client == nil {
		return RobustHTTPClient()
	}
	return c.Client
}

func (c *Client) host() string {
	if c.Host == "" {
		return DefaultHost
	}
	return c.Host
}

func (c *Client) pageSize() int {
	if c.PageSize <= 0 {
		return defaultPageSize
	}
	return c.PageSize
}

func (c *Client) setHeaders(req *http.Request) {
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if c.Auth != nil {
		req.Header.Set("Cookie", fmt.Sprintf("csrftoken=%s; sessionid=%s; ds_user_id=%s",
			c.Auth.CSRFToken, c.Auth.SessionID, c.Auth.UserID))
		req.Header.Set("X-Csrftoken", c.Auth.CSRFToken)
	}
}

// edgeName maps an edge type onto the GraphQL connection field name.
func edgeName(edge graph.EdgeType) string {
	if edge == graph.EdgeFollowers {
		return "edge_followed_by"
	}
	return "edge_follow"
}

func queryHash(edge graph.EdgeType) string {
	if edge == graph.EdgeFollowers {
		return queryHashFollowers
	}
	return queryHashFollowing
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type edgeNode struct {
	Node struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		FullName string `json:"full_name"`
	} `json:"node"`
}

type edgeConnection struct {
	Edges    []edgeNode `json:"edges"`
	PageInfo pageInfo   `json:"page_info"`
}

type listResponse struct {
	Data struct {
		User map[string]edgeConnection `json:"user"`
	} `json:"data"`
}

// ListEdge requests one page of an edge connection. Transport failures come
// back as *graph.TransportError, unexpected statuses or response shapes as
// *graph.ProtocolError.
func (c *Client) ListEdge(ctx context.Context, subjectID string, edge graph.EdgeType, cursor graph.Cursor) (*graph.Page, error) {
	variables := map[string]any{
		"id":           subjectID,
		"include_reel": true,
		"fetch_mutual": false,
		"first":        c.pageSize(),
	}
	if cursor != "" {
		variables["after"] = string(cursor)
	}
	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("encoding query variables: %w", err)
	}

	params := url.Values{}
	params.Set("query_hash", queryHash(edge))
	params.Set("variables", string(varsJSON))
	uri := c.host() + "/graphql/query/?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.getClient().Do(req)
	if err != nil {
		return nil, &graph.TransportError{Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &graph.ProtocolError{
			StatusCode: resp.StatusCode,
			Wrapped:    fmt.Errorf("unexpected status listing %s", edge),
		}
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &graph.ProtocolError{Wrapped: fmt.Errorf("decoding edge listing: %w", err)}
	}
	conn, ok := body.Data.User[edgeName(edge)]
	if !ok {
		return nil, &graph.ProtocolError{Wrapped: fmt.Errorf("response missing %q connection", edgeName(edge))}
	}

	page := &graph.Page{
		NextCursor: graph.Cursor(conn.PageInfo.EndCursor),
		HasMore:    conn.PageInfo.HasNextPage,
	}
	for _, e := range conn.Edges {
		page.Entities = append(page.Entities, graph.Entity{
			ID:          e.Node.ID,
			Username:    e.Node.Username,
			DisplayName: e.Node.FullName,
		})
	}
	return page, nil
}

type mutateResponse struct {
	Status string `json:"status"`
}

// MutateEdge applies an unfollow to the target. Ordinary remote rejection
// (non-2xx) is reported as Succeeded=false with the status as diagnostic;
// only transport failures are errors.
func (c *Client) MutateEdge(ctx context.Context, targetID string, action graph.EdgeAction) (*graph.MutateResult, error) {
	if action != graph.ActionUnfollow {
		return nil, fmt.Errorf("unsupported edge action: %s", action)
	}

	uri := fmt.Sprintf("%s/web/friendships/%s/unfollow/", c.host(), targetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uri, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.getClient().Do(req)
	if err != nil {
		return nil, &graph.TransportError{Wrapped: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &graph.MutateResult{
			Succeeded:  false,
			Diagnostic: fmt.Sprintf("unfollow rejected: %s", resp.Status),
		}, nil
	}

	var body mutateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Status != "" && body.Status != "ok" {
		return &graph.MutateResult{
			Succeeded:  false,
			Diagnostic: fmt.Sprintf("unfollow status %q", body.Status),
		}, nil
	}
	return &graph.MutateResult{Succeeded: true}, nil
}
