/*
Package github is a minimal GitHub API client covering the calls the
engagement backends need: reaction CRUD on discussions and discussion
comments over REST, and discussion comment creation over GraphQL.
*/
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 10 * time.Second
	acceptHeader   = "application/vnd.github.v3+json"

	// ReactionsPerPage is the REST page size for reaction listings.
	ReactionsPerPage = 100

	// MaxReactionPages caps pagination when scanning for a user's
	// reaction, bounding worst-case traffic on heavily reacted threads.
	MaxReactionPages = 100
)

// Reaction contents used for voting.
const (
	ReactionUp   = "+1"
	ReactionDown = "-1"
)

// Client talks to the GitHub REST and GraphQL APIs with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client authenticated with token.
func NewClient(token string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithBaseURL creates a client against a non-default API root.
// Used by tests.
func NewClientWithBaseURL(token, baseURL string) *Client {
	c := NewClient(token)
	c.baseURL = baseURL
	return c
}

// User is the authenticated user's identity.
type User struct {
	Login string `json:"login"`
}

// Reaction is an emoji reaction on a discussion or comment.
type Reaction struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	User    User   `json:"user"`
}

func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GitHub API returned status %d", resp.StatusCode)
	}

	if out != nil {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// CurrentUser returns the authenticated user's login.
func (c *Client) CurrentUser(ctx context.Context) (string, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/user", nil, &user); err != nil {
		return "", err
	}
	return user.Login, nil
}

// ListDiscussionReactions returns one page of reactions on a discussion.
func (c *Client) ListDiscussionReactions(ctx context.Context, owner, repo string, number, page int) ([]Reaction, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/discussions/%d/reactions?per_page=%d&page=%d",
		c.baseURL, owner, repo, number, ReactionsPerPage, page)
	var reactions []Reaction
	if err := c.do(ctx, http.MethodGet, url, nil, &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}

// ListCommentReactions returns one page of reactions on a discussion comment.
func (c *Client) ListCommentReactions(ctx context.Context, owner, repo string, commentID int64, page int) ([]Reaction, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/discussions/comments/%d/reactions?per_page=%d&page=%d",
		c.baseURL, owner, repo, commentID, ReactionsPerPage, page)
	var reactions []Reaction
	if err := c.do(ctx, http.MethodGet, url, nil, &reactions); err != nil {
		return nil, err
	}
	return reactions, nil
}

// CreateDiscussionReaction adds a reaction to a discussion.
func (c *Client) CreateDiscussionReaction(ctx context.Context, owner, repo string, number int, content string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/discussions/%d/reactions", c.baseURL, owner, repo, number)
	return c.do(ctx, http.MethodPost, url, map[string]string{"content": content}, nil)
}

// CreateCommentReaction adds a reaction to a discussion comment.
func (c *Client) CreateCommentReaction(ctx context.Context, owner, repo string, commentID int64, content string) error {
	url := fmt.Sprintf("%s/repos/%s/%s/discussions/comments/%d/reactions", c.baseURL, owner, repo, commentID)
	return c.do(ctx, http.MethodPost, url, map[string]string{"content": content}, nil)
}

// DeleteReaction removes a reaction by id.
func (c *Client) DeleteReaction(ctx context.Context, owner, repo string, reactionID int64) error {
	url := fmt.Sprintf("%s/repos/%s/%s/reactions/%d", c.baseURL, owner, repo, reactionID)
	return c.do(ctx, http.MethodDelete, url, nil, nil)
}

// FindUserReaction scans reactions on a discussion (or, when commentID is
// non-zero, on that comment) for one left by login. Pagination stops at
// MaxReactionPages or the first short page.
func (c *Client) FindUserReaction(ctx context.Context, owner, repo string, number int, commentID int64, login string) (*Reaction, error) {
	for page := 1; page <= MaxReactionPages; page++ {
		var (
			reactions []Reaction
			err       error
		)
		if commentID != 0 {
			reactions, err = c.ListCommentReactions(ctx, owner, repo, commentID, page)
		} else {
			reactions, err = c.ListDiscussionReactions(ctx, owner, repo, number, page)
		}
		if err != nil {
			return nil, err
		}
		for _, r := range reactions {
			if r.User.Login == login {
				found := r
				return &found, nil
			}
		}
		if len(reactions) < ReactionsPerPage {
			break
		}
	}
	return nil, nil
}
