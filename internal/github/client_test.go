package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
)

func TestCurrentUserSendsAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != acceptHeader {
			t.Errorf("Accept = %q", got)
		}
		json.NewEncoder(w).Encode(User{Login: "tester"})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	login, err := c.CurrentUser(context.Background())
	if err != nil {
		t.Fatalf("CurrentUser failed: %v", err)
	}
	if login != "tester" {
		t.Errorf("login = %q", login)
	}
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	if _, err := c.CurrentUser(context.Background()); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("err = %v, want status in message", err)
	}
}

func TestFindUserReactionPaginates(t *testing.T) {
	// Two full pages of other users, the target on page 3.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		switch {
		case page < 3:
			reactions := make([]Reaction, ReactionsPerPage)
			for i := range reactions {
				reactions[i] = Reaction{
					ID:      int64(page*1000 + i),
					Content: ReactionUp,
					User:    User{Login: fmt.Sprintf("user-%d-%d", page, i)},
				}
			}
			json.NewEncoder(w).Encode(reactions)
		default:
			json.NewEncoder(w).Encode([]Reaction{
				{ID: 777, Content: ReactionDown, User: User{Login: "tester"}},
			})
		}
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	found, err := c.FindUserReaction(context.Background(), "o", "r", 1, 0, "tester")
	if err != nil {
		t.Fatalf("FindUserReaction failed: %v", err)
	}
	if found == nil || found.ID != 777 || found.Content != ReactionDown {
		t.Fatalf("found = %+v, want reaction 777", found)
	}
}

func TestFindUserReactionStopsAtShortPage(t *testing.T) {
	var pages int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pages++
		// One short page: no more pagination.
		json.NewEncoder(w).Encode([]Reaction{
			{ID: 1, Content: ReactionUp, User: User{Login: "someone-else"}},
		})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	found, err := c.FindUserReaction(context.Background(), "o", "r", 1, 0, "tester")
	if err != nil {
		t.Fatalf("FindUserReaction failed: %v", err)
	}
	if found != nil {
		t.Errorf("found = %+v, want nil", found)
	}
	if pages != 1 {
		t.Errorf("fetched %d pages, want 1", pages)
	}
}

func TestFindUserReactionUsesCommentEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		json.NewEncoder(w).Encode([]Reaction{})
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	if _, err := c.FindUserReaction(context.Background(), "o", "r", 1, 555, "tester"); err != nil {
		t.Fatalf("FindUserReaction failed: %v", err)
	}
	if path != "/repos/o/r/discussions/comments/555/reactions" {
		t.Errorf("path = %q, want the comment reactions endpoint", path)
	}
}

func TestDiscussionNodeID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["number"].(float64) != 42 {
			t.Errorf("variables = %v", req.Variables)
		}
		fmt.Fprint(w, `{"data":{"repository":{"discussion":{"id":"D_abc"}}}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	id, err := c.DiscussionNodeID(context.Background(), "o", "r", 42)
	if err != nil {
		t.Fatalf("DiscussionNodeID failed: %v", err)
	}
	if id != "D_abc" {
		t.Errorf("id = %q", id)
	}
}

func TestDiscussionNodeIDMissingDiscussion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"repository":{"discussion":null}}}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	if _, err := c.DiscussionNodeID(context.Background(), "o", "r", 42); err == nil {
		t.Fatal("expected error for missing discussion")
	}
}

func TestGraphQLErrorsPropagate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"errors":[{"message":"Could not resolve to a node"}]}`)
	}))
	defer srv.Close()

	c := NewClientWithBaseURL("tok", srv.URL)
	err := c.AddDiscussionComment(context.Background(), "D_abc", "hello")
	if err == nil || !strings.Contains(err.Error(), "Could not resolve") {
		t.Errorf("err = %v, want GraphQL message", err)
	}
}
