package github

import (
	"context"
	"fmt"
	"net/http"
)

// graphqlRequest is the wire shape of a GraphQL POST.
type graphqlRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// graphqlError is a single error entry in a GraphQL response.
type graphqlError struct {
	Message string `json:"message"`
}

const discussionNodeIDQuery = `
query($owner: String!, $repo: String!, $number: Int!) {
  repository(owner: $owner, name: $repo) {
    discussion(number: $number) {
      id
    }
  }
}`

const addDiscussionCommentMutation = `
mutation($discussionId: ID!, $body: String!) {
  addDiscussionComment(input: {discussionId: $discussionId, body: $body}) {
    comment {
      id
    }
  }
}`

func (c *Client) graphql(ctx context.Context, query string, variables map[string]interface{}, data interface{}) error {
	payload := graphqlRequest{Query: query, Variables: variables}
	var envelope struct {
		Data   interface{}    `json:"data"`
		Errors []graphqlError `json:"errors"`
	}
	envelope.Data = data

	if err := c.do(ctx, http.MethodPost, c.baseURL+"/graphql", payload, &envelope); err != nil {
		return err
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("GraphQL error: %s", envelope.Errors[0].Message)
	}
	return nil
}

// DiscussionNodeID resolves a discussion's opaque GraphQL node id from its
// number.
func (c *Client) DiscussionNodeID(ctx context.Context, owner, repo string, number int) (string, error) {
	var data struct {
		Repository struct {
			Discussion struct {
				ID string `json:"id"`
			} `json:"discussion"`
		} `json:"repository"`
	}
	err := c.graphql(ctx, discussionNodeIDQuery, map[string]interface{}{
		"owner":  owner,
		"repo":   repo,
		"number": number,
	}, &data)
	if err != nil {
		return "", err
	}
	if data.Repository.Discussion.ID == "" {
		return "", fmt.Errorf("discussion %d not found in %s/%s", number, owner, repo)
	}
	return data.Repository.Discussion.ID, nil
}

// AddDiscussionComment posts a comment on a discussion identified by its
// GraphQL node id.
func (c *Client) AddDiscussionComment(ctx context.Context, discussionNodeID, body string) error {
	var data struct {
		AddDiscussionComment struct {
			Comment struct {
				ID string `json:"id"`
			} `json:"comment"`
		} `json:"addDiscussionComment"`
	}
	return c.graphql(ctx, addDiscussionCommentMutation, map[string]interface{}{
		"discussionId": discussionNodeID,
		"body":         body,
	}, &data)
}
