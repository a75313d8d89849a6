package hub

import (
	"context"
	"fmt"
	"strings"

	"github.com/promptreg/prompt-hub/internal/github"
)

// VoteAction reports what ToggleVote did.
type VoteAction string

const (
	VoteAdded   VoteAction = "added"
	VoteRemoved VoteAction = "removed"
	VoteChanged VoteAction = "changed"
)

// VoteService toggles reaction votes on discussions directly, independent of
// the engagement backend abstraction. Used for quick thumbs on hub threads.
type VoteService struct {
	client *github.Client
	owner  string
	repo   string
}

// NewVoteService creates a vote service for an "owner/repo" repository.
func NewVoteService(client *github.Client, repository string) (*VoteService, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return nil, fmt.Errorf("invalid repository %q: expected owner/repo", repository)
	}
	return &VoteService{client: client, owner: owner, repo: repo}, nil
}

// ToggleVote applies the three-way toggle for the current user's reaction on
// a discussion (or on a comment when commentID is non-zero):
//
//	no existing vote       -> add the reaction
//	same reaction exists   -> remove it
//	different reaction     -> remove it, then add the new one
func (s *VoteService) ToggleVote(ctx context.Context, discussionNumber int, commentID int64, content string) (VoteAction, error) {
	if content != github.ReactionUp && content != github.ReactionDown {
		return "", fmt.Errorf("unsupported reaction %q", content)
	}

	login, err := s.client.CurrentUser(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}

	existing, err := s.client.FindUserReaction(ctx, s.owner, s.repo, discussionNumber, commentID, login)
	if err != nil {
		return "", fmt.Errorf("failed to look up existing reaction: %w", err)
	}

	if existing != nil {
		if err := s.client.DeleteReaction(ctx, s.owner, s.repo, existing.ID); err != nil {
			return "", fmt.Errorf("failed to remove reaction: %w", err)
		}
		if existing.Content == content {
			return VoteRemoved, nil
		}
		if err := s.addReaction(ctx, discussionNumber, commentID, content); err != nil {
			return "", err
		}
		return VoteChanged, nil
	}

	if err := s.addReaction(ctx, discussionNumber, commentID, content); err != nil {
		return "", err
	}
	return VoteAdded, nil
}

func (s *VoteService) addReaction(ctx context.Context, discussionNumber int, commentID int64, content string) error {
	var err error
	if commentID != 0 {
		err = s.client.CreateCommentReaction(ctx, s.owner, s.repo, commentID, content)
	} else {
		err = s.client.CreateDiscussionReaction(ctx, s.owner, s.repo, discussionNumber, content)
	}
	if err != nil {
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}
