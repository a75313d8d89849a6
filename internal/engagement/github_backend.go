package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/promptreg/prompt-hub/internal/github"
	"github.com/promptreg/prompt-hub/internal/hub"
	"github.com/promptreg/prompt-hub/internal/storage"
)

// DiscussionMapping locates the GitHub discussion (and optionally a specific
// comment) that carries votes for one resource.
type DiscussionMapping struct {
	DiscussionNumber int
	CommentID        int64
}

// cachedVote remembers the last rating this process successfully synced for
// a resource, so reads can answer without a network round trip.
type cachedVote struct {
	direction string // "up" or "down"
	rating    storage.Rating
}

// GitHubDiscussionsBackend records ratings as GitHub discussion reactions
// and feedback as discussion comments. Every write also lands in an embedded
// FileBackend, so local durability never depends on GitHub availability:
// remote failure degrades the operation to local-only and reports that in
// the returned SubmitStatus instead of erroring.
type GitHubDiscussionsBackend struct {
	local  *FileBackend
	client *github.Client
	owner  string
	repo   string

	mu sync.Mutex
	// mappings is keyed "sourceID:bundleID", the collections.yaml key
	// shape. Ordered keys preserve first-registered-wins suffix matches.
	mappings    map[string]DiscussionMapping
	mappingKeys []string
	votes       map[string]*cachedVote
}

// NewGitHubDiscussionsBackend creates an uninitialized backend.
func NewGitHubDiscussionsBackend() *GitHubDiscussionsBackend {
	return &GitHubDiscussionsBackend{}
}

// Initialize validates the config, parses the owner/repo pair, and prepares
// the embedded local fallback backend.
func (b *GitHubDiscussionsBackend) Initialize(cfg BackendConfig) error {
	if err := validateType(cfg, BackendGitHubDiscussions); err != nil {
		return err
	}
	if cfg.StoragePath == "" {
		return fmt.Errorf("github-discussions backend requires storagePath")
	}

	owner, repo, ok := strings.Cut(cfg.Repository, "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid repository %q: expected owner/repo", cfg.Repository)
	}

	local := NewFileBackend()
	if err := local.Initialize(BackendConfig{
		Type:        BackendFile,
		Enabled:     true,
		StoragePath: cfg.StoragePath,
	}); err != nil {
		return err
	}

	b.local = local
	b.client = github.NewClient(cfg.Token)
	b.owner = owner
	b.repo = repo
	b.mappings = make(map[string]DiscussionMapping)
	b.votes = make(map[string]*cachedVote)
	return nil
}

// SetClient swaps the GitHub client. Used by tests to point at a stub API.
func (b *GitHubDiscussionsBackend) SetClient(c *github.Client) {
	b.client = c
}

// Dispose releases the local store. Idempotent.
func (b *GitHubDiscussionsBackend) Dispose() error {
	if b.local != nil {
		return b.local.Dispose()
	}
	return nil
}

func (b *GitHubDiscussionsBackend) ensureInitialized() error {
	if b.local == nil {
		return ErrNotInitialized
	}
	return nil
}

// LoadCollectionsMappings fetches a collections.yaml document and rebuilds
// the mapping table, keyed "source_id:id".
func (b *GitHubDiscussionsBackend) LoadCollectionsMappings(ctx context.Context, url string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}

	file, err := hub.FetchCollections(ctx, nil, url)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.mappings = make(map[string]DiscussionMapping, len(file.Collections))
	b.mappingKeys = b.mappingKeys[:0]
	for _, c := range file.Collections {
		key := c.SourceID + ":" + c.ID
		b.mappings[key] = DiscussionMapping{
			DiscussionNumber: c.DiscussionNumber,
			CommentID:        c.CommentID,
		}
		b.mappingKeys = append(b.mappingKeys, key)
	}
	return nil
}

// SetMapping registers one mapping directly.
func (b *GitHubDiscussionsBackend) SetMapping(key string, m DiscussionMapping) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mappings == nil {
		b.mappings = make(map[string]DiscussionMapping)
	}
	if _, exists := b.mappings[key]; !exists {
		b.mappingKeys = append(b.mappingKeys, key)
	}
	b.mappings[key] = m
}

// resolveMapping finds the discussion for a resource id: exact key match
// first, then a ":"+id suffix match so callers holding a bare bundle id
// still resolve against "sourceID:bundleID" keys. When several keys share
// the suffix, the first registered one wins.
func (b *GitHubDiscussionsBackend) resolveMapping(resourceID string) (DiscussionMapping, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if m, ok := b.mappings[resourceID]; ok {
		return m, true
	}
	suffix := ":" + resourceID
	for _, key := range b.mappingKeys {
		if strings.HasSuffix(key, suffix) {
			return b.mappings[key], true
		}
	}
	return DiscussionMapping{}, false
}

// reactionForScore collapses a 1-5 star score to a binary reaction: 3 and
// above vote up, below votes down.
func reactionForScore(score int) string {
	if score >= 3 {
		return github.ReactionUp
	}
	return github.ReactionDown
}

// SubmitRating writes the rating locally, then tries to mirror it to GitHub
// as a reaction: any existing reaction by the current user is removed first
// so at most one live reaction exists per user. Remote failure at any step
// degrades to local-only.
func (b *GitHubDiscussionsBackend) SubmitRating(ctx context.Context, rating storage.Rating) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}

	if _, err := b.local.SubmitRating(ctx, rating); err != nil {
		return SubmitStatus{}, err
	}

	if err := b.syncRating(ctx, rating); err != nil {
		slog.Warn("rating not synced to GitHub, kept locally",
			"resource", rating.ResourceID, "error", err)
		return SubmitStatus{RemoteError: err.Error()}, nil
	}

	b.mu.Lock()
	b.votes[rating.ResourceType+":"+rating.ResourceID] = &cachedVote{
		direction: directionForScore(rating.Score),
		rating:    rating,
	}
	b.mu.Unlock()
	return SubmitStatus{Synced: true}, nil
}

func directionForScore(score int) string {
	if score >= 3 {
		return "up"
	}
	return "down"
}

func (b *GitHubDiscussionsBackend) syncRating(ctx context.Context, rating storage.Rating) error {
	mapping, ok := b.resolveMapping(rating.ResourceID)
	if !ok {
		return fmt.Errorf("no discussion mapping for %s", rating.ResourceID)
	}

	login, err := b.client.CurrentUser(ctx)
	if err != nil {
		return err
	}

	existing, err := b.client.FindUserReaction(ctx, b.owner, b.repo, mapping.DiscussionNumber, mapping.CommentID, login)
	if err != nil {
		return err
	}
	if existing != nil {
		// Best effort: a reaction that vanished out from under us is
		// fine.
		if err := b.client.DeleteReaction(ctx, b.owner, b.repo, existing.ID); err != nil {
			slog.Warn("failed to remove previous reaction", "error", err)
		}
	}

	content := reactionForScore(rating.Score)
	if mapping.CommentID != 0 {
		return b.client.CreateCommentReaction(ctx, b.owner, b.repo, mapping.CommentID, content)
	}
	return b.client.CreateDiscussionReaction(ctx, b.owner, b.repo, mapping.DiscussionNumber, content)
}

// GetRating answers from the vote cache when it can, falling back to the
// local store. The cache is only written by successful submits and deletes,
// never invalidated on error.
func (b *GitHubDiscussionsBackend) GetRating(ctx context.Context, resourceType, resourceID string) (*storage.Rating, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	if v, ok := b.votes[resourceType+":"+resourceID]; ok {
		rating := v.rating
		b.mu.Unlock()
		return &rating, nil
	}
	b.mu.Unlock()

	return b.local.GetRating(ctx, resourceType, resourceID)
}

// DeleteRating removes the local rating and, best effort, the remote
// reaction.
func (b *GitHubDiscussionsBackend) DeleteRating(ctx context.Context, resourceType, resourceID string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}

	if err := b.local.DeleteRating(ctx, resourceType, resourceID); err != nil {
		return err
	}

	if mapping, ok := b.resolveMapping(resourceID); ok {
		if err := b.removeRemoteReaction(ctx, mapping); err != nil {
			slog.Warn("failed to remove remote reaction", "resource", resourceID, "error", err)
		} else {
			b.mu.Lock()
			delete(b.votes, resourceType+":"+resourceID)
			b.mu.Unlock()
		}
	}
	return nil
}

func (b *GitHubDiscussionsBackend) removeRemoteReaction(ctx context.Context, mapping DiscussionMapping) error {
	login, err := b.client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	existing, err := b.client.FindUserReaction(ctx, b.owner, b.repo, mapping.DiscussionNumber, mapping.CommentID, login)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}
	return b.client.DeleteReaction(ctx, b.owner, b.repo, existing.ID)
}

// GetAggregatedRatings delegates to the local store. Multi-user aggregation
// is published by hubs as precomputed documents, not computed here.
func (b *GitHubDiscussionsBackend) GetAggregatedRatings(ctx context.Context, resourceType, resourceID string) (*RatingStats, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.local.GetAggregatedRatings(ctx, resourceType, resourceID)
}

// SubmitFeedback writes the feedback locally and, when the resource maps to
// a discussion, posts it as a formatted comment via GraphQL. Comment failure
// is logged, never surfaced as an operation error.
func (b *GitHubDiscussionsBackend) SubmitFeedback(ctx context.Context, fb storage.Feedback) (SubmitStatus, error) {
	if err := b.ensureInitialized(); err != nil {
		return SubmitStatus{}, err
	}

	if _, err := b.local.SubmitFeedback(ctx, fb); err != nil {
		return SubmitStatus{}, err
	}

	mapping, ok := b.resolveMapping(fb.ResourceID)
	if !ok {
		return SubmitStatus{RemoteError: fmt.Sprintf("no discussion mapping for %s", fb.ResourceID)}, nil
	}

	if err := b.postFeedbackComment(ctx, mapping, fb); err != nil {
		slog.Warn("feedback not posted to GitHub, kept locally",
			"resource", fb.ResourceID, "error", err)
		return SubmitStatus{RemoteError: err.Error()}, nil
	}
	return SubmitStatus{Synced: true}, nil
}

func (b *GitHubDiscussionsBackend) postFeedbackComment(ctx context.Context, mapping DiscussionMapping, fb storage.Feedback) error {
	nodeID, err := b.client.DiscussionNodeID(ctx, b.owner, b.repo, mapping.DiscussionNumber)
	if err != nil {
		return err
	}
	return b.client.AddDiscussionComment(ctx, nodeID, formatFeedbackComment(fb))
}

// formatFeedbackComment renders a feedback entry as a discussion comment:
// star glyphs for the rating, the comment text, and a separated version
// footer when the version is known.
func formatFeedbackComment(fb storage.Feedback) string {
	var sb strings.Builder
	if fb.Rating > 0 {
		sb.WriteString(strings.Repeat("★", fb.Rating))
		sb.WriteString("\n\n")
	}
	sb.WriteString(fb.Comment)
	if fb.Version != "" {
		sb.WriteString("\n\n---\nVersion: ")
		sb.WriteString(fb.Version)
	}
	return sb.String()
}

func (b *GitHubDiscussionsBackend) GetFeedback(ctx context.Context, resourceType, resourceID string, limit int) ([]storage.Feedback, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.local.GetFeedback(ctx, resourceType, resourceID, limit)
}

// AllFeedback exposes the full local feedback store.
func (b *GitHubDiscussionsBackend) AllFeedback() ([]storage.Feedback, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.local.AllFeedback()
}

func (b *GitHubDiscussionsBackend) DeleteFeedback(ctx context.Context, id string) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.local.DeleteFeedback(ctx, id)
}

// Telemetry stays local: hubs never see raw events.

func (b *GitHubDiscussionsBackend) RecordTelemetry(ctx context.Context, event storage.TelemetryEvent) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.local.RecordTelemetry(ctx, event)
}

func (b *GitHubDiscussionsBackend) GetTelemetry(ctx context.Context, filter *storage.TelemetryFilter) ([]storage.TelemetryEvent, error) {
	if err := b.ensureInitialized(); err != nil {
		return nil, err
	}
	return b.local.GetTelemetry(ctx, filter)
}

func (b *GitHubDiscussionsBackend) ClearTelemetry(ctx context.Context, filter *storage.TelemetryFilter) error {
	if err := b.ensureInitialized(); err != nil {
		return err
	}
	return b.local.ClearTelemetry(ctx, filter)
}
