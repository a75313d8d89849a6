/*
Package hub fetches hub-published engagement documents: precomputed rating
and feedback aggregates, and the collections.yaml file mapping resources to
GitHub discussions.
*/
package hub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"gopkg.in/yaml.v3"
)

// fetchTimeout bounds every hub document fetch.
const fetchTimeout = 10 * time.Second

// Collection maps one bundle to its discussion thread.
type Collection struct {
	ID               string `yaml:"id"`
	SourceID         string `yaml:"source_id"`
	DiscussionNumber int    `yaml:"discussion_number"`
	CommentID        int64  `yaml:"comment_id,omitempty"`
}

// CollectionsFile is the shape of a hub's collections.yaml.
type CollectionsFile struct {
	Repository  string       `yaml:"repository"`
	Collections []Collection `yaml:"collections"`
}

// FetchCollections downloads and parses a collections.yaml document. The
// error message distinguishes HTTP failure from YAML parse failure so
// operators can tell a dead URL from a malformed document.
func FetchCollections(ctx context.Context, client *http.Client, url string) (*CollectionsFile, error) {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load collections mapping: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch collections mapping: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch collections mapping: status %d from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read collections mapping: %w", err)
	}

	var file CollectionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse collections mapping YAML: %w", err)
	}
	return &file, nil
}
