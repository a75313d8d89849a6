/*
Package storage provides data models for locally persisted engagement records.

These models represent telemetry events, ratings, and feedback captured while
users interact with bundles, profiles, and hubs.
*/
package storage

// Resource types that engagement records can attach to.
const (
	ResourceBundle  = "bundle"
	ResourceProfile = "profile"
	ResourceHub     = "hub"
)

// Telemetry event types.
const (
	EventBundleInstall   = "bundle_install"
	EventBundleUninstall = "bundle_uninstall"
	EventBundleUpdate    = "bundle_update"
	EventBundleView      = "bundle_view"
	EventBundleSearch    = "bundle_search"
	EventProfileApply    = "profile_apply"
	EventProfileView     = "profile_view"
	EventHubAdd          = "hub_add"
	EventHubRemove       = "hub_remove"
	EventFeedbackSubmit  = "feedback_submit"
)

// TelemetryEvent represents a single user or system action.
//
// Events are append-only: they are never mutated after creation and are
// removed only by bulk clears or cap trimming.
type TelemetryEvent struct {
	// ID is a caller-generated unique identifier (UUID).
	ID string `json:"id"`

	// Timestamp is the event time as an RFC3339 UTC string. All range
	// filtering compares these strings lexically, which matches
	// chronological order as long as formatting stays consistent.
	Timestamp string `json:"timestamp"`

	// EventType is one of the Event* constants.
	EventType string `json:"eventType"`

	// ResourceType is one of the Resource* constants.
	ResourceType string `json:"resourceType"`

	// ResourceID identifies the bundle/profile/hub acted on.
	ResourceID string `json:"resourceId"`

	// Version is the resource version at event time, if known.
	Version string `json:"version,omitempty"`

	// Metadata carries optional event-specific details.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Rating is a 1-5 star rating for a resource. At most one rating exists per
// (ResourceType, ResourceID) pair; a new submission replaces the old one.
type Rating struct {
	ID           string `json:"id"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Score        int    `json:"score"`
	Timestamp    string `json:"timestamp"`
	Version      string `json:"version,omitempty"`
}

// Feedback is a free-text comment on a resource, optionally paired with a
// star rating. Feedback is append-only per resource.
type Feedback struct {
	ID           string `json:"id"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
	Comment      string `json:"comment"`
	Timestamp    string `json:"timestamp"`
	Version      string `json:"version,omitempty"`
	Rating       int    `json:"rating,omitempty"`
}

// TelemetryFilter narrows telemetry queries. All set predicates apply
// conjunctively.
type TelemetryFilter struct {
	// EventTypes restricts to events whose type is in the list.
	EventTypes []string

	// ResourceTypes restricts to events whose resource type is in the list.
	ResourceTypes []string

	// ResourceID restricts to events for exactly this resource.
	ResourceID string

	// StartDate and EndDate bound timestamps inclusively, compared as
	// RFC3339 strings.
	StartDate string
	EndDate   string

	// Limit keeps only the most recent N events after other predicates.
	Limit int
}
