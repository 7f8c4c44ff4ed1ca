package store

import "time"

// Activity is one externally-sourced unit of work: a commit, ticket,
// document, or message pulled from an external tool. Immutable after
// ingestion except for its cluster assignment.
type Activity struct {
	ID          string
	UserID      string
	Source      string // tool tag: "github", "jira", "slack", "docs", ...
	SourceID    string // source-native id
	URL         string
	Title       string
	Description string
	OccurredAt  time.Time
	Refs        []string       // normalized cross-tool references
	Payload     map[string]any // opaque raw payload, optional
	ClusterID   *string
	CreatedAt   time.Time
}

// Cluster groups activities believed to represent one unit of work.
// Membership lives on the activities' cluster_id column.
type Cluster struct {
	ID        string
	UserID    string
	Name      string
	CreatedAt time.Time
}

// Phase is one structured step inside a journal entry.
type Phase struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// JournalEntry carries the user's free-text notes and structured phase
// data for a cluster. Its presence is what qualifies a cluster for
// model-tier narrative generation.
type JournalEntry struct {
	ID        string
	UserID    string
	ClusterID string
	Notes     string
	Phases    []Phase
	UpdatedAt time.Time
}

// Evidence links a narrative section claim to a supporting activity.
type Evidence struct {
	ActivityID  string `json:"activity_id"`
	Description string `json:"description,omitempty"`
}

// Section is one framework section of a story: a summary plus the
// evidence backing it. A section may carry zero evidence (a user-stated
// claim).
type Section struct {
	Key      string     `json:"key"`
	Summary  string     `json:"summary"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

// Story is a generated narrative. Sections are replaced wholesale on
// regeneration, never patched incrementally. Verifications is reserved
// for future claim-checking and always empty today.
type Story struct {
	ID            string
	UserID        string
	ClusterID     string
	JournalID     string
	Framework     string
	Title         string
	Role          string
	Archetype     string
	Tier          string // generation tier that produced the sections
	Published     bool
	Sections      []Section
	Verifications []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StorySnapshot preserves a source story's display metadata inside a
// derivation so the artifact stays meaningful after the story is deleted.
type StorySnapshot struct {
	StoryID   string `json:"story_id"`
	Title     string `json:"title"`
	Framework string `json:"framework"`
	Archetype string `json:"archetype,omitempty"`
	Sections  int    `json:"sections"`
}

// Derivation is an audience-specific rendering of one or more stories.
// Immutable once created, except for deletion.
type Derivation struct {
	ID           string
	UserID       string
	Kind         string // "single" or "packet"
	Type         string // "interview_answer", "promotion_packet", ...
	StoryIDs     []string
	Snapshots    []StorySnapshot
	Content      string
	Tone         string
	CustomPrompt string
	CharCount    int
	WordCount    int
	SpeakSeconds int
	CreditCost   int
	CreatedAt    time.Time
}
