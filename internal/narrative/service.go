package narrative

import (
	"context"

	"github.com/jmhart/storyarc/internal/cluster"
	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/store"
)

// Service binds generation to persistence: accepted narratives become
// story rows, rejections are passed through untouched.
type Service struct {
	store  *store.Store
	engine *cluster.Engine
	gen    *Generator
}

// NewService wires the generation service.
func NewService(st *store.Store, engine *cluster.Engine, gen *Generator) *Service {
	return &Service{store: st, engine: engine, gen: gen}
}

// GenerateForCluster hydrates the cluster, runs the tier chain, and
// persists the narrative if it clears the gates. The returned story is
// nil when the outcome is a rejection.
func (s *Service) GenerateForCluster(ctx context.Context, userID, clusterID string, persona Persona, opts Options) (*Outcome, *store.Story, error) {
	hyd, err := s.engine.Hydrate(userID, clusterID)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := s.gen.Generate(ctx, hyd, persona, opts)
	if err != nil {
		return nil, nil, err
	}
	if !outcome.Accepted {
		return outcome, nil, nil
	}

	st := storyFromDraft(userID, hyd, outcome, opts)
	if err := s.store.InsertStory(st); err != nil {
		return nil, nil, err
	}
	return outcome, st, nil
}

// Regenerate re-runs generation for an existing story's cluster and, on
// acceptance, replaces the story's sections wholesale in a single update.
// A rejection leaves the stored story untouched. Concurrent regenerations
// of the same story are last-writer-wins; the single-statement replace
// means partial section writes cannot interleave.
func (s *Service) Regenerate(ctx context.Context, userID, storyID string, persona Persona, opts Options) (*Outcome, *store.Story, error) {
	existing, err := s.store.GetStory(userID, storyID)
	if err != nil {
		return nil, nil, err
	}

	if opts.Framework == "" {
		opts.Framework = framework.Framework(existing.Framework)
	}
	if opts.Archetype == "" {
		opts.Archetype = existing.Archetype
	}

	hyd, err := s.engine.Hydrate(userID, existing.ClusterID)
	if err != nil {
		return nil, nil, err
	}

	outcome, err := s.gen.Generate(ctx, hyd, persona, opts)
	if err != nil {
		return nil, nil, err
	}
	if !outcome.Accepted {
		return outcome, nil, nil
	}

	updated := storyFromDraft(userID, hyd, outcome, opts)
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.Published = existing.Published
	if err := s.store.ReplaceStoryContent(updated); err != nil {
		return nil, nil, err
	}
	return outcome, updated, nil
}

func storyFromDraft(userID string, hyd *cluster.Hydrated, outcome *Outcome, opts Options) *store.Story {
	d := outcome.Draft
	st := &store.Story{
		UserID:    userID,
		ClusterID: hyd.Cluster.ID,
		Framework: string(d.Framework),
		Title:     d.Title,
		Role:      d.Role,
		Archetype: opts.Archetype,
		Tier:      string(outcome.Tier),
		Sections:  d.Sections,
	}
	if hyd.Journal != nil {
		st.JournalID = hyd.Journal.ID
	}
	return st
}
