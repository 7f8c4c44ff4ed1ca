package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmhart/storyarc/internal/framework"
	"github.com/jmhart/storyarc/internal/store"
)

// templateTier is the floor of the fallback chain: section placeholders
// built from nothing but the framework's section names and basic cluster
// metrics. It always succeeds for a non-empty cluster, so generation
// never dead-ends, though its output rarely clears the evidence gate
// without the user filling the placeholders in.
type templateTier struct{}

func (t *templateTier) Tier() Tier { return TierTemplate }

func (t *templateTier) Attempt(_ context.Context, req *Request) (*Draft, error) {
	hyd := req.Hydrated
	if hyd.Size() == 0 {
		return nil, nil
	}

	metrics := fmt.Sprintf("%d activities across %s, %s to %s",
		hyd.Size(), strings.Join(hyd.Tools, ", "),
		hyd.Start.Format("Jan 2"), hyd.End.Format("Jan 2, 2006"))

	title := hyd.Cluster.Name
	if title == "" {
		title = "Untitled story"
	}

	draft := &Draft{
		Title:     title,
		Role:      req.Persona.Role,
		Framework: req.Options.Framework,
	}

	for _, schema := range framework.Sections(req.Options.Framework) {
		draft.Sections = append(draft.Sections, store.Section{
			Key:     schema.Key,
			Summary: fmt.Sprintf("[%s: describe this part of the work (%s)]", schema.Label, metrics),
		})
	}

	return draft, nil
}
