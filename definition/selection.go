package definition

import (
	"fmt"
	"slices"
	"strings"

	"github.com/unlearnai/dagster/dag"
	"github.com/unlearnai/dagster/errors"
)

// Selection splits a job's top-level nodes into the ones a run executes
// and the ones it ignores. Ignored nodes still accept config.
type Selection struct {
	Selected []string
	Ignored  []string
}

// IsSubset reports whether any node is ignored.
func (s *Selection) IsSubset() bool { return s != nil && len(s.Ignored) > 0 }

// IsSelected reports whether the top-level node is part of the run.
func (s *Selection) IsSelected(name string) bool {
	return s == nil || slices.Contains(s.Selected, name)
}

// String renders the selected names, comma separated.
func (s *Selection) String() string {
	if s == nil {
		return "*"
	}
	return strings.Join(s.Selected, ",")
}

// SelectNodes resolves selection queries against the top-level nodes of g.
// A query is a node name optionally prefixed and suffixed by "*" (every
// ancestor or descendant) or a run of "+" (that many levels). An empty
// query list selects every node.
func SelectNodes(g *GraphDefinition, queries []string) (*Selection, error) {
	names := g.NodeNames()
	if len(queries) == 0 {
		return &Selection{Selected: names}, nil
	}

	nodeGraph := g.Dependencies().Graph(names)
	chosen := make(map[string]bool)
	for _, raw := range queries {
		q := strings.TrimSpace(raw)
		if q == "" {
			continue
		}
		up, name, down := parseSelectionQuery(q)
		if _, ok := g.Node(name); !ok {
			return nil, errors.InvalidInput("select",
				fmt.Sprintf("no node named %q in graph %q (query %q)", name, g.Name(), raw)).
				WithDetail("query", raw)
		}
		chosen[name] = true
		if up != 0 {
			ancestors, err := dag.Ancestors(nodeGraph, up, name)
			if err != nil {
				return nil, errors.Internal(err)
			}
			for _, n := range ancestors {
				chosen[n] = true
			}
		}
		if down != 0 {
			descendants, err := dag.Descendants(nodeGraph, down, name)
			if err != nil {
				return nil, errors.Internal(err)
			}
			for _, n := range descendants {
				chosen[n] = true
			}
		}
	}

	s := &Selection{}
	for _, n := range names {
		if chosen[n] {
			s.Selected = append(s.Selected, n)
		} else {
			s.Ignored = append(s.Ignored, n)
		}
	}
	if len(s.Selected) == 0 {
		return nil, errors.InvalidInput("select", "selection matched no nodes")
	}
	return s, nil
}

// parseSelectionQuery returns the upstream depth, the node name and the
// downstream depth of a query. -1 means unlimited.
func parseSelectionQuery(q string) (int, string, int) {
	up, down := 0, 0
	switch {
	case strings.HasPrefix(q, "*"):
		up, q = -1, q[1:]
	default:
		trimmed := strings.TrimLeft(q, "+")
		up, q = len(q)-len(trimmed), trimmed
	}
	switch {
	case strings.HasSuffix(q, "*"):
		down, q = -1, q[:len(q)-1]
	default:
		trimmed := strings.TrimRight(q, "+")
		down, q = len(q)-len(trimmed), trimmed
	}
	return up, q, down
}
