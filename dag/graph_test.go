package dag

import (
	"errors"
	"slices"
	"testing"
)

func diamond() *Graph {
	g := NewGraph("load", "extract", "clean", "enrich")
	g.AddEdge("extract", "clean")
	g.AddEdge("extract", "enrich")
	g.AddEdge("clean", "load")
	g.AddEdge("enrich", "load")
	return g
}

func TestBuildLevels_Diamond(t *testing.T) {
	levels, err := BuildLevels(diamond())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][]string{{"extract"}, {"clean", "enrich"}, {"load"}}
	if len(levels) != len(want) {
		t.Fatalf("expected %d levels, got %v", len(want), levels)
	}
	for i := range want {
		if !slices.Equal(levels[i], want[i]) {
			t.Errorf("level %d = %v, want %v", i, levels[i], want[i])
		}
	}
}

func TestBuildLevels_Deterministic(t *testing.T) {
	g := NewGraph("c", "a", "b")
	for range 10 {
		levels, err := BuildLevels(g)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(levels[0], []string{"a", "b", "c"}) {
			t.Fatalf("expected sorted level, got %v", levels[0])
		}
	}
}

func TestBuildLevels_Empty(t *testing.T) {
	levels, err := BuildLevels(NewGraph())
	if err != nil || len(levels) != 0 {
		t.Errorf("expected no levels, got %v (%v)", levels, err)
	}
}

func TestBuildLevels_Cycle(t *testing.T) {
	g := NewGraph("a", "b", "c", "d")
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")
	g.AddEdge("d", "a")

	_, err := BuildLevels(g)
	var cycleErr *CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("expected CycleError, got %v", err)
	}
	if !slices.Equal(cycleErr.Path, []string{"a", "b", "c", "a"}) {
		t.Errorf("cycle path = %v", cycleErr.Path)
	}
}

func TestBuildLevels_UnknownNode(t *testing.T) {
	g := NewGraph("a")
	g.AddEdge("a", "ghost")
	_, err := BuildLevels(g)
	var unknown *UnknownNodeError
	if !errors.As(err, &unknown) || unknown.Node != "ghost" {
		t.Fatalf("expected UnknownNodeError for ghost, got %v", err)
	}
}

func TestTopologicalOrder(t *testing.T) {
	order, err := TopologicalOrder(diamond())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"extract", "clean", "enrich", "load"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestFindCycle_Acyclic(t *testing.T) {
	if cycle := FindCycle(diamond()); cycle != nil {
		t.Errorf("expected no cycle, got %v", cycle)
	}
	self := NewGraph("a")
	self.AddEdge("a", "a")
	if cycle := FindCycle(self); !slices.Equal(cycle, []string{"a", "a"}) {
		t.Errorf("self loop = %v", cycle)
	}
}

func TestAncestorsDescendants(t *testing.T) {
	g := diamond()
	tests := []struct {
		name  string
		fn    func(*Graph, int, ...string) ([]string, error)
		depth int
		from  []string
		want  []string
	}{
		{"all ancestors", Ancestors, -1, []string{"load"}, []string{"clean", "enrich", "extract"}},
		{"one hop ancestors", Ancestors, 1, []string{"load"}, []string{"clean", "enrich"}},
		{"all descendants", Descendants, -1, []string{"extract"}, []string{"clean", "enrich", "load"}},
		{"zero depth", Descendants, 0, []string{"extract"}, []string{}},
		{"leaf has no descendants", Descendants, -1, []string{"load"}, []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.fn(g, tc.depth, tc.from...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}
