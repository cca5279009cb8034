package pageindex

import (
	"testing"
)

func TestListToTree(t *testing.T) {
	items := []TOCItem{
		{Structure: "1", Title: "Intro", Page: 1},
		{Structure: "1.1", Title: "Background", Page: 2},
		{Structure: "1.2", Title: "Scope", Page: 3},
		{Structure: "2", Title: "Methods", Page: 5},
		{Structure: "2.1.1", Title: "Orphan", Page: 6},
	}

	roots := ListToTree(items)
	if len(roots) != 3 {
		t.Fatalf("got %d roots, want 3", len(roots))
	}
	if roots[0].Title != "Intro" || len(roots[0].Children) != 2 {
		t.Errorf("first root = %q with %d children", roots[0].Title, len(roots[0].Children))
	}
	if roots[0].Children[1].Title != "Scope" {
		t.Errorf("second child = %q, want Scope", roots[0].Children[1].Title)
	}
	if roots[2].Title != "Orphan" {
		t.Errorf("orphan should become a root, got %q", roots[2].Title)
	}
}

func TestListToTreeEmpty(t *testing.T) {
	if got := ListToTree(nil); got != nil {
		t.Errorf("ListToTree(nil) = %v, want nil", got)
	}
}

func TestRenumber(t *testing.T) {
	nodes := []*Node{
		{Title: "A", Children: []*Node{{Title: "A1"}, {Title: "A2", Children: []*Node{{Title: "A2a"}}}}},
		{Title: "B"},
	}
	Renumber(nodes)

	want := map[string]string{"A": "1", "A1": "1.1", "A2": "1.2", "A2a": "1.2.1", "B": "2"}
	for _, n := range Flatten(nodes) {
		if n.Structure != want[n.Title] {
			t.Errorf("%s: structure = %q, want %q", n.Title, n.Structure, want[n.Title])
		}
	}
}

func TestAssignEndPages(t *testing.T) {
	tests := []struct {
		name     string
		nodes    []*Node
		lastPage int
		want     map[string]int
	}{
		{
			name: "siblings and children",
			nodes: []*Node{
				{Title: "A", Page: 1, Children: []*Node{{Title: "A1", Page: 1}, {Title: "A2", Page: 3}}},
				{Title: "B", Page: 6},
			},
			lastPage: 10,
			want:     map[string]int{"A": 5, "A1": 2, "A2": 5, "B": 10},
		},
		{
			name: "same start page",
			nodes: []*Node{
				{Title: "A", Page: 4},
				{Title: "B", Page: 4},
			},
			lastPage: 9,
			want:     map[string]int{"A": 4, "B": 9},
		},
		{
			name:     "last page before start",
			nodes:    []*Node{{Title: "A", Page: 7}},
			lastPage: 3,
			want:     map[string]int{"A": 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			AssignEndPages(tt.nodes, tt.lastPage)
			for _, n := range Flatten(tt.nodes) {
				if n.EndPage != tt.want[n.Title] {
					t.Errorf("%s: end_page = %d, want %d", n.Title, n.EndPage, tt.want[n.Title])
				}
			}
		})
	}
}

func TestTruncateDepth(t *testing.T) {
	nodes := []*Node{
		{Title: "A", Children: []*Node{{Title: "A1", Children: []*Node{{Title: "A1a"}}}}},
	}

	TruncateDepth(nodes, 0)
	if len(Flatten(nodes)) != 3 {
		t.Fatalf("max depth 0 should keep every node")
	}

	TruncateDepth(nodes, 2)
	if got := len(Flatten(nodes)); got != 2 {
		t.Errorf("after depth 2, got %d nodes, want 2", got)
	}

	TruncateDepth(nodes, 1)
	if nodes[0].Children != nil {
		t.Errorf("after depth 1, root still has children")
	}
}

func TestWriteNodeIDs(t *testing.T) {
	nodes := []*Node{
		{Title: "A", Children: []*Node{{Title: "A1"}}},
		{Title: "B"},
	}

	if n := WriteNodeIDs(nodes); n != 3 {
		t.Fatalf("WriteNodeIDs() = %d, want 3", n)
	}
	want := map[string]string{"A": "0000", "A1": "0001", "B": "0002"}
	for _, n := range Flatten(nodes) {
		if n.NodeID != want[n.Title] {
			t.Errorf("%s: node_id = %q, want %q", n.Title, n.NodeID, want[n.Title])
		}
	}
}

func TestNodeClone(t *testing.T) {
	orig := &Node{Title: "A", Children: []*Node{{Title: "A1"}}}
	clone := orig.Clone()
	clone.Children[0].Title = "changed"

	if orig.Children[0].Title != "A1" {
		t.Errorf("clone shares children with original")
	}
}
