package document_test

import (
	"testing"

	"github.com/alnah/go-enex2all/internal/document"
)

func TestWalkVisitsDepthFirst(t *testing.T) {
	t.Parallel()

	doc := &document.Document{Nodes: []*document.Node{
		{Kind: document.KindElement, Tag: "div", Children: []*document.Node{
			{Kind: document.KindText, Text: "a"},
			{Kind: document.KindElement, Tag: "b", Children: []*document.Node{
				{Kind: document.KindText, Text: "b"},
			}},
		}},
		{Kind: document.KindText, Text: "c"},
	}}

	var visited []string
	doc.Walk(func(n *document.Node) bool {
		if n.Kind == document.KindText {
			visited = append(visited, n.Text)
		}
		return true
	})
	if len(visited) != 3 || visited[0] != "a" || visited[1] != "b" || visited[2] != "c" {
		t.Errorf("visited = %v, want [a b c]", visited)
	}
}

func TestWalkSkipsChildrenOnFalse(t *testing.T) {
	t.Parallel()

	doc := &document.Document{Nodes: []*document.Node{
		{Kind: document.KindElement, Tag: "div", Children: []*document.Node{
			{Kind: document.KindText, Text: "hidden"},
		}},
	}}

	count := 0
	doc.Walk(func(n *document.Node) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("visited %d nodes, want 1", count)
	}
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		node *document.Node
		want string
	}{
		{
			name: "nested text",
			node: &document.Node{Kind: document.KindElement, Tag: "p", Children: []*document.Node{
				{Kind: document.KindText, Text: "hello "},
				{Kind: document.KindElement, Tag: "b", Children: []*document.Node{
					{Kind: document.KindText, Text: "world"},
				}},
			}},
			want: "hello world",
		},
		{
			name: "checkbox states",
			node: &document.Node{Kind: document.KindFragment, Children: []*document.Node{
				{Kind: document.KindCheckbox, Checked: true},
				{Kind: document.KindText, Text: " buy milk"},
			}},
			want: "[x] buy milk",
		},
		{
			name: "image alt and link label",
			node: &document.Node{Kind: document.KindFragment, Children: []*document.Node{
				{Kind: document.KindImage, Alt: "cat"},
				{Kind: document.KindLink, Label: "doc.pdf"},
			}},
			want: "catdoc.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.PlainText(); got != tt.want {
				t.Errorf("PlainText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasMergedCells(t *testing.T) {
	t.Parallel()

	plain := &document.Node{Kind: document.KindTable, Children: []*document.Node{
		{Kind: document.KindTableRow, Children: []*document.Node{
			{Kind: document.KindTableCell, ColSpan: 1, RowSpan: 1},
		}},
	}}
	if plain.HasMergedCells() {
		t.Error("HasMergedCells() = true for a plain table")
	}

	merged := &document.Node{Kind: document.KindTable, Children: []*document.Node{
		{Kind: document.KindTableRow, Children: []*document.Node{
			{Kind: document.KindTableCell, ColSpan: 2, RowSpan: 1},
		}},
	}}
	if !merged.HasMergedCells() {
		t.Error("HasMergedCells() = false for a colspan table")
	}
}
