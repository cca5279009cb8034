// Package pageindex builds a table-of-contents tree for a PDF document.
//
// The Engine tries the document outline first (bookmarks embedded in the PDF),
// then, when an LLM client is configured, asks the model to infer the contents
// from the text of the leading pages. When neither yields entries the whole
// document is reported as a single node.
package pageindex

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPages is returned for a PDF that parses but has no pages.
	ErrNoPages = errors.New("pdf has no pages")

	// ErrLLMNotConfigured is returned when llm mode is requested without a client.
	ErrLLMNotConfigured = errors.New("llm extraction requested but no llm client is configured")
)

// Node is one entry of the table-of-contents tree.
// Pages are 1-indexed physical page numbers.
type Node struct {
	Structure string  `json:"structure,omitempty" yaml:"structure,omitempty"`
	Title     string  `json:"title" yaml:"title"`
	Page      int     `json:"page" yaml:"page"`
	EndPage   int     `json:"end_page,omitempty" yaml:"end_page,omitempty"`
	NodeID    string  `json:"node_id,omitempty" yaml:"node_id,omitempty"`
	Children  []*Node `json:"nodes,omitempty" yaml:"nodes,omitempty"`
}

// Walk traverses the tree in depth-first order, calling fn for each node.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// Clone creates a deep copy of the node.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := *n
	if n.Children != nil {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}
	return &clone
}

// Flatten returns all nodes of the forest in preorder.
func Flatten(nodes []*Node) []*Node {
	var out []*Node
	for _, n := range nodes {
		n.Walk(func(node *Node) {
			out = append(out, node)
		})
	}
	return out
}

// WriteNodeIDs assigns sequential zero-padded IDs in preorder and returns the count.
func WriteNodeIDs(nodes []*Node) int {
	counter := 0
	for _, n := range Flatten(nodes) {
		n.NodeID = fmt.Sprintf("%04d", counter)
		counter++
	}
	return counter
}

// TOCItem is a flat table-of-contents entry before tree construction.
// Structure is a dotted hierarchy code such as "1.2.3".
type TOCItem struct {
	Structure string `json:"structure"`
	Title     string `json:"title"`
	Page      int    `json:"page"`
}

// Page holds the extracted text of one physical page.
type Page struct {
	Number int
	Text   string
}
