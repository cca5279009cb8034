package pageindex

import (
	"strconv"
	"strings"
)

// ListToTree converts flat TOC items into a tree using their structure codes.
// An item whose parent code has not been seen yet becomes a root.
func ListToTree(items []TOCItem) []*Node {
	if len(items) == 0 {
		return nil
	}

	byCode := make(map[string]*Node)
	var roots []*Node

	for _, item := range items {
		node := &Node{
			Structure: item.Structure,
			Title:     item.Title,
			Page:      item.Page,
		}

		if item.Structure == "" || item.Structure == "0" {
			roots = append(roots, node)
			continue
		}
		byCode[item.Structure] = node

		parentCode := parentStructure(item.Structure)
		if parentCode == "" {
			roots = append(roots, node)
		} else if parent, ok := byCode[parentCode]; ok {
			parent.Children = append(parent.Children, node)
		} else {
			roots = append(roots, node)
		}
	}

	return roots
}

// parentStructure returns the parent code: "1.2.3" -> "1.2", "1" -> "".
func parentStructure(structure string) string {
	idx := strings.LastIndex(structure, ".")
	if idx < 0 {
		return ""
	}
	return structure[:idx]
}

// Renumber rewrites structure codes to match the tree shape ("1", "1.1", ...).
func Renumber(nodes []*Node) {
	renumber(nodes, "")
}

func renumber(nodes []*Node, prefix string) {
	for i, n := range nodes {
		code := strconv.Itoa(i + 1)
		if prefix != "" {
			code = prefix + "." + code
		}
		n.Structure = code
		renumber(n.Children, code)
	}
}

// AssignEndPages sets EndPage on every node. A node ends on the page before its
// next sibling starts, or where its parent ends; lastPage bounds the roots.
// A section never ends before it starts.
func AssignEndPages(nodes []*Node, lastPage int) {
	for i, n := range nodes {
		end := lastPage
		if i+1 < len(nodes) {
			next := nodes[i+1].Page
			if next > n.Page {
				end = next - 1
			} else {
				end = n.Page
			}
		}
		if end < n.Page {
			end = n.Page
		}
		n.EndPage = end
		AssignEndPages(n.Children, end)
	}
}

// TruncateDepth drops children below maxDepth. A maxDepth of zero keeps everything.
func TruncateDepth(nodes []*Node, maxDepth int) {
	if maxDepth <= 0 {
		return
	}
	truncateBelow(nodes, 1, maxDepth)
}

func truncateBelow(nodes []*Node, depth, maxDepth int) {
	for _, n := range nodes {
		if depth >= maxDepth {
			n.Children = nil
			continue
		}
		truncateBelow(n.Children, depth+1, maxDepth)
	}
}

// clearEndPages removes EndPage from every node.
func clearEndPages(nodes []*Node) {
	for _, n := range Flatten(nodes) {
		n.EndPage = 0
	}
}
