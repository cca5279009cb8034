package pageindex

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// PageCount validates the PDF at path and returns its number of pages.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF: %w", err)
	}
	return n, nil
}

// ReadOutline returns the document outline as a tree of nodes.
// A PDF without an outline yields an empty result and no error.
func ReadOutline(path string) ([]*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	bookmarks, err := api.Bookmarks(f, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read outline: %w", err)
	}
	return bookmarksToNodes(bookmarks), nil
}

func bookmarksToNodes(bookmarks []pdfcpu.Bookmark) []*Node {
	var nodes []*Node
	for _, bm := range bookmarks {
		title := strings.TrimSpace(bm.Title)
		if title == "" {
			continue
		}
		nodes = append(nodes, &Node{
			Title:    title,
			Page:     bm.PageFrom,
			Children: bookmarksToNodes(bm.Kids),
		})
	}
	return nodes
}

// ReadPages extracts plain text from the first limit pages (all pages when limit <= 0).
func ReadPages(path string, limit int) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	if limit > 0 && limit < n {
		n = limit
	}

	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: i})
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	return pages, nil
}
