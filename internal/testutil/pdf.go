package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// OutlineEntry is a bookmark in a generated test PDF. Page is 1-indexed.
type OutlineEntry struct {
	Title string
	Page  int
	Kids  []OutlineEntry
}

// BuildPDF returns a minimal valid PDF with the given number of pages.
// Each page shows the text "Page N" in Helvetica. When outline is non-empty
// the document carries it as its bookmark tree.
func BuildPDF(pageCount int, outline []OutlineEntry) []byte {
	b := &pdfBuilder{}

	// Fixed object numbers: 1 catalog, 2 page tree, 3 font.
	// Then a page and a content stream per page, then outline objects.
	const catalogNum, pagesNum, fontNum = 1, 2, 3
	pageNums := make([]int, pageCount)
	contentNums := make([]int, pageCount)
	next := 4
	for i := range pageCount {
		pageNums[i] = next
		contentNums[i] = next + 1
		next += 2
	}

	outlineRoot := 0
	var outlineNodes []*outlineNode
	if len(outline) > 0 {
		outlineRoot = next
		next++
		outlineNodes = numberOutline(outline, &next)
	}
	b.objects = make([]string, next)

	catalog := fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R", pagesNum)
	if outlineRoot != 0 {
		catalog += fmt.Sprintf(" /Outlines %d 0 R /PageMode /UseOutlines", outlineRoot)
	}
	b.objects[catalogNum] = catalog + " >>"

	kids := make([]string, pageCount)
	for i, n := range pageNums {
		kids[i] = fmt.Sprintf("%d 0 R", n)
	}
	b.objects[pagesNum] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount)
	b.objects[fontNum] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>"

	for i := range pageCount {
		b.objects[pageNums[i]] = fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesNum, fontNum, contentNums[i])
		content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Page %d) Tj ET", i+1)
		b.objects[contentNums[i]] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
	}

	if outlineRoot != 0 {
		b.objects[outlineRoot] = fmt.Sprintf("<< /Type /Outlines /First %d 0 R /Last %d 0 R /Count %d >>",
			outlineNodes[0].num, outlineNodes[len(outlineNodes)-1].num, countOutline(outlineNodes))
		writeOutline(b, outlineNodes, outlineRoot, pageNums)
	}

	return b.bytes(catalogNum)
}

// WritePDF writes a generated PDF into dir and returns its path.
func WritePDF(t *testing.T, dir, name string, pageCount int, outline []OutlineEntry) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, BuildPDF(pageCount, outline), 0o644); err != nil {
		t.Fatalf("failed to write test PDF: %v", err)
	}
	return path
}

type outlineNode struct {
	num   int
	entry OutlineEntry
	kids  []*outlineNode
}

func numberOutline(entries []OutlineEntry, next *int) []*outlineNode {
	nodes := make([]*outlineNode, len(entries))
	for i, e := range entries {
		nodes[i] = &outlineNode{num: *next, entry: e}
		*next++
	}
	for _, n := range nodes {
		if len(n.entry.Kids) > 0 {
			n.kids = numberOutline(n.entry.Kids, next)
		}
	}
	return nodes
}

func countOutline(nodes []*outlineNode) int {
	count := len(nodes)
	for _, n := range nodes {
		count += countOutline(n.kids)
	}
	return count
}

func writeOutline(b *pdfBuilder, nodes []*outlineNode, parent int, pageNums []int) {
	for i, n := range nodes {
		var d strings.Builder
		fmt.Fprintf(&d, "<< /Title (%s) /Parent %d 0 R", escapePDFString(n.entry.Title), parent)
		if i > 0 {
			fmt.Fprintf(&d, " /Prev %d 0 R", nodes[i-1].num)
		}
		if i+1 < len(nodes) {
			fmt.Fprintf(&d, " /Next %d 0 R", nodes[i+1].num)
		}
		if len(n.kids) > 0 {
			fmt.Fprintf(&d, " /First %d 0 R /Last %d 0 R /Count %d",
				n.kids[0].num, n.kids[len(n.kids)-1].num, countOutline(n.kids))
		}
		if n.entry.Page >= 1 && n.entry.Page <= len(pageNums) {
			fmt.Fprintf(&d, " /Dest [%d 0 R /Fit]", pageNums[n.entry.Page-1])
		}
		d.WriteString(" >>")
		b.objects[n.num] = d.String()
		writeOutline(b, n.kids, n.num, pageNums)
	}
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

type pdfBuilder struct {
	objects []string // index is the object number; index 0 unused
}

func (b *pdfBuilder) bytes(root int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for num := 1; num < len(b.objects); num++ {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, b.objects[num])
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(b.objects))
	buf.WriteString("0000000000 65535 f \n")
	for num := 1; num < len(b.objects); num++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(b.objects), root, xref)
	return buf.Bytes()
}
