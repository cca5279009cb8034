package pageindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const tocSystemPrompt = `You are an expert in analyzing document structure. You extract the hierarchical table of contents of a document from the text of its pages and reply with JSON only.`

// tocGeneratePrompt is filled with the tagged page text.
const tocGeneratePrompt = `Below is the text of the first pages of a PDF document. Each page is wrapped in <physical_index_N> tags, where N is the physical page number.

Build the table of contents of the document:
- If the pages contain a printed table of contents, use it. Otherwise infer the section headings from the text.
- structure: the hierarchical index ("1", "1.1", "1.2.3"), reflecting the nesting of sections
- title: the section title exactly as written, without page numbers or dot leaders
- page: the physical page number (N from the tags) on which the section starts

Reply with JSON in this format and nothing else:
{
  "table_of_contents": [
    {"structure": "1", "title": "Introduction", "page": 1},
    {"structure": "1.1", "title": "Background", "page": 2}
  ]
}

Document pages:
%s`

const tocSchema = `{
  "type": "object",
  "required": ["table_of_contents"],
  "properties": {
    "table_of_contents": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["structure", "title", "page"],
        "properties": {
          "structure": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)*$"},
          "title": {"type": "string", "minLength": 1},
          "page": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var (
	tocSchemaOnce     sync.Once
	tocSchemaCompiled *jsonschema.Schema
	tocSchemaErr      error
)

func compiledTOCSchema() (*jsonschema.Schema, error) {
	tocSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("toc.json", strings.NewReader(tocSchema)); err != nil {
			tocSchemaErr = fmt.Errorf("failed to load toc schema: %w", err)
			return
		}
		tocSchemaCompiled, tocSchemaErr = compiler.Compile("toc.json")
	})
	return tocSchemaCompiled, tocSchemaErr
}

// GenerateTOC asks the LLM for the table of contents of the given pages.
// Entries pointing past pageCount are dropped.
func GenerateTOC(ctx context.Context, llm LLMClient, pages []Page, pageCount int) ([]TOCItem, error) {
	if len(pages) == 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf(tocGeneratePrompt, tagPages(pages))
	reply, err := llm.Complete(ctx, tocSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	items, err := ParseTOCResponse(reply)
	if err != nil {
		return nil, err
	}

	valid := items[:0]
	for _, item := range items {
		if item.Page <= pageCount {
			item.Title = strings.TrimSpace(item.Title)
			valid = append(valid, item)
		}
	}
	return valid, nil
}

// ParseTOCResponse extracts and validates the TOC JSON from a model reply.
// Markdown code fences and text around the JSON object are tolerated.
func ParseTOCResponse(reply string) ([]TOCItem, error) {
	raw := extractJSONObject(reply)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in llm reply: %q", truncate(reply, 200))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse llm reply: %w", err)
	}

	schema, err := compiledTOCSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("llm reply does not match toc schema: %w", err)
	}

	var resp struct {
		TableOfContents []TOCItem `json:"table_of_contents"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode toc: %w", err)
	}
	return resp.TableOfContents, nil
}

func tagPages(pages []Page) string {
	var b strings.Builder
	for _, p := range pages {
		fmt.Fprintf(&b, "<physical_index_%d>\n%s\n</physical_index_%d>\n\n", p.Number, strings.TrimSpace(p.Text), p.Number)
	}
	return b.String()
}

// extractJSONObject returns the outermost {...} span of s, or "".
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// truncate shortens s to at most maxLen bytes without splitting a rune.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
