// Package markdown splits markdown sources into header-delimited sections.
package markdown

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a contiguous region of a markdown document that starts at an
// H1 or H2 header and runs until the next H1 or H2 header.
type Section struct {
	HeaderPath string // Hierarchy: "# Doc Title > ## Section Name"
	Offset     int    // Byte offset of Content within the source
	Content    string // Section text including its header line, trimmed
}

// Sectioner cuts markdown at H1 and H2 boundaries.
type Sectioner struct {
	parser goldmark.Markdown
}

// NewSectioner creates a new Sectioner configured with goldmark parser.
func NewSectioner() *Sectioner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Sectioner{
		parser: md,
	}
}

// heading is a TOC entry resolved to its position in the source.
type heading struct {
	path  string
	start int
}

// Sections returns the sections of source in document order. Text before
// the first header becomes a section with an empty header path. A document
// without headers is returned as a single section.
func (s *Sectioner) Sections(source []byte) ([]Section, error) {
	reader := text.NewReader(source)
	doc := s.parser.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}

	var headings []heading
	flatten(doc, source, tree.Items, nil, &headings)

	if len(headings) == 0 {
		return appendSection(nil, "", source, 0, len(source)), nil
	}

	sections := appendSection(nil, "", source, 0, headings[0].start)
	for i, h := range headings {
		end := len(source)
		if i+1 < len(headings) {
			end = headings[i+1].start
		}
		sections = appendSection(sections, h.path, source, h.start, end)
	}
	return sections, nil
}

// flatten walks TOC items depth-first, which is document order, and records
// where each header line begins.
func flatten(doc ast.Node, source []byte, items toc.Items, ancestors []string, out *[]heading) {
	for _, item := range items {
		currentPath := make([]string, len(ancestors), len(ancestors)+1)
		copy(currentPath, ancestors)
		currentPath = append(currentPath, string(item.Title))

		node := findHeaderByID(doc, string(item.ID))
		if node != nil && node.Lines().Len() > 0 {
			*out = append(*out, heading{
				path:  formatHeaderPath(currentPath),
				start: lineStart(source, node.Lines().At(0).Start),
			})
		}

		if len(item.Items) > 0 {
			flatten(doc, source, item.Items, currentPath, out)
		}
	}
}

// appendSection trims source[start:end] and appends it unless it is blank.
func appendSection(sections []Section, path string, source []byte, start, end int) []Section {
	if end <= start {
		return sections
	}
	raw := string(source[start:end])
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return sections
	}
	lead := len(raw) - len(strings.TrimLeftFunc(raw, unicode.IsSpace))
	return append(sections, Section{
		HeaderPath: path,
		Offset:     start + lead,
		Content:    trimmed,
	})
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	if len(path) == 0 {
		return ""
	}

	parts := make([]string, 0, len(path))
	for i, segment := range path {
		prefix := strings.Repeat("#", i+1)
		parts = append(parts, fmt.Sprintf("%s %s", prefix, segment))
	}

	return strings.Join(parts, " > ")
}

// findHeaderByID locates a heading node by its auto-generated ID.
func findHeaderByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			headingID, ok := n.AttributeString("id")
			if ok {
				if b, isBytes := headingID.([]byte); isBytes && string(b) == id {
					found = n
					return ast.WalkStop, nil
				}
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// lineStart moves pos back to the beginning of its line so the "#" marker
// is kept with the section.
func lineStart(source []byte, pos int) int {
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos
}
