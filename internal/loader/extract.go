package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/bull/news-rag/internal/rag"
)

var errBinaryContent = errors.New("unsupported binary content")

// skippedElements never contribute visible article text.
var skippedElements = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Iframe:   true,
	atom.Nav:      true,
	atom.Footer:   true,
	atom.Head:     true,
}

// blockElements are separated from their neighbours by a blank line.
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Section: true, atom.Article: true,
	atom.Main: true, atom.Header: true, atom.Aside: true, atom.Blockquote: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Table: true, atom.Tr: true,
	atom.Pre: true, atom.Figure: true, atom.Figcaption: true, atom.Br: true,
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Extract turns a fetched payload into plain text. name is the locator or
// file path and is used to guess the format when contentType is empty.
// It returns the extracted text and its rag.Format* value.
func Extract(name, contentType string, body []byte) (string, string, error) {
	switch detectFormat(name, contentType, body) {
	case rag.FormatHTML:
		text, err := extractHTML(body)
		return text, rag.FormatHTML, err
	case rag.FormatPDF:
		text, err := extractPDF(body)
		return text, rag.FormatPDF, err
	case rag.FormatMarkdown:
		return string(body), rag.FormatMarkdown, nil
	default:
		if !utf8.Valid(body) {
			return "", "", errBinaryContent
		}
		return string(body), rag.FormatText, nil
	}
}

func detectFormat(name, contentType string, body []byte) string {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "text/html", "application/xhtml+xml":
		return rag.FormatHTML
	case "application/pdf":
		return rag.FormatPDF
	case "text/markdown", "text/x-markdown":
		return rag.FormatMarkdown
	}

	ext := strings.ToLower(path.Ext(stripQuery(name)))
	switch ext {
	case ".html", ".htm":
		return rag.FormatHTML
	case ".pdf":
		return rag.FormatPDF
	case ".md", ".markdown":
		return rag.FormatMarkdown
	}

	if mediaType == "" || mediaType == "application/octet-stream" {
		sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(body))
		switch sniffed {
		case "text/html":
			return rag.FormatHTML
		case "application/pdf":
			return rag.FormatPDF
		}
	}
	return rag.FormatText
}

func stripQuery(name string) string {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		return name[:i]
	}
	return name
}

// extractHTML returns the visible text of an HTML page with block elements
// separated by blank lines.
func extractHTML(body []byte) (string, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.DataAtom] {
			return
		}
		block := n.Type == html.ElementNode && blockElements[n.DataAtom]
		if block {
			buf.WriteString("\n\n")
		}
		if n.Type == html.TextNode {
			if words := strings.Fields(n.Data); len(words) > 0 {
				if buf.Len() > 0 && !endsWithSpace(buf.String()) {
					buf.WriteByte(' ')
				}
				buf.WriteString(strings.Join(words, " "))
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			buf.WriteString("\n\n")
		}
	}
	walk(root)

	lines := strings.Split(buf.String(), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	text := blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(text), nil
}

func endsWithSpace(s string) bool {
	return strings.HasSuffix(s, " ") || strings.HasSuffix(s, "\n")
}

// extractPDF returns the plain text of a PDF document.
func extractPDF(body []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	out, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf text: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
