package httphandler

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// The UGC policy is safe for concurrent use.
var htmlSanitizer = bluemonday.UGCPolicy()

// Markdown renders GitLab flavored note bodies to sanitized HTML for one
// project. Root-relative links and images, such as /uploads/... attachments,
// resolve against the project web URL.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown returns a renderer for the project at projectURL. An empty
// projectURL leaves links untouched.
func NewMarkdown(projectURL string) *Markdown {
	opts := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	}
	if projectURL != "" {
		opts = append(opts, goldmark.WithParserOptions(parser.WithASTTransformers(
			util.Prioritized(&linkResolver{base: strings.TrimSuffix(projectURL, "/")}, 100),
		)))
	}
	return &Markdown{md: goldmark.New(opts...)}
}

// markdownFor builds the renderer for the project an issuable belongs to.
func markdownFor(webURL string) *Markdown {
	return NewMarkdown(projectURL(webURL))
}

// projectURL strips the resource suffix from an issuable web URL:
// https://gitlab.com/g/p/-/merge_requests/1 becomes https://gitlab.com/g/p.
func projectURL(webURL string) string {
	base, _, found := strings.Cut(webURL, "/-/")
	if !found {
		return ""
	}
	return base
}

// Render converts src to sanitized HTML. Returns empty string for empty input.
func (m *Markdown) Render(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

type linkResolver struct {
	base string
}

func (l *linkResolver) Transform(doc *ast.Document, _ text.Reader, _ parser.Context) {
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			v.Destination = l.resolve(v.Destination)
		case *ast.Image:
			v.Destination = l.resolve(v.Destination)
		}
		return ast.WalkContinue, nil
	})
}

// resolve prefixes root-relative destinations. Protocol-relative ("//host")
// and absolute URLs are kept.
func (l *linkResolver) resolve(dest []byte) []byte {
	if len(dest) == 0 || dest[0] != '/' || bytes.HasPrefix(dest, []byte("//")) {
		return dest
	}
	return append([]byte(l.base), dest...)
}
