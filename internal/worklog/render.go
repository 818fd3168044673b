package worklog

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	// Model output is untrusted, anything outside of user generated content markup is dropped
	policy = bluemonday.UGCPolicy()
)

// Render the work-log markdown into sanitized html, ready to be placed in the page.
func Render(document string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(document), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}
