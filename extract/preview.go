package extract

import (
	"html"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	md     = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
)

// Text strips all markup from normalized content and collapses whitespace.
// Used for plain-text channel previews.
func Text(normalized string) string {
	stripped := html.UnescapeString(strict.Sanitize(normalized))
	return strings.Join(strings.Fields(stripped), " ")
}

// Markdown converts normalized content to markdown, resolving relative links
// against pageURL. Falls back to Text when conversion fails or is empty.
func Markdown(normalized, pageURL string) string {
	if strings.TrimSpace(normalized) == "" {
		return ""
	}
	var (
		out string
		err error
	)
	if pageURL != "" {
		out, err = md.ConvertString(normalized, converter.WithDomain(pageURL))
	} else {
		out, err = md.ConvertString(normalized)
	}
	if err != nil || strings.TrimSpace(out) == "" {
		return Text(normalized)
	}
	return strings.TrimSpace(out)
}
