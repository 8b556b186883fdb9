package extract

import (
	"regexp"
	"strings"
)

var (
	mdCodeBlock     = regexp.MustCompile("(?s)```[^`]*```")
	mdInlineCode    = regexp.MustCompile("`([^`]+)`")
	mdImages        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	mdLinks         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	mdHeadings      = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdBlockquote    = regexp.MustCompile(`(?m)^>[ \t]*`)
	mdRule          = regexp.MustCompile(`(?m)^[-*_]{3,}[ \t]*$`)
	mdListMarkers   = regexp.MustCompile(`(?m)^[ \t]*[-*+][ \t]+`)
	mdNumberedList  = regexp.MustCompile(`(?m)^[ \t]*\d+\.[ \t]+`)
	mdMultiNewlines = regexp.MustCompile(`\n{3,}`)
)

// Markdown returns the document text with Markdown markup removed. Inline
// code keeps its content.
func Markdown(data []byte) (string, error) {
	content, _ := PlainText(data)
	content = mdCodeBlock.ReplaceAllString(content, "")
	content = mdImages.ReplaceAllString(content, "")
	content = mdLinks.ReplaceAllString(content, "$1")
	content = mdInlineCode.ReplaceAllString(content, "$1")
	content = mdHeadings.ReplaceAllString(content, "")
	content = mdRule.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "**", "")
	content = strings.ReplaceAll(content, "__", "")
	content = mdBlockquote.ReplaceAllString(content, "")
	content = mdListMarkers.ReplaceAllString(content, "")
	content = mdNumberedList.ReplaceAllString(content, "")
	content = mdMultiNewlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content), nil
}
