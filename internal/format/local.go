package format

import (
	"html"
	"regexp"
	"strings"
)

// The local transform is deterministic, network-free normalization used when
// no remote provider is configured. Every rule is a stable fixed point, so
// applying the transform twice equals applying it once.

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reHorizWS    = regexp.MustCompile(`[ \t]+`)
	reBlankRuns  = regexp.MustCompile(`\n{4,}`) // 3+ blank lines
	reHeading    = regexp.MustCompile(`^#{1,6}\s*`)
	reBulletMark = regexp.MustCompile(`^[-*+•]\s+`)
	reBlockSplit = regexp.MustCompile(`\n{2,}`)
)

// LocalTransform normalizes whitespace and, depending on outputFormat,
// rewrites the result as flattened markdown or simple HTML blocks.
func LocalTransform(text, outputFormat string) string {
	s := normalizeWhitespace(text)
	switch strings.ToLower(outputFormat) {
	case "markdown":
		s = toMarkdown(s)
	case "html":
		s = strings.Join(HTMLBlocks(s), "")
	}
	return s
}

// normalizeWhitespace: unix line endings, single-space horizontal runs,
// per-line trim, 3+ blank lines collapsed to one, whole result trimmed.
func normalizeWhitespace(s string) string {
	s = reCRLF.ReplaceAllString(s, "\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(reHorizWS.ReplaceAllString(lines[i], " "))
	}
	s = strings.Join(lines, "\n")
	s = reBlankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// toMarkdown flattens every heading to a single '#' level and normalizes
// bullet markers to "- ". Heading depth is intentionally discarded; the
// transform is a normalizer, not a structure-preserving converter.
func toMarkdown(s string) string {
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		switch {
		case reHeading.MatchString(ln):
			lines[i] = "# " + reHeading.ReplaceAllString(ln, "")
		case reBulletMark.MatchString(ln):
			lines[i] = "- " + reBulletMark.ReplaceAllString(ln, "")
		}
	}
	return strings.Join(lines, "\n")
}

// HTMLBlocks splits normalized text on blank-line boundaries and renders each
// block: an unordered list when the first line carries a bullet marker, a
// paragraph otherwise. Block order is preserved.
func HTMLBlocks(s string) []string {
	s = normalizeWhitespace(s)
	if s == "" {
		return nil
	}
	var out []string
	for _, block := range reBlockSplit.Split(s, -1) {
		lines := strings.Split(block, "\n")
		if reBulletMark.MatchString(lines[0]) {
			var b strings.Builder
			b.WriteString("<ul>\n")
			for _, ln := range lines {
				item := reBulletMark.ReplaceAllString(ln, "")
				b.WriteString("  <li>" + html.EscapeString(item) + "</li>\n")
			}
			b.WriteString("</ul>\n")
			out = append(out, b.String())
			continue
		}
		out = append(out, "<p>"+html.EscapeString(block)+"</p>\n")
	}
	return out
}
