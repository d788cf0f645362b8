package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

const codeFence = "```"

// NormalizeText makes extracted text deterministic: Unicode NFC, LF line
// endings, at most one blank line in a row, single spaces between words
// and no surrounding whitespace.
//
// Leading indentation is kept so nested lists stay nested, and lines
// inside fenced code blocks are left untouched apart from trailing
// whitespace. NormalizeText is idempotent.
func NormalizeText(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	inFence := false
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\f\v")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, codeFence) {
			inFence = !inFence
			blank = 0
			out = append(out, collapseSpaces(line))
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}
		if trimmed == "" {
			blank++
			if blank > 1 {
				continue
			}
			out = append(out, "")
			continue
		}
		blank = 0
		out = append(out, collapseSpaces(line))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// NormalizeInline collapses all whitespace, including newlines, to single
// spaces. It is used for titles and descriptions.
func NormalizeInline(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

// collapseSpaces collapses runs of spaces and tabs after the line's
// leading indentation.
func collapseSpaces(line string) string {
	body := strings.TrimLeft(line, " \t")
	indent := line[:len(line)-len(body)]

	var b strings.Builder
	b.Grow(len(line))
	b.WriteString(indent)
	space := false
	for _, r := range body {
		if r == ' ' || r == '\t' {
			space = true
			continue
		}
		if space {
			b.WriteByte(' ')
			space = false
		}
		b.WriteRune(r)
	}
	return b.String()
}
