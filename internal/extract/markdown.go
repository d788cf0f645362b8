package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Converter renders a content region as text.
type Converter interface {
	Convert(sel *goquery.Selection) string
}

// MarkdownConverter renders content as markdown: ATX headings, "-" and
// "1." lists, fenced code blocks, inline code, links, emphasis, tables and
// blockquotes.
type MarkdownConverter struct{}

var _ Converter = MarkdownConverter{}

// Convert implements Converter.
func (MarkdownConverter) Convert(sel *goquery.Selection) string {
	w := &mdWriter{}
	state := &mdState{}
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderMarkdownNode(child, state, w)
		}
	}
	return NormalizeText(w.String())
}

// TextConverter renders content as plain text with one blank line between
// blocks.
type TextConverter struct{}

var _ Converter = TextConverter{}

// Convert implements Converter.
func (TextConverter) Convert(sel *goquery.Selection) string {
	w := &mdWriter{}
	for _, node := range sel.Nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			renderTextNode(child, w)
		}
	}
	return NormalizeText(w.String())
}

// mdWriter accumulates output and tracks trailing newlines so block
// elements can request line and paragraph breaks without doubling them.
type mdWriter struct {
	builder          strings.Builder
	lastRune         rune
	hasLast          bool
	trailingNewlines int
	pendingSpace     bool
}

func (m *mdWriter) String() string {
	return m.builder.String()
}

func (m *mdWriter) raw(value string) {
	if value == "" {
		return
	}
	m.builder.WriteString(value)
	for _, r := range value {
		m.lastRune = r
		m.hasLast = true
		if r == '\n' {
			m.trailingNewlines++
		} else {
			m.trailingNewlines = 0
		}
	}
}

// write appends inline text, emitting a pending separator space first.
func (m *mdWriter) write(value string) {
	if value == "" {
		return
	}
	if m.pendingSpace {
		m.pendingSpace = false
		if m.hasLast && m.trailingNewlines == 0 && m.lastRune != ' ' {
			m.raw(" ")
		}
	}
	m.raw(value)
}

// space requests a single space before the next inline write.
func (m *mdWriter) space() {
	m.pendingSpace = true
}

func (m *mdWriter) lineBreak() {
	m.pendingSpace = false
	if m.hasLast && m.trailingNewlines == 0 {
		m.raw("\n")
	}
}

func (m *mdWriter) blankLine() {
	m.pendingSpace = false
	if !m.hasLast {
		return
	}
	for m.trailingNewlines < 2 {
		m.raw("\n")
	}
}

type listFrame struct {
	ordered bool
	index   int
}

type mdState struct {
	listStack []listFrame
}

func (s *mdState) inList() bool {
	return len(s.listStack) > 0
}

// blockBreak separates block elements. Inside a list item a paragraph
// break would end the item, so only a space is requested there.
func (s *mdState) blockBreak(w *mdWriter) {
	if s.inList() {
		w.space()
		return
	}
	w.blankLine()
}

func renderChildren(node *html.Node, state *mdState, w *mdWriter) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		renderMarkdownNode(child, state, w)
	}
}

func renderMarkdownNode(node *html.Node, state *mdState, w *mdWriter) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		writeInlineText(node.Data, w)
	case html.ElementNode:
		tag := strings.ToLower(node.Data)
		switch tag {
		case "br":
			w.lineBreak()
		case "hr":
			w.blankLine()
			w.write("---")
			w.blankLine()
		case "p", "div", "section", "article", "main", "figure", "figcaption", "dl", "dd", "dt":
			state.blockBreak(w)
			renderChildren(node, state, w)
			state.blockBreak(w)
		case "h1", "h2", "h3", "h4", "h5", "h6":
			if state.inList() {
				w.space()
				renderChildren(node, state, w)
				w.space()
				return
			}
			if normalizeWhitespace(getTextContent(node)) == "" {
				return
			}
			level := int(tag[1] - '0')
			w.blankLine()
			w.raw(strings.Repeat("#", level) + " ")
			renderChildren(node, state, w)
			w.blankLine()
		case "strong", "b":
			writeWrapped(node, state, w, "**")
		case "em", "i":
			writeWrapped(node, state, w, "_")
		case "code", "kbd", "samp":
			text := normalizeWhitespace(getRawText(node))
			if text == "" {
				return
			}
			w.write("`" + text + "`")
		case "pre":
			renderCodeBlock(node, state, w)
		case "a":
			href := strings.TrimSpace(getAttr(node, "href"))
			text := normalizeWhitespace(getTextContent(node))
			if text == "" {
				text = href
			}
			if text == "" {
				return
			}
			if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
				w.write(text)
			} else {
				w.write("[" + text + "](" + href + ")")
			}
		case "img", "picture", "video", "audio", "svg", "canvas", "form", "button", "select", "input", "textarea":
			return
		case "ul", "ol":
			nested := state.inList()
			state.listStack = append(state.listStack, listFrame{ordered: tag == "ol"})
			if nested {
				w.lineBreak()
			} else {
				w.blankLine()
			}
			renderChildren(node, state, w)
			state.listStack = state.listStack[:len(state.listStack)-1]
			if state.inList() {
				w.lineBreak()
			} else {
				w.blankLine()
			}
		case "li":
			if !state.inList() {
				state.listStack = append(state.listStack, listFrame{})
				defer func() { state.listStack = state.listStack[:len(state.listStack)-1] }()
			}
			frame := &state.listStack[len(state.listStack)-1]
			frame.index++
			w.lineBreak()
			indent := strings.Repeat("  ", len(state.listStack)-1)
			marker := "- "
			if frame.ordered {
				marker = fmt.Sprintf("%d. ", frame.index)
			}
			w.raw(indent + marker)
			renderChildren(node, state, w)
			w.lineBreak()
		case "blockquote":
			inner := &mdWriter{}
			renderChildren(node, &mdState{}, inner)
			quoted := NormalizeText(inner.String())
			if quoted == "" {
				return
			}
			w.blankLine()
			lines := strings.Split(quoted, "\n")
			for i, line := range lines {
				if i > 0 {
					w.raw("\n")
				}
				if line == "" {
					w.raw(">")
				} else {
					w.raw("> " + line)
				}
			}
			w.blankLine()
		case "table":
			w.blankLine()
			if tableMD := renderTableToMarkdown(node); tableMD != "" {
				w.raw(tableMD)
			}
			w.blankLine()
		default:
			renderChildren(node, state, w)
		}
	}
}

// writeInlineText writes a text node, collapsing its whitespace while
// keeping a separator where the source had one.
func writeInlineText(data string, w *mdWriter) {
	text := normalizeWhitespace(data)
	if text == "" {
		if data != "" {
			w.space()
		}
		return
	}
	if startsWithSpace(data) {
		w.space()
	}
	w.write(text)
	if endsWithSpace(data) {
		w.space()
	}
}

func writeWrapped(node *html.Node, state *mdState, w *mdWriter, marker string) {
	if normalizeWhitespace(getTextContent(node)) == "" {
		return
	}
	w.write(marker)
	inner := &mdWriter{}
	renderChildren(node, state, inner)
	w.raw(strings.TrimSpace(inner.String()))
	w.raw(marker)
	if inner.pendingSpace {
		w.space()
	}
}

// renderCodeBlock emits a fenced block. The text is kept verbatim so
// indentation survives.
func renderCodeBlock(node *html.Node, state *mdState, w *mdWriter) {
	code := strings.Trim(getRawText(node), "\n")
	if strings.TrimSpace(code) == "" {
		return
	}
	if state.inList() {
		w.lineBreak()
	} else {
		w.blankLine()
	}
	w.raw("```" + codeLanguage(node) + "\n")
	w.raw(code)
	w.raw("\n```\n")
	if !state.inList() {
		w.blankLine()
	}
}

// codeLanguage looks for a "language-xxx" or "lang-xxx" class on the pre
// element or its first code child.
func codeLanguage(pre *html.Node) string {
	candidates := []*html.Node{pre}
	for child := pre.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.ElementNode && strings.EqualFold(child.Data, "code") {
			candidates = append(candidates, child)
			break
		}
	}
	for _, n := range candidates {
		for _, class := range strings.Fields(getAttr(n, "class")) {
			for _, prefix := range []string{"language-", "lang-"} {
				if lang, ok := strings.CutPrefix(class, prefix); ok && lang != "" {
					return lang
				}
			}
		}
	}
	return ""
}

func renderTextNode(node *html.Node, w *mdWriter) {
	switch node.Type {
	case html.TextNode:
		writeInlineText(node.Data, w)
	case html.ElementNode:
		tag := strings.ToLower(node.Data)
		switch tag {
		case "br", "tr", "li", "dt", "dd":
			w.lineBreak()
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				renderTextNode(child, w)
			}
			w.lineBreak()
		case "td", "th":
			w.space()
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				renderTextNode(child, w)
			}
			w.space()
		case "pre":
			w.blankLine()
			w.raw(strings.Trim(getRawText(node), "\n"))
			w.blankLine()
		case "img", "picture", "video", "audio", "svg", "canvas", "form", "button", "select", "input", "textarea":
			return
		default:
			_, block := blockLevelTags[tag]
			if block {
				w.blankLine()
			}
			for child := node.FirstChild; child != nil; child = child.NextSibling {
				renderTextNode(child, w)
			}
			if block {
				w.blankLine()
			}
		}
	}
}

var blockLevelTags = map[string]struct{}{
	"p":          {},
	"div":        {},
	"section":    {},
	"article":    {},
	"main":       {},
	"h1":         {},
	"h2":         {},
	"h3":         {},
	"h4":         {},
	"h5":         {},
	"h6":         {},
	"ul":         {},
	"ol":         {},
	"dl":         {},
	"table":      {},
	"blockquote": {},
	"figure":     {},
	"figcaption": {},
	"hr":         {},
}

func renderTableToMarkdown(table *html.Node) string {
	rows := collectTableRows(table)
	if len(rows) == 0 {
		return ""
	}
	headerIdx := -1
	for i, row := range rows {
		if row.header {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		headerIdx = 0
	}

	colCount := 0
	for _, row := range rows {
		colCount = max(colCount, len(row.cells))
	}
	if colCount == 0 {
		return ""
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		b.WriteString("|")
		for j := 0; j < colCount; j++ {
			cell := ""
			if j < len(cells) {
				cell = cells[j]
			}
			b.WriteString(" " + cell + " |")
		}
		b.WriteString("\n")
	}

	writeRow(rows[headerIdx].cells)
	b.WriteString("|")
	for i := 0; i < colCount; i++ {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")

	for i, row := range rows {
		if i == headerIdx {
			continue
		}
		writeRow(row.cells)
	}
	return b.String()
}

type tableRow struct {
	cells  []string
	header bool
}

func collectTableRows(node *html.Node) []tableRow {
	var rows []tableRow
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, header bool) {
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			if child.Type != html.ElementNode {
				continue
			}
			switch strings.ToLower(child.Data) {
			case "thead":
				walk(child, true)
			case "tbody", "tfoot":
				walk(child, header)
			case "table":
				// nested tables are flattened into their cell text
			case "tr":
				row := tableRow{header: header}
				for cell := child.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type != html.ElementNode {
						continue
					}
					cellTag := strings.ToLower(cell.Data)
					if cellTag != "td" && cellTag != "th" {
						continue
					}
					if cellTag == "th" {
						row.header = true
					}
					text := normalizeWhitespace(getTextContent(cell))
					row.cells = append(row.cells, strings.ReplaceAll(text, "|", `\|`))
				}
				if len(row.cells) > 0 {
					rows = append(rows, row)
				}
			default:
				walk(child, header)
			}
		}
	}
	walk(node, false)
	return rows
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s[:1], " \t\r\n\f") == ""
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s[len(s)-1:], " \t\r\n\f") == ""
}

// getTextContent returns the text of node with whitespace collapsed.
func getTextContent(node *html.Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			text := normalizeWhitespace(n.Data)
			if text != "" {
				if b.Len() > 0 {
					b.WriteString(" ")
				}
				b.WriteString(text)
			}
		case html.ElementNode:
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
	}
	walk(node)
	return b.String()
}

// getRawText returns the concatenated text of node without touching
// whitespace.
func getRawText(node *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if strings.EqualFold(n.Data, "br") {
				b.WriteString("\n")
				return
			}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				walk(child)
			}
		}
	}
	walk(node)
	return b.String()
}

func getAttr(node *html.Node, attr string) string {
	for _, a := range node.Attr {
		if strings.EqualFold(a.Key, attr) {
			return a.Val
		}
	}
	return ""
}
