// Package mdscan inspects deck Markdown with goldmark without rendering it.
//
// The renderer owns Markdown-to-HTML conversion; this package only needs the
// document outline, the byte ranges of code (so image rewriting can leave
// code samples alone) and the fenced diagram blocks.
package mdscan

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MermaidLang is the info string that marks a diagram fence.
const MermaidLang = "mermaid"

// Range is a half-open byte range [Start, End) into the scanned source.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside r.
func (r Range) Contains(offset int) bool {
	return offset >= r.Start && offset < r.End
}

// Heading is one entry of the document outline.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	ID    string `json:"id"`
}

// Fence is a fenced code block. Block spans the opening through the closing
// fence line; Code is the unindented content.
type Fence struct {
	Lang  string
	Code  string
	Block Range
}

// Result holds everything Scan extracted from one document.
type Result struct {
	Headings []Heading
	Fences   []Fence
	Code     []Range
}

// md is shared; goldmark parsers are safe for concurrent Parse calls.
var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// Scan parses src and collects headings, fences and code ranges.
func Scan(src []byte) *Result {
	res := &Result{}
	doc := md.Parser().Parse(text.NewReader(src))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			res.Headings = append(res.Headings, Heading{
				Level: node.Level,
				Text:  strings.TrimSpace(plainText(node, src)),
				ID:    headingID(node),
			})
		case *ast.FencedCodeBlock:
			fence := Fence{
				Lang:  string(bytes.ToLower(node.Language(src))),
				Code:  string(linesValue(node.Lines(), src)),
				Block: fenceBlock(node, src),
			}
			res.Fences = append(res.Fences, fence)
			res.Code = append(res.Code, fence.Block)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			if r, ok := linesRange(node.Lines()); ok {
				res.Code = append(res.Code, r)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			if r, ok := childrenRange(node); ok {
				res.Code = append(res.Code, r)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return res
}

// InCode reports whether offset falls inside any code range.
func (r *Result) InCode(offset int) bool {
	for _, c := range r.Code {
		if c.Contains(offset) {
			return true
		}
	}
	return false
}

// Mermaid returns the diagram fences in document order.
func (r *Result) Mermaid() []Fence {
	var out []Fence
	for _, f := range r.Fences {
		if f.Lang == MermaidLang {
			out = append(out, f)
		}
	}
	return out
}

// HasMermaid reports whether src contains at least one diagram fence.
func HasMermaid(src []byte) bool {
	// Cheap reject before parsing.
	if !bytes.Contains(bytes.ToLower(src), []byte(MermaidLang)) {
		return false
	}
	return len(Scan(src).Mermaid()) > 0
}

func headingID(n *ast.Heading) string {
	v, ok := n.AttributeString("id")
	if !ok {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return ""
}

// plainText concatenates the literal text below n.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(plainText(c, src))
		}
	}
	return sb.String()
}

func linesValue(lines *text.Segments, src []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(src))
	}
	return buf.Bytes()
}

func linesRange(lines *text.Segments) (Range, bool) {
	if lines == nil || lines.Len() == 0 {
		return Range{}, false
	}
	return Range{Start: lines.At(0).Start, End: lines.At(lines.Len() - 1).Stop}, true
}

func childrenRange(n ast.Node) (Range, bool) {
	r := Range{Start: -1}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := c.(*ast.Text)
		if !ok {
			continue
		}
		if r.Start < 0 || t.Segment.Start < r.Start {
			r.Start = t.Segment.Start
		}
		if t.Segment.Stop > r.End {
			r.End = t.Segment.Stop
		}
	}
	if r.Start < 0 {
		return Range{}, false
	}
	// Include the surrounding backticks.
	r.Start--
	r.End++
	return r, true
}

// fenceBlock widens the content lines of a fence to cover its marker lines.
func fenceBlock(n *ast.FencedCodeBlock, src []byte) Range {
	var start, contentEnd int
	switch {
	case n.Info != nil:
		start = lineStart(src, n.Info.Segment.Start)
		contentEnd = lineEnd(src, n.Info.Segment.Stop)
	case n.Lines().Len() > 0:
		start = lineStart(src, lineStart(src, n.Lines().At(0).Start)-1)
		contentEnd = lineEnd(src, lineStart(src, n.Lines().At(0).Start)-1)
	default:
		return Range{}
	}

	if lines := n.Lines(); lines.Len() > 0 {
		contentEnd = lineEnd(src, lines.At(lines.Len()-1).Stop-1)
	}

	// The closing marker is the next line when it is a fence line.
	end := contentEnd
	if end < len(src) {
		closeEnd := lineEnd(src, end)
		line := strings.TrimSpace(string(src[end:closeEnd]))
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			end = closeEnd
		}
	}
	return Range{Start: start, End: end}
}

// lineStart returns the offset of the first byte of the line containing off.
func lineStart(src []byte, off int) int {
	if off <= 0 {
		return 0
	}
	if off > len(src) {
		off = len(src)
	}
	if i := bytes.LastIndexByte(src[:off], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// lineEnd returns the offset just past the newline ending the line containing off.
func lineEnd(src []byte, off int) int {
	if off < 0 {
		off = 0
	}
	if off >= len(src) {
		return len(src)
	}
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(src)
}
