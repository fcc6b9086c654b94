// Package frontmatter splits a deck source into its header block and body.
//
// The header is a flat list of "key: value" lines between two "---" marker
// lines at the very start of the file. Values are coerced to string, bool,
// int or float64 using literal textual rules. Anything that does not look
// like a header is returned untouched as body; extraction never fails.
package frontmatter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// DefaultTitle is returned by Title when neither the header nor the body names the deck.
const DefaultTitle = "Untitled Presentation"

// Frontmatter maps header keys to coerced scalar values.
type Frontmatter map[string]any

var (
	// headerPattern matches "---\n<header>\n---\n<body>". The closing marker
	// may end the file and the header may be empty.
	headerPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(?:(.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)

	headingPattern   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+(.+?)[ \t]*\r?$`)
	separatorPattern = regexp.MustCompile(`(?m)^---[ \t]*\r?$`)
)

// Extract returns the parsed header and the remaining body.
// Without a well-formed header the map is empty and body equals raw.
func Extract(raw string) (fm Frontmatter, body string) {
	loc := headerPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Frontmatter{}, raw
	}

	defer func() {
		if r := recover(); r != nil {
			fm, body = Frontmatter{}, raw
		}
	}()

	var block string
	if loc[2] >= 0 {
		block = raw[loc[2]:loc[3]]
	}
	return parseBlock(block), raw[loc[1]:]
}

// parseBlock parses header lines. Lines without a key are skipped.
func parseBlock(block string) Frontmatter {
	fm := Frontmatter{}
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:idx])
		fm[key] = Coerce(strings.TrimSpace(line[idx+1:]))
	}
	return fm
}

// Coerce converts a trimmed header value to its scalar type.
//
//	"x" or 'x'      -> string without quotes
//	true / false    -> bool
//	42              -> int
//	3.5, 1e3        -> float64
//	anything else   -> string
func Coerce(value string) any {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return value[1 : len(value)-1]
		}
	}

	switch value {
	case "true":
		return true
	case "false":
		return false
	case "":
		return ""
	}

	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return value
}

// InCode reports whether a byte offset of body lies inside code. Matches
// starting in code are ignored; a nil InCode ignores nothing.
type InCode func(offset int) bool

// Title returns the header title, else the first heading of body outside
// code, else DefaultTitle.
func Title(fm Frontmatter, body string, inCode InCode) string {
	switch v := fm["title"].(type) {
	case string:
		if v != "" {
			return v
		}
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	for _, m := range headingPattern.FindAllStringSubmatchIndex(body, -1) {
		if inCode == nil || !inCode(m[0]) {
			return strings.TrimSpace(body[m[2]:m[3]])
		}
	}
	return DefaultTitle
}

// CountSlides estimates the slide count from separator lines outside code.
func CountSlides(body string, inCode InCode) int {
	n := 1
	for _, m := range separatorPattern.FindAllStringIndex(body, -1) {
		if inCode == nil || !inCode(m[0]) {
			n++
		}
	}
	return n
}

// String returns the value of key when it is a non-empty string.
func (fm Frontmatter) String(key string) string {
	if v, ok := fm[key].(string); ok {
		return v
	}
	return ""
}
