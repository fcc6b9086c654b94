package marp

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"unicode"

	"github.com/alnah/go-marp/internal/fileutil"
)

// hashLen is the length of SourceHash.
const hashLen = 8

// SourceHash digests (body, theme, cfg) into a short hex string that
// changes whenever any of them does.
func SourceHash(body, theme string, cfg Config) string {
	data, _ := json.Marshal(struct {
		Content string `json:"content"`
		Theme   string `json:"theme"`
		Config  Config `json:"config"`
	}{body, theme, cfg})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:hashLen]
}

// renderKey digests everything the renderer sees. Unlike SourceHash it
// covers the resolved theme path and image placeholders, so a deck whose
// image appears on disk gets a new key.
func renderKey(input, theme, head string, args []string) string {
	data, _ := json.Marshal(struct {
		Input string   `json:"input"`
		Theme string   `json:"theme"`
		Head  string   `json:"head"`
		Args  []string `json:"args"`
	}{input, theme, head, args})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Slugify lower-cases s and collapses every run of characters other than
// letters and digits into a single dash.
func Slugify(s string) string {
	var sb strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && sb.Len() > 0 {
				sb.WriteByte('-')
			}
			sb.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return sb.String()
}

// slugFor returns the frontmatter slug, else the slugified file stem.
func slugFor(slug, path string) string {
	if slug != "" {
		return slug
	}
	if s := Slugify(fileutil.Stem(path)); s != "" {
		return s
	}
	return "deck"
}
