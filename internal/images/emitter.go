package images

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-marp/internal/fileutil"
)

// ErrEmptyAssetDir is returned by CopyEmitter when no output directory is set.
var ErrEmptyAssetDir = errors.New("asset directory cannot be empty")

// AssetEmitter turns a resolved image file into the URL written into the
// final HTML.
type AssetEmitter interface {
	Emit(absPath string) (string, error)
}

// Compile-time interface implementation checks.
var (
	_ AssetEmitter = FileURLEmitter{}
	_ AssetEmitter = (*CopyEmitter)(nil)
)

// FileURLEmitter references images in place through file:// URLs.
type FileURLEmitter struct{}

// Emit returns the file:// URL of absPath.
func (FileURLEmitter) Emit(absPath string) (string, error) {
	return fileutil.PathToFileURL(absPath), nil
}

// CopyEmitter copies images into Dir under content-hashed names and returns
// URLPrefix-relative URLs with the file name percent-encoded. Identical
// files share one copy.
type CopyEmitter struct {
	Dir       string
	URLPrefix string
}

// assetPerm is the permission of copied assets.
const assetPerm = 0o644

// Emit copies absPath into Dir unless an identical copy exists.
func (e *CopyEmitter) Emit(absPath string) (string, error) {
	if e.Dir == "" {
		return "", ErrEmptyAssetDir
	}

	data, err := os.ReadFile(absPath) // #nosec G304 -- path resolved from deck image reference
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	name := HashedName(absPath, data)
	dst := filepath.Join(e.Dir, name)

	if !fileutil.FileExists(dst) {
		if err := os.MkdirAll(e.Dir, 0o750); err != nil {
			return "", fmt.Errorf("creating asset directory: %w", err)
		}
		if err := fileutil.WriteFileAtomic(dst, data, assetPerm); err != nil {
			return "", fmt.Errorf("copying image: %w", err)
		}
	}

	return assetURL(e.URLPrefix, name), nil
}

// assetURL appends the escaped file name to prefix.
func assetURL(prefix, name string) string {
	escaped := url.PathEscape(name)
	if prefix == "" {
		return escaped
	}
	return strings.TrimSuffix(prefix, "/") + "/" + escaped
}

// HashedName returns "<stem>.<sha8><ext>" for the file at p with content data.
func HashedName(p string, data []byte) string {
	sum := sha256.Sum256(data)
	return fileutil.Stem(p) + "." + hex.EncodeToString(sum[:])[:8] + filepath.Ext(p)
}
