// Package docstore reads and writes catalogue documents on a billy filesystem.
package docstore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// DefaultIndent matches the layout of the upstream metadata repository.
const DefaultIndent = "  "

// Store implements catalog.Store. Paths are slash-separated and interpreted
// relative to the filesystem root.
type Store struct {
	fs     billy.Filesystem
	indent string
	skip   []string
}

var _ catalog.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIndent sets the indent used when saving documents. An empty indent
// writes compact JSON.
func WithIndent(indent string) Option {
	return func(s *Store) { s.indent = indent }
}

// WithSkipPatterns excludes files matching any doublestar pattern (relative
// to the copied directory) from CopySubtree.
func WithSkipPatterns(patterns []string) Option {
	return func(s *Store) { s.skip = append([]string(nil), patterns...) }
}

// New returns a Store over fsys.
func New(fsys billy.Filesystem, opts ...Option) *Store {
	s := &Store{fs: fsys, indent: DefaultIndent}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOS returns a Store over the host filesystem. Callers pass absolute paths.
func NewOS(opts ...Option) *Store {
	return New(osfs.New("/"), opts...)
}

// ValidatePatterns reports the first malformed skip pattern.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid skip pattern %q", p)
		}
	}
	return nil
}

// Load reads and decodes the document at p.
func (s *Store) Load(p string) (catalog.Document, error) {
	data, err := util.ReadFile(s.fs, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog.Document{}, catalog.NotFoundError(p, err)
		}
		return catalog.Document{}, fmt.Errorf("failed to read %s: %w", p, err)
	}
	doc, err := catalog.ParseDocument(data)
	if err != nil {
		return catalog.Document{}, catalog.ParseError(p, err)
	}
	return doc, nil
}

// Save encodes doc to p, creating parent directories as needed.
func (s *Store) Save(p string, doc catalog.Document) error {
	data, err := doc.Encode(s.indent)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", p, err)
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := util.WriteFile(s.fs, p, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Exists reports whether anything exists at p.
func (s *Store) Exists(p string) bool {
	_, err := s.fs.Stat(p)
	return err == nil
}

// ResetDirectory removes p recursively when present and recreates it empty.
// Removal finishes before the directory is recreated.
func (s *Store) ResetDirectory(p string) error {
	if err := util.RemoveAll(s.fs, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", p, err)
	}
	if err := s.fs.MkdirAll(p, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", p, err)
	}
	return nil
}

// CopySubtree copies the directory src to dst recursively, preserving file
// modes. Files matching a skip pattern are left out.
func (s *Store) CopySubtree(src, dst string) error {
	info, err := s.fs.Stat(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return catalog.NotFoundError(src, err)
		}
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", src)
	}

	return util.Walk(s.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(filepath.FromSlash(src), filepath.FromSlash(p))
		if err != nil {
			return fmt.Errorf("failed to calculate relative path: %w", err)
		}
		rel = filepath.ToSlash(rel)

		if rel != "." && s.skipped(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := path.Join(dst, rel)
		if info.IsDir() {
			if err := s.fs.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", target, err)
			}
			return nil
		}
		if err := s.copyFile(p, target, info.Mode()); err != nil {
			return fmt.Errorf("failed to copy %s: %w", rel, err)
		}
		return nil
	})
}

func (s *Store) skipped(rel string) bool {
	for _, pattern := range s.skip {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// copyFile copies a single file from src to dst
func (s *Store) copyFile(src, dst string, mode os.FileMode) (err error) {
	srcFile, err := s.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	dstFile, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer func() {
		if cerr := dstFile.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close destination file: %w", cerr)
		}
	}()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file contents: %w", err)
	}
	return nil
}
