package safeio

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrEscapesBase is returned when a reference resolves outside its base directory.
var ErrEscapesBase = errors.New("path escapes base directory")

// JoinContained resolves ref (a slash-separated relative reference taken from
// document data) against base and rejects results that leave base.
// Absolute refs and URLs are rejected as well since they cannot be contained.
func JoinContained(base, ref string) (string, error) {
	if ref == "" {
		return "", errors.New("empty reference")
	}
	if strings.Contains(ref, "://") || path.IsAbs(ref) {
		return "", fmt.Errorf("%w: %s is not a relative reference", ErrEscapesBase, ref)
	}

	cleanBase := path.Clean(filepath.ToSlash(base))
	joined := path.Join(cleanBase, ref)

	if !Within(cleanBase, joined) {
		return "", fmt.Errorf("%w: %s", ErrEscapesBase, ref)
	}
	return joined, nil
}

// Within reports whether target equals base or lies beneath it.
// Both arguments are treated as slash-separated paths.
func Within(base, target string) bool {
	b := path.Clean(filepath.ToSlash(base))
	t := path.Clean(filepath.ToSlash(target))
	if b == t {
		return true
	}
	if b == "/" {
		return strings.HasPrefix(t, "/")
	}
	if b == "." {
		return t != ".." && !strings.HasPrefix(t, "../") && !path.IsAbs(t)
	}
	return strings.HasPrefix(t, b+"/")
}

// AbsSlash returns the absolute, slash-separated form of a user supplied path.
func AbsSlash(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return filepath.ToSlash(abs), nil
}

// WriteFilePreservePerms writes data to path preserving existing file mode when possible.
// When the file does not exist, it uses a sane default of 0644.
func WriteFilePreservePerms(path string, data []byte) error {
	var mode os.FileMode = 0o644
	if st, err := os.Stat(path); err == nil {
		mode = st.Mode() & 0o777
		if mode == 0 {
			mode = 0o644
		}
	}
	return os.WriteFile(path, data, mode)
}
