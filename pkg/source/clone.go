// Package source checks out the upstream metadata repository into the
// apexcat cache.
package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/logger"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// ErrFetch wraps failures to reach or read the source repository.
var ErrFetch = errors.New("source fetch failed")

// DefaultRepo is the upstream open science catalogue.
const DefaultRepo = "ESA-EarthCODE/open-science-catalog-metadata"

const cacheDirName = "sources"

// Checkout is a source tree checked out at a resolved commit.
type Checkout struct {
	Path     string
	Revision string
	Cached   bool
}

// Fetch clones repo (an owner/name GitHub shorthand or a full URL, file://
// included) and checks out ref. Clones are cached under
// $APEXCAT_HOME/cache/sources keyed by repo and ref; later calls fetch into
// the cached clone.
func Fetch(ctx context.Context, repo, ref string, log *logger.Logger) (*Checkout, error) {
	if repo == "" {
		return nil, errors.New("repo cannot be empty")
	}
	if ref == "" {
		return nil, errors.New("ref cannot be empty")
	}
	if log == nil {
		log = logger.Default()
	}

	cacheDir, err := ensureCacheDir()
	if err != nil {
		return nil, err
	}
	targetPath := filepath.Join(cacheDir, hashRepoRef(repo, ref))

	repository, cached, err := openOrClone(ctx, repo, ref, targetPath, log)
	if err != nil {
		return nil, err
	}

	hash, err := resolveRefHash(repository, ref)
	if err != nil {
		if !cached {
			_ = os.RemoveAll(targetPath)
		}
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	if err := checkoutHash(repository, hash); err != nil {
		if !cached {
			_ = os.RemoveAll(targetPath)
		}
		return nil, fmt.Errorf("%w: failed to checkout %s: %w", ErrFetch, ref, err)
	}

	return &Checkout{
		Path:     targetPath,
		Revision: hash.String(),
		Cached:   cached,
	}, nil
}

func ensureCacheDir() (string, error) {
	cache, err := config.GetCacheDir()
	if err != nil {
		return "", err
	}

	dir := filepath.Join(cache, cacheDirName)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create source cache directory: %w", err)
	}
	return dir, nil
}

func openOrClone(ctx context.Context, repo, ref, targetPath string, log *logger.Logger) (*git.Repository, bool, error) {
	if repository, err := git.PlainOpen(targetPath); err == nil {
		if err := fetchLatest(ctx, repository); err != nil {
			if errors.Is(err, transport.ErrAuthenticationRequired) {
				return nil, false, fmt.Errorf("%w: %w", ErrFetch, err)
			}
			log.Debug("Cached source fetch failed, recloning", logger.String("path", targetPath), logger.Err(err))
			_ = os.RemoveAll(targetPath)
		} else {
			return repository, true, nil
		}
	}

	_ = os.RemoveAll(targetPath)

	cloneURL, err := buildCloneURL(repo)
	if err != nil {
		return nil, false, err
	}

	log.Info("Cloning source repository", logger.String("repo", repo), logger.String("ref", ref), logger.String("path", targetPath))
	repository, err := git.PlainCloneContext(ctx, targetPath, false, &git.CloneOptions{
		URL:  cloneURL,
		Tags: git.AllTags,
	})
	if err != nil {
		_ = os.RemoveAll(targetPath)
		return nil, false, fmt.Errorf("%w: failed to clone %s: %w", ErrFetch, cloneURL, err)
	}

	return repository, false, nil
}

func fetchLatest(ctx context.Context, repository *git.Repository) error {
	err := repository.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.AllTags,
		Force:      true,
	})
	if err == nil || errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

func buildCloneURL(repo string) (string, error) {
	trimmed := strings.TrimSpace(repo)
	for _, scheme := range []string{"http://", "https://", "ssh://", "file://"} {
		if strings.HasPrefix(trimmed, scheme) {
			return trimmed, nil
		}
	}

	if strings.Contains(trimmed, "://") {
		return "", fmt.Errorf("unsupported repo URL scheme: %s", trimmed)
	}
	if strings.Count(trimmed, "/") != 1 {
		return "", fmt.Errorf("repo %q is neither a URL nor owner/name", trimmed)
	}

	trimmed = strings.TrimSuffix(trimmed, ".git")
	return fmt.Sprintf("https://github.com/%s.git", trimmed), nil
}

func hashRepoRef(repo, ref string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(repo) + ":" + ref))
	return hex.EncodeToString(sum[:])[:32]
}

func resolveRefHash(repository *git.Repository, ref string) (plumbing.Hash, error) {
	// Remote branches first: a cached clone's local branch lags behind fetches.
	candidates := []plumbing.ReferenceName{
		plumbing.NewRemoteReferenceName("origin", ref),
		plumbing.NewTagReferenceName(ref),
		plumbing.NewBranchReferenceName(ref),
		plumbing.ReferenceName(ref),
	}
	for _, candidate := range candidates {
		if reference, err := repository.Reference(candidate, true); err == nil {
			return reference.Hash(), nil
		}
	}

	if hash, err := repository.ResolveRevision(plumbing.Revision(ref)); err == nil {
		return *hash, nil
	}

	return plumbing.ZeroHash, fmt.Errorf("ref %s not found", ref)
}

func checkoutHash(repository *git.Repository, hash plumbing.Hash) error {
	worktree, err := repository.Worktree()
	if err != nil {
		return err
	}
	return worktree.Checkout(&git.CheckoutOptions{
		Hash:  hash,
		Force: true,
	})
}
