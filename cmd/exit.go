package cmd

import (
	"errors"
	"io/fs"

	"github.com/fulmenhq/apexcat/internal/pipeline"
	"github.com/fulmenhq/apexcat/pkg/catalog"
	"github.com/fulmenhq/apexcat/pkg/config"
	"github.com/fulmenhq/apexcat/pkg/exitcode"
	"github.com/fulmenhq/apexcat/pkg/policy"
	"github.com/fulmenhq/apexcat/pkg/source"
)

// exitCodeFor maps an error returned by a command to a process exit code.
func exitCodeFor(err error) int {
	var pathErr *fs.PathError
	switch {
	case err == nil:
		return exitcode.Success
	case errors.Is(err, config.ErrInvalid), errors.Is(err, pipeline.ErrOverlap):
		return exitcode.ConfigError
	case errors.Is(err, catalog.ErrNotFound):
		return exitcode.NotFound
	case errors.Is(err, catalog.ErrParse):
		return exitcode.ParseError
	case errors.Is(err, catalog.ErrConsistency):
		return exitcode.ConsistencyError
	case errors.Is(err, policy.ErrInvalidPolicy):
		return exitcode.PolicyError
	case errors.Is(err, source.ErrFetch):
		return exitcode.NetworkError
	case errors.As(err, &pathErr):
		return exitcode.FileSystemError
	default:
		return exitcode.GeneralError
	}
}
