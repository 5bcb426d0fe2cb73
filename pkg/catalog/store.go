package catalog

import "github.com/fulmenhq/apexcat/pkg/logger"

// Store loads and saves documents and manipulates directories in the output
// tree. Paths are slash-separated. Load reports missing files with
// ErrNotFound and undecodable ones with ErrParse.
type Store interface {
	Load(path string) (Document, error)
	Save(path string, doc Document) error
	CopySubtree(src, dst string) error
	ResetDirectory(path string) error
	Exists(path string) bool
}

// Observer receives progress and warnings from a build. *logger.Logger
// satisfies it.
type Observer interface {
	Debug(message string, fields ...logger.Field)
	Info(message string, fields ...logger.Field)
	Warn(message string, fields ...logger.Field)
}

type nopObserver struct{}

func (nopObserver) Debug(string, ...logger.Field) {}
func (nopObserver) Info(string, ...logger.Field) {}
func (nopObserver) Warn(string, ...logger.Field) {}

// Builder runs the three build stages against a Store.
type Builder struct {
	store Store
	obs   Observer
}

// Option configures a Builder.
type Option func(*Builder)

// WithObserver routes build progress and warnings to obs.
func WithObserver(obs Observer) Option {
	return func(b *Builder) {
		if obs != nil {
			b.obs = obs
		}
	}
}

// NewBuilder returns a Builder over store. Without WithObserver, messages are
// discarded.
func NewBuilder(store Store, opts ...Option) *Builder {
	b := &Builder{store: store, obs: nopObserver{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}
