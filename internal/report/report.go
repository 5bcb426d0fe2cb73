// Package report renders a markdown summary of a build run.
package report

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/aymerick/raymond"
	"github.com/fulmenhq/apexcat/internal/pipeline"
	"github.com/fulmenhq/apexcat/pkg/safeio"
)

//go:embed templates/report.md.hbs
var defaultTemplate string

// TemplateEnv names the environment variable that overrides the built-in template.
const TemplateEnv = "APEXCAT_REPORT_TEMPLATE"

// Options adds run context the summary does not carry.
type Options struct {
	// Title heads the report; the build command passes the catalogue title.
	Title string
	// Revision is the source commit when the source came from git.
	Revision string
}

// Render renders summary as markdown.
func Render(summary *pipeline.Summary, opts Options) (string, error) {
	tpl := defaultTemplate
	if envPath := os.Getenv(TemplateEnv); strings.TrimSpace(envPath) != "" {
		content, err := os.ReadFile(filepath.Clean(envPath))
		if err != nil {
			return "", fmt.Errorf("failed to read report template: %w", err)
		}
		tpl = string(content)
	}
	return renderHandlebars(tpl, newTemplateData(summary, opts))
}

// Write renders summary and writes it to path, keeping the mode of an
// existing file.
func Write(path string, summary *pipeline.Summary, opts Options) error {
	out, err := Render(summary, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := safeio.WriteFilePreservePerms(path, []byte(out)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// newTemplateData flattens the summary into the map the template renders.
func newTemplateData(s *pipeline.Summary, opts Options) map[string]interface{} {
	title := opts.Title
	if title == "" {
		title = "apexcat build report"
	}

	themes := make([]map[string]interface{}, 0, len(s.Themes))
	for _, th := range s.Themes {
		projects := make([]map[string]interface{}, 0, len(th.Projects))
		for _, ref := range th.Projects {
			projects = append(projects, map[string]interface{}{"id": ref.ID, "title": ref.Title})
		}
		themes = append(themes, map[string]interface{}{"id": th.ID, "projects": projects})
	}

	return map[string]interface{}{
		"title":       title,
		"runId":       s.RunID,
		"generatedAt": s.StartedAt.Format(time.RFC3339),
		"duration":    s.Duration.Round(time.Millisecond).String(),
		"source":      s.SourceDir,
		"revision":    opts.Revision,
		"target":      s.TargetDir,
		"projects":    s.Projects,
		"dropped":     s.Dropped,
		"missing":     s.Missing,
		"themes":      themes,
	}
}

// renderHandlebars parses tpl and renders it with the report helpers.
// Helpers are registered per template; raymond panics on duplicate global
// registration.
func renderHandlebars(tpl string, data interface{}) (string, error) {
	t, err := raymond.Parse(tpl)
	if err != nil {
		return "", fmt.Errorf("failed to parse report template: %w", err)
	}
	t.RegisterHelper("len", func(v interface{}) int {
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len()
		default:
			return 0
		}
	})
	t.RegisterHelper("plural", func(n int, one, many string) string {
		if n == 1 {
			return one
		}
		return many
	})

	out, err := t.Exec(data)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}
