package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// File is the YAML policy format.
//
//	licenses:
//	  excluded: [proprietary]
//	  allowed: [CC-BY-4.0, public]
//	  keep_unlicensed: true
//	require_themes: false
type File struct {
	Licenses      LicenseRules `yaml:"licenses"`
	RequireThemes bool         `yaml:"require_themes"`
}

// LicenseRules restricts projects by their license string. Comparison is
// case-insensitive. An empty Allowed list admits every license not excluded.
type LicenseRules struct {
	Excluded       []string `yaml:"excluded"`
	Allowed        []string `yaml:"allowed"`
	KeepUnlicensed *bool    `yaml:"keep_unlicensed"`
}

// TranspileYAML converts a YAML policy to a Rego module defining Query.
func TranspileYAML(data []byte) (string, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("failed to parse policy: %w", err)
	}
	return f.Rego()
}

// Rego renders the policy as a Rego module.
func (f File) Rego() (string, error) {
	excluded, err := formatRegoSet(f.Licenses.Excluded)
	if err != nil {
		return "", err
	}
	allowed, err := formatRegoSet(f.Licenses.Allowed)
	if err != nil {
		return "", err
	}
	keepUnlicensed := true
	if f.Licenses.KeepUnlicensed != nil {
		keepUnlicensed = *f.Licenses.KeepUnlicensed
	}

	var buf bytes.Buffer
	buf.WriteString("package apexcat.filter\n\n")
	buf.WriteString("default keep := false\n\n")
	buf.WriteString("excluded := " + excluded + "\n\n")
	buf.WriteString("allowed := " + allowed + "\n\n")
	buf.WriteString("license := lower(object.get(input, \"license\", \"\"))\n\n")

	buf.WriteString("themed if {\n")
	buf.WriteString("  some link in object.get(input, \"links\", [])\n")
	buf.WriteString("  contains(lower(object.get(link, \"title\", \"\")), \"theme: \")\n")
	buf.WriteString("}\n\n")

	if keepUnlicensed {
		buf.WriteString("licensed if license == \"\"\n\n")
	}
	buf.WriteString("licensed if {\n")
	buf.WriteString("  license != \"\"\n")
	buf.WriteString("  not excluded[license]\n")
	if len(f.Licenses.Allowed) > 0 {
		buf.WriteString("  allowed[license]\n")
	}
	buf.WriteString("}\n\n")

	buf.WriteString("keep if {\n")
	buf.WriteString("  licensed\n")
	if f.RequireThemes {
		buf.WriteString("  themed\n")
	}
	buf.WriteString("}\n")

	return buf.String(), nil
}

// formatRegoSet renders values as a lowercased, sorted Rego set literal.
// e.g. [GPL-3.0, MIT] -> {"gpl-3.0", "mit"}
func formatRegoSet(values []string) (string, error) {
	if len(values) == 0 {
		return "set()", nil
	}
	lower := cases.Lower(language.Und)
	seen := make(map[string]bool, len(values))
	var items []string
	for _, v := range values {
		v = lower.String(v)
		if seen[v] {
			continue
		}
		seen[v] = true
		items = append(items, v)
	}
	sort.Strings(items)

	var buf bytes.Buffer
	buf.WriteString("{")
	for i, item := range items {
		quoted, err := json.Marshal(item)
		if err != nil {
			return "", err
		}
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.Write(quoted)
	}
	buf.WriteString("}")
	return buf.String(), nil
}
