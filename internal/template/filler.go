// =============================================================================
// FEWS-RORB Adapter - Template Placeholder Filler
// =============================================================================
//
// This module fills the RORB input templates (.par, .stm, .catg, .dat) by
// substituting {name} placeholders with pre-rendered values.
//
// CONTRACT:
//   The placeholder names of each template are a fixed contract between the
//   adapter and that template file. The placeholder set is collected when
//   the template is loaded and checked against the supplied replacement map
//   in both directions before anything is written: a placeholder without a
//   value, or a value without a placeholder, is a hard error. Templates
//   carry no conditional or loop logic; optional content (such as an
//   optional file-reference line) is decided by the caller through the
//   value it supplies.
//
// ESCAPES:
//   A literal brace is written doubled: {{ renders {, }} renders }.
//
// =============================================================================

package template

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// placeholderRe matches a {name} slot. Names are identifier-like.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Template is a loaded template file with its placeholder set.
type Template struct {
	path         string
	text         string
	placeholders map[string]struct{}
}

// Load reads a template file and records the set of placeholders it
// references. The set is fixed from this point on, so contract drift
// between adapter and template surfaces at load time.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	text := string(data)
	placeholders := make(map[string]struct{})

	// Mask escaped braces before scanning so {{name}} is not a slot.
	masked := strings.ReplaceAll(text, "{{", "\x00\x00")
	masked = strings.ReplaceAll(masked, "}}", "\x01\x01")
	for _, m := range placeholderRe.FindAllStringSubmatch(masked, -1) {
		placeholders[m[1]] = struct{}{}
	}

	return &Template{path: path, text: text, placeholders: placeholders}, nil
}

// Placeholders returns the sorted placeholder names of the template.
func (t *Template) Placeholders() []string {
	names := make([]string, 0, len(t.placeholders))
	for name := range t.placeholders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Fill substitutes every placeholder with its value in a single pass.
//
// Fill fails when the template references a name absent from replacements,
// or replacements carries a name the template never uses. Both directions
// are checked before any substitution happens.
func (t *Template) Fill(replacements map[string]string) (string, error) {
	var unresolved, extra []string
	for name := range t.placeholders {
		if _, ok := replacements[name]; !ok {
			unresolved = append(unresolved, name)
		}
	}
	for name := range replacements {
		if _, ok := t.placeholders[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(unresolved)
	sort.Strings(extra)

	if len(unresolved) > 0 {
		return "", fmt.Errorf("template %s: unresolved placeholders %v", t.path, unresolved)
	}
	if len(extra) > 0 {
		return "", fmt.Errorf("template %s: values without placeholders %v", t.path, extra)
	}

	masked := strings.ReplaceAll(t.text, "{{", "\x00\x00")
	masked = strings.ReplaceAll(masked, "}}", "\x01\x01")

	filled := placeholderRe.ReplaceAllStringFunc(masked, func(m string) string {
		name := m[1 : len(m)-1]
		return replacements[name]
	})

	filled = strings.ReplaceAll(filled, "\x00\x00", "{")
	filled = strings.ReplaceAll(filled, "\x01\x01", "}")
	return filled, nil
}

// FillToFile fills the template and writes the result to outputPath.
func (t *Template) FillToFile(outputPath string, replacements map[string]string) error {
	filled, err := t.Fill(replacements)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, []byte(filled), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, err)
	}
	return nil
}

// StripBlankLines removes blank lines from a previously written output file.
// RORB's strict-column-count parser rejects stray blank lines, so filled
// templates whose optional slots rendered empty are compacted afterwards.
func StripBlankLines(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var kept []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	out := strings.Join(kept, "\n")
	if len(kept) > 0 {
		out += "\n"
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
