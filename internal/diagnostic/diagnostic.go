// Package diagnostic collects non-fatal findings and defines the fatal error
// taxonomy of a generation run.
package diagnostic

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Severity of a collected finding. Under --strict every warning is
// recorded as an error.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Category names the kind of finding; fatal errors reuse the same names.
type Category string

const (
	CategoryDuplicate         Category = "duplicate-declaration"
	CategoryTypeUnsupported   Category = "type-unsupported"
	CategoryConfigMissing     Category = "config-missing"
	CategoryMalformedDefault  Category = "malformed-default"
	CategoryConfigInvalid     Category = "config-invalid"
	CategoryParse             Category = "parse"
	CategoryResolve           Category = "resolve"
	CategoryRouteConflict     Category = "route-conflict"
	CategoryParameterInvalid  Category = "parameter-invalid"
	CategoryOpenAPICompliance Category = "openapi-compliance"
)

// Diagnostic is one finding. File is empty for document-level findings and
// Line is 0 when only the file is known.
type Diagnostic struct {
	Severity Severity
	Category Category
	File     string
	Line     int
	Message  string
	Hint     string
}

// String renders "file:line: warning[category]: message" with the hint on
// an indented second line.
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.File != "" {
		sb.WriteString(d.File)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d", d.Line)
		}
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s[%s]: %s", d.Severity, d.Category, d.Message)
	if d.Hint != "" {
		sb.WriteString("\n    hint: ")
		sb.WriteString(d.Hint)
	}
	return sb.String()
}

// Collector gathers the findings of one run. A nil *Collector discards
// everything.
type Collector struct {
	diagnostics []Diagnostic
	strict      bool
	quiet       bool
}

// NewCollector creates a collector. strict records warnings as errors;
// quiet drops them.
func NewCollector(strict, quiet bool) *Collector {
	return &Collector{strict: strict, quiet: quiet}
}

// Warn records a warning.
func (c *Collector) Warn(category Category, file string, line int, message string) {
	c.WarnWithHint(category, file, line, message, "")
}

// WarnWithHint records a warning with a suggested fix.
func (c *Collector) WarnWithHint(category Category, file string, line int, message, hint string) {
	if c == nil || c.quiet {
		return
	}
	sev := SeverityWarning
	if c.strict {
		sev = SeverityError
	}
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: sev,
		Category: category,
		File:     file,
		Line:     line,
		Message:  message,
		Hint:     hint,
	})
}

// Diagnostics returns the findings ordered by file and line. Document-level
// findings come first; ties keep the order they were recorded in.
func (c *Collector) Diagnostics() []Diagnostic {
	if c == nil {
		return nil
	}
	out := slices.Clone(c.diagnostics)
	slices.SortStableFunc(out, func(a, b Diagnostic) int {
		return cmp.Or(cmp.Compare(a.File, b.File), cmp.Compare(a.Line, b.Line))
	})
	return out
}

func (c *Collector) count(sev Severity) int {
	if c == nil {
		return 0
	}
	n := 0
	for _, d := range c.diagnostics {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// HasErrors reports whether a strict run recorded any finding.
func (c *Collector) HasErrors() bool { return c.ErrorCount() > 0 }

func (c *Collector) ErrorCount() int   { return c.count(SeverityError) }
func (c *Collector) WarningCount() int { return c.count(SeverityWarning) }

// Summary returns e.g. "1 error, 2 warnings", or "" when nothing was found.
func (c *Collector) Summary() string {
	var parts []string
	if n := c.ErrorCount(); n > 0 {
		parts = append(parts, plural(n, "error"))
	}
	if n := c.WarningCount(); n > 0 {
		parts = append(parts, plural(n, "warning"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// Print writes every finding followed by the summary line. It writes
// nothing when there are no findings.
func (c *Collector) Print(w io.Writer) error {
	diags := c.Diagnostics()
	if len(diags) == 0 {
		return nil
	}
	for _, d := range diags {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, c.Summary())
	return err
}
