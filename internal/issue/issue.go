// Package issue models findings about a spec document. Findings are not Go
// errors: a document with a thousand findings still loads, and every
// consumer (validator, linter, reporters, the RPC server) speaks in terms of
// issue lists.
package issue

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vk/apispec/internal/pointer"
)

// Severity ranks findings. Higher values are more severe.
type Severity int

const (
	SeverityOff Severity = iota
	SeverityHint
	SeverityInfo
	SeverityWarn
	SeverityError
)

var severityNames = map[Severity]string{
	SeverityOff:   "off",
	SeverityHint:  "hint",
	SeverityInfo:  "info",
	SeverityWarn:  "warn",
	SeverityError: "error",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity accepts the canonical names plus "warning".
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "off", "none":
		return SeverityOff, nil
	case "hint":
		return SeverityHint, nil
	case "info":
		return SeverityInfo, nil
	case "warn", "warning":
		return SeverityWarn, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityOff, fmt.Errorf("unknown severity %q: must be 'error', 'warn', 'info', 'hint' or 'off'", name)
}

// Position is a 1-based line/column location in a source file.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Issue is a single finding.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Position Position `json:"position"`
}

// New builds an issue located at a JSON pointer.
func New(rule string, sev Severity, at pointer.Pointer, format string, args ...any) Issue {
	return Issue{
		Rule:     rule,
		Severity: sev,
		Path:     at.String(),
		Message:  fmt.Sprintf(format, args...),
	}
}

func (i Issue) String() string {
	loc := i.Path
	if loc == "" {
		loc = "/"
	}
	if i.File != "" {
		if i.Position.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d %s", i.File, i.Position.Line, i.Position.Column, loc)
		} else {
			loc = fmt.Sprintf("%s %s", i.File, loc)
		}
	}
	return fmt.Sprintf("%s [%s] %s: %s", loc, i.Severity, i.Rule, i.Message)
}

// List is an ordered collection of issues.
type List []Issue

// HasErrors reports whether any issue is of error severity.
func (l List) HasErrors() bool {
	return l.AtLeast(SeverityError)
}

// AtLeast reports whether any issue meets the threshold. SeverityOff as a
// threshold never matches.
func (l List) AtLeast(threshold Severity) bool {
	if threshold == SeverityOff {
		return false
	}
	for _, i := range l {
		if i.Severity >= threshold {
			return true
		}
	}
	return false
}

// Filter returns the issues for which keep returns true.
func (l List) Filter(keep func(Issue) bool) List {
	var out List
	for _, i := range l {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}

// MinSeverity drops everything below the threshold.
func (l List) MinSeverity(threshold Severity) List {
	return l.Filter(func(i Issue) bool { return i.Severity >= threshold && i.Severity > SeverityOff })
}

// Counts returns the number of issues per severity.
func (l List) Counts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, i := range l {
		counts[i.Severity]++
	}
	return counts
}

// WithFile stamps every issue with the file name and, when positions are
// known, the source location of its path (or the closest ancestor).
func (l List) WithFile(file string, positions map[string]Position) List {
	out := make(List, len(l))
	for idx, i := range l {
		i.File = file
		if positions != nil && i.Position.Line == 0 {
			i.Position = locate(i.Path, positions)
		}
		out[idx] = i
	}
	return out
}

func locate(path string, positions map[string]Position) Position {
	p, err := pointer.Parse(path)
	if err != nil {
		return Position{}
	}
	for {
		if pos, ok := positions[p.String()]; ok {
			return pos
		}
		if len(p) == 0 {
			return Position{}
		}
		p = p.Parent()
	}
}

// Sort orders issues by file, path, severity (most severe first) and rule.
func (l List) Sort() {
	sort.SliceStable(l, func(a, b int) bool {
		x, y := l[a], l[b]
		if x.File != y.File {
			return x.File < y.File
		}
		if x.Path != y.Path {
			return x.Path < y.Path
		}
		if x.Severity != y.Severity {
			return x.Severity > y.Severity
		}
		if x.Rule != y.Rule {
			return x.Rule < y.Rule
		}
		return x.Message < y.Message
	})
}
