package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vk/apispec/internal/issue"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatJSON}

// Write renders issues in the named format.
func Write(w io.Writer, format string, issues issue.List) error {
	switch format {
	case FormatText, "":
		return Text(w, issues)
	case FormatJSON:
		return JSON(w, issues)
	}
	return fmt.Errorf("unknown format %q: must be %s", format, strings.Join(Formats, " or "))
}

// JSON writes issues as an indented array. An empty list is "[]".
func JSON(w io.Writer, issues issue.List) error {
	if issues == nil {
		issues = issue.List{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(issues)
}

// Summary counts issues by severity, e.g. "1 error, 2 warnings".
func Summary(issues issue.List) string {
	counts := issues.Counts()
	var parts []string
	for _, s := range []struct {
		sev  issue.Severity
		name string
	}{
		{issue.SeverityError, "error"},
		{issue.SeverityWarn, "warning"},
		{issue.SeverityInfo, "info"},
		{issue.SeverityHint, "hint"},
	} {
		n := counts[s.sev]
		if n == 0 {
			continue
		}
		name := s.name
		if n != 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	if len(parts) == 0 {
		return "no problems"
	}
	return strings.Join(parts, ", ")
}

// ParseThreshold parses a --fail-on value. "never" disables failing.
func ParseThreshold(name string) (issue.Severity, error) {
	if name == "never" {
		return issue.SeverityOff, nil
	}
	sev, err := issue.ParseSeverity(name)
	if err != nil || sev == issue.SeverityOff {
		return issue.SeverityOff, fmt.Errorf("invalid threshold %q: must be one of error, warn, info, hint, never", name)
	}
	return sev, nil
}

// Failed reports whether any issue reaches the threshold.
func Failed(issues issue.List, threshold issue.Severity) bool {
	return issues.AtLeast(threshold)
}

// theme holds the styles of the text format.
type theme struct {
	File     lipgloss.Style
	Location lipgloss.Style
	Rule     lipgloss.Style
	Summary  lipgloss.Style
	Severity map[issue.Severity]lipgloss.Style
}

func newTheme(r *lipgloss.Renderer) theme {
	return theme{
		File:     r.NewStyle().Bold(true).Underline(true),
		Location: r.NewStyle().Faint(true),
		Rule:     r.NewStyle().Faint(true),
		Summary:  r.NewStyle().Bold(true),
		Severity: map[issue.Severity]lipgloss.Style{
			issue.SeverityError: r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			issue.SeverityWarn:  r.NewStyle().Foreground(lipgloss.Color("11")),
			issue.SeverityInfo:  r.NewStyle().Foreground(lipgloss.Color("12")),
			issue.SeverityHint:  r.NewStyle().Faint(true),
		},
	}
}

// Text writes issues grouped by file, one aligned line per issue, followed
// by a summary line. Colors follow the capabilities of w.
func Text(w io.Writer, issues issue.List) error {
	th := newTheme(lipgloss.NewRenderer(w))

	var sb strings.Builder
	for _, group := range byFile(issues) {
		file := group[0].File
		if file == "" {
			file = "<input>"
		}
		sb.WriteString(th.File.Render(file))
		sb.WriteByte('\n')

		locs := make([]string, len(group))
		var locWidth, sevWidth, msgWidth int
		for i, is := range group {
			locs[i] = location(is)
			locWidth = max(locWidth, len(locs[i]))
			sevWidth = max(sevWidth, len(is.Severity.String()))
			msgWidth = max(msgWidth, len(is.Message))
		}
		for i, is := range group {
			sev := is.Severity.String()
			fmt.Fprintf(&sb, "  %s  %s  %s  %s\n",
				th.Location.Render(pad(locs[i], locWidth)),
				th.Severity[is.Severity].Render(pad(sev, sevWidth)),
				pad(is.Message, msgWidth),
				th.Rule.Render(is.Rule),
			)
		}
		sb.WriteByte('\n')
	}

	line := Summary(issues)
	if len(issues) > 0 {
		n := len(issues)
		noun := "problems"
		if n == 1 {
			noun = "problem"
		}
		line = fmt.Sprintf("%d %s (%s)", n, noun, line)
	} else {
		line = "No problems found."
	}
	sb.WriteString(th.Summary.Render(line))
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

func location(is issue.Issue) string {
	if is.Position.Line > 0 {
		return fmt.Sprintf("%d:%d", is.Position.Line, is.Position.Column)
	}
	if is.Path == "" {
		return "/"
	}
	return is.Path
}

func pad(s string, width int) string {
	if n := width - len(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// byFile splits issues into runs of the same file, keeping input order.
func byFile(issues issue.List) []issue.List {
	var groups []issue.List
	index := map[string]int{}
	for _, is := range issues {
		i, ok := index[is.File]
		if !ok {
			i = len(groups)
			index[is.File] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], is)
	}
	return groups
}
