package check

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/pointer"
)

func TestRun_OptionsAndSeverity(t *testing.T) {
	var seen []string
	rule := &Rule{
		Name:     "demo",
		Severity: issue.SeverityWarn,
		Options:  map[string]any{"style": "kebab", "allow": []any{"a"}},
		Run: func(_ context.Context, p *Pass) {
			seen = append(seen, p.String("style"))
			seen = append(seen, p.Strings("allow")...)
			p.Report(pointer.New("paths", "/x"), "bad %s", "path")
		},
	}

	got := Run(context.Background(), rule, &Subject{}, issue.SeverityError, map[string]any{"style": "snake"})

	assert.Equal(t, []string{"snake", "a"}, seen)
	require.Len(t, got, 1)
	assert.Equal(t, issue.Issue{
		Rule:     "demo",
		Severity: issue.SeverityError,
		Path:     "/paths/~1x",
		Message:  "bad path",
	}, got[0])
}

func TestRun_OffSkipsRule(t *testing.T) {
	rule := &Rule{
		Name: "never",
		Run:  func(context.Context, *Pass) { t.Fatal("rule must not run") },
	}
	assert.Empty(t, Run(context.Background(), rule, &Subject{}, issue.SeverityOff, nil))
}

func TestReemitter(t *testing.T) {
	subj := &Subject{Prechecked: issue.List{
		issue.New("structure.required", issue.SeverityError, pointer.New("info"), "missing"),
		issue.New("structure.type", issue.SeverityError, pointer.New("host"), "wrong"),
	}}
	rule := &Rule{Name: "structure.required", Run: Reemitter("structure.required")}

	got := Run(context.Background(), rule, subj, issue.SeverityWarn, nil)

	require.Len(t, got, 1)
	assert.Equal(t, "/info", got[0].Path)
	assert.Equal(t, issue.SeverityWarn, got[0].Severity)
}

func TestPass_Strings(t *testing.T) {
	p := &Pass{options: map[string]any{
		"one":   "x",
		"typed": []string{"a", "b"},
		"mixed": []any{"a", int64(2)},
		"bad":   42,
	}}
	assert.Equal(t, []string{"x"}, p.Strings("one"))
	assert.Equal(t, []string{"a", "b"}, p.Strings("typed"))
	assert.Equal(t, []string{"a", "2"}, p.Strings("mixed"))
	assert.Nil(t, p.Strings("bad"))
	assert.Nil(t, p.Strings("missing"))
	assert.Equal(t, "", p.String("bad"))
}

func TestRule_OptionNames(t *testing.T) {
	r := &Rule{Options: map[string]any{"b": 1, "a": 2}}
	assert.Equal(t, []string{"a", "b"}, r.OptionNames())
}
