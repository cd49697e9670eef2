package lint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/config"
	"github.com/vk/apispec/internal/issue"
)

const customDoc = `swagger: "2.0"
info:
  title: Pets
  version: "2.0"
paths:
  /pets:
    get:
      summary: List pets
      responses:
        200: {description: ok}
    post:
      responses:
        201: {description: ok}
  /Pet_Items:
    get:
      summary: List items
      deprecated: true
      responses:
        200: {description: ok}
`

func TestCustomRules(t *testing.T) {
	testCases := []struct {
		name string
		rule config.CustomRule
		want []string
		msg  string
	}{
		{
			name: "truthy field on every operation",
			rule: config.CustomRule{Name: "has-summary", Given: "$.paths.*.*", Field: "summary", Check: config.CheckTruthy},
			want: []string{"has-summary /paths/~1pets/post/summary"},
			msg:  "summary must be set",
		},
		{
			name: "falsy field",
			rule: config.CustomRule{Name: "no-deprecated", Given: "$.paths.*.*", Field: "deprecated", Check: config.CheckFalsy},
			want: []string{"no-deprecated /paths/~1Pet_Items/get/deprecated"},
			msg:  "deprecated must not be set (got true)",
		},
		{
			name: "pattern on keys",
			rule: config.CustomRule{Name: "lower-paths", Given: "$.paths", Field: KeyField, Check: config.CheckPattern, Pattern: "^[a-z/{}]+$"},
			want: []string{"lower-paths /paths/~1Pet_Items"},
			msg:  `value must match "^[a-z/{}]+$" (got /Pet_Items)`,
		},
		{
			name: "enum with custom message",
			rule: config.CustomRule{
				Name: "known-version", Given: "$.info", Field: "version", Check: config.CheckEnum,
				Values: []string{"1.0"}, Message: "version {value} is not released",
			},
			want: []string{"known-version /info/version"},
			msg:  "version 2.0 is not released",
		},
		{
			name: "scalar match is reported where it is",
			rule: config.CustomRule{Name: "short-title", Given: "$.info.title", Check: config.CheckPattern, Pattern: "^.{1,3}$"},
			want: []string{"short-title /info/title"},
		},
		{
			name: "scalar matches under wildcards",
			rule: config.CustomRule{Name: "summary-style", Given: "$.paths.*.*.summary", Check: config.CheckPattern, Pattern: "^List pets$"},
			want: []string{"summary-style /paths/~1Pet_Items/get/summary"},
		},
		{
			name: "scalar matches by recursive descent",
			rule: config.CustomRule{Name: "summary-style", Given: "$..summary", Check: config.CheckPattern, Pattern: "^List pets$"},
			want: []string{"summary-style /paths/~1Pet_Items/get/summary"},
		},
		{
			name: "missing plain path is no match",
			rule: config.CustomRule{Name: "absent", Given: "$.info.contact", Field: "email", Check: config.CheckTruthy},
			want: []string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := newLinter(t, config.Lint{Extends: config.ExtendsOff, Custom: []config.CustomRule{tc.rule}})
			got := l.LintDocument(context.Background(), decode(t, customDoc))
			assert.Equal(t, tc.want, summarize(got))
			if tc.msg != "" && len(got) > 0 {
				assert.Equal(t, tc.msg, got[0].Message)
				assert.Equal(t, issue.SeverityWarn, got[0].Severity)
			}
		})
	}
}

func TestCustomRules_InlineDisableOnScalarMatch(t *testing.T) {
	doc := `swagger: "2.0"
info: {title: Pets, version: "1"}
paths:
  /pets:
    get:
      x-lint-disable: [summary-style]
      summary: whatever
      responses: {200: {description: ok}}
    post:
      summary: also whatever
      responses: {201: {description: ok}}
`
	rule := config.CustomRule{Name: "summary-style", Given: "$.paths.*.*.summary", Check: config.CheckPattern, Pattern: "^[A-Z]"}
	l := newLinter(t, config.Lint{Extends: config.ExtendsOff, Custom: []config.CustomRule{rule}})
	got := l.LintDocument(context.Background(), decode(t, doc))
	assert.Equal(t, []string{"summary-style /paths/~1pets/post/summary"}, summarize(got))
}

func TestSplitMember(t *testing.T) {
	tests := []struct {
		expr, parent, member string
		ok                   bool
	}{
		{"$.info.title", "$.info", "title", true},
		{"$.paths.*.*.summary", "$.paths.*.*", "summary", true},
		{"$.info['x-logo']", "$.info", "x-logo", true},
		{`$.tags[0]["name"]`, "$.tags[0]", "name", true},
		{"$..summary", "", "", false},
		{"$.tags[*]", "", "", false},
		{"$", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			parent, member, ok := splitMember(tt.expr)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.parent, parent)
			assert.Equal(t, tt.member, member)
		})
	}
}

func TestCustomRule_Errors(t *testing.T) {
	_, err := CustomRule(config.CustomRule{Name: "bad", Given: "$.paths[", Check: config.CheckTruthy})
	assert.ErrorContains(t, err, `custom rule "bad": invalid given`)

	_, err = CustomRule(config.CustomRule{Name: "bad", Given: "$", Check: config.CheckPattern, Pattern: "("})
	assert.ErrorContains(t, err, "invalid pattern")

	rule, err := CustomRule(config.CustomRule{Name: "sev", Given: "$", Check: config.CheckTruthy, Severity: "error"})
	require.NoError(t, err)
	assert.Equal(t, issue.SeverityError, rule.Severity)
	assert.Contains(t, rule.Description, "truthy")
}
