package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/apispec/internal/issue"
)

func sample() issue.List {
	return issue.List{
		{Rule: "path.parameters", Severity: issue.SeverityError, Path: "/paths/~1a/get", Message: "path variable {id} has no matching path parameter", File: "api.yaml", Position: issue.Position{Line: 12, Column: 5}},
		{Rule: "info-contact", Severity: issue.SeverityWarn, Path: "/info", Message: "info object should have a contact", File: "api.yaml", Position: issue.Position{Line: 2, Column: 1}},
		{Rule: "host-no-scheme", Severity: issue.SeverityError, Path: "/host", Message: "host must not include a scheme", File: "other.yaml"},
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sample()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	var fields [][]string
	for _, l := range lines {
		fields = append(fields, strings.Fields(l))
	}

	require.Len(t, lines, 8)
	assert.Equal(t, "api.yaml", lines[0])
	assert.Equal(t, []string{"12:5", "error", "path", "variable", "{id}", "has", "no", "matching", "path", "parameter", "path.parameters"}, fields[1])
	assert.Equal(t, []string{"2:1", "warn", "info", "object", "should", "have", "a", "contact", "info-contact"}, fields[2])
	assert.Equal(t, "", lines[3])
	assert.Equal(t, "other.yaml", lines[4])
	assert.Equal(t, "/host", fields[5][0])
	assert.Equal(t, "3 problems (2 errors, 1 warning)", lines[7])

	// Columns line up within a file.
	assert.Equal(t, strings.Index(lines[1], "path variable"), strings.Index(lines[2], "info object"))
}

func TestText_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, nil))
	assert.Equal(t, "No problems found.\n", buf.String())
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()[:1]))

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "error", decoded[0]["severity"])
	assert.Equal(t, "/paths/~1a/get", decoded[0]["path"])
	assert.Equal(t, map[string]any{"line": float64(12), "column": float64(5)}, decoded[0]["position"])

	buf.Reset()
	require.NoError(t, JSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWrite_UnknownFormat(t *testing.T) {
	assert.ErrorContains(t, Write(&bytes.Buffer{}, "xml", nil), `unknown format "xml"`)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no problems", Summary(nil))
	assert.Equal(t, "2 errors, 1 warning", Summary(sample()))
	assert.Equal(t, "1 hint", Summary(issue.List{{Severity: issue.SeverityHint}}))
}

func TestThreshold(t *testing.T) {
	testCases := []struct {
		in      string
		want    issue.Severity
		wantErr bool
	}{
		{"error", issue.SeverityError, false},
		{"warn", issue.SeverityWarn, false},
		{"warning", issue.SeverityWarn, false},
		{"info", issue.SeverityInfo, false},
		{"hint", issue.SeverityHint, false},
		{"never", issue.SeverityOff, false},
		{"off", issue.SeverityOff, true},
		{"loud", issue.SeverityOff, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseThreshold(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	list := sample()
	assert.True(t, Failed(list, issue.SeverityError))
	assert.False(t, Failed(list[1:2], issue.SeverityError))
	assert.True(t, Failed(list[1:2], issue.SeverityWarn))
	assert.False(t, Failed(list, issue.SeverityOff))
}
