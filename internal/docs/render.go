package docs

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/model"
	"github.com/vk/apispec/internal/spec"
)

// UpdateEvent is the socket.io event announcing a rebuilt page.
const UpdateEvent = "spec:updated"

type Options struct {
	// Title overrides info.title.
	Title string
	// LiveReload adds a script that reloads the page on UpdateEvent.
	LiveReload bool
	// Issues are shown above the reference when any is an error.
	Issues issue.List
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"lower": strings.ToLower,
}).Parse(pageHTML))

// Render returns the HTML reference page for sw.
func Render(sw *spec.Swagger, models *model.Set, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPage(sw, models, opts)); err != nil {
		return nil, fmt.Errorf("render docs: %w", err)
	}
	return buf.Bytes(), nil
}

// Summary describes one build of the page. It is the payload of
// UpdateEvent.
type Summary struct {
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	Operations  int       `json:"operations"`
	Definitions int       `json:"definitions"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	BuiltAt     time.Time `json:"built_at"`
}

// Summarize counts what a build produced.
func Summarize(sw *spec.Swagger, issues issue.List, at time.Time) Summary {
	s := Summary{BuiltAt: at.UTC()}
	if sw != nil {
		if sw.Info != nil {
			s.Title, s.Version = sw.Info.Title, sw.Info.Version
		}
		s.Operations = len(sw.Operations())
		s.Definitions = len(sw.Definitions)
	}
	counts := issues.Counts()
	s.Errors = counts[issue.SeverityError]
	s.Warnings = counts[issue.SeverityWarn]
	return s
}

// String is the one-line form printed by Follow.
func (s Summary) String() string {
	status := "valid"
	if s.Errors > 0 {
		status = plural(s.Errors, "error")
	}
	if s.Warnings > 0 {
		status += ", " + plural(s.Warnings, "warning")
	}
	return fmt.Sprintf("[%s] %s %s: %s, %s, %s",
		s.BuiltAt.Local().Format(time.TimeOnly), s.Title, s.Version,
		plural(s.Operations, "operation"), plural(s.Definitions, "definition"), status)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}{{with .Version}} {{.}}{{end}}</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; display: flex; color: #222; }
nav { width: 16rem; padding: 1rem; background: #f5f5f7; height: 100vh; overflow-y: auto; position: sticky; top: 0; }
nav a { display: block; color: #333; text-decoration: none; font-size: .9rem; padding: .1rem 0; }
main { flex: 1; padding: 1rem 2rem; max-width: 60rem; }
.op { border: 1px solid #ddd; border-radius: 4px; margin: 1rem 0; padding: .5rem 1rem; }
.method { font-weight: bold; text-transform: uppercase; padding: .1rem .4rem; border-radius: 3px; color: #fff; }
.get { background: #2b7bb9; } .post { background: #3c9d4e; } .put { background: #c7862b; }
.delete { background: #c0392b; } .patch { background: #8e44ad; } .head, .options { background: #666; }
.deprecated { text-decoration: line-through; }
table { border-collapse: collapse; width: 100%; margin: .5rem 0; }
th, td { text-align: left; border-bottom: 1px solid #eee; padding: .25rem .5rem; font-size: .9rem; vertical-align: top; }
.issues { background: #fdecea; border: 1px solid #c0392b; padding: .5rem 1rem; }
code { font-size: .85rem; }
</style>
</head>
<body>
<nav>
<strong>{{.Title}}</strong>
{{range .Groups}}<p>{{.Name}}</p>
{{range .Operations}}<a href="#{{.Anchor}}">{{.Method}} {{.Path}}</a>
{{end}}{{end}}{{if .Models}}<p>Models</p>
{{range .Models}}<a href="#model-{{.Name}}">{{.Name}}</a>
{{end}}{{end}}</nav>
<main>
<h1>{{.Title}}{{with .Version}} <small>{{.}}</small>{{end}}</h1>
{{with .Description}}<p>{{.}}</p>{{end}}
{{if .Host}}<p>Base URL: <code>{{range $i, $s := .Schemes}}{{if $i}}|{{end}}{{$s}}{{end}}{{if .Schemes}}://{{end}}{{.Host}}{{.BasePath}}</code></p>{{end}}
{{if .Issues}}<div class="issues"><strong>This spec has errors</strong><ul>
{{range .Issues}}<li><code>{{.}}</code></li>
{{end}}</ul></div>{{end}}
{{range .Groups}}<section>
<h2>{{.Name}}</h2>
{{with .Description}}<p>{{.}}</p>{{end}}
{{range .Operations}}<div class="op" id="{{.Anchor}}">
<h3{{if .Deprecated}} class="deprecated"{{end}}><span class="method {{lower .Method}}">{{.Method}}</span> <code>{{.Path}}</code></h3>
{{with .Summary}}<p><strong>{{.}}</strong></p>{{end}}
{{with .Description}}<p>{{.}}</p>{{end}}
{{if .Parameters}}<table><tr><th>Parameter</th><th>In</th><th>Type</th><th>Required</th><th>Description</th></tr>
{{range .Parameters}}<tr><td><code>{{.Name}}</code></td><td>{{.In}}</td><td>{{.Type}}</td><td>{{if .Required}}yes{{end}}</td><td>{{.Description}}</td></tr>
{{end}}</table>{{end}}
{{if .Responses}}<table><tr><th>Response</th><th>Description</th><th>Schema</th></tr>
{{range .Responses}}<tr><td>{{.Code}}</td><td>{{.Description}}</td><td>{{.Type}}</td></tr>
{{end}}</table>{{end}}
</div>
{{end}}</section>
{{end}}
{{if .Models}}<section>
<h2>Models</h2>
{{range .Models}}<div class="op" id="model-{{.Name}}">
<h3>{{.Name}} <small>{{.Type}}</small></h3>
{{with .Description}}<p>{{.}}</p>{{end}}
{{if .Fields}}<table><tr><th>Field</th><th>Type</th><th>Required</th><th>Constraints</th><th>Description</th></tr>
{{range .Fields}}<tr><td><code>{{.Name}}</code></td><td>{{.Type}}</td><td>{{if .Required}}yes{{end}}</td><td>{{.Constraints}}</td><td>{{.Description}}</td></tr>
{{end}}</table>{{end}}
</div>
{{end}}</section>{{end}}
{{if .Security}}<section>
<h2>Security</h2>
<table><tr><th>Name</th><th>Type</th><th>Details</th><th>Description</th></tr>
{{range .Security}}<tr><td><code>{{.Name}}</code></td><td>{{.Type}}</td><td>{{.Detail}}</td><td>{{.Description}}</td></tr>
{{end}}</table>
</section>{{end}}
</main>
{{if .LiveReload}}<script src="https://cdn.socket.io/4.7.5/socket.io.min.js"></script>
<script>io().on("spec:updated", function () { location.reload(); });</script>{{end}}
</body>
</html>
`
