package codegen

import (
	"strconv"
	"strings"
)

func (g *generator) clientFile() *file {
	f := newFile("client.go", g.pkg)
	f.use("context", "net/http", "strings")

	f.p("// Client calls the API over HTTP. A nil HTTPClient uses http.DefaultClient.")
	f.p("type Client struct {")
	f.p("BaseURL string")
	f.p("HTTPClient *http.Client")
	f.p("}")
	f.p("")
	f.p("// NewClient returns a client for the server at baseURL.")
	f.p("func NewClient(baseURL string) *Client {")
	f.p(`return &Client{BaseURL: strings.TrimRight(baseURL, "/")}`)
	f.p("}")
	f.p("")
	f.p("func (c *Client) do(req *http.Request) (*http.Response, error) {")
	f.p("hc := c.HTTPClient")
	f.p("if hc == nil {")
	f.p("hc = http.DefaultClient")
	f.p("}")
	f.p("return hc.Do(req)")
	f.p("}")
	f.p("")

	for _, o := range g.ops {
		g.clientMethod(f, o)
	}

	f.p("func joinCollection(values []string, format string) string {")
	f.p("switch format {")
	f.p(`case "ssv":`)
	f.p(`return strings.Join(values, " ")`)
	f.p(`case "tsv":`)
	f.p(`return strings.Join(values, "\t")`)
	f.p(`case "pipes":`)
	f.p(`return strings.Join(values, "|")`)
	f.p("}")
	f.p(`return strings.Join(values, ",")`)
	f.p("}")
	return f
}

func (g *generator) clientMethod(f *file, o *operation) {
	f.p("// %s sends %s %s.", o.Name, strings.ToUpper(o.Method), o.Path)
	if line := firstLine(o.Summary); line != "" {
		f.p("// %s", line)
	}
	f.p("func (c *Client) %s(ctx context.Context, params %s) (*http.Response, error) {", o.Name, o.Params)

	f.p("path := %s", g.pathExpr(f, o))

	var query, header, form bool
	for _, pr := range o.Fields {
		switch pr.In {
		case "query":
			query = true
		case "header":
			header = true
		case "formData":
			form = o.Body == nil
		}
	}

	if query {
		f.use("net/url")
		f.p("query := url.Values{}")
		for _, pr := range o.Fields {
			if pr.In == "query" {
				g.setValue(f, pr, "query")
			}
		}
	}

	body := "nil"
	switch {
	case o.Body != nil:
		f.use("bytes", "encoding/json")
		f.p("payload, err := json.Marshal(params.%s)", o.Body.Field)
		f.p("if err != nil {")
		f.p("return nil, err")
		f.p("}")
		body = "bytes.NewReader(payload)"
	case form:
		f.use("net/url")
		f.p("form := url.Values{}")
		for _, pr := range o.Fields {
			if pr.In == "formData" {
				g.setValue(f, pr, "form")
			}
		}
		body = "strings.NewReader(form.Encode())"
	}

	f.p("req, err := http.NewRequestWithContext(ctx, %q, c.BaseURL+path, %s)", strings.ToUpper(o.Method), body)
	f.p("if err != nil {")
	f.p("return nil, err")
	f.p("}")
	if query {
		f.p("req.URL.RawQuery = query.Encode()")
	}
	switch {
	case o.Body != nil:
		f.p(`req.Header.Set("Content-Type", "application/json")`)
	case form:
		f.p(`req.Header.Set("Content-Type", "application/x-www-form-urlencoded")`)
	}
	if header {
		for _, pr := range o.Fields {
			if pr.In == "header" {
				g.setValue(f, pr, "req.Header")
			}
		}
	}
	f.p("return c.do(req)")
	f.p("}")
	f.p("")
}

// pathExpr builds the expression for the request path.
func (g *generator) pathExpr(f *file, o *operation) string {
	var parts []string
	for _, seg := range o.Segments {
		switch {
		case seg.Param != nil:
			f.use("net/url")
			parts = append(parts, "url.PathEscape("+g.stringExpr(f, seg.Param)+")")
		case seg.Var != "":
			parts = append(parts, strconv.Quote("{"+seg.Var+"}"))
		case seg.Literal != "":
			parts = append(parts, strconv.Quote(seg.Literal))
		}
	}
	if len(parts) == 0 {
		return `"/"`
	}
	return strings.Join(parts, " + ")
}

// stringExpr renders a parameter field as a string expression.
func (g *generator) stringExpr(f *file, pr *param) string {
	field := "params." + pr.Field
	switch pr.Type {
	case "string":
		return field
	case "[]string":
		return "joinCollection(" + field + ", " + strconv.Quote(pr.Format) + ")"
	}
	f.use("fmt")
	return "fmt.Sprint(" + field + ")"
}

// setValue writes pr into a url.Values or http.Header named dst. Optional
// parameters holding the zero value are left out.
func (g *generator) setValue(f *file, pr *param, dst string) {
	field := "params." + pr.Field
	name := strconv.Quote(pr.Name)

	cond := ""
	if !pr.Required {
		switch pr.Type {
		case "string":
			cond = field + ` != ""`
		case "int64", "float64":
			cond = field + " != 0"
		case "bool":
			cond = field
		case "[]string":
			cond = "len(" + field + ") > 0"
		}
	}
	if cond != "" {
		f.p("if %s {", cond)
	}
	if pr.Multi {
		f.p("for _, v := range %s {", field)
		f.p("%s.Add(%s, v)", dst, name)
		f.p("}")
	} else {
		f.p("%s.Set(%s, %s)", dst, name, g.stringExpr(f, pr))
	}
	if cond != "" {
		f.p("}")
	}
}
