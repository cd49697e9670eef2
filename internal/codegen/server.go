package codegen

import (
	"strconv"
	"strings"
)

func (g *generator) paramsFile() *file {
	f := newFile("params.go", g.pkg)
	for _, o := range g.ops {
		f.p("// %s holds the parameters of %s.", o.Params, o.Name)
		for _, name := range o.Files {
			f.p("// The file parameter %q is read from the request by the handler.", name)
		}
		f.p("type %s struct {", o.Params)
		for _, pr := range o.Fields {
			if line := firstLine(pr.Description); line != "" {
				f.p("// %s", line)
			}
			f.p("%s %s", pr.Field, pr.Type)
		}
		if o.Body != nil {
			if line := firstLine(o.Body.Description); line != "" {
				f.p("// %s", line)
			}
			f.p("%s %s", o.Body.Field, g.schemaType(f, o.Body.Schema))
		}
		f.p("}")
		f.p("")
	}
	return f
}

func (g *generator) serverFile() *file {
	f := newFile("server.go", g.pkg)
	f.use("net/http", "strings")

	f.p("// Handler serves the operations of the API. Parameters are decoded")
	f.p("// before a method is called; decoding failures answer 400.")
	f.p("type Handler interface {")
	for _, o := range g.ops {
		f.p("// %s handles %s %s.", o.Name, strings.ToUpper(o.Method), o.Path)
		if line := firstLine(o.Summary); line != "" {
			f.p("// %s", line)
		}
		f.p("%s(w http.ResponseWriter, r *http.Request, params %s)", o.Name, o.Params)
	}
	f.p("}")
	f.p("")

	f.p("// NewRouter routes requests to h.")
	f.p("func NewRouter(h Handler) http.Handler {")
	f.p("mux := http.NewServeMux()")
	for _, o := range g.ops {
		f.p("mux.HandleFunc(%q, func(w http.ResponseWriter, r *http.Request) {", o.Pattern)
		f.p("params, err := decode%s(r)", o.Params)
		f.p("if err != nil {")
		f.p("http.Error(w, err.Error(), http.StatusBadRequest)")
		f.p("return")
		f.p("}")
		f.p("h.%s(w, r, params)", o.Name)
		f.p("})")
	}
	f.p("return mux")
	f.p("}")
	f.p("")

	for _, o := range g.ops {
		g.decoder(f, o)
	}

	f.p("func splitCollection(v, format string) []string {")
	f.p("switch format {")
	f.p(`case "ssv":`)
	f.p(`return strings.Split(v, " ")`)
	f.p(`case "tsv":`)
	f.p(`return strings.Split(v, "\t")`)
	f.p(`case "pipes":`)
	f.p(`return strings.Split(v, "|")`)
	f.p("}")
	f.p(`return strings.Split(v, ",")`)
	f.p("}")
	return f
}

func (g *generator) decoder(f *file, o *operation) {
	f.p("func decode%s(r *http.Request) (%s, error) {", o.Params, o.Params)
	f.p("var params %s", o.Params)

	var query, form bool
	for _, pr := range o.Fields {
		query = query || pr.In == "query"
		form = form || pr.In == "formData"
	}
	if query {
		f.p("q := r.URL.Query()")
	}
	if form {
		f.use("errors", "fmt")
		f.p("if err := r.ParseMultipartForm(32 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {")
		f.p("return params, fmt.Errorf(\"form: %%w\", err)")
		f.p("}")
	}

	for _, pr := range o.Fields {
		g.decodeParam(f, pr)
	}

	if b := o.Body; b != nil {
		f.use("encoding/json")
		f.p("if err := json.NewDecoder(r.Body).Decode(&params.%s); err != nil {", b.Field)
		if b.Required {
			f.use("fmt")
			f.p("return params, fmt.Errorf(\"body: %%w\", err)")
		} else {
			f.use("errors", "fmt", "io")
			f.p("if !errors.Is(err, io.EOF) {")
			f.p("return params, fmt.Errorf(\"body: %%w\", err)")
			f.p("}")
		}
		f.p("}")
	}

	f.p("return params, nil")
	f.p("}")
	f.p("")
}

func (g *generator) decodeParam(f *file, pr *param) {
	target := "params." + pr.Field
	where := describe(pr)

	var getter string
	switch pr.In {
	case "path":
		// A parameter missing from the template never matches.
		getter = `""`
		if pr.Wild != "" {
			getter = "r.PathValue(" + strconv.Quote(pr.Wild) + ")"
		}
	case "query":
		getter = "q.Get(" + strconv.Quote(pr.Name) + ")"
		if pr.Multi {
			getter = "q[" + strconv.Quote(pr.Name) + "]"
		}
	case "header":
		getter = "r.Header.Get(" + strconv.Quote(pr.Name) + ")"
	case "formData":
		getter = "r.Form.Get(" + strconv.Quote(pr.Name) + ")"
		if pr.Multi {
			getter = "r.Form[" + strconv.Quote(pr.Name) + "]"
		}
	default:
		return
	}

	if pr.Multi {
		f.p("if vs := %s; len(vs) > 0 {", getter)
		f.p("%s = vs", target)
	} else {
		f.p("if v := %s; v != \"\" {", getter)
		parse := ""
		switch pr.Type {
		case "string":
			f.p("%s = v", target)
		case "[]string":
			f.p("%s = splitCollection(v, %q)", target, pr.Format)
		case "int64":
			parse = "strconv.ParseInt(v, 10, 64)"
		case "float64":
			parse = "strconv.ParseFloat(v, 64)"
		case "bool":
			parse = "strconv.ParseBool(v)"
		}
		if parse != "" {
			f.use("strconv", "fmt")
			f.p("parsed, err := %s", parse)
			f.p("if err != nil {")
			f.p("return params, fmt.Errorf(%q, err)", fmtSafe(where)+": %w")
			f.p("}")
			f.p("%s = parsed", target)
		}
	}

	switch lit, ok := literal(pr.Type, pr.Default); {
	case pr.Required || pr.In == "path":
		f.use("errors")
		f.p("} else {")
		f.p("return params, errors.New(%q)", where+" is required")
	case pr.HasDefault && ok:
		f.p("} else {")
		f.p("%s = %s", target, lit)
	}
	f.p("}")
}
