package codegen

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// request is what the generated server test sends for one operation.
type request struct {
	method      string
	target      string
	body        string
	contentType string
	header      map[string]string
}

func (g *generator) sampleRequest(o *operation) request {
	req := request{method: strings.ToUpper(o.Method), header: map[string]string{}}

	var path strings.Builder
	for _, seg := range o.Segments {
		switch {
		case seg.Param != nil:
			path.WriteString(url.PathEscape(sample(seg.Param)))
		case seg.Var != "":
			path.WriteString("x")
		default:
			path.WriteString(seg.Literal)
		}
	}
	if path.Len() == 0 {
		path.WriteString("/")
	}

	query, form := url.Values{}, url.Values{}
	for _, pr := range o.Fields {
		if !pr.Required {
			continue
		}
		switch pr.In {
		case "query":
			query.Set(pr.Name, sample(pr))
		case "header":
			req.header[pr.Name] = sample(pr)
		case "formData":
			form.Set(pr.Name, sample(pr))
		}
	}

	req.target = path.String()
	if len(query) > 0 {
		req.target += "?" + query.Encode()
	}
	switch {
	case o.Body != nil && o.Body.Required:
		req.body = g.sampleBody(o.Body.Schema)
		req.contentType = "application/json"
	case len(form) > 0:
		req.body = form.Encode()
		req.contentType = "application/x-www-form-urlencoded"
	}
	return req
}

func (g *generator) serverTestFile() *file {
	f := newFile("server_test.go", g.pkg)
	f.use("net/http", "net/http/httptest", "strings", "testing")

	f.p("type recordingHandler struct {")
	f.p("called string")
	f.p("}")
	f.p("")
	for _, o := range g.ops {
		f.p("func (h *recordingHandler) %s(w http.ResponseWriter, r *http.Request, params %s) {", o.Name, o.Params)
		f.p("h.called = %q", o.Name)
		f.p("}")
		f.p("")
	}

	f.p("func TestRouterDispatch(t *testing.T) {")
	f.p("tests := []struct {")
	f.p("name        string")
	f.p("method      string")
	f.p("target      string")
	f.p("body        string")
	f.p("contentType string")
	f.p("header      map[string]string")
	f.p("}{")
	for _, o := range g.ops {
		req := g.sampleRequest(o)
		f.p("{")
		f.p("name: %q,", o.Name)
		f.p("method: %q,", req.method)
		f.p("target: %q,", req.target)
		if req.body != "" {
			f.p("body: %q,", req.body)
			f.p("contentType: %q,", req.contentType)
		}
		if len(req.header) > 0 {
			f.p("header: map[string]string{")
			for _, k := range sortedKeys(req.header) {
				f.p("%q: %q,", k, req.header[k])
			}
			f.p("},")
		}
		f.p("},")
	}
	f.p("}")
	f.p("")
	f.p("for _, tt := range tests {")
	f.p("t.Run(tt.name, func(t *testing.T) {")
	f.p("h := &recordingHandler{}")
	f.p("req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))")
	f.p("if tt.contentType != \"\" {")
	f.p("req.Header.Set(\"Content-Type\", tt.contentType)")
	f.p("}")
	f.p("for k, v := range tt.header {")
	f.p("req.Header.Set(k, v)")
	f.p("}")
	f.p("rec := httptest.NewRecorder()")
	f.p("")
	f.p("NewRouter(h).ServeHTTP(rec, req)")
	f.p("")
	f.p("if rec.Code != http.StatusOK {")
	f.p("t.Fatalf(\"status = %%d, body = %%q\", rec.Code, rec.Body.String())")
	f.p("}")
	f.p("if h.called != tt.name {")
	f.p("t.Fatalf(\"handler method = %%q, want %%q\", h.called, tt.name)")
	f.p("}")
	f.p("})")
	f.p("}")
	f.p("}")
	return f
}

func (g *generator) clientTestFile() *file {
	f := newFile("client_test.go", g.pkg)
	f.use("context", "net/http", "net/http/httptest", "testing")

	f.p("func TestClientRequests(t *testing.T) {")
	f.p("seen := make(chan string, 1)")
	f.p("srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {")
	f.p("seen <- r.Method + \" \" + r.URL.Path")
	f.p("}))")
	f.p("defer srv.Close()")
	f.p("c := NewClient(srv.URL)")
	for _, o := range g.ops {
		var fields []string
		var path strings.Builder
		for _, seg := range o.Segments {
			switch {
			case seg.Param != nil:
				fields = append(fields, seg.Param.Field+": "+sampleLiteral(seg.Param))
				path.WriteString(sample(seg.Param))
			case seg.Var != "":
				path.WriteString("{" + seg.Var + "}")
			default:
				path.WriteString(seg.Literal)
			}
		}
		if path.Len() == 0 {
			path.WriteString("/")
		}

		f.p("")
		f.p("t.Run(%q, func(t *testing.T) {", o.Name)
		f.p("resp, err := c.%s(context.Background(), %s{%s})", o.Name, o.Params, strings.Join(fields, ", "))
		f.p("if err != nil {")
		f.p("t.Fatal(err)")
		f.p("}")
		f.p("resp.Body.Close()")
		f.p("if got, want := <-seen, %s; got != want {", strconv.Quote(strings.ToUpper(o.Method)+" "+path.String()))
		f.p("t.Fatalf(\"request = %%q, want %%q\", got, want)")
		f.p("}")
		f.p("})")
	}
	f.p("}")
	return f
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
