package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/vk/apispec/internal/ctxlog"
	"github.com/vk/apispec/internal/issue"
	"github.com/vk/apispec/internal/loader"
	"github.com/vk/apispec/internal/registry"
	"github.com/vk/apispec/internal/report"
)

// Method names.
const (
	MethodValidate = "apispec/validate"
	MethodLint     = "apispec/lint"
	MethodBundle   = "apispec/bundle"
	MethodRules    = "apispec/rules"
	MethodShutdown = "shutdown"
	MethodExit     = "exit"
)

// CodeDocument is the error code for documents that cannot be loaded.
const CodeDocument int64 = -32001

// ErrShutdown is returned for requests received after shutdown.
var ErrShutdown = errors.New("server is shutting down")

// Service is the work the server delegates.
type Service interface {
	// Load reads the document at path, following includes.
	Load(ctx context.Context, path string) (*loader.Document, error)
	ValidateDocument(ctx context.Context, doc *loader.Document) (issue.List, error)
	LintDocument(ctx context.Context, doc *loader.Document) (issue.List, error)
	BundleDocument(ctx context.Context, doc *loader.Document) (map[string]any, error)
	Rules() []registry.RuleInfo
}

// DocumentParams names a document either by path or by content. Content
// wins when both are set; Name is then used as its path in findings.
type DocumentParams struct {
	Path    string `json:"path,omitempty"`
	Content string `json:"content,omitempty"`
	Name    string `json:"name,omitempty"`
}

// IssuesResult is the reply to validate and lint.
type IssuesResult struct {
	Valid   bool       `json:"valid"`
	Summary string     `json:"summary"`
	Issues  issue.List `json:"issues"`
}

// BundleResult is the reply to bundle.
type BundleResult struct {
	Document map[string]any `json:"document"`
}

// Server answers JSON-RPC requests with a Service.
type Server struct {
	svc    Service
	logger *slog.Logger

	mu       sync.Mutex
	shutdown bool
}

// NewServer creates a server for svc.
func NewServer(svc Service) *Server {
	return &Server{svc: svc, logger: slog.Default()}
}

// Serve handles requests read from rwc until the peer disconnects, an exit
// notification arrives or ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger = ctxlog.Component(ctx, "rpc")
	s.logger.Info("🔌 RPC server listening on stdio")

	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.HandlerWithError(s.handle).SuppressErrClosed()
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))

	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		s.logger.Info("RPC connection closed.")
		return nil
	}
}

func (s *Server) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	logger := s.logger.With("method", req.Method)
	logger.Debug("Request received.", "notification", req.Notif)

	switch req.Method {
	case MethodExit:
		return nil, conn.Close()
	case MethodShutdown:
		s.mu.Lock()
		s.shutdown = true
		s.mu.Unlock()
		return nil, nil
	}

	s.mu.Lock()
	down := s.shutdown
	s.mu.Unlock()
	if down {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidRequest, Message: ErrShutdown.Error()}
	}

	switch req.Method {
	case MethodRules:
		return s.svc.Rules(), nil
	case MethodValidate, MethodLint, MethodBundle:
	default:
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: "method not found: " + req.Method}
	}

	doc, err := s.document(ctx, req)
	if err != nil {
		return nil, err
	}

	switch req.Method {
	case MethodValidate:
		issues, err := s.svc.ValidateDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		return issuesResult(issues), nil
	case MethodLint:
		issues, err := s.svc.LintDocument(ctx, doc)
		if err != nil {
			return nil, err
		}
		return issuesResult(issues), nil
	default:
		bundled, err := s.svc.BundleDocument(ctx, doc)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: CodeDocument, Message: err.Error()}
		}
		return BundleResult{Document: bundled}, nil
	}
}

func (s *Server) document(ctx context.Context, req *jsonrpc2.Request) (*loader.Document, error) {
	var params DocumentParams
	if req.Params == nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "missing params"}
	}
	if err := json.Unmarshal(*req.Params, &params); err != nil {
		return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: err.Error()}
	}

	switch {
	case params.Content != "":
		doc, err := loader.Decode([]byte(params.Content))
		if err != nil {
			return nil, &jsonrpc2.Error{Code: CodeDocument, Message: err.Error()}
		}
		doc.Path = params.Name
		return doc, nil
	case params.Path != "":
		doc, err := s.svc.Load(ctx, params.Path)
		if err != nil {
			return nil, &jsonrpc2.Error{Code: CodeDocument, Message: err.Error()}
		}
		return doc, nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: "either path or content is required"}
}

func issuesResult(issues issue.List) IssuesResult {
	if issues == nil {
		issues = issue.List{}
	}
	return IssuesResult{Valid: !issues.HasErrors(), Summary: report.Summary(issues), Issues: issues}
}

// Stdio joins a reader and a writer, typically os.Stdin and os.Stdout, into
// the stream Serve expects.
func Stdio(in io.ReadCloser, out io.WriteCloser) io.ReadWriteCloser {
	return &stdio{in: in, out: out}
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s *stdio) Read(p []byte) (int, error)  { return s.in.Read(p) }
func (s *stdio) Write(p []byte) (int, error) { return s.out.Write(p) }

func (s *stdio) Close() error {
	return errors.Join(s.in.Close(), s.out.Close())
}
