// Package codegen turns a spec and its compiled models into Go source:
// model types, an HTTP server skeleton routed through net/http, and a
// client. Server and client output can ship with generated unit tests.
//
// Every file is run through go/format before it is returned, so a
// formatting failure means the generator itself is broken.
package codegen
