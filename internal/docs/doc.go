// Package docs renders a spec into a single-page HTML reference and serves
// it with live reload.
//
// The server pushes a "spec:updated" event over socket.io whenever the
// watched spec files change and the page has been rebuilt. Follow is the
// terminal counterpart of the browser view: it prints every update.
package docs
