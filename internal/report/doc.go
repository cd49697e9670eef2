// Package report renders issue lists for people (styled text) and tools
// (JSON), and decides whether a run failed.
package report
