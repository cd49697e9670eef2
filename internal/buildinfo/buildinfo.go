// Package buildinfo holds version metadata set at link time with
// -ldflags "-X github.com/vk/apispec/internal/buildinfo.Version=...".
package buildinfo

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func String() string {
	return fmt.Sprintf("apispec %s (commit=%s, date=%s)", Version, Commit, Date)
}
