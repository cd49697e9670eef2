// Package spec turns a decoded Swagger 2.0 document into typed objects.
//
// Build never stops at the first problem: structural findings (missing
// required keys, values of the wrong type, unknown parameter locations, an
// unsupported dialect) are returned as an issue.List next to a best-effort
// *Swagger, so later stages can keep checking the parts that did build.
package spec
