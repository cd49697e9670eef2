// Package hcl_adapter loads the tool configuration from HCL files and
// translates it into the format-agnostic config.Config model.
//
// A configuration file looks like:
//
//	ignore = ["vendor/**"]
//
//	lint {
//	  extends = "recommended"
//	  rule "path-casing" {
//	    severity = "error"
//	    options  = { style = "snake" }
//	  }
//	  custom "summary-length" {
//	    given   = "$.paths.*.*"
//	    field   = "summary"
//	    check   = "pattern"
//	    pattern = "^.{1,60}$"
//	  }
//	}
//
//	validate {
//	  remote_refs    = true
//	  remote_timeout = "10s"
//	}
package hcl_adapter
