// Package batch runs one job per input on a bounded pool of workers and
// returns the results in input order.
package batch
