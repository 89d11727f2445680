// Package compute turns raw source readings into snapshot values.
//
// validate.go holds the domain checks applied to every extracted number.
// merge.go implements the source-priority merge of one primary and one
// secondary reading. anomaly.go classifies a new latest magnitude against the
// previous one.
//
// Everything here is pure except Detector, which keeps one step of memory and
// is safe for concurrent use.
package compute
