// Package estimators turns aggregate classifier statistics into
// uncertainty-quantified report values.
//
// Every function here is pure: no I/O, no shared state, safe to call from any
// number of goroutines. The confusion matrix and ROC curve are approximations
// built from aggregates (no per-sample predictions exist downstream) and are
// labelled as such wherever they are exposed.
package estimators
