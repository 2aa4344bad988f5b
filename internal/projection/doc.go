// Package projection derives hierarchical views from a flat domain.Model.
//
// Every function here is pure: it reads the model and its index, allocates a
// fresh result and never mutates its inputs, so views can be recomputed on
// every read. Cross references that do not resolve are skipped silently; this
// package is the consistency boundary for model data produced by the oracle.
package projection
