// Package kexec provides definition-driven rewriting machinery: an
// interpreter and a state-space explorer derived from a single
// semantics definition.
//
// The rewriting engine is in package 'rewrite', the public entry point
// is package 'executor', and some command-line tools are in `cmd`.
package kexec
