// Package ssa converts HIR functions to static single assignment form and
// removes the phi nodes that construction or later rewrites leave trivial.
package ssa
