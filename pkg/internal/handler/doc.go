// Package handler provides reflection-based function invocation for bound
// callback and route targets.
//
// This is an internal package and should not be imported directly.
package handler
