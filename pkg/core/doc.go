// Package core provides the fundamental types and interfaces for the cron package.
//
// This package contains:
//   - JobInstance data model with GORM annotations
//   - Storage interface defining the persistence contract
//   - Clock abstraction used for every scheduling decision
//   - Lifecycle hook names and the Observer callback type
//
// Most users should import the root package github.com/jdziat/simple-durable-cron
// instead of this package directly.
package core
