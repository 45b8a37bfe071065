// Package schedule provides cron frequency matching for job definitions.
//
// This package includes:
//   - Parse() for validating 5-field cron expressions
//   - Cron() for expressions known to be valid at compile time
//   - Between() for enumerating the due minutes of a time window
//
// Expressions use the standard minute, hour, day-of-month, month and
// day-of-week fields with wildcards, lists, ranges and steps. Descriptors
// like @daily are not accepted.
package schedule
