// Package security provides validation, sanitization, and limits for the cron package.
//
// This package includes:
//   - Input validation for job codes and job arguments
//   - Error message and stack trace sanitization before storage
//   - Constant-time verification of the status API security hash
//   - Security-related constants defining maximum sizes
package security
