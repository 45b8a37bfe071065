// Package storage provides storage implementations for job instance persistence.
//
// This package includes:
//   - GormStorage: A GORM-based implementation of core.Storage
//   - Query helpers (SearchInstances, StatusCounts) used by the status API
//   - Lifecycle helpers (Clear, Destroy) used by the cronhelper CLI
//   - Connection pool configuration
//
// The (code, scheduled_at) unique index created by Migrate backs the
// one-instance-per-minute invariant; TryClaim is the single conditional
// update that guards execution.
package storage
