// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Credential Store
//
//   - accounts.Store: verified accounts and pending subscription requests
//     (internal/accounts/store.go). Implemented by database/accounts.LocalStore
//     (SQLite via gorm) and postgres.RemoteStore (PostgreSQL via squirrel).
//     entrypoint picks one from STORE_BACKEND.
//
// ## Catalog
//
//   - catalog.DocumentStore / catalog.StateStore: where the catalog file is
//     mirrored and where its checksum is remembered (internal/catalog/sync.go)
//   - http.DocumentReader: read access for the document endpoints
//
// ## Audit Trail
//
//   - auth.Auditor, catalog.Auditor: event sinks, both served by audit.Service
//   - http.AuditReader: paginated listing for the admin API
//   - tasks.AuditEventCleaner: retention cleanup
//
// ## Background Work
//
//   - tasks.CatalogSyncer: what the sync_catalog queue runs
//   - scheduler.Enqueuer, http.CatalogSyncEnqueuer: queue front-ends
//     implemented by tasks.Client
//
// # Adding a New Credential Backend
//
//  1. Implement accounts.Store. Missing records are nil or false, never
//     errors; duplicate submissions return accounts.ErrDuplicateUsername or
//     accounts.ErrPendingDuplicate.
//
//  2. Run the shared behaviour suite from its tests:
//
//     func TestMyStore(t *testing.T) {
//     accountstest.Run(t, func(t *testing.T) accounts.Store { return newMyStore(t) })
//     }
//
//  3. Select it in bootstrap.OpenStores and add a compile-time check:
//
//     var _ accounts.Store = (*MyStore)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
