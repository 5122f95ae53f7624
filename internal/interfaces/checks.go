package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/audit"
	"github.com/mrlokans/pdflibrary/internal/auth"
	"github.com/mrlokans/pdflibrary/internal/catalog"
	dbaccounts "github.com/mrlokans/pdflibrary/internal/database/accounts"
	"github.com/mrlokans/pdflibrary/internal/database/documents"
	"github.com/mrlokans/pdflibrary/internal/database/settings"
	"github.com/mrlokans/pdflibrary/internal/http"
	"github.com/mrlokans/pdflibrary/internal/postgres"
	"github.com/mrlokans/pdflibrary/internal/scheduler"
	"github.com/mrlokans/pdflibrary/internal/tasks"
)

// =============================================================================
// Credential Stores
// =============================================================================

var _ accounts.Store = (*dbaccounts.LocalStore)(nil)
var _ accounts.Store = (*postgres.RemoteStore)(nil)

// =============================================================================
// Catalog
// =============================================================================

var _ catalog.DocumentStore = (*documents.Repository)(nil)
var _ catalog.StateStore = (*settings.Repository)(nil)
var _ http.DocumentReader = (*documents.Repository)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ auth.Auditor = (*audit.Service)(nil)
var _ catalog.Auditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.CatalogSyncer = (*catalog.Syncer)(nil)
var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ http.CatalogSyncEnqueuer = (*tasks.Client)(nil)
