package permission

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type catalogEntry struct {
	resource  ResourceType
	action    Action
	scope     Scope
	clearance int
	desc      string
}

// defaultCatalog is the fixed permission catalog seeded at initialization.
// The scope column records the broadest scope the permission is intended
// for; individual grants carry their own (narrower or equal) scope.
var defaultCatalog = []catalogEntry{
	// User management
	{ResourceUsers, ActionCreate, ScopeGlobal, 4, "Create admin users"},
	{ResourceUsers, ActionRead, ScopeGlobal, 2, "View user accounts"},
	{ResourceUsers, ActionUpdate, ScopeGlobal, 4, "Update user accounts"},
	{ResourceUsers, ActionDelete, ScopeGlobal, 5, "Deactivate user accounts"},
	{ResourceUsers, ActionManage, ScopeSystem, 5, "Grant and revoke user permissions"},

	// Vendor management
	{ResourceVendors, ActionRead, ScopeGlobal, 2, "View vendor accounts"},
	{ResourceVendors, ActionUpdate, ScopeDepartment, 3, "Update vendor accounts"},
	{ResourceVendors, ActionManage, ScopeGlobal, 4, "Grant and revoke vendor permissions"},

	// Product catalog and verification
	{ResourceProducts, ActionCreate, ScopeDepartment, 2, "Register incoming products"},
	{ResourceProducts, ActionRead, ScopeGlobal, 1, "View products and verification queue"},
	{ResourceProducts, ActionUpdate, ScopeDepartment, 3, "Move products through verification"},
	{ResourceProducts, ActionDelete, ScopeGlobal, 4, "Remove products"},
	{ResourceProducts, ActionManage, ScopeGlobal, 4, "Grant and revoke product permissions"},

	// Orders
	{ResourceOrders, ActionRead, ScopeDepartment, 2, "View orders"},
	{ResourceOrders, ActionUpdate, ScopeDepartment, 3, "Adjust orders"},
	{ResourceOrders, ActionManage, ScopeGlobal, 4, "Grant and revoke order permissions"},

	// Money movement
	{ResourceCommissions, ActionRead, ScopeGlobal, 3, "View commission schedules"},
	{ResourceCommissions, ActionUpdate, ScopeGlobal, 4, "Change commission schedules"},
	{ResourceTransactions, ActionRead, ScopeGlobal, 3, "View transactions"},
	{ResourceTransactions, ActionManage, ScopeSystem, 5, "Grant and revoke transaction permissions"},

	// Inventory and storefront
	{ResourceInventory, ActionRead, ScopeTeam, 1, "View inventory"},
	{ResourceInventory, ActionUpdate, ScopeTeam, 2, "Adjust inventory"},
	{ResourceStorefront, ActionUpdate, ScopeDepartment, 3, "Edit storefront configuration"},

	// Audit and system
	{ResourceAuditLogs, ActionRead, ScopeGlobal, 4, "Read audit records"},
	{ResourceSystemSettings, ActionRead, ScopeGlobal, 3, "View system settings and KPIs"},
	{ResourceSystemSettings, ActionUpdate, ScopeSystem, 5, "Change system settings"},
	{ResourceSystemSettings, ActionManage, ScopeSystem, 5, "Grant and revoke system permissions"},
}

// SeedCatalog upserts the default catalog. Safe to run repeatedly.
func SeedCatalog(ctx context.Context, repo Repository) (int, error) {
	now := time.Now()
	for _, e := range defaultCatalog {
		p := &Permission{
			ID:                     uuid.New(),
			ResourceType:           e.resource,
			Action:                 e.action,
			Scope:                  e.scope,
			RequiredClearanceLevel: e.clearance,
			Description:            sql.NullString{String: e.desc, Valid: true},
			CreatedAt:              now,
		}
		if err := repo.UpsertPermission(ctx, p); err != nil {
			return 0, err
		}
	}
	return len(defaultCatalog), nil
}
