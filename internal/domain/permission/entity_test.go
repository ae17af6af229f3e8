package permission

import (
	"database/sql"
	"testing"
	"time"
)

func TestScopeCovers(t *testing.T) {
	ordered := []Scope{ScopeSystem, ScopeGlobal, ScopeDepartment, ScopeTeam, ScopeUser}

	for i, broad := range ordered {
		for j, narrow := range ordered {
			got := broad.Covers(narrow)
			want := i <= j
			if got != want {
				t.Errorf("%s.Covers(%s) = %v, want %v", broad, narrow, got, want)
			}
		}
	}
}

func TestScopeCoversTransitive(t *testing.T) {
	if !ScopeSystem.Covers(ScopeGlobal) || !ScopeGlobal.Covers(ScopeDepartment) {
		t.Fatal("hierarchy broken")
	}
	if !ScopeSystem.Covers(ScopeDepartment) {
		t.Error("SYSTEM must cover DEPARTMENT transitively")
	}
}

func TestScopeValid(t *testing.T) {
	if !ScopeDepartment.Valid() {
		t.Error("DEPARTMENT should be valid")
	}
	if Scope("REGION").Valid() {
		t.Error("unknown scope should be invalid")
	}
}

func TestGrantExpired(t *testing.T) {
	now := time.Now()

	g := &Grant{IsActive: true}
	if g.Expired(now) {
		t.Error("grant without expiry never expires")
	}
	if !g.UsableAt(now) {
		t.Error("active unexpiring grant should be usable")
	}

	g.ExpiresAt = sql.NullTime{Time: now.Add(-time.Second), Valid: true}
	if !g.Expired(now) {
		t.Error("past expiry should be expired")
	}
	if g.UsableAt(now) {
		t.Error("expired grant should not be usable")
	}

	g.ExpiresAt = sql.NullTime{Time: now, Valid: true}
	if !g.Expired(now) {
		t.Error("expiry exactly at now counts as expired")
	}

	g.ExpiresAt = sql.NullTime{Time: now.Add(time.Second), Valid: true}
	g.IsActive = false
	if g.UsableAt(now) {
		t.Error("revoked grant should not be usable")
	}
}

func TestGrantAppliesToContext(t *testing.T) {
	cases := []struct {
		name      string
		scope     Scope
		contextID string
		requested Scope
		checkCtx  string
		want      bool
	}{
		{"matching department", ScopeDepartment, "dept-1", ScopeDepartment, "dept-1", true},
		{"different department", ScopeDepartment, "dept-1", ScopeDepartment, "dept-2", false},
		{"unrestricted grant covers any unit", ScopeDepartment, "", ScopeDepartment, "dept-2", true},
		{"broader scope covers any unit", ScopeGlobal, "", ScopeDepartment, "dept-2", true},
		{"no identifier requested", ScopeDepartment, "dept-1", ScopeDepartment, "", true},
		{"non-contextual scope ignores identifier", ScopeGlobal, "", ScopeGlobal, "dept-1", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &Grant{Scope: tc.scope, IsActive: true}
			if tc.contextID != "" {
				g.ContextID = sql.NullString{String: tc.contextID, Valid: true}
			}
			if got := g.AppliesToContext(tc.requested, tc.checkCtx); got != tc.want {
				t.Errorf("AppliesToContext(%s, %q) = %v, want %v", tc.requested, tc.checkCtx, got, tc.want)
			}
		})
	}
}
