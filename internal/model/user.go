package model

import (
	"strings"
	"time"
)

// Role scopes what a user can see in the ledger.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleEmployee Role = "EMPLOYEE"
)

// ParseRole maps config text onto a Role, defaulting to RoleEmployee.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleEmployee
}

// User is an authenticated allow-list entry.
type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the user sees the shared, unfiltered views.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Snapshot is the role-scoped view handed back to the UI after every
// sync or commit.
type Snapshot struct {
	User      User          `json:"user"`
	Pool      []Lead        `json:"dashboard"`
	Tasks     []Lead        `json:"tasks"`
	Analytics []Lead        `json:"analytics"`
	Alerts    []SystemAlert `json:"alerts"`
	LastSync  time.Time     `json:"last_sync"`
	Sync      *SyncReport   `json:"sync,omitempty"`
}

// SyncReport summarises one SyncAll pass.
type SyncReport struct {
	ID          string            `json:"id"`
	StartedAt   time.Time         `json:"started_at"`
	PoolFetched int               `json:"pool_fetched"`
	PoolKept    int               `json:"pool_kept"`
	MasterAdded int               `json:"master_added"`
	Errors      map[string]string `json:"errors,omitempty"`
}
