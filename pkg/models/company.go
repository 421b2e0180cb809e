package models

import "time"

// Company statuses.
const (
	CompanyStatusActive    = "active"
	CompanyStatusInactive  = "inactive"
	CompanyStatusSuspended = "suspended"
)

// Company represents an onboarded organization. The tenant id doubles as the
// primary key and is assigned by the external identity provider, never
// generated locally: a Company row cannot exist without a prior successful
// external-tenant creation.
type Company struct {
	TenantID    string    `db:"tenant_id"    json:"tenant_id"`
	Name        string    `db:"name"         json:"name"`
	DisplayName *string   `db:"display_name" json:"display_name,omitempty"`
	Description *string   `db:"description"  json:"description,omitempty"`
	Status      string    `db:"status"       json:"status"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"   json:"updated_at"`
}
