package models

import (
	"encoding/json"
	"time"
)

// Roles assignable to user accounts.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// ValidRole reports whether role is one of the enumerated roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// User represents an account in the users database
type User struct {
	ID             int64      `db:"id" json:"id"`
	Username       string     `db:"username" json:"username"`
	HashedPassword string     `db:"hashed_password" json:"-"` // bcrypt hash, not returned in JSON
	FullName       string     `db:"full_name" json:"fullName,omitempty"`
	Email          string     `db:"email" json:"email,omitempty"`
	Disabled       bool       `db:"disabled" json:"disabled"`
	Role           string     `db:"role" json:"role"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	LastLogin      *time.Time `db:"last_login" json:"lastLogin,omitempty"`
}

// Column names the reassignment workflow knows about. Spreadsheets may
// carry additional columns; those travel in AssetRecord.Extra.
const (
	ColumnAssetTag       = "asset_tag"
	ColumnUserID         = "user_id"
	ColumnUserName       = "user_name"
	ColumnDepartment     = "department"
	ColumnLocation       = "location"
	ColumnDateOfReturn   = "date_of_return"
	ColumnDateOfReassign = "date_of_reassign"
)

// AssetRecord is one row from a table that carries an asset_tag column.
// Known columns are typed fields; unknown spreadsheet columns land in Extra.
type AssetRecord struct {
	AssetTag       string
	UserID         string
	UserName       string
	Department     string
	Location       string
	DateOfReturn   string
	DateOfReassign string
	SourceTable    string
	Extra          map[string]string

	// Typed columns the source row actually carried, blank cells included.
	present map[string]bool
}

// SetColumn stores a column value on the matching typed field, or in Extra
// for columns the record does not model.
func (r *AssetRecord) SetColumn(column, value string) {
	switch column {
	case ColumnAssetTag:
		r.AssetTag = value
	case ColumnUserID:
		r.UserID = value
	case ColumnUserName:
		r.UserName = value
	case ColumnDepartment:
		r.Department = value
	case ColumnLocation:
		r.Location = value
	case ColumnDateOfReturn:
		r.DateOfReturn = value
	case ColumnDateOfReassign:
		r.DateOfReassign = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[column] = value
		return
	}

	if r.present == nil {
		r.present = make(map[string]bool)
	}
	r.present[column] = true
}

// MarshalJSON flattens the record into a single object keyed by column
// name, with the originating table carried as _source_table. Every column
// of the source row appears, blank or not; columns the row's table lacks
// are left out. Records built without SetColumn emit non-empty fields.
func (r AssetRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(r.Extra)+8)
	for k, v := range r.Extra {
		out[k] = v
	}
	set := func(column, value string) {
		if r.present[column] || value != "" {
			out[column] = value
		}
	}
	set(ColumnAssetTag, r.AssetTag)
	set(ColumnUserID, r.UserID)
	set(ColumnUserName, r.UserName)
	set(ColumnDepartment, r.Department)
	set(ColumnLocation, r.Location)
	set(ColumnDateOfReturn, r.DateOfReturn)
	set(ColumnDateOfReassign, r.DateOfReassign)
	out["_source_table"] = r.SourceTable
	return json.Marshal(out)
}
