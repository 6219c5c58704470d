/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package authstore

import "github.com/suparena/authstore/storagemodels"

// Column names shared by the user and pending-registration tables.
const (
	ColUsername     = "username"
	ColRole         = "role"
	ColHash         = "hash"
	ColEmailAddr    = "email_addr"
	ColDesc         = "desc"
	ColCreationDate = "creation_date"
	ColLastLogin    = "last_login"
	ColLevel        = "level"
	ColPendingRegID = "pending_reg_id"
	ColCode         = "code"
)

// UserSchema describes the users table stored as table.
func UserSchema(table string) storagemodels.EntitySchema {
	return storagemodels.EntitySchema{
		Name:          "users",
		PhysicalTable: table,
		PrimaryKey:    storagemodels.Text(ColUsername),
		Columns: []storagemodels.Column{
			storagemodels.Text(ColRole),
			storagemodels.Text(ColHash),
			storagemodels.Text(ColEmailAddr),
			storagemodels.Text(ColDesc),
			storagemodels.Text(ColCreationDate),
			storagemodels.Text(ColLastLogin),
		},
	}
}

// RoleSchema describes the roles table stored as table.
func RoleSchema(table string) storagemodels.EntitySchema {
	return storagemodels.EntitySchema{
		Name:          "roles",
		PhysicalTable: table,
		PrimaryKey:    storagemodels.Text(ColRole),
		Columns: []storagemodels.Column{
			storagemodels.Int(ColLevel),
		},
	}
}

// PendingRegistrationSchema describes the pending registrations table stored as table.
func PendingRegistrationSchema(table string) storagemodels.EntitySchema {
	return storagemodels.EntitySchema{
		Name:          "pending_registrations",
		PhysicalTable: table,
		PrimaryKey:    storagemodels.Text(ColPendingRegID),
		Columns: []storagemodels.Column{
			storagemodels.Text(ColCode),
			storagemodels.Text(ColUsername),
			storagemodels.Text(ColRole),
			storagemodels.Text(ColHash),
			storagemodels.Text(ColEmailAddr),
			storagemodels.Text(ColDesc),
			storagemodels.Text(ColCreationDate),
			storagemodels.Text(ColLastLogin),
		},
	}
}
