// Package repo holds the persistence plumbing shared by the domain
// repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the GORM handle a domain repository operates on.
type Base struct {
	db *gorm.DB
}

// NewBase binds a Base to the given connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection with ctx attached.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Scoped returns a copy of the base bound to the supplied transaction.
// Domain repositories use it to rebind themselves inside WithTx blocks.
func (b Base) Scoped(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
