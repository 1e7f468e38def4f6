// Package customer provides the Customer catalog attached to quote groups.
package customer

import (
	"printq/internal/core/entity"
)

// Customer is the party a quote group is addressed to.
type Customer struct {
	entity.Catalog

	RTN     *string `db:"rtn" json:"rtn,omitempty"`
	Phone   *string `db:"phone" json:"phone,omitempty"`
	Email   *string `db:"email" json:"email,omitempty"`
	Address *string `db:"address" json:"address,omitempty"`
	Notes   *string `db:"notes" json:"notes,omitempty"`
}

// NewCustomer creates a new Customer.
func NewCustomer(name string) *Customer {
	return &Customer{Catalog: entity.NewCatalog(name)}
}
