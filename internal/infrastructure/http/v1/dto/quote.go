package dto

import (
	"printq/internal/domain/catalogs/customer"
	"printq/internal/domain/quotes"
)

// GroupResponse pairs a quote group with its resolved customer.
type GroupResponse struct {
	Group    *quotes.Group      `json:"group"`
	Customer *customer.Customer `json:"customer,omitempty"`
}

// ConvertRequest optionally carries supervisor credentials for converting
// an expired document.
type ConvertRequest struct {
	Supervisor *quotes.Credentials `json:"supervisor,omitempty"`
}
