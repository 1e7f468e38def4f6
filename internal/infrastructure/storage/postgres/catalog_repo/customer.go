package catalog_repo

import (
	"printq/internal/domain/catalogs/customer"
	"printq/internal/infrastructure/storage/postgres"
)

const customerTable = "cat_customers"

// CustomerRepo implements customer.Repository.
type CustomerRepo struct {
	*BaseCatalogRepo[*customer.Customer]
}

// NewCustomerRepo creates a customer repository.
func NewCustomerRepo(txManager *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			customerTable,
			postgres.ExtractDBColumns[customer.Customer](),
			func() *customer.Customer { return &customer.Customer{} },
		),
	}
}

var _ customer.Repository = (*CustomerRepo)(nil)
