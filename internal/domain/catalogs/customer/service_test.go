package customer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printq/internal/core/apperror"
	"printq/internal/core/id"
)

type fakeRepo struct {
	customers map[id.ID]*Customer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{customers: make(map[id.ID]*Customer)}
}

func (f *fakeRepo) Create(ctx context.Context, c *Customer) error {
	f.customers[c.ID] = c
	return nil
}

func (f *fakeRepo) GetByID(ctx context.Context, customerID id.ID) (*Customer, error) {
	c, ok := f.customers[customerID]
	if !ok {
		return nil, apperror.NewNotFound("customer", customerID)
	}
	return c, nil
}

func (f *fakeRepo) Exists(ctx context.Context, customerID id.ID) (bool, error) {
	_, ok := f.customers[customerID]
	return ok, nil
}

func strPtr(s string) *string { return &s }

func TestResolve_ExistingCustomer(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	c := NewCustomer("Acme Signs")
	require.NoError(t, repo.Create(ctx, c))

	got, err := svc.Resolve(ctx, &c.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, c.ID, *got)
}

func TestResolve_UnknownIDFails(t *testing.T) {
	svc := NewService(newFakeRepo())

	missing := id.New()
	_, err := svc.Resolve(context.Background(), &missing, nil)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestResolve_CreatesFromInline(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo)
	ctx := context.Background()

	got, err := svc.Resolve(ctx, nil, &Inline{
		Name:  "  Cafe Central  ",
		Phone: strPtr(" 555-0101 "),
		Email: strPtr(""),
	})
	require.NoError(t, err)
	require.NotNil(t, got)

	created := repo.customers[*got]
	require.NotNil(t, created)
	assert.Equal(t, "Cafe Central", created.Name)
	require.NotNil(t, created.Phone)
	assert.Equal(t, "555-0101", *created.Phone)
	assert.Nil(t, created.Email, "blank fields are dropped")
}

func TestResolve_WalkIn(t *testing.T) {
	svc := NewService(newFakeRepo())

	got, err := svc.Resolve(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResolve_InlineNeedsName(t *testing.T) {
	svc := NewService(newFakeRepo())

	_, err := svc.Resolve(context.Background(), nil, &Inline{Name: "   "})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}
