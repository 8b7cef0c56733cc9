package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

func TestCatalog_Create(t *testing.T) {
	f := newFixture(t, TotalPolicy{})
	ctx := context.Background()

	p, err := f.catalog.Create(ctx, ProductInput{Name: " Cherries ", Category: "fruit", Price: price("12"), Stock: amount(2), UnitMode: "weight"})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Cherries", p.Name)
	assert.Equal(t, entity.UnitWeight, p.UnitMode)
	assert.Equal(t, entity.ProductActive, p.Status)

	stored, err := f.catalog.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, stored)

	empty, err := f.catalog.Create(ctx, ProductInput{Name: "Ghost pepper"})
	require.NoError(t, err)
	assert.Equal(t, entity.UnitPiece, empty.UnitMode)
	assert.Equal(t, entity.ProductExpired, empty.Status)
}

func TestCatalog_CreateRejectsBadInput(t *testing.T) {
	f := newFixture(t, TotalPolicy{})
	ctx := context.Background()

	for name, in := range map[string]ProductInput{
		"blank name":     {Name: "  "},
		"negative price": {Name: "x", Price: price("-1")},
		"negative stock": {Name: "x", Stock: amount(-1)},
		"bad unit mode":  {Name: "x", UnitMode: "litre"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.catalog.Create(ctx, in)
			assert.True(t, entity.IsInvalidInput(err), err)
		})
	}
}

func TestCatalog_UpdateKeepsStockWhenOmitted(t *testing.T) {
	f := newFixture(t, TotalPolicy{})
	ctx := context.Background()

	p, err := f.catalog.Update(ctx, "bread", ProductInput{Name: "Sourdough", Category: "bakery", Price: price("3.2")})

	require.NoError(t, err)
	assert.Equal(t, "Sourdough", p.Name)
	assert.Equal(t, 5.0, p.Stock)
	assert.Equal(t, "3.2", p.Price.Decimal.String())

	_, err = f.catalog.Update(ctx, "ghost", ProductInput{Name: "x"})
	assert.ErrorIs(t, err, entity.ErrProductNotFound)
}

func TestCatalog_ListAndDelete(t *testing.T) {
	f := newFixture(t, TotalPolicy{})
	ctx := context.Background()

	all, err := f.catalog.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	fruit, err := f.catalog.ListByCategory(ctx, "fruit")
	require.NoError(t, err)
	require.Len(t, fruit, 1)
	assert.Equal(t, "apples", fruit[0].ID)

	require.NoError(t, f.catalog.Delete(ctx, "apples"))
	assert.ErrorIs(t, f.catalog.Delete(ctx, "apples"), entity.ErrProductNotFound)
	_, err = f.catalog.Get(ctx, "apples")
	assert.True(t, entity.IsNotFound(err))
}
