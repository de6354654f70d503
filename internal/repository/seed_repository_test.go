package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babyfood-store/internal/models"
)

const seedYAML = `
products:
  - slug: papilla-de-pera
    title: Papilla de Pera
    price: 4500
    featured: true
    collections: [papillas]
    options:
      - name: Tamaño
        values: ["200g", "400g"]
    variants:
      - id: A
        options: {Tamaño: "200g"}
        price: 4500
        stock: 0
      - id: B
        options: {Tamaño: "400g"}
        price: 8000
        stock: 10
  - slug: snack-de-manzana
    title: Snack de Manzana
    price: 3000
    in_stock: true
    collections: [snacks]
  - slug: pure-de-mango
    title: Puré de Mango
    price: 5500
    in_stock: true
    collections: [papillas]
`

func loadTestSeed(t *testing.T) *SeedProductRepository {
	t.Helper()
	repo, err := LoadSeed(strings.NewReader(seedYAML))
	require.NoError(t, err)
	return repo
}

func TestLoadSeed(t *testing.T) {
	repo := loadTestSeed(t)

	p, err := repo.FindBySlug(context.Background(), "papilla-de-pera")
	require.NoError(t, err)
	require.Len(t, p.Variants, 2)
	require.NotNil(t, p.Variants[1].Stock)
	assert.Equal(t, 10, *p.Variants[1].Stock)
	assert.Equal(t, "400g", p.Variants[1].Options["Tamaño"])

	_, err = repo.FindBySlug(context.Background(), "nope")
	require.ErrorIs(t, err, ErrProductNotFound)
}

func TestLoadSeedRejectsInvalidProducts(t *testing.T) {
	_, err := LoadSeed(strings.NewReader(`
products:
  - slug: roto
    title: Roto
    options:
      - name: Tamaño
        values: ["200g"]
    variants:
      - id: A
        options: {Tamaño: "500g"}
`))
	require.Error(t, err)
	var verr *models.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = LoadSeed(strings.NewReader("products: [oops"))
	require.Error(t, err)
}

func TestSeedFindAllFilters(t *testing.T) {
	repo := loadTestSeed(t)
	ctx := context.Background()

	all, total, err := repo.FindAll(ctx, ListFilter{SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "papilla-de-pera", all[0].Slug, "file order for created_at asc")

	papillas, total, err := repo.FindAll(ctx, ListFilter{Collection: "Papillas", SortBy: "price", SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "pure-de-mango", papillas[0].Slug)

	featured := true
	onlyFeatured, _, err := repo.FindAll(ctx, ListFilter{Featured: &featured})
	require.NoError(t, err)
	require.Len(t, onlyFeatured, 1)
	assert.Equal(t, "papilla-de-pera", onlyFeatured[0].Slug)

	found, _, err := repo.FindAll(ctx, ListFilter{Query: "manzana"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "snack-de-manzana", found[0].Slug)
}

func TestSeedFindAllPaginates(t *testing.T) {
	repo := loadTestSeed(t)

	page, total, err := repo.FindAll(context.Background(), ListFilter{Page: 2, PageSize: 2, SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "snack-de-manzana", page[0].Slug)

	empty, _, err := repo.FindAll(context.Background(), ListFilter{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, empty)
	assert.Equal(t, int64(2), TotalPages(3, 2))
	assert.Equal(t, int64(0), TotalPages(0, 20))
}

func TestSeedCreateAndSoftDelete(t *testing.T) {
	repo := loadTestSeed(t)
	ctx := context.Background()

	err := repo.Create(ctx, &models.Product{Slug: "snack-de-manzana", Title: "Otro"})
	require.ErrorIs(t, err, ErrDuplicateSlug)

	require.NoError(t, repo.Create(ctx, &models.Product{Slug: "galletas", Title: "Galletas", Price: 2500, InStock: true}))
	_, err = repo.FindBySlug(ctx, "galletas")
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, "galletas"))
	_, err = repo.FindBySlug(ctx, "galletas")
	require.ErrorIs(t, err, ErrProductNotFound)
	require.ErrorIs(t, repo.SoftDelete(ctx, "galletas"), ErrProductNotFound)
}

func TestListFilterNormalize(t *testing.T) {
	f := ListFilter{Page: -1, PageSize: 1000, SortBy: "drop table", SortOrder: "sideways"}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, maxPageSize, f.PageSize)
	assert.Equal(t, "created_at", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)
}

func TestBuildFilter(t *testing.T) {
	featured := false
	filter := buildFilter(ListFilter{Collection: "snacks", Featured: &featured, Query: "a.b"})
	assert.Equal(t, "snacks", filter["collections"])
	assert.Equal(t, false, filter["featured"])
	assert.Equal(t, false, filter["is_deleted"])
	assert.NotNil(t, filter["title"])
}
