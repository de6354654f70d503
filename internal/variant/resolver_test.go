package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"babyfood-store/internal/models"
)

func intPtr(v int) *int {
	return &v
}

func papillaDePera() *models.Product {
	return &models.Product{
		Slug:   "papilla-de-pera",
		Title:  "Papilla de Pera",
		Price:  4500,
		Images: []string{"pera.jpg"},
		Options: []models.Option{
			{Name: "Tamaño", Values: []string{"200g", "400g"}},
		},
		Variants: []models.Variant{
			{ID: "A", Options: map[string]string{"Tamaño": "200g"}, Price: 4500, Stock: intPtr(0)},
			{ID: "B", Options: map[string]string{"Tamaño": "400g"}, Price: 8000, Stock: intPtr(10), Image: "pera-400.jpg"},
		},
	}
}

func snackDeManzana() *models.Product {
	return &models.Product{
		Slug:    "snack-de-manzana",
		Title:   "Snack de Manzana",
		Price:   3000,
		InStock: true,
	}
}

// purees tiene dos ejes; Pera/12m+ está agotada y Mango sólo existe en 6m+.
func purees() *models.Product {
	return &models.Product{
		Slug:           "pures",
		Title:          "Purés",
		Price:          5000,
		CompareAtPrice: 6000,
		Options: []models.Option{
			{Name: "Edad", Values: []string{"6m+", "12m+"}},
			{Name: "Sabor", Values: []string{"Pera", "Mango"}},
		},
		Variants: []models.Variant{
			{ID: "6-pera", Options: map[string]string{"Edad": "6m+", "Sabor": "Pera"}, Price: 5000, Available: true},
			{ID: "12-pera", Options: map[string]string{"Edad": "12m+", "Sabor": "Pera"}, Price: 5500, Available: false},
			{ID: "6-mango", Options: map[string]string{"Edad": "6m+", "Sabor": "Mango"}, Price: 5200, CompareAtPrice: 6500, Stock: intPtr(3)},
		},
	}
}

func TestResolveRequiresProduct(t *testing.T) {
	_, err := Resolve(nil, Selection{})
	require.ErrorIs(t, err, ErrProductRequired)
}

func TestResolveCompleteSelection(t *testing.T) {
	p := papillaDePera()

	res, err := Resolve(p, Selection{"Tamaño": "400g"})
	require.NoError(t, err)
	require.NotNil(t, res.Variant)
	assert.Equal(t, "B", res.Variant.ID)
	assert.Equal(t, int64(8000), res.CurrentPrice)
	assert.True(t, res.InStock)
	assert.False(t, res.SoldOut)
	assert.Equal(t, "pera-400.jpg", res.Image)
	assert.Nil(t, res.DiscountPercentage)
}

func TestResolveIncompleteSelectionFallsBackToBasePrice(t *testing.T) {
	p := purees()

	res, err := Resolve(p, Selection{"Edad": "6m+"})
	require.NoError(t, err)
	assert.Nil(t, res.Variant)
	assert.Equal(t, int64(5000), res.CurrentPrice)
	assert.Equal(t, int64(6000), res.CurrentCompareAt)
	assert.False(t, res.InStock)
	assert.False(t, res.SoldOut)
	require.NotNil(t, res.DiscountPercentage)
	assert.Equal(t, 17, *res.DiscountPercentage)
}

func TestResolveNonNullIffCompleteAndExact(t *testing.T) {
	p := purees()
	cases := []struct {
		name string
		sel  Selection
		want string
	}{
		{name: "empty", sel: Selection{}},
		{name: "partial", sel: Selection{"Sabor": "Pera"}},
		{name: "complete", sel: Selection{"Edad": "12m+", "Sabor": "Pera"}, want: "12-pera"},
		{name: "complete without variant", sel: Selection{"Edad": "12m+", "Sabor": "Mango"}},
		{name: "unknown key", sel: Selection{"Edad": "6m+", "Sabor": "Pera", "Color": "Rojo"}},
		{name: "stale value", sel: Selection{"Edad": "24m+", "Sabor": "Pera"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Resolve(p, tc.sel)
			require.NoError(t, err)
			if tc.want == "" {
				assert.Nil(t, res.Variant)
				return
			}
			require.NotNil(t, res.Variant)
			assert.Equal(t, tc.want, res.Variant.ID)
		})
	}
}

func TestResolveVariantCompareAtAndDiscount(t *testing.T) {
	res, err := Resolve(purees(), Selection{"Edad": "6m+", "Sabor": "Mango"})
	require.NoError(t, err)
	assert.Equal(t, int64(5200), res.CurrentPrice)
	assert.Equal(t, int64(6500), res.CurrentCompareAt)
	require.NotNil(t, res.DiscountPercentage)
	assert.Equal(t, 20, *res.DiscountPercentage)
}

func TestResolveExhaustedVariantIsSoldOut(t *testing.T) {
	res, err := Resolve(papillaDePera(), Selection{"Tamaño": "200g"})
	require.NoError(t, err)
	require.NotNil(t, res.Variant)
	assert.False(t, res.InStock)
	assert.True(t, res.SoldOut)
}

func TestResolveWithoutOptions(t *testing.T) {
	p := snackDeManzana()

	res, err := Resolve(p, Selection{})
	require.NoError(t, err)
	assert.Nil(t, res.Variant)
	assert.False(t, res.HasOptions)
	assert.Equal(t, int64(3000), res.CurrentPrice)
	assert.True(t, res.InStock)
	assert.True(t, CanAddToCart(res, false))
}

func TestResolveWithoutOptionsUsesImplicitVariant(t *testing.T) {
	p := snackDeManzana()
	p.Variants = []models.Variant{{ID: "default", Options: map[string]string{}, Price: 2800, Stock: intPtr(0)}}

	res, err := Resolve(p, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Variant)
	assert.Equal(t, "default", res.Variant.ID)
	assert.Equal(t, int64(2800), res.CurrentPrice)
	assert.False(t, res.InStock)
	assert.True(t, res.SoldOut)
}

func TestResolveIsIdempotent(t *testing.T) {
	p := purees()
	sel := Selection{"Edad": "6m+", "Sabor": "Mango"}

	first, err := Resolve(p, sel)
	require.NoError(t, err)
	second, err := Resolve(p, sel)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestIsOptionValueAvailable(t *testing.T) {
	p := purees()

	assert.True(t, IsOptionValueAvailable(p, "Edad", "6m+", Selection{}))
	assert.False(t, IsOptionValueAvailable(p, "Edad", "12m+", Selection{}), "only 12m+ variant is sold out")
	assert.True(t, IsOptionValueAvailable(p, "Sabor", "Mango", Selection{"Edad": "6m+"}))
	assert.False(t, IsOptionValueAvailable(p, "Sabor", "Mango", Selection{"Edad": "12m+"}))
	assert.True(t, IsOptionValueAvailable(p, "Edad", "6m+", Selection{"Edad": "12m+"}), "own option is ignored")
	assert.False(t, IsOptionValueAvailable(p, "Edad", "36m+", Selection{}))
	assert.False(t, IsOptionValueAvailable(p, "Color", "Rojo", Selection{}))
	assert.True(t, IsOptionValueAvailable(p, "Sabor", "Pera", Selection{"Marca": "X"}), "undeclared keys do not constrain")
}

func TestIsOptionValueAvailableMatchesBruteForce(t *testing.T) {
	p := purees()
	selections := []Selection{
		{},
		{"Edad": "6m+"},
		{"Edad": "12m+"},
		{"Sabor": "Pera"},
		{"Sabor": "Mango"},
		{"Edad": "6m+", "Sabor": "Pera"},
		{"Edad": "12m+", "Sabor": "Mango"},
	}

	for _, sel := range selections {
		for _, opt := range p.Options {
			for _, value := range opt.Values {
				want := false
				for _, v := range p.Variants {
					if v.Options[opt.Name] != value || !v.InStock() {
						continue
					}
					ok := true
					for k, sv := range sel {
						if k != opt.Name && v.Options[k] != sv {
							ok = false
						}
					}
					if ok {
						want = true
					}
				}
				assert.Equal(t, want, IsOptionValueAvailable(p, opt.Name, value, sel), "%v %s=%s", sel, opt.Name, value)
			}
		}
	}
}

func TestIsOptionValueAvailableAllSoldOut(t *testing.T) {
	p := papillaDePera()
	p.Variants[1].Stock = intPtr(0)

	for _, opt := range Availability(p, Selection{}) {
		for _, v := range opt.Values {
			assert.False(t, v.Available, v.Value)
		}
	}
	res, err := Resolve(p, Selection{})
	require.NoError(t, err)
	assert.True(t, res.SoldOut)
}

func TestCanAddToCart(t *testing.T) {
	assert.True(t, CanAddToCart(Resolved{HasOptions: false}, false))
	assert.False(t, CanAddToCart(Resolved{HasOptions: true, InStock: true}, false))
	assert.False(t, CanAddToCart(Resolved{HasOptions: true, InStock: false}, true))
	assert.True(t, CanAddToCart(Resolved{HasOptions: true, InStock: true}, true))
}

func TestPapillaDePeraScenario(t *testing.T) {
	p := papillaDePera()

	assert.False(t, IsOptionValueAvailable(p, "Tamaño", "200g", Selection{}))
	assert.True(t, IsOptionValueAvailable(p, "Tamaño", "400g", Selection{}))

	sel := Select(p, Selection{}, "Tamaño", "400g")
	res, err := Resolve(p, sel)
	require.NoError(t, err)
	require.NotNil(t, res.Variant)
	assert.Equal(t, "B", res.Variant.ID)
	assert.Equal(t, int64(8000), res.CurrentPrice)
	assert.True(t, res.InStock)
	assert.True(t, CanAddToCart(res, IsComplete(p, sel)))
}
