// Package variant resuelve la variante comprable a partir de la selección del comprador.
// Todas las funciones son puras: mismas entradas, mismo resultado.
package variant

import (
	"errors"
	"strings"

	"babyfood-store/internal/models"
	"babyfood-store/internal/money"
)

// ErrProductRequired se devuelve cuando no se recibe producto
var ErrProductRequired = errors.New("variant: product is required")

// Resolved es la información efectiva de precio, stock e imagen para una selección
type Resolved struct {
	Variant            *models.Variant `json:"variant"`
	HasOptions         bool            `json:"has_options"`
	CurrentPrice       int64           `json:"current_price"`
	CurrentCompareAt   int64           `json:"current_compare_at,omitempty"`
	InStock            bool            `json:"in_stock"`
	SoldOut            bool            `json:"sold_out"`
	Image              string          `json:"image,omitempty"`
	DiscountPercentage *int            `json:"discount_percentage,omitempty"`
}

// Resolve mapea (producto, selección) a la variante que coincide exactamente.
// Con selección incompleta no hay variante y el precio cae al precio base del producto.
func Resolve(product *models.Product, sel Selection) (Resolved, error) {
	if product == nil {
		return Resolved{}, ErrProductRequired
	}

	res := Resolved{
		HasOptions:       product.HasOptions(),
		CurrentPrice:     product.Price,
		CurrentCompareAt: product.CompareAtPrice,
		Image:            firstImage(product),
	}

	if !res.HasOptions {
		if len(product.Variants) == 1 {
			applyVariant(&res, product, &product.Variants[0])
		} else {
			res.InStock = product.Available()
		}
		res.SoldOut = !res.InStock
		res.DiscountPercentage = discount(res.CurrentPrice, res.CurrentCompareAt)
		return res, nil
	}

	if match := findExact(product, sel); match != nil {
		applyVariant(&res, product, match)
		res.SoldOut = !res.InStock
	} else {
		res.SoldOut = !anyInStock(product)
	}
	res.DiscountPercentage = discount(res.CurrentPrice, res.CurrentCompareAt)
	return res, nil
}

// IsOptionValueAvailable indica si existe una variante con stock que tenga
// optionName=value y coincida con el resto de la selección.
func IsOptionValueAvailable(product *models.Product, optionName, value string, sel Selection) bool {
	if product == nil {
		return false
	}
	opt, ok := product.Option(optionName)
	if !ok || !opt.HasValue(value) {
		return false
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		if v.Options[optionName] != value || !v.InStock() {
			continue
		}
		if consistent(product, v, sel, optionName) {
			return true
		}
	}
	return false
}

// CanAddToCart permite agregar productos sin opciones, o selecciones completas con stock
func CanAddToCart(res Resolved, selectionComplete bool) bool {
	if !res.HasOptions {
		return true
	}
	return selectionComplete && res.InStock
}

// findExact sólo busca coincidencia cuando la selección cubre todas las opciones.
// Claves ajenas o valores obsoletos dejan la selección sin coincidencia.
func findExact(product *models.Product, sel Selection) *models.Variant {
	if !IsComplete(product, sel) {
		return nil
	}
	for i := range product.Variants {
		v := &product.Variants[i]
		if matchesAll(product, v, sel) {
			return v
		}
	}
	return nil
}

func matchesAll(product *models.Product, v *models.Variant, sel Selection) bool {
	for _, opt := range product.Options {
		got, ok := v.Options[opt.Name]
		if !ok || got != sel[opt.Name] {
			return false
		}
	}
	return true
}

// consistent revisa la selección ignorando skip y las claves que el producto no declara
func consistent(product *models.Product, v *models.Variant, sel Selection, skip string) bool {
	for name, value := range sel {
		if name == skip {
			continue
		}
		if _, declared := product.Option(name); !declared {
			continue
		}
		if v.Options[name] != value {
			return false
		}
	}
	return true
}

func applyVariant(res *Resolved, product *models.Product, v *models.Variant) {
	copied := *v
	res.Variant = &copied
	res.CurrentPrice = v.Price
	if v.CompareAtPrice > 0 {
		res.CurrentCompareAt = v.CompareAtPrice
	} else {
		res.CurrentCompareAt = product.CompareAtPrice
	}
	res.InStock = v.InStock()
	if img := strings.TrimSpace(v.Image); img != "" {
		res.Image = img
	}
}

func anyInStock(product *models.Product) bool {
	for i := range product.Variants {
		if product.Variants[i].InStock() {
			return true
		}
	}
	return false
}

func firstImage(product *models.Product) string {
	if len(product.Images) == 0 {
		return ""
	}
	return product.Images[0]
}

func discount(price, compareAt int64) *int {
	pct, ok := money.DiscountPercentage(price, compareAt)
	if !ok {
		return nil
	}
	return &pct
}
