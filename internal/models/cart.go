package models

// CartLine es una fila del carrito identificada por (producto, variante).
// UnitPrice y Title se capturan en el primer alta y no se reescriben.
type CartLine struct {
	ProductID   string `json:"productId" bson:"product_id"`
	VariantID   string `json:"variantId,omitempty" bson:"variant_id,omitempty"`
	Quantity    int    `json:"quantity" bson:"quantity"`
	UnitPrice   int64  `json:"unitPrice" bson:"unit_price"`
	Title       string `json:"title" bson:"title"`
	Image       string `json:"image,omitempty" bson:"image,omitempty"`
	MaxQuantity *int   `json:"maxQuantity,omitempty" bson:"max_quantity,omitempty"`
}

// LineKey es la identidad de fusión de una línea
type LineKey struct {
	ProductID string
	VariantID string
}

// Key devuelve la identidad de la línea
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, VariantID: l.VariantID}
}

// LineTotal es el precio congelado por la cantidad
func (l CartLine) LineTotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// CartState es la lista ordenada de líneas; los agregados se derivan
type CartState struct {
	Lines []CartLine `json:"lines" bson:"lines"`
}

// TotalItems suma las cantidades de todas las líneas
func (s CartState) TotalItems() int {
	total := 0
	for _, line := range s.Lines {
		total += line.Quantity
	}
	return total
}

// Subtotal suma precio congelado por cantidad
func (s CartState) Subtotal() int64 {
	var total int64
	for _, line := range s.Lines {
		total += line.LineTotal()
	}
	return total
}

// Clone devuelve una copia profunda del estado
func (s CartState) Clone() CartState {
	lines := make([]CartLine, len(s.Lines))
	for i, line := range s.Lines {
		if line.MaxQuantity != nil {
			limit := *line.MaxQuantity
			line.MaxQuantity = &limit
		}
		lines[i] = line
	}
	return CartState{Lines: lines}
}
