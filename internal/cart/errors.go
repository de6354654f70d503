package cart

import "errors"

var (
	// ErrInvalidQuantity se devuelve para cantidades no positivas o absurdas
	ErrInvalidQuantity = errors.New("cart: invalid quantity")
	// ErrOutOfStock se devuelve al agregar una variante sin existencias
	ErrOutOfStock = errors.New("cart: out of stock")
	// ErrLineNotFound se devuelve al actualizar una línea que no está en el carrito
	ErrLineNotFound = errors.New("cart: line not found")
	// ErrVariantNotFound indica que la variante ya no existe en el producto
	ErrVariantNotFound = errors.New("cart: variant not found")
	// ErrSelectionIncomplete indica que la selección no resuelve una variante comprable
	ErrSelectionIncomplete = errors.New("cart: selection does not resolve a purchasable variant")
	// ErrProductRequired se devuelve sin identificador de producto
	ErrProductRequired = errors.New("cart: product id is required")
	// ErrClosed se devuelve al mutar un carrito ya cerrado
	ErrClosed = errors.New("cart: store closed")
)
