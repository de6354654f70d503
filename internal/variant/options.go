package variant

import (
	"strings"

	"babyfood-store/internal/models"
)

// ValueState describe un valor de opción para la UI
type ValueState struct {
	Value     string `json:"value"`
	Available bool   `json:"available"`
	Selected  bool   `json:"selected"`
	Swatch    string `json:"swatch,omitempty"`
}

// OptionState agrupa los valores de una opción en orden de despliegue
type OptionState struct {
	Name   string       `json:"name"`
	Values []ValueState `json:"values"`
}

// Availability calcula, para cada opción, qué valores siguen siendo elegibles
func Availability(product *models.Product, sel Selection) []OptionState {
	if product == nil || !product.HasOptions() {
		return []OptionState{}
	}

	out := make([]OptionState, 0, len(product.Options))
	for _, opt := range product.Options {
		state := OptionState{Name: opt.Name, Values: make([]ValueState, 0, len(opt.Values))}
		for _, value := range opt.Values {
			vs := ValueState{
				Value:     value,
				Available: IsOptionValueAvailable(product, opt.Name, value, sel),
				Selected:  sel[opt.Name] == value,
			}
			if strings.EqualFold(opt.Name, "color") {
				vs.Swatch = opt.Swatches[value]
			}
			state.Values = append(state.Values, vs)
		}
		out = append(out, state)
	}
	return out
}

// Select aplica un clic sobre un valor: repetir el valor lo deselecciona, y
// los valores de otras opciones que ya no tienen variante con stock se limpian.
func Select(product *models.Product, sel Selection, optionName, value string) Selection {
	next, _ := NewSelection(product, sel)
	if product == nil {
		return next
	}
	opt, ok := product.Option(optionName)
	if !ok || !opt.HasValue(value) {
		return next
	}

	if next[optionName] == value {
		delete(next, optionName)
		return next
	}
	next[optionName] = value

	for _, other := range product.Options {
		if other.Name == optionName {
			continue
		}
		chosen, ok := next[other.Name]
		if !ok {
			continue
		}
		if !IsOptionValueAvailable(product, other.Name, chosen, next) {
			delete(next, other.Name)
		}
	}
	return next
}
