package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"babyfood-store/internal/models"
)

func colorOption() models.Option {
	return models.Option{
		Name:     "Color",
		Values:   []string{"Verde", "Rojo"},
		Swatches: map[string]string{"Verde": "#00ff00", "Rojo": "#ff0000"},
	}
}

func TestNewSelectionDropsUnknownKeysAndValues(t *testing.T) {
	p := purees()

	sel, dropped := NewSelection(p, map[string]string{
		" Edad ": " 6m+ ",
		"Sabor":  "Fresa",
		"Color":  "Rojo",
		"":       "x",
	})

	assert.Equal(t, Selection{"Edad": "6m+"}, sel)
	assert.Equal(t, []Dropped{
		{Option: "Color", Value: "Rojo", Reason: reasonUnknownOption},
		{Option: "Sabor", Value: "Fresa", Reason: reasonUnknownValue},
	}, dropped)
}

func TestNewSelectionNilProduct(t *testing.T) {
	sel, dropped := NewSelection(nil, map[string]string{"Edad": "6m+"})
	assert.Empty(t, sel)
	assert.Nil(t, dropped)
}

func TestIsComplete(t *testing.T) {
	p := purees()

	assert.False(t, IsComplete(nil, Selection{}))
	assert.False(t, IsComplete(p, Selection{"Edad": "6m+"}))
	assert.True(t, IsComplete(p, Selection{"Edad": "6m+", "Sabor": "Pera"}))
	assert.False(t, IsComplete(p, Selection{"Edad": "6m+", "Sabor": "Fresa"}))
	assert.False(t, IsComplete(p, Selection{"Edad": "6m+", "Color": "Rojo"}))
	assert.True(t, IsComplete(snackDeManzana(), nil))
}

func TestSelectTogglesAndClearsIncompatible(t *testing.T) {
	p := purees()

	sel := Select(p, Selection{}, "Sabor", "Mango")
	assert.Equal(t, Selection{"Sabor": "Mango"}, sel)

	sel = Select(p, sel, "Edad", "6m+")
	assert.Equal(t, Selection{"Sabor": "Mango", "Edad": "6m+"}, sel)

	// 12m+ no tiene Mango: se limpia el sabor
	sel = Select(p, sel, "Edad", "12m+")
	assert.Equal(t, Selection{"Edad": "12m+"}, sel)

	sel = Select(p, sel, "Edad", "12m+")
	assert.Empty(t, sel)

	sel = Select(p, sel, "Color", "Rojo")
	assert.Empty(t, sel)
}

func TestAvailabilityMarksSelectionAndSwatches(t *testing.T) {
	p := purees()
	p.Options = append(p.Options, colorOption())
	for i := range p.Variants {
		p.Variants[i].Options["Color"] = "Verde"
	}

	states := Availability(p, Selection{"Edad": "6m+"})
	assert.Len(t, states, 3)
	assert.Equal(t, "Edad", states[0].Name)
	assert.True(t, states[0].Values[0].Selected)
	assert.True(t, states[0].Values[0].Available)
	assert.False(t, states[0].Values[1].Available)
	assert.Equal(t, "#00ff00", states[2].Values[0].Swatch)
	assert.False(t, states[2].Values[1].Available)

	assert.Empty(t, Availability(snackDeManzana(), Selection{}))
}
