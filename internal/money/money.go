package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// DefaultCurrency es la moneda de la tienda
const DefaultCurrency = "MXN"

var hundred = decimal.NewFromInt(100)

// DiscountPercentage calcula round(100 * (compareAt - price) / compareAt).
// Devuelve false cuando no hay descuento que mostrar.
func DiscountPercentage(price, compareAt int64) (int, bool) {
	if compareAt <= 0 || compareAt <= price {
		return 0, false
	}
	pct := decimal.NewFromInt(compareAt - price).
		Mul(hundred).
		Div(decimal.NewFromInt(compareAt)).
		Round(0)
	return int(pct.IntPart()), true
}

// Formatter convierte montos en centavos a texto para mostrar
type Formatter struct {
	printer  *message.Printer
	currency string
	symbol   string
}

// NewFormatter crea un Formatter para la moneda y el idioma dados
func NewFormatter(currency string, tag language.Tag) *Formatter {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Formatter{
		printer:  message.NewPrinter(tag),
		currency: currency,
		symbol:   symbolFor(currency),
	}
}

// Currency devuelve el código ISO configurado
func (f *Formatter) Currency() string {
	return f.currency
}

// Format muestra centavos como "$1,234.50"
func (f *Formatter) Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	amount := decimal.New(cents, -2)
	whole := amount.IntPart()
	fraction := amount.Sub(decimal.NewFromInt(whole)).Mul(hundred).IntPart()
	return sign + f.symbol + f.printer.Sprintf("%d", whole) + fmt.Sprintf(".%02d", fraction)
}

func symbolFor(currency string) string {
	switch currency {
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "JPY":
		return "¥"
	default:
		return "$"
	}
}
