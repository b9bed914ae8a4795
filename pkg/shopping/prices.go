package shopping

import "strings"

// Default unit prices keyed by the cleaned item name, covering the
// common grocery vocabulary in all three languages.
var defaultPrices = map[string]float64{
	"pain": 0.4, "lait": 1.2, "œufs": 3.5, "tomates": 1.8,
	"poulet": 12.5, "riz": 2.3, "huile": 4.5, "sucre": 2.0,
	"café": 8.5, "fromage": 6.0,

	"خبز": 0.4, "حليب": 1.2, "بيض": 3.5, "طماطم": 1.8,
	"دجاج": 12.5, "أرز": 2.3, "زيت": 4.5, "سكر": 2.0,
	"قهوة": 8.5, "جبن": 6.0,

	"bread": 0.4, "milk": 1.2, "eggs": 3.5, "tomatoes": 1.8,
	"chicken": 12.5, "rice": 2.3, "oil": 4.5, "sugar": 2.0,
	"coffee": 8.5, "cheese": 6.0,
}

// PriceFor looks up the default unit price for an item, falling back
// to fallback for unknown names.
func PriceFor(name string, fallback float64) float64 {
	if p, ok := defaultPrices[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p
	}
	return fallback
}
