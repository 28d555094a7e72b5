package domain

import "github.com/shopspring/decimal"

var (
	// TaxRate: плоская ставка налога, не зависит от региона.
	TaxRate = decimal.RequireFromString("0.08")
	// FreeShippingThreshold: доставка бесплатна, если subtotal строго больше порога.
	FreeShippingThreshold = decimal.NewFromInt(100)
	// FlatShipping: стоимость доставки ниже порога.
	FlatShipping = decimal.NewFromInt(10)
)

// PricingBreakdown: производные суммы корзины, не хранятся.
type PricingBreakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// ComputePricing считает subtotal, налог, доставку и итог по снимку корзины.
// Арифметика десятичная, без промежуточного округления.
func ComputePricing(lines []CartLine) PricingBreakdown {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}

	tax := subtotal.Mul(TaxRate)
	shipping := FlatShipping
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return PricingBreakdown{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// FormatMoney форматирует сумму с двумя знаками после запятой для отображения.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
