package domain

import "github.com/shopspring/decimal"

// Pricing holds the store-wide checkout rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

// DefaultPricing is 18% tax with a flat 50 shipping fee waived above 500.
func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.NewFromFloat(0.18),
		FreeShippingThreshold: decimal.NewFromInt(500),
		ShippingFee:           decimal.NewFromInt(50),
	}
}

type Prices struct {
	Items    decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Price computes order totals from the line items alone. Shipping is waived
// once the tax-inclusive item subtotal is above the threshold.
func (p Pricing) Price(items []OrderItem) Prices {
	itemsPrice := decimal.Zero
	for _, it := range items {
		itemsPrice = itemsPrice.Add(it.Subtotal())
	}

	tax := itemsPrice.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingFee
	if itemsPrice.Add(tax).GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Prices{
		Items:    itemsPrice,
		Tax:      tax,
		Shipping: shipping,
		Total:    itemsPrice.Add(tax).Add(shipping),
	}
}
