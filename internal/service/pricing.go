package service

// Pricing is the checkout fee policy. The defaults (flat fee, flat
// rate) are deployment configuration, not business constants baked into
// the coordinator.
type Pricing struct {
	ShippingFeeCents int64
	TaxRateBps       int64
}

func (p Pricing) Shipping(subtotalCents int64) int64 {
	return p.ShippingFeeCents
}

func (p Pricing) Tax(subtotalCents int64) int64 {
	return subtotalCents * p.TaxRateBps / 10_000
}
