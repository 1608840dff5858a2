package service

import (
	"math"

	"fieldservice_backend/internal/quotes/transport"
)

// Calculation holds the server-side computed totals for a quote.
type Calculation struct {
	LineTotalCents []int64
	SubtotalCents  int64
	TaxCents       int64
	TotalCents     int64
}

// CalculateQuote computes line totals and quote totals in cents. Line totals
// round half away from zero; tax is applied to the subtotal at the given
// rate in basis points.
func CalculateQuote(items []transport.QuoteItemRequest, taxRateBps int) Calculation {
	calc := Calculation{LineTotalCents: make([]int64, len(items))}

	for i, item := range items {
		lineTotal := roundCents(item.Quantity * float64(item.UnitPriceCents))
		calc.LineTotalCents[i] = lineTotal
		calc.SubtotalCents += lineTotal
	}

	calc.TaxCents = roundCents(float64(calc.SubtotalCents) * float64(taxRateBps) / 10000.0)
	calc.TotalCents = calc.SubtotalCents + calc.TaxCents
	return calc
}

func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
