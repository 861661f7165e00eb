package service

import (
	"github.com/flexprice/subscriptions/internal/domain/plan"
	"github.com/flexprice/subscriptions/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is shown when a plan does not name one.
const DefaultCurrency = "$"

const displayPrecision = 3

// Display is a price table projected for one customer.
type Display struct {
	Price       map[types.BillingInterval]decimal.Decimal
	VAT         map[types.BillingInterval]decimal.Decimal
	Currency    string
	VATIncluded bool
}

// VATRateFromPercent converts a whole percentage (20) to a rate (0.2).
func VATRateFromPercent(percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
}

// ComputeDisplay projects table for a customer. vatRate is a fraction, 0.2
// for 20%. Customers that do not pay VAT see net amounts and zero VAT.
// Every amount is rounded to three decimals and table is never modified.
func ComputeDisplay(table plan.PriceTable, vatRate decimal.Decimal, userPaysVAT bool) Display {
	amounts := table.Amounts()
	out := Display{
		Price:       make(map[types.BillingInterval]decimal.Decimal, len(amounts)),
		VAT:         make(map[types.BillingInterval]decimal.Decimal, len(amounts)),
		Currency:    table.Currency,
		VATIncluded: table.VATIncluded,
	}
	if out.Currency == "" {
		out.Currency = DefaultCurrency
	}

	one := decimal.NewFromInt(1)
	net := one.Sub(vatRate)

	for interval, amount := range amounts {
		var price, vat decimal.Decimal

		switch {
		case userPaysVAT && table.VATIncluded:
			price = amount
			vat = amount.Mul(vatRate)
		case userPaysVAT:
			gross := grossOf(amount, net)
			price = gross
			vat = gross.Sub(amount)
		case table.VATIncluded:
			price = amount.Mul(net)
			vat = decimal.Zero
		default:
			price = amount
			vat = decimal.Zero
		}

		out.Price[interval] = price.Round(displayPrecision)
		out.VAT[interval] = vat.Round(displayPrecision)
	}

	return out
}

// grossOf returns amount / net, or amount when the rate leaves nothing net.
func grossOf(amount, net decimal.Decimal) decimal.Decimal {
	if net.Sign() <= 0 {
		return amount
	}
	return amount.DivRound(net, displayPrecision+4)
}
