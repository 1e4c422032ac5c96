package wslpg

import (
	"github.com/shopspring/decimal"

	money "github.com/rezonia/afipws/internal/decimal"
)

// Estimate is a local preview of the totals AFIP computes on authorization
type Estimate struct {
	NetWeight   int64           `json:"total_peso_neto"`
	PricePerKg  decimal.Decimal `json:"precio_operacion"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	IVAAmount   decimal.Decimal `json:"importe_iva"`
	Deductions  []Amount        `json:"deducciones,omitempty"`
	Retentions  []Amount        `json:"retenciones,omitempty"`
	Perceptions []Amount        `json:"percepciones,omitempty"`
	NetToPay    decimal.Decimal `json:"total_neto_a_pagar"`
}

// NetWeight is the certified plus the uncertified weight in kilograms
func (s *Settlement) NetWeight() int64 {
	total := s.UncertifiedNetWeight
	for _, c := range s.Certificates {
		total += c.NetWeight
	}
	return total
}

// Estimar computes the expected amounts of s. The operation price is used
// when present, otherwise the reference price; both are per ton.
func (s *Settlement) Estimar() Estimate {
	price := s.OperationPricePerTon
	if !money.IsPositive(price) {
		price = s.ReferencePricePerTon
	}
	e := Estimate{
		NetWeight:  s.NetWeight(),
		PricePerKg: money.PerTonToPerKg(price),
	}
	e.Subtotal = money.Subtotal(e.NetWeight, e.PricePerKg)
	e.IVAAmount = money.ApplyRate(e.Subtotal, s.IVARate)

	var charged, withheld, perceived []decimal.Decimal
	for _, d := range s.Deductions {
		storage := money.Subtotal(int64(d.StorageDays)*e.NetWeight, d.DailyPricePerKg)
		amount := money.RoundCents(d.Base.Add(storage).Add(money.ApplyRate(e.Subtotal, d.AdminCommission)))
		iva := money.ApplyRate(amount, d.IVARate)
		e.Deductions = append(e.Deductions, Amount{
			Concept: d.Concept,
			Detail:  d.Detail,
			Base:    amount,
			Rate:    d.IVARate,
			Amount:  amount.Add(iva),
			IVA:     iva,
		})
		charged = append(charged, amount.Add(iva))
	}
	for _, r := range s.Retentions {
		amount := money.ApplyRate(r.Base, r.Rate)
		e.Retentions = append(e.Retentions, Amount{Concept: r.Concept, Detail: r.Detail, Base: r.Base, Rate: r.Rate, Amount: amount})
		withheld = append(withheld, amount)
	}
	for _, p := range s.Perceptions {
		amount := p.FinalAmount
		if amount.IsZero() {
			amount = money.ApplyRate(p.Base, p.Rate)
		}
		e.Perceptions = append(e.Perceptions, Amount{Concept: p.Concept, Detail: p.Detail, Base: p.Base, Rate: p.Rate, Amount: amount})
		perceived = append(perceived, amount)
	}

	e.NetToPay = e.Subtotal.Add(e.IVAAmount).
		Sub(money.Sum(charged)).
		Sub(money.Sum(withheld)).
		Add(money.Sum(perceived))
	return e
}
