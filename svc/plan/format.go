package plan

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrymomot/hostelkit/svc/billing"
)

// DefaultLanguage is used when no formatter is configured.
var DefaultLanguage = language.English

var defaultFormatter = NewFormatter(DefaultLanguage)

// Formatter renders money for a display language.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter creates a Formatter for tag.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{printer: message.NewPrinter(tag)}
}

// Money formats m with its currency symbol. Unknown currencies fall back to
// the ISO code suffix.
func (f *Formatter) Money(m billing.Money) string {
	unit, err := currency.ParseISO(m.Currency)
	if err != nil {
		return f.printer.Sprintf("%.2f %s", m.Major(), m.Currency)
	}
	return f.printer.Sprint(currency.Symbol(unit.Amount(m.Major())))
}

// Describe fills b.Display.
func (f *Formatter) Describe(b *CostBreakdown) {
	b.Display = Display{
		BasePrice:         f.Money(b.BasePrice),
		ExtraBedsCost:     f.Money(b.ExtraBedsCost),
		ExtraBranchesCost: f.Money(b.ExtraBranchesCost),
		MonthlyDiscount:   f.Money(b.MonthlyDiscount),
		MonthlyTotal:      f.Money(b.MonthlyTotal),
		AnnualTotal:       f.Money(b.AnnualTotal),
		PeriodTotal:       f.Money(b.PeriodTotal),
	}
}
