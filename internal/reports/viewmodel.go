package reports

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var amountPrinter = message.NewPrinter(language.English)

// FormatAmount renders an amount with thousands separators for view
// and export layers.
func FormatAmount(v float64) string {
	return amountPrinter.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// LedgerRowView is a display-ready ledger row.
type LedgerRowView struct {
	Date    string
	DocType string
	DocNo   string
	Memo    string
	Debit   string
	Credit  string
	Running string
	Voided  bool
}

// NewLedgerRowView formats one row for presentation.
func NewLedgerRowView(row LedgerRow) LedgerRowView {
	view := LedgerRowView{
		Date:    row.EffectiveDate.Format("2006-01-02"),
		DocType: row.DocType,
		DocNo:   row.DocNo,
		Memo:    row.Memo,
		Running: FormatAmount(row.Running),
		Voided:  row.IsVoided,
	}
	if row.Debit != 0 {
		view.Debit = FormatAmount(row.Debit)
	}
	if row.Credit != 0 {
		view.Credit = FormatAmount(row.Credit)
	}
	return view
}
