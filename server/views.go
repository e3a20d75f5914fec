package server

import (
	"sort"
	"strconv"

	"github.com/veltabank/bankweb/apiclient"
	"github.com/veltabank/bankweb/format"
)

// txRow is a transaction flattened for display: account references become
// short IBANs (or opaque IDs for accounts outside the user's view) and
// both legs of a converted transfer collapse into one amount string.
type txRow struct {
	ID     int64
	Type   string
	Status string
	From   string
	To     string
	Amount string
	When   string
}

func txRows(txs []apiclient.Transaction, ibans map[int64]string) []txRow {
	rows := make([]txRow, len(txs))

	for i, t := range txs {
		rows[i] = txRow{
			ID:     t.ID,
			Type:   t.Type,
			Status: t.Status,
			From:   displayAccount(ibans, t.FromAccountID),
			To:     displayAccount(ibans, t.ToAccountID),
			Amount: displayAmount(&t),
			When:   format.Date(t.CreatedAt),
		}
	}

	return rows
}

func displayAccount(ibans map[int64]string, id *int64) string {
	if id == nil {
		return "—"
	}

	if iban, ok := ibans[*id]; ok {
		return format.ShortIBAN(iban)
	}

	return "#" + strconv.FormatInt(*id, 10)
}

func displayAmount(t *apiclient.Transaction) string {
	amount := format.Money(t.AmountFrom, t.CurrencyFrom)

	if t.Converted() {
		amount += " → " + format.Money(*t.AmountTo, t.CurrencyTo)

		if t.FxRate != nil {
			amount += " (fx " + strconv.FormatFloat(*t.FxRate, 'g', -1, 64) + ")"
		}
	}

	return amount
}

func ibansByID(accounts []apiclient.Account) map[int64]string {
	ibans := make(map[int64]string, len(accounts))

	for _, a := range accounts {
		ibans[a.ID] = a.IBAN
	}

	return ibans
}

type currencyTotal struct {
	Currency string
	Total    float64
}

// balanceTotals sums balances per currency, ordered by currency code so the
// dashboard renders stably.
func balanceTotals(accounts []apiclient.Account) []currencyTotal {
	byCurrency := make(map[string]float64)

	for _, a := range accounts {
		byCurrency[a.CurrencyType] += a.Balance
	}

	totals := make([]currencyTotal, 0, len(byCurrency))

	for currency, total := range byCurrency {
		totals = append(totals, currencyTotal{Currency: currency, Total: total})
	}

	sort.Slice(totals, func(i, j int) bool {
		return totals[i].Currency < totals[j].Currency
	})

	return totals
}
