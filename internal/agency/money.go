package agency

import (
	"github.com/shopspring/decimal"
)

// AllCurrencies disables the currency filter of Summarize.
const AllCurrencies = "all"

// ExpectedTotal returns the price a tour should carry: price per person
// times the number of people, plus each activity's price times its
// participants (every tour participant when unset). Activity currencies
// are not converted.
func ExpectedTotal(t Tour) decimal.Decimal {
	people := decimal.NewFromInt(int64(t.NumberOfPeople))
	total := decimal.NewFromFloat(t.PricePerPerson).Mul(people)

	for _, a := range t.Activities {
		participants := people
		if a.Participants > 0 {
			participants = decimal.NewFromInt(int64(a.Participants))
		}
		total = total.Add(decimal.NewFromFloat(a.Price).Mul(participants))
	}
	return total
}

// Summary is the financial position in one currency.
type Summary struct {
	Currency     string          `json:"currency"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
	TourIncome   decimal.Decimal `json:"tourIncome"`
	TourExpenses decimal.Decimal `json:"tourExpenses"`
	Profit       decimal.Decimal `json:"profit"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalProfit  decimal.Decimal `json:"totalProfit"`
	Balance      decimal.Decimal `json:"balance"`
}

// OtherExpenses is the expense total excluding projected tour expenses.
func (s Summary) OtherExpenses() decimal.Decimal {
	return s.Expense.Sub(s.TourExpenses)
}

// Summarize totals ledger entries and tour sales in currency. Pass
// AllCurrencies to add amounts of every currency together.
//
// Income and Expense come from the ledger; TourExpenses is the part of
// Expense categorised as TourExpenseCategory. TourIncome is the sum of tour
// total prices.
func Summarize(financials []Financial, tours []Tour, currency string) Summary {
	match := func(c string) bool {
		return currency == AllCurrencies || c == currency
	}

	s := Summary{Currency: currency}
	for _, f := range financials {
		if !match(f.Currency) {
			continue
		}
		amount := decimal.NewFromFloat(f.Amount)
		switch f.Type {
		case TypeIncome:
			s.Income = s.Income.Add(amount)
		case TypeExpense:
			s.Expense = s.Expense.Add(amount)
			if f.Category == TourExpenseCategory {
				s.TourExpenses = s.TourExpenses.Add(amount)
			}
		}
	}
	for _, t := range tours {
		if match(t.Currency) {
			s.TourIncome = s.TourIncome.Add(decimal.NewFromFloat(t.TotalPrice))
		}
	}

	s.Profit = s.Income.Sub(s.Expense)
	s.TotalIncome = s.Income.Add(s.TourIncome)
	s.TotalProfit = s.TotalIncome.Sub(s.Expense)
	s.Balance = s.TotalProfit
	return s
}

// Currencies returns the distinct currencies used by financials and tours
// in first-seen order.
func Currencies(financials []Financial, tours []Tour) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, f := range financials {
		add(f.Currency)
	}
	for _, t := range tours {
		add(t.Currency)
	}
	return out
}
