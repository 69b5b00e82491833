package core

// CategoryBreakdown is one row of the budget utilization table.
type CategoryBreakdown struct {
	Category    string  `json:"category"`
	Limit       Money   `json:"limit"`
	Spent       Money   `json:"spent"`
	Remaining   Money   `json:"remaining"`
	PercentUsed float64 `json:"percentUsed"`
}

// MonthlySummary is derived on demand for a year+month and never stored.
type MonthlySummary struct {
	Year              int                 `json:"year"`
	Month             int                 `json:"month"` // 1-12
	TotalIncome       Money               `json:"totalIncome"`
	TotalExpenses     Money               `json:"totalExpenses"`
	NetSavings        Money               `json:"netSavings"`
	CategoryBreakdown []CategoryBreakdown `json:"categoryBreakdown"`
}

// unbudgetedPercent marks spending in a category with no budget as fully
// used regardless of amount.
const unbudgetedPercent = 100

// Summarize totals a month of transactions against the owner's budgets.
// transactions must already be restricted to the month. Budget rows come
// first in the order supplied, followed by categories that have spending but
// no budget in the order they were first seen.
func Summarize(transactions []Transaction, budgets []Budget, month, year int) MonthlySummary {
	s := MonthlySummary{
		Year:              year,
		Month:             month,
		CategoryBreakdown: make([]CategoryBreakdown, 0, len(budgets)),
	}

	spending := make(map[string]Money)
	var seen []string
	for _, tx := range transactions {
		if !tx.IsExpense() {
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
			continue
		}
		spent := tx.Amount.Abs()
		s.TotalExpenses = s.TotalExpenses.Add(spent)
		key := tx.Category.Label()
		if _, ok := spending[key]; !ok {
			seen = append(seen, key)
		}
		spending[key] = spending[key].Add(spent)
	}
	s.NetSavings = s.TotalIncome.Sub(s.TotalExpenses)

	budgeted := make(map[string]bool, len(budgets))
	for _, b := range budgets {
		key := string(b.Category)
		budgeted[key] = true
		spent := spending[key]
		row := CategoryBreakdown{
			Category:  key,
			Limit:     b.Limit,
			Spent:     spent,
			Remaining: b.Limit.Sub(spent),
		}
		if b.Limit.Cents > 0 {
			row.PercentUsed = float64(spent.Cents) / float64(b.Limit.Cents) * 100
		}
		s.CategoryBreakdown = append(s.CategoryBreakdown, row)
	}

	for _, key := range seen {
		if budgeted[key] {
			continue
		}
		spent := spending[key]
		s.CategoryBreakdown = append(s.CategoryBreakdown, CategoryBreakdown{
			Category:    key,
			Spent:       spent,
			Remaining:   Money{Cents: -spent.Cents},
			PercentUsed: unbudgetedPercent,
		})
	}
	return s
}
