package expense

import "math"

// Summary is the USD-normalized view over a trip's expense list. It is
// recomputed from the entries on every read and never stored, so it cannot
// drift from the underlying list.
type Summary struct {
	TotalSpentUSD  float64            `json:"total_spent_usd"`
	CategoryTotals map[string]float64 `json:"category_totals"`
	SpentPct       int                `json:"spent_pct"`
	OverBudget     bool               `json:"over_budget"`
	BudgetUSD      float64            `json:"budget_usd,omitempty"`
	Count          int                `json:"count"`
}

// Aggregate converts the expense list into the reporting currency and
// computes budget utilization. Categories with no expenses are omitted from
// CategoryTotals. A nil or zero budget means "no budget set": SpentPct is 0
// and OverBudget false. SpentPct is clamped at 100 so a progress indicator
// never exceeds full; going over budget is surfaced by OverBudget instead.
func Aggregate(expenses []Expense, rates RateProvider, budget *float64) (Summary, error) {
	summary := Summary{
		CategoryTotals: make(map[string]float64),
		Count:          len(expenses),
	}

	var total float64
	for _, e := range expenses {
		rate, err := rates.RateToUSD(e.Currency)
		if err != nil {
			return Summary{}, err
		}
		usd := e.Amount * rate
		total += usd
		summary.CategoryTotals[e.Category] += usd
	}

	summary.TotalSpentUSD = roundCents(total)
	for category, amount := range summary.CategoryTotals {
		summary.CategoryTotals[category] = roundCents(amount)
	}

	if budget != nil && *budget > 0 {
		summary.BudgetUSD = *budget
		pct := int(math.Round(summary.TotalSpentUSD / *budget * 100))
		if pct > 100 {
			pct = 100
		}
		summary.SpentPct = pct
		summary.OverBudget = summary.TotalSpentUSD > *budget
	}

	return summary, nil
}

// roundCents rounds to 2 decimal places for monetary values.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
