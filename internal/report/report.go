// Package report aggregates a user's ledger into fiscal-period summaries.
//
// Summarize loads a scope from a Source and hands it to Aggregate, which is a
// pure function: it never mutates its input and always returns fully populated
// structures, even for an empty scope.
package report

import (
	"sort"

	"github.com/shopspring/decimal"

	"fintrack/internal/models"
)

// RecentLimit is the number of transactions reported in Summary.Recent.
const RecentLimit = 5

// Filter narrows a ledger query to a fiscal scope.
type Filter struct {
	Year  int
	Month int // 0 means all months
	Type  *models.TransactionType
}

// Source is the ledger query capability the engine depends on.
type Source interface {
	// FiscalYears returns the distinct fiscal years of the owner's transactions.
	FiscalYears(ownerID uint) ([]int, error)
	// Transactions returns the owner's transactions matching f with Category
	// preloaded, ordered by date DESC then id DESC.
	Transactions(ownerID uint, f Filter) ([]models.Transaction, error)
}

// CategoryAmount is one entry of a per-category breakdown.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// MonthAmount holds the per-type totals of one calendar month.
type MonthAmount struct {
	Month  int     `json:"month"`
	Debit  float64 `json:"debit"`
	Credit float64 `json:"credit"`
}

// TypeAmount is one slice of the credit/debit composition.
type TypeAmount struct {
	Type   models.TransactionType `json:"type"`
	Amount float64                `json:"amount"`
}

// Summary is the aggregate view of one scope.
type Summary struct {
	Year          int                                         `json:"year"`
	Month         int                                         `json:"month"`
	TotalsByType  map[models.TransactionType]float64          `json:"totals_by_type"`
	Count         int                                         `json:"count"`
	Recent        []models.Transaction                        `json:"recent"`
	ByCategory    map[models.TransactionType][]CategoryAmount `json:"by_category"`
	ByMonth       []MonthAmount                               `json:"by_month"`
	CreditVsDebit []TypeAmount                                `json:"credit_vs_debit"`
}

// Summarize computes the summary of ownerID's transactions in year (and month,
// unless it is 0). Source errors are returned unchanged.
func Summarize(src Source, ownerID uint, year, month int) (*Summary, error) {
	txns, err := src.Transactions(ownerID, Filter{Year: year, Month: month})
	if err != nil {
		return nil, err
	}
	return Aggregate(year, month, txns), nil
}

// Aggregate builds a Summary from transactions already restricted to the scope.
func Aggregate(year, month int, txns []models.Transaction) *Summary {
	totals := make(map[models.TransactionType]decimal.Decimal, len(models.TransactionTypes))
	byCategory := make(map[models.TransactionType]*categoryTotals, len(models.TransactionTypes))
	var byMonth [12]map[models.TransactionType]decimal.Decimal

	for _, t := range models.TransactionTypes {
		totals[t] = decimal.Zero
		byCategory[t] = newCategoryTotals()
	}
	for i := range byMonth {
		byMonth[i] = map[models.TransactionType]decimal.Decimal{
			models.TransactionTypeDebit:  decimal.Zero,
			models.TransactionTypeCredit: decimal.Zero,
		}
	}

	kept := make([]models.Transaction, 0, len(txns))
	for i := range txns {
		txn := &txns[i]
		if !txn.Type.Valid() {
			continue
		}
		kept = append(kept, *txn)
		amount := decimal.NewFromFloat(txn.Amount)
		totals[txn.Type] = totals[txn.Type].Add(amount)
		byCategory[txn.Type].add(txn.CategoryName(), amount)
		if txn.Month >= 1 && txn.Month <= 12 {
			m := byMonth[txn.Month-1]
			m[txn.Type] = m[txn.Type].Add(amount)
		}
	}

	s := &Summary{
		Year:          year,
		Month:         month,
		TotalsByType:  make(map[models.TransactionType]float64, len(totals)),
		Count:         len(kept),
		Recent:        recent(kept, RecentLimit),
		ByCategory:    make(map[models.TransactionType][]CategoryAmount, len(byCategory)),
		ByMonth:       make([]MonthAmount, 0, 12),
		CreditVsDebit: make([]TypeAmount, 0, len(models.TransactionTypes)),
	}
	for _, t := range models.TransactionTypes {
		s.TotalsByType[t] = toFloat(totals[t])
		s.ByCategory[t] = byCategory[t].sorted()
		s.CreditVsDebit = append(s.CreditVsDebit, TypeAmount{Type: t, Amount: s.TotalsByType[t]})
	}
	for i, m := range byMonth {
		s.ByMonth = append(s.ByMonth, MonthAmount{
			Month:  i + 1,
			Debit:  toFloat(m[models.TransactionTypeDebit]),
			Credit: toFloat(m[models.TransactionTypeCredit]),
		})
	}
	return s
}

// recent returns up to limit transactions ordered by date DESC, id DESC,
// without reordering txns.
func recent(txns []models.Transaction, limit int) []models.Transaction {
	sorted := make([]models.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID > sorted[j].ID
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// categoryTotals sums amounts per category name, remembering first-seen order
// so equal names sort stably.
type categoryTotals struct {
	order []string
	sums  map[string]decimal.Decimal
}

func newCategoryTotals() *categoryTotals {
	return &categoryTotals{sums: make(map[string]decimal.Decimal)}
}

func (c *categoryTotals) add(name string, amount decimal.Decimal) {
	sum, ok := c.sums[name]
	if !ok {
		c.order = append(c.order, name)
		sum = decimal.Zero
	}
	c.sums[name] = sum.Add(amount)
}

func (c *categoryTotals) sorted() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, CategoryAmount{Category: name, Amount: toFloat(c.sums[name])})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
