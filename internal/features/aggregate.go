package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/dvloznov/credit-scoring/internal/domain"
)

// CustomerAggregate summarizes one customer's transaction amounts.
type CustomerAggregate struct {
	CustomerID       string  `json:"customer_id"`
	TransactionCount int     `json:"transaction_count"`
	TotalAmount      float64 `json:"total_amount"`
	AvgAmount        float64 `json:"avg_amount"`
	StdAmount        float64 `json:"std_amount"`
	MinAmount        float64 `json:"min_amount"`
	MaxAmount        float64 `json:"max_amount"`
}

// Aggregates groups transactions by customer and computes count, sum, mean,
// sample standard deviation (n-1 divisor), min and max of the amounts.
// Every row counts, including exact duplicates. Customers with a single
// transaction get StdAmount 0. Output order follows each customer's first
// appearance in the input, so identical input yields identical output.
func (e *Engineer) Aggregates(txs []domain.Transaction) []CustomerAggregate {
	order, amounts := amountsByCustomer(txs)

	out := make([]CustomerAggregate, 0, len(order))
	for _, id := range order {
		vals := amounts[id]
		agg := CustomerAggregate{
			CustomerID:       id,
			TransactionCount: len(vals),
			TotalAmount:      floats.Sum(vals),
			AvgAmount:        stat.Mean(vals, nil),
			MinAmount:        floats.Min(vals),
			MaxAmount:        floats.Max(vals),
		}
		if len(vals) > 1 {
			agg.StdAmount = stat.StdDev(vals, nil)
		}
		out = append(out, agg)
	}
	return out
}

// amountsByCustomer collects each customer's amounts, preserving first-seen
// customer order.
func amountsByCustomer(txs []domain.Transaction) ([]string, map[string][]float64) {
	var order []string
	amounts := make(map[string][]float64)
	for _, tx := range txs {
		if _, seen := amounts[tx.CustomerID]; !seen {
			order = append(order, tx.CustomerID)
		}
		amounts[tx.CustomerID] = append(amounts[tx.CustomerID], tx.Amount)
	}
	return order, amounts
}
