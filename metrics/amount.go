package metrics

import "github.com/shopspring/decimal"

func parseAmount(amount string) (float64, error) {
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, err
	}
	return parsed.InexactFloat64(), nil
}
