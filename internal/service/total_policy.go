package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/egannguyen/go-kafka-ecommerce/storefront/internal/entity"
)

// TotalMode decides what happens to a total sent by the client.
type TotalMode string

const (
	// TotalServer ignores client totals.
	TotalServer TotalMode = "server"
	// TotalTolerance rejects a client total further than Tolerance from the
	// computed one and stores the computed total.
	TotalTolerance TotalMode = "tolerance"
	// TotalClient stores a positive client total as sent.
	TotalClient TotalMode = "client"
)

func ParseTotalMode(s string) (TotalMode, error) {
	switch m := TotalMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return TotalServer, nil
	case TotalServer, TotalTolerance, TotalClient:
		return m, nil
	}
	return "", fmt.Errorf("unknown total policy %q", s)
}

type TotalPolicy struct {
	Mode      TotalMode
	Tolerance decimal.Decimal
}

// Resolve returns the total to store. Client totals that are absent or not
// positive never count.
func (p TotalPolicy) Resolve(computed decimal.Decimal, client decimal.NullDecimal) (decimal.Decimal, error) {
	if !client.Valid || !client.Decimal.IsPositive() {
		return computed, nil
	}
	switch p.Mode {
	case TotalClient:
		return client.Decimal, nil
	case TotalTolerance:
		if client.Decimal.Sub(computed).Abs().GreaterThan(p.Tolerance) {
			return decimal.Decimal{}, fmt.Errorf("%w: client %s, computed %s",
				entity.ErrTotalMismatch, client.Decimal.String(), computed.String())
		}
	}
	return computed, nil
}
