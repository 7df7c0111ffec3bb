package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"transferengine/internal/domain"
)

func TestValidateAmount(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"valid four decimals", "100.1234", false},
		{"valid integer", "50", false},
		{"zero", "0", true},
		{"negative", "-10", true},
		{"too much precision", "10.12345", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)

			err = domain.ValidateAmount(amount)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeAmount(t *testing.T) {
	amount := decimal.RequireFromString("10.5")
	normalized := domain.NormalizeAmount(amount)
	assert.True(t, amount.Equal(normalized))
	assert.Equal(t, int32(-domain.MoneyScale), normalized.Exponent())
}
