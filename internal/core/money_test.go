package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"whole units", "45", 4500},
		{"dot separator", "1299.99", 129999},
		{"comma separator", "7,5", 750},
		{"surrounding space", "\t12.30 ", 1230},
		{"leading dot", ".75", 75},
		{"third decimal rounds up at five", "19.995", 2000},
		{"third decimal rounds down below five", "19.994", 1999},
		{"smallest amount", "0.005", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Cents)
		})
	}
}

func TestParseMoneyRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "0", "0.00", "0.004", "-3", "+3", "2e2", "1.2.3", "ten", "1000000000000000"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseMoney(input)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestMoneyFormatting(t *testing.T) {
	assert.Equal(t, "0.07", Money{Cents: 7}.String())
	assert.Equal(t, "80.00", Money{Cents: 8000}.String())
	assert.Equal(t, "15000.25", Money{Cents: 1500025}.String())
	assert.Equal(t, "15000.25", Money{Cents: 1500025}.Decimal().StringFixed(2))
}

func TestMoneyAdd(t *testing.T) {
	sum := Money{Cents: 1999}.Add(Money{Cents: 1})
	assert.Equal(t, Money{Cents: 2000}, sum)
}
