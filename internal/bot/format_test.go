package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"finbot/internal/core"
)

func TestFormatMoney(t *testing.T) {
	tests := []struct {
		amount core.Money
		cur    string
		want   string
	}{
		{0, "VND", "0 VND"},
		{999, "VND", "999 VND"},
		{1000, "VND", "1.000 VND"},
		{3_000_000, "VND", "3.000.000 VND"},
		{1_234_567_890, "", "1.234.567.890"},
		{-2_950_000, "VND", "-2.950.000 VND"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMoney(tt.amount, tt.cur))
	}
}

func TestSigned(t *testing.T) {
	assert.Equal(t, "+50.000 VND", signed(core.Income, 50_000, "VND"))
	assert.Equal(t, "-50.000 VND", signed(core.Expense, 50_000, "VND"))
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "░░░░░░░░░░", progressBar(core.Progress(0, 100)))
	assert.Equal(t, "███░░░░░░░", progressBar(core.Progress(295, 1000)))
	assert.Equal(t, "██████████", progressBar(core.Progress(100, 100)))
	assert.Equal(t, "██████████", progressBar(core.Ratio(300, 100)), "capped at ten cells")
}
