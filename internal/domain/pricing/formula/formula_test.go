package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printq/internal/core/apperror"
)

func TestEval_Arithmetic(t *testing.T) {
	cases := []struct {
		name     string
		formula  string
		quantity float64
		want     float64
	}{
		{"plain number", "5", 1, 5},
		{"quantity passthrough", "quantity", 12, 12},
		{"scale per unit", "quantity * 0.5", 10, 5},
		{"precedence", "2 + 3 * 4", 1, 14},
		{"parentheses", "(2 + 3) * 4", 1, 20},
		{"sheets rounded up", "ceil(quantity / 4)", 9, 3},
		{"ceil exact", "ceil(quantity / 4)", 8, 2},
		{"nested", "ceil((quantity + 1) / 2) * 3", 5, 9},
		{"decimal literals", "0.25 * quantity", 8, 2},
		{"whitespace tolerated", "  quantity\t* 2 ", 3, 6},
		{"double negative", "--4", 1, 4},
		{"subtraction clamps above zero", "quantity - 1", 5, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Eval(tc.formula, tc.quantity)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestEval_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		formula string
		qty     float64
	}{
		{"empty", "", 1},
		{"blank", "   ", 1},
		{"outside whitelist", "quantity; drop table", 1},
		{"comparison operator", "quantity > 3", 1},
		{"unknown identifier", "qty * 2", 1},
		{"unknown function", "floor(quantity)", 1},
		{"dangling input", "quantity 5", 1},
		{"unbalanced paren", "(quantity * 2", 1},
		{"division by zero", "quantity / 0", 4},
		{"negative result", "quantity - 10", 4},
		{"malformed number", "1.2.3", 1},
		{"bare operator", "*", 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Eval(tc.formula, tc.qty)
			require.Error(t, err)
			assert.True(t, apperror.IsCode(err, apperror.CodeInvalidFormula), "expected INVALID_FORMULA, got %v", err)
		})
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("ceil(quantity / 25) * 2"))
	assert.Error(t, Validate("quantity ** 2"))
}
