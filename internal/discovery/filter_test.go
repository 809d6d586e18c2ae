package discovery

import (
	"testing"
)

func TestFilter_Match(t *testing.T) {
	filter := NewFilter()

	tests := []struct {
		name     string
		id       string
		pattern  string
		expected bool
	}{
		{"empty pattern matches everything", "Calc.test_add", "", true},
		{"wildcard pattern matches suffix", "Calc.test_add", "*Calc.test_add", true},
		{"wildcard suffix does not match other tests", "Payment.test_refund", "*Calc.test_add", false},
		{"wildcard pattern matches substring", "billing.PaymentService.test_charge", "*Payment*", true},
		{"simple contains match", "Payment.test_refund", "Payment", true},
		{"simple contains mismatch", "Order.test_total", "Payment", false},
		{"no matches", "Calc.test_add", "*NonExistent*", false},
		{"qualified namespace with wildcard", "math.Calc.test_add", "math.*", true},
		{"qualified namespace mismatch", "geo.Square.test_area", "math.*", false},
		{"multiple wildcards", "UserController.test_login", "*User*test_*", true},
		{"multiple wildcards mismatch", "Payment.test_login", "*User*test_*", false},
		{"only wildcards", "Calc.test_add", "*", true},
		{"question mark needs a full match", "Calc.test_add", "Calc.test_ad?", true},
		{"question mark without full match", "math.Calc.test_add", "Calc.test_ad?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := filter.Match(tt.id, tt.pattern); got != tt.expected {
				t.Errorf("Match(%q, %q) = %v, expected %v", tt.id, tt.pattern, got, tt.expected)
			}
		})
	}
}
