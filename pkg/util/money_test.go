package util

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{135, 135},
		{1.005, 1.01},
		{2.675, 2.68},
		{-1.234, -1.23},
		{0.1 + 0.2, 0.3},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(1500, 0.20); got != 300 {
		t.Fatalf("Percent(1500, 0.2) = %v", got)
	}
	if got := Percent(150, 0.90); got != 135 {
		t.Fatalf("Percent(150, 0.9) = %v", got)
	}
}

func TestClampNonNegative(t *testing.T) {
	if ClampNonNegative(-5) != 0 || ClampNonNegative(5) != 5 {
		t.Fatal("unexpected clamp")
	}
}
