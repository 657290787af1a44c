package workers

import (
	"runtime"
	"testing"
)

func TestCount(t *testing.T) {
	t.Setenv(envOverride, "")

	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		maxExpect  int
	}{
		{"CPU-bound (1.0x)", 1.0, 0, availableCPU},
		{"I/O-bound (2.0x)", 2.0, 0, availableCPU * 2},
		{"Limit below calculated", 2.0, 2, 2},
		{"Very low multiplier", 0.1, 0, maxInt(1, int(float64(availableCPU)*0.1))},
		{"Zero multiplier", 0.0, 0, 1},
		{"Negative multiplier", -1.0, 0, 1},
		{"Very high limit", 1.0, 1000, availableCPU},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.multiplier, tt.limit)

			if got < 1 {
				t.Errorf("Count(%v, %d) = %d, should never return less than 1", tt.multiplier, tt.limit, got)
			}
			if got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, expected <= %d", tt.multiplier, tt.limit, got, tt.maxExpect)
			}
			if tt.limit > 0 && got > tt.limit {
				t.Errorf("Count(%v, %d) = %d, should not exceed limit", tt.multiplier, tt.limit, got)
			}
		})
	}
}

func TestCountWithEnvOverride(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		limit    int
		expected int // -1 means fall back to the default calculation
	}{
		{"Valid override", "8", 0, 8},
		{"Override capped by limit", "20", 10, 10},
		{"Override below limit", "5", 10, 5},
		{"Non-numeric override ignored", "invalid", 0, -1},
		{"Zero override ignored", "0", 0, -1},
		{"Negative override ignored", "-5", 0, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(envOverride, tt.envValue)

			got := Count(1.0, tt.limit)

			if tt.expected == -1 {
				if got < 1 {
					t.Errorf("Count with invalid override should return at least 1, got %d", got)
				}
				return
			}
			if got != tt.expected {
				t.Errorf("Count(1.0, %d) with %s=%s = %d, want %d", tt.limit, envOverride, tt.envValue, got, tt.expected)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	t.Setenv(envOverride, "")

	if got := ForCPU(0); got < 1 || got > runtime.GOMAXPROCS(0) {
		t.Errorf("ForCPU(0) = %d, want between 1 and %d", got, runtime.GOMAXPROCS(0))
	}
	if got := ForCPU(1); got != 1 {
		t.Errorf("ForCPU(1) = %d, want 1", got)
	}
}

func TestForIO(t *testing.T) {
	t.Setenv(envOverride, "")

	if got := ForIO(0); got < 1 {
		t.Errorf("ForIO(0) = %d, want >= 1", got)
	}
	if got := ForIO(8); got > 8 {
		t.Errorf("ForIO(8) = %d, should not exceed limit", got)
	}
}

func TestWorkerCountConsistency(t *testing.T) {
	t.Setenv(envOverride, "")

	first := Count(2.0, 10)
	for i := 0; i < 5; i++ {
		if got := Count(2.0, 10); got != first {
			t.Errorf("Count(2.0, 10) returned different results: first=%d, iteration %d=%d", first, i, got)
		}
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
