package workers

import (
	"runtime"
	"testing"
)

const testEnv = "TEST_WORKERS_OVERRIDE"

func TestCount(t *testing.T) {
	t.Setenv(testEnv, "")
	availableCPU := runtime.GOMAXPROCS(0)

	tests := []struct {
		name       string
		multiplier float64
		limit      int
		minExpect  int
		maxExpect  int
	}{
		{"CPU-bound", 1.0, 0, 1, availableCPU},
		{"I/O-bound", 2.0, 0, 1, availableCPU * 2},
		{"limit lower than calculated", 2.0, 2, 1, 2},
		{"very low multiplier", 0.1, 0, 1, max(1, int(float64(availableCPU)*0.1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(testEnv, tt.multiplier, tt.limit)
			if got < tt.minExpect || got > tt.maxExpect {
				t.Errorf("Count(%v, %d) = %d, want in [%d, %d]",
					tt.multiplier, tt.limit, got, tt.minExpect, tt.maxExpect)
			}
		})
	}
}

func TestCountOverride(t *testing.T) {
	tests := []struct {
		name  string
		value string
		limit int
		want  int
	}{
		{"override", "3", 0, 3},
		{"override capped by limit", "16", 4, 4},
		{"override below limit", "2", 4, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(testEnv, tt.value)
			if got := Count(testEnv, 1.0, tt.limit); got != tt.want {
				t.Errorf("Count() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCountInvalidOverrideIgnored(t *testing.T) {
	for _, v := range []string{"zero", "0", "-2"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv(testEnv, v)
			want := Count("", 1.0, 0)
			if got := Count(testEnv, 1.0, 0); got != want {
				t.Errorf("Count(%s=%q) = %d, want computed %d", testEnv, v, got, want)
			}
		})
	}
}

func TestForCPU(t *testing.T) {
	t.Setenv(testEnv, "")
	got := ForCPU(testEnv, 4)
	if got < 1 || got > 4 {
		t.Errorf("ForCPU(4) = %d, want in [1, 4]", got)
	}
}
