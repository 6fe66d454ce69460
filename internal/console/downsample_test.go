package console

import "testing"

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestDownsampleFloorStrideCounts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n, target, want int
	}{
		{250, 100, 125},
		{150, 100, 150},
		{50, 100, 50},
		{100, 100, 100},
		{101, 100, 101},
		{200, 100, 100},
		{1000, 100, 100},
		{5000, 100, 100},
		{7, 3, 4},
		{0, 100, 0},
	}
	for _, tt := range tests {
		got := Downsample(seq(tt.n), tt.target)
		if len(got) != tt.want {
			t.Fatalf("Downsample(%d, %d) kept %d, want %d", tt.n, tt.target, len(got), tt.want)
		}
		if len(got) > 0 && got[0] != 0 {
			t.Fatalf("Downsample(%d, %d) dropped the first element", tt.n, tt.target)
		}
		for i := 1; i < len(got); i++ {
			if got[i] <= got[i-1] {
				t.Fatalf("Downsample(%d, %d) reordered elements: %v", tt.n, tt.target, got)
			}
		}
	}
}

func TestDownsampleKeepsEveryStrideElement(t *testing.T) {
	t.Parallel()

	got := Downsample(seq(250), 100)
	for i, v := range got {
		if v != i*2 {
			t.Fatalf("element %d = %d, want %d", i, v, i*2)
		}
	}
	if len(got) != 125 {
		t.Fatalf("expected 125 elements at stride 2, got %d", len(got))
	}
}

func TestDownsampleIsIdempotentForFixedInput(t *testing.T) {
	t.Parallel()

	in := seq(730)
	first := Downsample(in, 100)
	second := Downsample(in, 100)
	if len(first) != len(second) {
		t.Fatalf("expected identical output, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("outputs differ at %d", i)
		}
	}
}

func TestDownsampleNonPositiveTargetIsIdentity(t *testing.T) {
	t.Parallel()

	in := seq(10)
	if got := Downsample(in, 0); len(got) != 10 {
		t.Fatalf("expected input unchanged, got %d elements", len(got))
	}
}
