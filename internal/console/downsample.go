package console

// Downsample keeps every stride-th element, stride = max(1, len/target)
// rounded down. Order is preserved and the first element is always kept.
// Inputs at or below target come back unchanged. The result can exceed target
// by less than a factor of two.
func Downsample[T any](samples []T, target int) []T {
	if target <= 0 || len(samples) <= target {
		return samples
	}
	stride := len(samples) / target
	if stride < 1 {
		stride = 1
	}
	out := make([]T, 0, (len(samples)+stride-1)/stride)
	for i := 0; i < len(samples); i += stride {
		out = append(out, samples[i])
	}
	return out
}
