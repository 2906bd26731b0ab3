package core

// Bucket maps an arbitrary key to a stable integer in [0, 2^31) using a
// 33-multiplier rolling hash. There is no per-process seed or salt: the
// same key produces the same bucket within and across process restarts,
// which is what makes traffic inclusion, variant selection and flag
// rollout decisions reproducible.
func Bucket(key string) uint32 {
	var h uint32 = 5381
	for i := 0; i < len(key); i++ {
		h = h*33 + uint32(key[i])
	}
	return h & 0x7FFFFFFF
}

// Fraction collapses Bucket into a uniform-ish draw in [0, 1) with
// percent granularity. A key whose fraction falls below a threshold
// keeps falling below any larger threshold, so percentage decisions are
// monotonic as rollouts ramp up.
func Fraction(key string) float64 {
	return float64(Bucket(key)%100) / 100.0
}
