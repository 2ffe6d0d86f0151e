package histogram

import "github.com/janusql/planner/value"

// stringScalarBytes is the number of bytes mapped into the fractional
// scalar, per spec §4.3: "map each of the next 12 bytes into a base-N
// fractional (N=256)... truncation to 12 bytes prevents denominator
// overflow." This mirrors PostgreSQL's convert_string_to_scalar.
const stringScalarBytes = 12

// stringFractionalOverlap implements the PostgreSQL
// convert-one-string-to-scalar algorithm for partial bucket overlap on
// string ranges: strip the common prefix between the bucket's lower and
// upper bound, then map each of the next stringScalarBytes bytes of
// lo, hi, effLo, effHi into a base-256 fractional scalar in [0,1], and
// interpolate linearly in that scalar space.
func stringFractionalOverlap(lo, hi, effLo, effHi value.Value) float64 {
	loS, _ := lo.AsString()
	hiS, _ := hi.AsString()
	effLoS, _ := effLo.AsString()
	effHiS, _ := effHi.AsString()

	prefixLen := commonPrefixLen(loS, hiS)

	loScalar := stringToScalar(loS, prefixLen)
	hiScalar := stringToScalar(hiS, prefixLen)
	effLoScalar := stringToScalar(effLoS, prefixLen)
	effHiScalar := stringToScalar(effHiS, prefixLen)

	span := hiScalar - loScalar
	if span <= 0 {
		return 1.0
	}
	return clamp01((effHiScalar - effLoScalar) / span)
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// stringToScalar maps s's bytes, starting after skip bytes of common
// prefix, into a base-256 fractional value in [0,1], truncated to
// stringScalarBytes bytes.
func stringToScalar(s string, skip int) float64 {
	if skip < len(s) {
		s = s[skip:]
	} else {
		s = ""
	}
	if len(s) > stringScalarBytes {
		s = s[:stringScalarBytes]
	}

	var scalar float64
	denom := 1.0
	for i := 0; i < len(s); i++ {
		denom *= 256
		scalar += float64(s[i]) / denom
	}
	return scalar
}
