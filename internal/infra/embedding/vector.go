package embedding

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"jobsieve/internal/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different lengths are not comparable and yield
// domain.ErrDimensionMismatch; a zero-magnitude vector yields 0, not NaN.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", domain.ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	// Guard against float drift pushing unit vectors past the bounds.
	if sim > 1 {
		sim = 1
	} else if sim < -1 {
		sim = -1
	}
	return sim, nil
}

// Encode serializes a vector to the opaque text form stored in the database.
func Encode(v []float32) string {
	if len(v) == 0 {
		return ""
	}
	var sb strings.Builder
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	return sb.String()
}

// Decode parses the stored text form back into a vector.
func Decode(s string) ([]float32, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	v := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("decode vector at %d: %w", i, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}
