package extraction

// strategy is one fallible extraction attempt: it yields a candidate value or
// reports that it found nothing.
type strategy[T any] func() (T, bool)

// firstSome evaluates strategies in order and returns the first candidate,
// short-circuiting on success. Chains read most-structured first, text
// heuristics last.
func firstSome[T any](strategies ...strategy[T]) (T, bool) {
	for _, s := range strategies {
		if v, ok := s(); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
