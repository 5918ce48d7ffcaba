package pos

// Sequence is a decoded state path with its log-probability.
type Sequence struct {
	Score    float64
	Outcomes []string
}
