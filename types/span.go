package types

// Span holds rune offsets into the request text, End exclusive.
type Span struct {
	Begin int32
	End   int32
	Text  string
}

func (span Span) Offsets() []int32 {
	return []int32{span.Begin, span.End}
}
