package types

type Token struct {
	Span
	Tag string
}
