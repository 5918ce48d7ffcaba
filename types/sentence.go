package types

type Sentence struct {
	Span
	Index  int
	Tokens []*Token
	// Err is set when the sentence could not be tagged. Tokens then carry no tags.
	Err error
}

func (sent *Sentence) Words() []string {
	words := make([]string, len(sent.Tokens))
	for i, token := range sent.Tokens {
		words[i] = token.Text
	}
	return words
}

// Clone copies the tokens so that concurrent taggers never share them.
func (sent Sentence) Clone() Sentence {
	tokens := make([]*Token, len(sent.Tokens))
	for i, token := range sent.Tokens {
		t := *token
		tokens[i] = &t
	}
	sent.Tokens = tokens
	return sent
}
