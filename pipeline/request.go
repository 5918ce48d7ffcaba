package pipeline

type Request struct {
	Text string `json:"text"`
	Tid  string `json:"tid"`
}

// Pipeline tags the request text and yields a single JSON document
// keyed by model name.
type Pipeline func(request Request) <-chan string
