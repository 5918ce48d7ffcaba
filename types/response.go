package types

type BaseResponse struct {
	DocId string `json:"docId"`
}

type TaggedToken struct {
	Text string  `json:"text"`
	Tag  string  `json:"tag,omitempty"`
	Span []int32 `json:"span"`
}

type TaggedSentence struct {
	Id       int           `json:"id"`
	Sentence []int32       `json:"sentence"`
	Tokens   []TaggedToken `json:"tokens"`
	Error    string        `json:"error,omitempty"`
}

type TaggingResponse struct {
	BaseResponse
	Decoder   string           `json:"decoder"`
	Sentences []TaggedSentence `json:"sentences"`
}
