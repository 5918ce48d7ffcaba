package corpus

import "text2phenotype.com/postagger/types"

// Split returns the first int(ratio*len(data)) sequences as the training set
// and the rest as the test set. Order is preserved.
func Split(data []types.LabeledSequence, ratio float64) ([]types.LabeledSequence, []types.LabeledSequence) {
	size := int(ratio * float64(len(data)))
	if size < 0 {
		size = 0
	}
	if size > len(data) {
		size = len(data)
	}
	return data[:size], data[size:]
}
