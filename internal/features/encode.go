package features

// OrdinalEncoder assigns a stable integer code to each distinct category
// value. Codes follow first-seen order: the first distinct value observed
// during fitting gets 0, the next 1, and so on. The encoder never mutates
// the values it encodes.
type OrdinalEncoder struct {
	codes   map[string]int
	classes []string
}

// NewOrdinalEncoder creates an empty encoder.
func NewOrdinalEncoder() *OrdinalEncoder {
	return &OrdinalEncoder{codes: make(map[string]int)}
}

// Fit learns codes for any values not seen before. Calling Fit repeatedly
// extends the mapping without renumbering existing codes.
func (e *OrdinalEncoder) Fit(values []string) {
	for _, v := range values {
		if _, ok := e.codes[v]; !ok {
			e.codes[v] = len(e.classes)
			e.classes = append(e.classes, v)
		}
	}
}

// Transform maps values to their fitted codes. Values never seen during
// fitting map to -1 so that a transform-after-fit deployment surfaces them
// instead of silently inventing codes.
func (e *OrdinalEncoder) Transform(values []string) []int {
	out := make([]int, len(values))
	for i, v := range values {
		code, ok := e.codes[v]
		if !ok {
			code = -1
		}
		out[i] = code
	}
	return out
}

// FitTransform fits on values and returns their codes in one call.
func (e *OrdinalEncoder) FitTransform(values []string) []int {
	e.Fit(values)
	return e.Transform(values)
}

// Classes returns the distinct fitted values in code order.
func (e *OrdinalEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
