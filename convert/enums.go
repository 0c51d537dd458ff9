package convert

// Classification of a conversion input.
// ENUM(none, stylesheet, vector, archive)
type InputKind int

func (k InputKind) Convertible() bool {
	return k == InputKindStylesheet || k == InputKindVector
}
