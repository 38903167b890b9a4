package tp

type (
	Type interface {
		Size() int
	}

	// Void is the type of functions returning nothing and of
	// instructions that produce no value.
	Void struct{}

	Int struct{}

	// Bool is the i1-like result of a comparison. It is not an Int:
	// feeding it into arithmetic requires an explicit widening move.
	Bool struct{}

	Ptr struct {
		X Type
	}

	// Array with Len == 0 is a decayed pointer: the outer dimension of
	// an array-typed formal parameter.
	Array struct {
		X   Type
		Len int
	}
)

func (Void) Size() int { return 0 }
func (Int) Size() int  { return 4 }
func (Bool) Size() int { return 4 }
func (Ptr) Size() int  { return 4 }

func (x Array) Size() int {
	if x.Len == 0 {
		return 4 // passed as a pointer
	}

	return x.X.Size() * x.Len
}

func IsVoid(t Type) bool {
	_, ok := t.(Void)
	return ok
}

func IsArray(t Type) bool {
	_, ok := t.(Array)
	return ok
}

// Dims flattens a possibly nested array type into its dimension list
// and element type.
func Dims(t Type) (dims []int, elem Type) {
	for {
		a, ok := t.(Array)
		if !ok {
			return dims, t
		}

		dims = append(dims, a.Len)
		t = a.X
	}
}
