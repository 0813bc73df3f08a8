package shape

// Positional records. Their members are named Item1..ItemN, so they
// serialize like any other struct, e.g. `{Item1:a,Item2:1}`.

type Tuple2[A, B any] struct {
	Item1 A
	Item2 B
}

type Tuple3[A, B, C any] struct {
	Item1 A
	Item2 B
	Item3 C
}

type Tuple4[A, B, C, D any] struct {
	Item1 A
	Item2 B
	Item3 C
	Item4 D
}

func NewTuple2[A, B any](a A, b B) Tuple2[A, B] {
	return Tuple2[A, B]{Item1: a, Item2: b}
}

func NewTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{Item1: a, Item2: b, Item3: c}
}

func NewTuple4[A, B, C, D any](a A, b B, c C, d D) Tuple4[A, B, C, D] {
	return Tuple4[A, B, C, D]{Item1: a, Item2: b, Item3: c, Item4: d}
}
