// Package initialized provides a witness detecting structs built without
// their constructor.
package initialized

// A witness type used to detect structs that are not initialized.
//
// In Go, `new(T)` and `T{}` bypass any constructor, producing a value that
// has type `T` without the guarantees attached to `T`.
//
// Operation manual:
//   - add a field `witness IsInitialized` to your struct;
//   - call `initialized.Make()` from your constructor;
//   - call `self.witness.Assert()` whenever you access data from your struct.
//
// Result: accessing a struct created with missing fields panics instead of
// silently working on zero values.
type IsInitialized struct {
	isInitialized bool
}

// Create an `IsInitialized`.
func Make() IsInitialized {
	return IsInitialized{
		isInitialized: true,
	}
}

// Panic unless this witness was created by `Make()`.
func (witness IsInitialized) Assert() {
	if !witness.isInitialized {
		panic("struct was not initialized")
	}
}

// Report whether this witness was created by `Make()`.
func (witness IsInitialized) Ok() bool {
	return witness.isInitialized
}
