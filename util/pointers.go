package util

// Ptr returns a pointer to v, for optional flags such as a field's
// explicit "required".
func Ptr[T any](v T) *T {
	return &v
}
