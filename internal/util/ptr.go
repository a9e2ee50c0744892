// Package util holds small generic helpers shared by medkit packages.
package util

// Ptr returns a pointer to the given value, for optional settings such as
// provenance depth limits.
func Ptr[T any](v T) *T {
	return &v
}
