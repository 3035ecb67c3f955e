package uploads

import "fmt"

var (
	// ErrNotFound is returned when a file for the given session / name pair
	// does not exist in the underlying store.
	ErrNotFound = fmt.Errorf("upload not found")
)
