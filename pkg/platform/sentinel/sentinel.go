// Package sentinel holds storage-level facts that stores return and services
// translate into coded domain errors.
package sentinel

import "errors"

// ErrNotFound means the store holds no record for the key. Callers check it
// with errors.Is since stores usually wrap it with the lookup key.
var ErrNotFound = errors.New("not found")
