package storage

import "errors"

// ErrUnrecorded means the backend accepted the reservation but the local
// record could not be committed.
var ErrUnrecorded = errors.New("reservation created but not recorded")
