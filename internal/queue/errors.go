package queue

import "errors"

// ErrEmpty names the "nothing due" case as distinct from a transport error.
// Nothing in this module returns it: Consume returns an empty slice when no
// entry is due.
var ErrEmpty = errors.New("queue: no due entries")
