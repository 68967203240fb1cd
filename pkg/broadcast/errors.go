package broadcast

import "errors"

// ErrClosed is returned by operations on a closed Broadcaster or Registry.
var ErrClosed = errors.New("broadcast: closed")
