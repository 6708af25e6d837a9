package caps

import "errors"

// ErrUnsupported marks a required capability the peer did not advertise.
var ErrUnsupported = errors.New("capability not supported by peer")
