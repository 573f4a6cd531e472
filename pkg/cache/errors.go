package cache

import "errors"

// ErrUnknownDriver indicates the configured driver has no backend.
var ErrUnknownDriver = errors.New("unknown cache driver")
