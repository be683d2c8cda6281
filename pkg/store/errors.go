package store

import "errors"

var errNoSealer = errors.New("store: no crypted-string sealer installed")
