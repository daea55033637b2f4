package surface

import "github.com/pkg/errors"

// ErrAlreadyListening is returned by Listen when the surface already
// delivers events to a listener.
var ErrAlreadyListening = errors.New("already has a listener")

func errAlreadyListening(name string) error {
	return errors.Wrapf(ErrAlreadyListening, "surface %s", name)
}
