//go:build tinygo || !cgo

package marchaux

import (
	"errors"

	"github.com/soypat/marcher"
)

func ui(scene *marcher.Scene, cfg UIConfig) error {
	return errors.New("require cgo for UI rendering")
}
