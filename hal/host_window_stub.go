//go:build !tinygo && !cgo

package hal

import (
	"context"
	"errors"
)

func RunWindow(_ *Sim, _ func(ctx context.Context, b Board) error) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1)")
}
