//go:build !unix

package cli

import (
	"context"
	"errors"
)

// restartProcess is unavailable here; the board reloads in-process instead.
func restartProcess() error {
	return errors.New("process restart is not supported on this platform")
}

type controller interface {
	RequestReload()
	RequestHijriCheck()
}

func watchSignals(ctx context.Context, _ controller) {
	<-ctx.Done()
}
