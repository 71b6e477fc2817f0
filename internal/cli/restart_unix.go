//go:build unix

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

// restartProcess replaces the running process with a fresh copy of itself
// that loads tomorrow's schedule. It only returns on failure.
func restartProcess() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("cannot locate executable: %w", err)
	}
	env := append(os.Environ(), loadTomorrowEnv+"=1")
	if err := syscall.Exec(exe, os.Args, env); err != nil {
		return fmt.Errorf("exec %s: %w", exe, err)
	}
	return nil
}

// controller is what operator signals drive.
type controller interface {
	RequestReload()
	RequestHijriCheck()
}

// watchSignals maps SIGHUP to a reload and SIGUSR1 to a Hijri date check
// until ctx is cancelled.
func watchSignals(ctx context.Context, c controller) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			log.Info().Str("signal", sig.String()).Msg("operator signal")
			switch sig {
			case syscall.SIGHUP:
				c.RequestReload()
			case syscall.SIGUSR1:
				c.RequestHijriCheck()
			}
		}
	}
}
