package cli

import (
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Commands reconfigure the global logger on every run, so it is also pointed
// at a no-op writer for code paths that log before setupLogging.
func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	log.Logger = zerolog.Nop()
	os.Exit(m.Run())
}
