package looper

import (
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// log is the package default logger: a logiface.Logger backed by a
// zerolog.Logger writing to stderr, built at package init rather than
// passed as a type parameter through every exported type.
var log = logiface.New[*izerolog.Event](
	izerolog.L.WithZerolog(zerolog.New(os.Stderr).With().Timestamp().Logger()),
)

// SetLogger replaces the package logger, e.g. to redirect output in a
// host process that embeds this module.
func SetLogger(l *logiface.Logger[*izerolog.Event]) {
	if l != nil {
		log = l
	}
}
