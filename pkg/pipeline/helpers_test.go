package pipeline

import (
	"io"

	"github.com/charmbracelet/log"
)

func nopLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}
