package errorutil

import (
	"fmt"

	"github.com/rs/zerolog"
)

// HandleError logs err with msg when it is not nil
func HandleError(log zerolog.Logger, err error, msg string) {
	if err != nil {
		log.Error().Err(err).Msg(msg)
	}
}

// WrapError wraps an error with additional context, keeping nil as nil
func WrapError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
