/*package error contains simple functions for reporting fatal bhtree errors.
*/
package error

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog"
)

// exit is replaced in tests.
var exit = os.Exit

// External reports an error through log and kills the program. It should be
// used when an error is something a user could reasonably be expected to fix
// through changes in configuration/data/environment. It has the same
// signature as the standard fmt.*printf() functions after the logger.
func External(log zerolog.Logger, format string, a ...interface{}) {
	log.Error().Msgf("bhtree exited early with the following error:\n"+format, a...)
	exit(1)
}

// Internal reports an error through log along with a stack trace and kills
// the program. It should be used when the error requires a code dive to fix.
func Internal(log zerolog.Logger, format string, a ...interface{}) {
	log.Error().
		Str("stack", string(debug.Stack())).
		Msg("bhtree exited early with the following internal error:\n" +
			fmt.Sprintf(format, a...))
	exit(1)
}
