package learningassistant

import "log"

var verboseMode bool

// SetVerbose turns debug logging on or off for the whole process.
func SetVerbose(verbose bool) {
	verboseMode = verbose
	if verbose {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}
}

// Verbose reports whether debug logging is enabled.
func Verbose() bool {
	return verboseMode
}

// VerboseLog logs only when verbose mode is enabled
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf(format, v...)
	}
}
