package utils

import (
	"os"

	log "github.com/inconshreveable/log15/v3"
)

// Log is the root logger. Packages derive their own with Log.New("pkg", name).
var Log = log.New("app", "slackconnect")

func init() {
	InitLogger("info")
}

// InitLogger sets the root handler to logfmt on stdout filtered at level.
func InitLogger(level string) {
	lvl, err := log.LvlFromString(level)
	if err != nil {
		lvl = log.LvlInfo
	}
	Log.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stdout, log.LogfmtFormat())))
	if err != nil {
		Log.Warn("Unknown LOG_LEVEL, defaulting to info", "level", level)
	}
}

// Discard silences the root logger; used by tests.
func Discard() {
	Log.SetHandler(log.DiscardHandler())
}
