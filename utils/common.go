package utils

import (
	"time"
)

// TimeTrack logs the time elapsed since start. Use with defer.
func TimeTrack(start time.Time, name string) {
	Logger().Infof("%s took %s", name, time.Since(start))
}
