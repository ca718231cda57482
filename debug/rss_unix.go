//go:build unix && !linux

package debug

import "errors"

// processRSS has no portable source for the current resident size outside
// Linux; getrusage only reports the peak.
func processRSS() (uint64, error) {
	return 0, errors.New("current rss not available on this platform")
}
