// Package guard switches a test binary into test mode when imported.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("FLEETBOOK_TEST_MODE") == "" {
			_ = os.Setenv("FLEETBOOK_TEST_MODE", "1")
		}
	})
}
