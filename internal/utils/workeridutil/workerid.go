package workeridutil

import (
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	resolved string
	once     sync.Once
)

// GetWorkerID returns the id reported to the server when none is configured:
// the host name, or a random UUID when the host name is unavailable. It is
// resolved once per process.
func GetWorkerID() string {
	once.Do(func() {
		resolved = Resolve(os.Hostname)
	})
	return resolved
}

// Resolve derives a worker id from the given host name lookup
func Resolve(hostname func() (string, error)) string {
	if name, err := hostname(); err == nil && name != "" {
		return name
	}
	return uuid.New().String()
}
