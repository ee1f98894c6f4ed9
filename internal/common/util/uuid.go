package util

import (
	"math/rand"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	entropy     = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	entropyLock sync.Mutex
)

// NewULID returns a lower case ULID. Successive calls are strictly increasing.
func NewULID() string {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// DefaultWorkerID names a worker after its host so results can be traced back to a machine.
func DefaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + "-" + NewULID()
}
