package consumer

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/zeebo/blake3"
)

// deliveryCountHeader is set by quorum queues to the number of previous
// delivery attempts.
const deliveryCountHeader = "x-delivery-count"

// attemptTTL bounds how long a failing body is remembered without another
// delivery.
const attemptTTL = time.Hour

type fingerprint [32]byte

func fingerprintOf(body []byte) fingerprint {
	return blake3.Sum256(body)
}

// attemptTracker counts persistence attempts per message body across
// redeliveries.
type attemptTracker struct {
	cache *expirable.LRU[fingerprint, int]
}

func newAttemptTracker(size int) *attemptTracker {
	if size <= 0 {
		size = 1024
	}
	return &attemptTracker{cache: expirable.NewLRU[fingerprint, int](size, nil, attemptTTL)}
}

// record notes one more failed attempt and returns the total so far. A broker
// supplied delivery count wins when it is higher, which covers attempts made
// before a restart emptied the cache.
func (a *attemptTracker) record(fp fingerprint, headers map[string]any) int {
	n, _ := a.cache.Get(fp)
	n++
	if prior, ok := deliveryCount(headers); ok && prior+1 > n {
		n = prior + 1
	}
	a.cache.Add(fp, n)
	return n
}

func (a *attemptTracker) forget(fp fingerprint) {
	a.cache.Remove(fp)
}

func (a *attemptTracker) len() int {
	return a.cache.Len()
}

func deliveryCount(headers map[string]any) (int, bool) {
	if headers == nil {
		return 0, false
	}
	switch v := headers[deliveryCountHeader].(type) {
	case int:
		return v, true
	case int16:
		return int(v), true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case uint16:
		return int(v), true
	case uint32:
		return int(v), true
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n, true
		}
	}
	return 0, false
}
