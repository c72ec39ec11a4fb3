// Package id generates lexicographically-sortable, monotonic identifiers and
// the clock that backs them.
package id

import (
	"encoding/base32"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// crockford is the Crockford base32 alphabet: no I, L, O, U, to avoid
// visual ambiguity in short ids printed to a terminal.
const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var encoding = base32.NewEncoding(crockford).WithPadding(base32.NoPadding)

// ShortLen is the number of leading characters used for display and prefix
// lookup (§4.B find_by_prefix).
const ShortLen = 8

// Clock produces strictly increasing millisecond timestamps within a
// process. If wall time regresses (NTP step, clock skew correction) it
// advances the last-issued value by one millisecond instead of going
// backwards, so IDs minted from the same process stay sortable.
type Clock struct {
	mu   sync.Mutex
	last int64
}

// NewClock returns a ready-to-use monotonic clock.
func NewClock() *Clock {
	return &Clock{}
}

// NowMilli returns the next monotonic millisecond timestamp.
func (c *Clock) NowMilli() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}

var defaultClock = NewClock()

// New generates a new prefixed identifier, e.g. "task_01HQZK8Y3N2VJ8F5...".
// The id encodes a 48-bit monotonic millisecond timestamp followed by 80
// bits of random entropy, Crockford-base32-encoded, giving a fixed-length
// ASCII string where lexicographic order matches creation order within a
// process and collision probability across processes is negligible.
func New(prefix string) string {
	return newWithClock(prefix, defaultClock)
}

func newWithClock(prefix string, clock *Clock) string {
	ts := clock.NowMilli()

	var buf [16]byte
	buf[0] = byte(ts >> 40)
	buf[1] = byte(ts >> 32)
	buf[2] = byte(ts >> 24)
	buf[3] = byte(ts >> 16)
	buf[4] = byte(ts >> 8)
	buf[5] = byte(ts)

	entropy, err := uuid.NewRandom()
	if err != nil {
		panic(fmt.Sprintf("id: reading entropy: %v", err))
	}
	copy(buf[6:], entropy[:10])

	encoded := encoding.EncodeToString(buf[:])
	if prefix == "" {
		return encoded
	}
	return prefix + "_" + encoded
}

// Short returns the leading ShortLen characters of an id's encoded body,
// skipping any "prefix_" portion. Used for human display and prefix lookup.
func Short(full string) string {
	body := full
	if i := strings.LastIndexByte(full, '_'); i >= 0 {
		body = full[i+1:]
	}
	if len(body) <= ShortLen {
		return body
	}
	return body[:ShortLen]
}

// NowUTC returns a strictly increasing ISO-8601 UTC timestamp string, using
// the package's default clock so that successive calls within a process
// never compare equal or go backwards.
func NowUTC() string {
	return time.UnixMilli(defaultClock.NowMilli()).UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
