package id

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generate returns a prefixed, lexicographically sortable id, e.g.
// txn_01J8ZK..., wlt_01J8ZK..., evt_01J8ZK...
func Generate(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return prefix + "_" + id.String()
}

// Receipt returns a short uppercase receipt reference for gateway orders.
func Receipt(prefix string) string {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0))
	return strings.ToUpper(prefix) + "-" + id.String()[16:]
}
