// Package xid generates prefixed identifiers such as "sale_lq3k9d2a1f03c9be7d".
// The time part is base36 milliseconds, so identifiers with the same prefix
// sort roughly by creation time.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

var fallback atomic.Uint64

func New(prefix string) string {
	stamp := strconv.FormatInt(time.Now().UTC().UnixMilli(), 36)

	buf := make([]byte, 5)
	suffix := ""
	if _, err := rand.Read(buf); err == nil {
		suffix = hex.EncodeToString(buf)
	} else {
		suffix = strconv.FormatUint(fallback.Add(1), 36)
	}

	var b strings.Builder
	b.Grow(len(prefix) + 1 + len(stamp) + len(suffix))
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(stamp)
	b.WriteString(suffix)
	return b.String()
}
