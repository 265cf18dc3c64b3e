package httpclient

import (
	"net/url"
	"time"

	"github.com/kroma-labs/solarops/normalize"
)

// Heartbeat query parameters added to every request.
const (
	QueryDate      = "date"
	QueryTime      = "time"
	QueryTimestamp = "timestamp"
)

// applyHeartbeat stamps q with the current UTC date, time and timestamp.
// A date supplied by the caller is kept since it usually selects the data
// being asked for; time and timestamp always reflect the moment of sending.
func applyHeartbeat(q url.Values, now time.Time) {
	now = now.UTC()
	if q.Get(QueryDate) == "" {
		q.Set(QueryDate, normalize.Time(now))
	}
	q.Set(QueryTime, now.Format("15:04"))
	q.Set(QueryTimestamp, now.Format(time.RFC3339))
}
