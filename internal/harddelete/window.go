// Package harddelete decides whether permanent deletion of a record is
// still allowed. Records may only be hard-deleted within a bounded window
// after creation; past that, archiving (toggle) is the only removal left.
package harddelete

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/patidost/pati_admin_v1/internal/api"
	"github.com/patidost/pati_admin_v1/internal/httpclient"
)

// DefaultWindowSeconds is the client-side fallback when the system
// parameter cannot be fetched. Deliberately conservative: a short window
// only ever disallows deletes, never allows extra ones.
const DefaultWindowSeconds = 300

// WindowParameterCode is the system parameter carrying the server's window.
const WindowParameterCode = "HARD_DELETE_WINDOW_SECONDS"

// IsAllowed reports whether a record created at createdAt may still be
// hard-deleted. The boundary is inclusive: at exactly windowSeconds of age
// the delete is still allowed. Missing or unparsable timestamps always
// disallow.
func IsAllowed(createdAt any, windowSeconds int) bool {
	created, ok := parseCreatedAt(createdAt)
	if !ok {
		return false
	}
	elapsed := time.Since(created).Seconds()
	return elapsed <= float64(windowSeconds)
}

// RemainingSeconds returns how many whole seconds of the window are left,
// never negative.
func RemainingSeconds(createdAt any, windowSeconds int) int {
	created, ok := parseCreatedAt(createdAt)
	if !ok {
		return 0
	}
	remaining := float64(windowSeconds) - time.Since(created).Seconds()
	if remaining <= 0 {
		return 0
	}
	return int(math.Floor(remaining))
}

// FormatRemaining renders a countdown as "3dk 20sn" style text ("dk" =
// minutes, "sn" = seconds).
func FormatRemaining(seconds int) string {
	if seconds <= 0 {
		return "0sn"
	}
	minutes := seconds / 60
	rest := seconds % 60
	if minutes > 0 {
		return fmt.Sprintf("%ddk %dsn", minutes, rest)
	}
	return fmt.Sprintf("%dsn", rest)
}

// FetchWindowSeconds reads the window from the backend's system parameters.
// Any failure, including a missing parameter, falls back to
// DefaultWindowSeconds; this path must never be fatal.
func FetchWindowSeconds(ctx context.Context, client *httpclient.Client) int {
	var params []api.Record
	if err := client.DoJSON(ctx, http.MethodGet, "system-parameters", nil, nil, &params); err != nil {
		return DefaultWindowSeconds
	}
	for _, p := range params {
		if p.GetString("code") != WindowParameterCode {
			continue
		}
		switch v := p["parameterValue"].(type) {
		case string:
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				return n
			}
		case float64:
			if v > 0 {
				return int(v)
			}
		}
	}
	return DefaultWindowSeconds
}

func parseCreatedAt(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, !v.IsZero()
	case string:
		if v == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}
