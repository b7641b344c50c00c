package snapshot

import "time"

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// orNow substitutes the current time for timestamps absent from a snapshot,
// so documents produced by older app versions still import cleanly.
func orNow(ts string) string {
	if ts == "" {
		return nowRFC3339()
	}
	return ts
}

// orDefault substitutes a column default for values absent from a snapshot.
func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
