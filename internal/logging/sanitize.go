package logging

import "strings"

// maxDSNLogLength bounds how much of a connection string reaches a log line.
const maxDSNLogLength = 500

// SanitizeDSN masks credentials in a connection string before it reaches a
// log line. Both the mysql userinfo form and key=value forms are handled.
func SanitizeDSN(dsn string) string {
	// user:password@tcp(host)/db
	if at := strings.Index(dsn, "@"); at != -1 {
		if colon := strings.Index(dsn[:at], ":"); colon != -1 {
			dsn = dsn[:colon+1] + "***" + dsn[at:]
		}
	}

	for _, key := range []string{"password=", "PASSWORD="} {
		if !strings.Contains(dsn, key) {
			continue
		}
		parts := strings.SplitN(dsn, key, 2)
		rest := parts[1]
		end := strings.IndexAny(rest, " &;")
		if end == -1 {
			end = len(rest)
		}
		dsn = parts[0] + key + "***" + rest[end:]
	}

	if len(dsn) > maxDSNLogLength {
		return dsn[:maxDSNLogLength] + "... [truncated]"
	}

	return dsn
}
