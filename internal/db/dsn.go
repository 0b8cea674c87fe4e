package db

import (
	"net/url"
	"regexp"
	"strings"
)

// kvKey matches the start of any lib/pq keyword DSN pair we care about.
var kvKey = regexp.MustCompile(`(?i)\b(host|port|user|password|dbname|sslmode)=`)

var kvPassword = regexp.MustCompile(`(?i)(password=)(\S+)`)

func isURLDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	return strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://")
}

// parseKV splits a keyword DSN into lower-cased keys and raw values.
func parseKV(dsn string) map[string]string {
	pairs := map[string]string{}
	for _, field := range strings.Fields(dsn) {
		if k, v, ok := strings.Cut(field, "="); ok {
			pairs[strings.ToLower(k)] = v
		}
	}
	return pairs
}

// NormalizeDSN cleans a DATABASE_URL copied from a dashboard or .env file:
// surrounding quotes and extra whitespace go, and a keyword DSN without
// sslmode gets sslmode=disable. URL DSNs and unknown strings pass through.
func NormalizeDSN(raw string) string {
	dsn := strings.Trim(strings.TrimSpace(raw), `"'`)
	if dsn == "" || isURLDSN(dsn) || !kvKey.MatchString(dsn) {
		return dsn
	}
	dsn = strings.Join(strings.Fields(dsn), " ")
	if _, ok := parseKV(dsn)["sslmode"]; !ok {
		dsn += " sslmode=disable"
	}
	return dsn
}

// ToURLDSN converts a keyword DSN to the URL form golang-migrate expects.
// Input lacking host, user or dbname is returned unchanged.
func ToURLDSN(dsn string) string {
	if dsn == "" || isURLDSN(dsn) {
		return dsn
	}
	kv := parseKV(dsn)
	if kv["host"] == "" || kv["user"] == "" || kv["dbname"] == "" {
		return dsn
	}

	u := url.URL{Scheme: "postgres", Host: kv["host"], Path: "/" + kv["dbname"], User: url.User(kv["user"])}
	if p := kv["port"]; p != "" {
		u.Host += ":" + p
	}
	if pw := kv["password"]; pw != "" {
		u.User = url.UserPassword(kv["user"], pw)
	}
	if mode, ok := kv["sslmode"]; ok {
		u.RawQuery = "sslmode=" + url.QueryEscape(mode)
	}
	return u.String()
}

// MaskDSN hides the password of either DSN form for logging.
func MaskDSN(dsn string) string {
	if !isURLDSN(dsn) {
		return kvPassword.ReplaceAllString(dsn, "${1}***")
	}
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	if _, ok := u.User.Password(); !ok {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	// url.String escapes the asterisks.
	return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
}
