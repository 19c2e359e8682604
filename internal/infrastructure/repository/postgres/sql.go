package postgres

import (
	"database/sql"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/trendybets/propcore/internal/domain/gamelog"
)

func isNotFound(err error) bool {
	return err == sql.ErrNoRows
}

// Transaction-pooling proxies (pgbouncer in transaction mode) occasionally
// lose the unnamed prepared statement between Prepare and Execute. Both
// shapes surface as protocol errors; callers retry with literal parameters.
func isBindParameterMismatch(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "bind message supplies") && strings.Contains(msg, "(08P01)")
}

func isUnnamedPreparedStatementMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if strings.Contains(msg, "unnamed prepared statement does not exist") {
		return true
	}
	return strings.Contains(msg, "prepared statement") && strings.Contains(msg, "(26000)")
}

func stringSliceToAny(items []string) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}
	return out
}

func encodeStatValues(values map[gamelog.StatType]float64) string {
	if len(values) == 0 {
		return "{}"
	}
	encoded, err := sonic.Marshal(values)
	if err != nil {
		return "{}"
	}
	return string(encoded)
}

func decodeStatValues(raw string) map[gamelog.StatType]float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[gamelog.StatType]float64{}
	}
	out := make(map[gamelog.StatType]float64)
	if err := sonic.Unmarshal([]byte(raw), &out); err != nil {
		return map[gamelog.StatType]float64{}
	}
	return out
}
