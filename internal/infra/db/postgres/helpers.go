package postgres

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// likeContains wraps s for an ILIKE substring match with wildcards escaped.
func likeContains(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// retryable: unique_violation (23505) or deadlock_detected (40P01).
func retryable(err error) bool {
	var pe *pq.Error
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Code == "23505" || pe.Code == "40P01"
}

type scanner interface {
	Scan(dest ...any) error
}
