package mysql

import (
	"errors"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"
)

// likeContains wraps s for a LIKE substring match, escaping the wildcards
// of the input. Empty input yields "".
func likeContains(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// retryable reports whether an allocation attempt lost a race: a duplicate
// scope key (1062) or a deadlock between two FOR UPDATE readers (1213).
func retryable(err error) bool {
	var me *gomysql.MySQLError
	if !errors.As(err, &me) {
		return false
	}
	return me.Number == 1062 || me.Number == 1213
}

type scanner interface {
	Scan(dest ...any) error
}
