package repository

import (
	"strconv"
	"strings"

	"github.com/rocketscienceinc/arena-backend/internal/repository/storage"
)

// rebind rewrites ? placeholders into $n for postgres.
func rebind(driver, query string) string {
	if driver != storage.DriverPostgres {
		return query
	}

	var builder strings.Builder
	builder.Grow(len(query) + 8)

	n := 0
	for _, char := range query {
		if char != '?' {
			builder.WriteRune(char)
			continue
		}

		n++
		builder.WriteByte('$')
		builder.WriteString(strconv.Itoa(n))
	}

	return builder.String()
}
