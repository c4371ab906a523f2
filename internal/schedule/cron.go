package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	lru "github.com/hashicorp/golang-lru/v2"
)

// validExprCache memoizes gronx validation results. Many jobs in a large
// installation share the same cron string (e.g. "0 * * * *"), and gronx
// re-parses the expression from scratch on every call — caching here avoids
// doing that work once per Job on every scheduler tick.
var validExprCache = mustNewCache(1024)

func mustNewCache(size int) *lru.Cache[string, bool] {
	c, err := lru.New[string, bool](size)
	if err != nil {
		// size is a compile-time constant > 0; New only fails for size <= 0.
		panic(err)
	}
	return c
}

// IsValidCron reports whether expr is a well-formed 5- or 6-field cron
// expression (spec.md §4.1). A 4- or 7-field expression is invalid.
func IsValidCron(expr string) bool {
	if expr == "" {
		return false
	}
	if !hasValidFieldCount(expr) {
		return false
	}
	if ok, hit := validExprCache.Get(expr); hit {
		return ok
	}
	ok := gronx.New().IsValid(expr)
	validExprCache.Add(expr, ok)
	return ok
}

// hasValidFieldCount rejects expressions gronx would otherwise silently
// accept or mangle with the wrong arity — spec.md requires exactly 5 or 6
// whitespace-separated fields.
func hasValidFieldCount(expr string) bool {
	n := len(strings.Fields(expr))
	return n == 5 || n == 6
}

// NextCronTick returns the first occurrence of expr strictly after from.
func NextCronTick(expr string, from time.Time) (time.Time, error) {
	if !IsValidCron(expr) {
		return time.Time{}, fmt.Errorf("invalid cron expression: %q", expr)
	}
	return gronx.NextTickAfter(expr, from, false)
}
