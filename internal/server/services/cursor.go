package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/blockvault/blockvault/internal/common"
	"github.com/google/uuid"
)

// List cursors are opaque to clients: "<unix-micro>~<uuid>" of the last row
// on the previous page. Keyset pagination over (created_at, id) keeps pages
// stable under concurrent inserts. Microseconds match timestamptz precision
// exactly; anything coarser would make the keyset predicate skip rows that
// share the boundary row's truncated timestamp.

func encodeCursor(createdAt time.Time, id string) string {
	return fmt.Sprintf("%d~%s", createdAt.UnixMicro(), id)
}

func parseCursor(cursor string) (time.Time, string, error) {
	us, id, ok := strings.Cut(cursor, "~")
	if !ok {
		return time.Time{}, "", common.ErrorValidation
	}
	micros, err := strconv.ParseInt(us, 10, 64)
	if err != nil {
		return time.Time{}, "", common.ErrorValidation
	}
	if _, err := uuid.Parse(id); err != nil {
		return time.Time{}, "", common.ErrorValidation
	}
	return time.UnixMicro(micros).UTC(), id, nil
}

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
