package repositories

import (
	"collab-lab/errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const cursorDigits = 19

// EncodeCursor formats the position of a message as "{timestamp_padded}:{uuid}".
// It is also the suffix of the message key in badger, so cursors are valid on both stores.
func EncodeCursor(at time.Time, id uuid.UUID) string {
	return fmt.Sprintf("%0*d:%s", cursorDigits, at.UnixNano(), id)
}

func DecodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	at, rawID, ok := strings.Cut(cursor, ":")
	if !ok || len(at) != cursorDigits {
		return time.Time{}, uuid.Nil, errors.ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(at, 10, 64)
	if err != nil || nanos < 0 {
		return time.Time{}, uuid.Nil, errors.ErrInvalidCursor
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return time.Time{}, uuid.Nil, errors.ErrInvalidCursor
	}
	return time.Unix(0, nanos).UTC(), id, nil
}
