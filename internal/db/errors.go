package db

import (
	"errors"
	"fmt"
	"strings"

	"github.com/surrealdb/surrealdb.go"
)

// Sentinel errors for database operations. Check with errors.Is().
var (
	// ErrDuplicateSequence indicates the unique (session_id, sequence) index
	// rejected an event. Should not happen while the orchestrator serializes
	// per-session transitions; surfacing it loudly beats losing an event.
	ErrDuplicateSequence = errors.New("duplicate audit sequence")

	// ErrTransactionConflict indicates a SurrealDB transaction conflict on
	// concurrent counter updates. Callers may retry the append.
	ErrTransactionConflict = errors.New("transaction conflict")
)

// wrapQueryError maps known SurrealDB query errors onto sentinel errors.
func wrapQueryError(err error) error {
	if err == nil {
		return nil
	}

	var queryErr *surrealdb.QueryError
	if errors.As(err, &queryErr) {
		msg := queryErr.Message
		if strings.Contains(msg, "already contains") || strings.Contains(msg, "already exists") {
			return fmt.Errorf("%w: %s", ErrDuplicateSequence, msg)
		}
		if strings.Contains(msg, "Transaction conflict") {
			return fmt.Errorf("%w: %s", ErrTransactionConflict, msg)
		}
	}

	return err
}
