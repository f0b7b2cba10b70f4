package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultResultCap bounds the payload handed back to the pipeline so a
	// huge result set cannot blow up downstream prompts.
	DefaultResultCap = 2000

	// ErrorTag prefixes every failed execution payload. The correction loop
	// keys its routing off this literal.
	ErrorTag = "Error: "
)

// Runner executes candidate SQL statements against the target database.
// It never returns a Go error to the pipeline: failures are folded into the
// payload with the ErrorTag prefix so the state machine can route on them.
type Runner struct {
	db        *sql.DB
	resultCap int
	timeout   time.Duration
}

func NewRunner(db *sql.DB, resultCap int, timeout time.Duration) *Runner {
	if resultCap <= 0 {
		resultCap = DefaultResultCap
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{db: db, resultCap: resultCap, timeout: timeout}
}

// Run executes the statement and returns either a truncated textual result
// set or an ErrorTag-prefixed payload carrying the database's error text.
func (r *Runner) Run(ctx context.Context, query string) string {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return ErrorTag + err.Error()
	}
	defer rows.Close()

	payload, err := formatRows(rows)
	if err != nil {
		return ErrorTag + err.Error()
	}

	if len(payload) > r.resultCap {
		return payload[:r.resultCap] + "..."
	}
	return payload
}

// formatRows renders a result set as a list of tuples, e.g. [(42,), (7, 'a')].
func formatRows(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("[")
	first := true
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return "", err
		}

		if !first {
			sb.WriteString(", ")
		}
		first = false

		sb.WriteString("(")
		for i, v := range values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(formatValue(v))
		}
		if len(cols) == 1 {
			sb.WriteString(",")
		}
		sb.WriteString(")")
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	sb.WriteString("]")
	return sb.String(), nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return fmt.Sprintf("'%s'", string(val))
	case string:
		return fmt.Sprintf("'%s'", val)
	case time.Time:
		return fmt.Sprintf("'%s'", val.Format("2006-01-02 15:04:05"))
	default:
		return fmt.Sprintf("%v", val)
	}
}
