package sqlexec

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRunFormatsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"name", "total"}).
			AddRow("alice", int64(3)).
			AddRow("bob", int64(7)),
	)

	r := NewRunner(db, 0, 0)
	got := r.Run(context.Background(), "SELECT name, total FROM t")

	want := "[('alice', 3), ('bob', 7)]"
	if got != want {
		t.Errorf("Run = %q, want %q", got, want)
	}
}

func TestRunSingleColumnTrailingComma(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"total"}).AddRow(int64(42)),
	)

	r := NewRunner(db, 0, 0)
	got := r.Run(context.Background(), "SELECT sum(amount) FROM orders")

	if got != "[(42,)]" {
		t.Errorf("Run = %q, want [(42,)]", got)
	}
}

func TestRunNullAndEmptyResult(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT a").WillReturnRows(
		sqlmock.NewRows([]string{"a", "b"}).AddRow(nil, "x"),
	)
	mock.ExpectQuery("SELECT b").WillReturnRows(
		sqlmock.NewRows([]string{"a"}),
	)

	r := NewRunner(db, 0, 0)

	if got := r.Run(context.Background(), "SELECT a"); got != "[(NULL, 'x')]" {
		t.Errorf("null row = %q", got)
	}
	if got := r.Run(context.Background(), "SELECT b"); got != "[]" {
		t.Errorf("empty result = %q", got)
	}
}

// Database failures come back in-band, tagged, never as a Go error.
func TestRunErrorTagged(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT").WillReturnError(errors.New(`column "amout" does not exist`))

	r := NewRunner(db, 0, 0)
	got := r.Run(context.Background(), "SELECT amout FROM orders")

	if !strings.HasPrefix(got, ErrorTag) {
		t.Fatalf("payload %q misses error tag", got)
	}
	if !strings.Contains(got, "amout") {
		t.Errorf("payload %q lost the database error text", got)
	}
}

func TestRunTruncatesLongResults(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"v"})
	for i := 0; i < 50; i++ {
		rows.AddRow(strings.Repeat("x", 40))
	}
	mock.ExpectQuery("SELECT").WillReturnRows(rows)

	limit := 100
	r := NewRunner(db, limit, 0)
	got := r.Run(context.Background(), "SELECT v FROM t")

	if len(got) != limit+len("...") {
		t.Errorf("len = %d, want %d", len(got), limit+len("..."))
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated payload %q misses ellipsis", got[len(got)-10:])
	}
}
