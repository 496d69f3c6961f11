package connector

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	_ "modernc.org/sqlite"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/errs"
)

func openSQLite(t *testing.T) *SQL {
	t.Helper()
	conn, err := OpenSQL(context.Background(), "sqlite", filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func mustExec(t *testing.T, conn *SQL, query string) {
	t.Helper()
	it, err := conn.Execute(context.Background(), query, 0)
	if err != nil {
		t.Fatalf("Execute(%q): %v", query, err)
	}
	if it != nil {
		t.Fatalf("Execute(%q) returned a result set", query)
	}
}

func TestExecuteWithoutResultSet(t *testing.T) {
	conn := openSQLite(t)
	mustExec(t, conn, "CREATE TABLE events (id INTEGER NOT NULL, name TEXT)")
	mustExec(t, conn, "INSERT INTO events VALUES (1, 'a')")
}

func TestWriteThenExecute(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	mustExec(t, conn, `CREATE TABLE events (
		id INTEGER NOT NULL,
		name VARCHAR(20),
		score REAL,
		ok BOOLEAN,
		payload BLOB,
		at TIMESTAMP,
		day DATE,
		clock TIME
	)`)

	ids, _ := arrays.NewInt64([]int64{1, 2, 3})
	names, _ := arrays.NewUtf8([]any{"a", nil, "c"})
	scores, _ := arrays.NewFloat64([]any{1.5, 2.5, nil})
	oks, _ := arrays.NewBoolean([]any{true, false, nil})
	payloads, _ := arrays.NewBinary([]any{[]byte{1, 2}, nil, []byte{3}})
	raw, _ := arrays.NewInt64([]any{int64(1709294400000001), nil, int64(0)})
	days, _ := arrays.NewInt32([]any{int32(19783), int32(0), nil})
	clocks, _ := arrays.NewInt64([]any{int64(45000500000), nil, int64(0)})

	in, err := chunk.New(ids, names, scores, oks, payloads,
		arrays.ToTimestamp(raw, datatypes.Microsecond, ""),
		arrays.ToDate32(days),
		arrays.ToTime64(clocks, datatypes.Microsecond))
	if err != nil {
		t.Fatalf("chunk.New: %v", err)
	}

	if err := conn.Write(ctx, "INSERT INTO events VALUES (?, ?, ?, ?, ?, ?, ?, ?)", in); err != nil {
		t.Fatalf("Write: %v", err)
	}

	it, err := conn.Execute(ctx, "SELECT * FROM events ORDER BY id", 2)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if it == nil {
		t.Fatal("Execute returned no result set")
	}

	var kinds []datatypes.Kind
	for _, f := range it.Fields() {
		kinds = append(kinds, f.Type.Kind())
	}
	want := []datatypes.Kind{
		datatypes.KindInt64, datatypes.KindUtf8, datatypes.KindFloat64, datatypes.KindBoolean,
		datatypes.KindBinary, datatypes.KindTimestamp, datatypes.KindDate32, datatypes.KindTime64,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("field kinds (-want +got):\n%s", diff)
	}

	chunks, err := Collect(it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(chunks) != 2 || chunks[0].Len() != 2 || chunks[1].Len() != 1 {
		t.Fatalf("batches = %v", chunks)
	}

	for col := 0; col < in.NumCols(); col++ {
		for row := 0; row < in.Len(); row++ {
			c, r := chunks[row/2], row%2
			if got, want := c.Array(col).Get(r), in.Array(col).Get(row); !cmp.Equal(got, want) {
				t.Errorf("column %d row %d = %#v, want %#v", col, row, got, want)
			}
		}
	}
}

func TestWriteRollsBack(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	mustExec(t, conn, "CREATE TABLE t (id INTEGER NOT NULL)")

	ids, _ := arrays.NewInt64([]any{int64(1), nil})
	c, _ := chunk.New(ids)
	if err := conn.Write(ctx, "INSERT INTO t VALUES (?)", c); err == nil {
		t.Fatal("Write of a null into a NOT NULL column succeeded")
	}

	it, err := conn.Execute(ctx, "SELECT COUNT(*) AS n FROM t", 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	chunks, err := Collect(it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	// COUNT(*) has no declared type, so the driver's scan type decides
	if got := fmt.Sprint(chunks[0].Array(0).Get(0)); got != "0" {
		t.Errorf("rows after rollback = %s, want 0", got)
	}
}

func TestExecuteEmptyResult(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	mustExec(t, conn, "CREATE TABLE t (id INTEGER)")

	it, err := conn.Execute(ctx, "SELECT id FROM t", 10)
	if err != nil || it == nil {
		t.Fatalf("Execute = %v, %v", it, err)
	}
	if len(it.Fields()) != 1 {
		t.Errorf("Fields() = %v", it.Fields())
	}
	chunks, err := Collect(it)
	if err != nil || len(chunks) != 0 {
		t.Errorf("Collect = %v, %v", chunks, err)
	}
}

func TestExecuteErrors(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	if _, err := conn.Execute(ctx, "SELECT * FROM missing", 0); err == nil {
		t.Error("query on a missing table succeeded")
	}

	mustExec(t, conn, "CREATE TABLE t (v SMALLINT)")
	mustExec(t, conn, "INSERT INTO t VALUES (100000)")
	it, err := conn.Execute(ctx, "SELECT v FROM t", 0)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if _, err := Collect(it); !errors.Is(err, errs.ErrTypeMismatch) {
		t.Errorf("out-of-range SMALLINT error = %v, want ErrTypeMismatch", err)
	}
}
