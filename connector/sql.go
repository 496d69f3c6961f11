package connector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanDung-dev/tabular/arrays"
	"github.com/VanDung-dev/tabular/chunk"
	"github.com/VanDung-dev/tabular/datatypes"
	"github.com/VanDung-dev/tabular/dispatch"
	"github.com/VanDung-dev/tabular/errs"
	"github.com/VanDung-dev/tabular/gologger"
)

// SQL is a Connector over a database/sql handle.
type SQL struct {
	db  *sql.DB
	log *zerolog.Logger
}

var _ Connector = (*SQL)(nil)

// NewSQL wraps db. A nil logger disables logging.
func NewSQL(db *sql.DB, logger *zerolog.Logger) *SQL {
	return &SQL{db: db, log: gologger.Nop(logger)}
}

// OpenSQL opens and pings a database with the named driver.
func OpenSQL(ctx context.Context, driver, dsn string, logger *zerolog.Logger) (*SQL, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	return NewSQL(db, logger), nil
}

// DB returns the underlying handle.
func (s *SQL) DB() *sql.DB { return s.db }

// Close closes the underlying handle.
func (s *SQL) Close() error { return s.db.Close() }

// Execute runs query and returns its rows batchSize at a time.
func (s *SQL) Execute(ctx context.Context, query string, batchSize int) (Iterator, error) {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	if len(cols) == 0 {
		// no result set
		for rows.Next() {
		}
		err := rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to execute query: %w", err)
		}
		s.log.Debug().Str("query", query).Msg("executed statement")
		return nil, nil
	}

	fields := make([]datatypes.Field, len(cols))
	for i, c := range cols {
		nullable, ok := c.Nullable()
		fields[i] = datatypes.NewField(c.Name(), columnType(c), nullable || !ok)
	}
	s.log.Debug().Str("query", query).Int("columns", len(fields)).Int("batch_size", batchSize).Msg("executing query")

	return &sqlIterator{
		rows:      rows,
		fields:    fields,
		batchSize: batchSize,
	}, nil
}

// typeNames maps lower-case declared column types to data types.
var typeNames = map[string]datatypes.DataType{
	"bool":        datatypes.Boolean(),
	"boolean":     datatypes.Boolean(),
	"tinyint":     datatypes.Int8(),
	"int2":        datatypes.Int16(),
	"smallint":    datatypes.Int16(),
	"int4":        datatypes.Int32(),
	"mediumint":   datatypes.Int32(),
	"int":         datatypes.Int64(),
	"integer":     datatypes.Int64(),
	"int8":        datatypes.Int64(),
	"bigint":      datatypes.Int64(),
	"float4":      datatypes.Float32(),
	"real":        datatypes.Float64(),
	"float":       datatypes.Float64(),
	"float8":      datatypes.Float64(),
	"double":      datatypes.Float64(),
	"numeric":     datatypes.Float64(),
	"text":        datatypes.Utf8(),
	"char":        datatypes.Utf8(),
	"varchar":     datatypes.Utf8(),
	"bpchar":      datatypes.Utf8(),
	"name":        datatypes.Utf8(),
	"uuid":        datatypes.Utf8(),
	"json":        datatypes.Utf8(),
	"jsonb":       datatypes.Utf8(),
	"blob":        datatypes.Binary(),
	"bytea":       datatypes.Binary(),
	"date":        datatypes.Date32(),
	"time":        datatypes.Time(),
	"datetime":    datatypes.TimestampMicros(""),
	"timestamp":   datatypes.TimestampMicros(""),
	"timestamptz": datatypes.TimestampMicros("UTC"),
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
)

// columnType maps a result column to a data type from its declared type,
// then from the driver's scan type, falling back to Utf8.
func columnType(c *sql.ColumnType) datatypes.DataType {
	name := strings.ToLower(strings.TrimSpace(c.DatabaseTypeName()))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	name = strings.TrimSuffix(name, " precision")
	if dt, ok := typeNames[name]; ok {
		return dt
	}

	st := c.ScanType()
	if st == nil {
		return datatypes.Utf8()
	}
	for st.Kind() == reflect.Pointer {
		st = st.Elem()
	}
	switch {
	case st == timeType:
		return datatypes.TimestampMicros("")
	case st == bytesType:
		return datatypes.Binary()
	}
	switch st.Kind() {
	case reflect.Bool:
		return datatypes.Boolean()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return datatypes.Int64()
	case reflect.Float32, reflect.Float64:
		return datatypes.Float64()
	}
	return datatypes.Utf8()
}

type sqlIterator struct {
	rows      *sql.Rows
	fields    []datatypes.Field
	batchSize int

	cur    *chunk.Chunk
	err    error
	closed bool
}

func (it *sqlIterator) Fields() []datatypes.Field {
	return append([]datatypes.Field(nil), it.fields...)
}

func (it *sqlIterator) Next() bool {
	it.cur = nil
	if it.err != nil || it.closed {
		return false
	}

	dest := make([]any, len(it.fields))
	for i, f := range it.fields {
		dest[i] = scanDest(f.Type)
	}
	columns := make([][]any, len(it.fields))
	n := 0
	for n < it.batchSize && it.rows.Next() {
		if err := it.rows.Scan(dest...); err != nil {
			it.err = fmt.Errorf("failed to scan row: %w", err)
			return false
		}
		for i, d := range dest {
			v, err := scanned(it.fields[i].Type, d)
			if err != nil {
				it.err = fmt.Errorf("column %q: %w", it.fields[i].Name, err)
				return false
			}
			columns[i] = append(columns[i], v)
		}
		n++
	}
	if n == 0 {
		if err := it.rows.Err(); err != nil {
			it.err = fmt.Errorf("failed to read rows: %w", err)
		}
		return false
	}

	cols := make([]arrays.Array, len(it.fields))
	for i, f := range it.fields {
		a, err := arrays.New(f.Type, columns[i])
		if err != nil {
			it.err = fmt.Errorf("column %q: %w", f.Name, err)
			return false
		}
		cols[i] = a
	}
	c, err := chunk.NewWithRows(n, cols...)
	if err != nil {
		it.err = err
		return false
	}
	it.cur = c
	return true
}

func (it *sqlIterator) Chunk() *chunk.Chunk { return it.cur }

func (it *sqlIterator) Err() error { return it.err }

func (it *sqlIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}

func scanDest(dt datatypes.DataType) any {
	switch dt.Kind() {
	case datatypes.KindBoolean:
		return new(sql.NullBool)
	case datatypes.KindInt8, datatypes.KindInt16, datatypes.KindInt32, datatypes.KindInt64,
		datatypes.KindUInt8, datatypes.KindUInt16, datatypes.KindUInt32, datatypes.KindUInt64:
		return new(sql.NullInt64)
	case datatypes.KindFloat32, datatypes.KindFloat64:
		return new(sql.NullFloat64)
	case datatypes.KindBinary, datatypes.KindLargeBinary:
		return new([]byte)
	case datatypes.KindTimestamp, datatypes.KindDate32:
		return new(sql.NullTime)
	}
	return new(sql.NullString)
}

// scanned converts a filled scan destination into a value accepted by
// arrays.New for dt; nil marks a null.
func scanned(dt datatypes.DataType, d any) (any, error) {
	switch v := d.(type) {
	case *sql.NullBool:
		if v.Valid {
			return v.Bool, nil
		}
	case *sql.NullInt64:
		if v.Valid {
			return v.Int64, nil
		}
	case *sql.NullFloat64:
		if v.Valid {
			return v.Float64, nil
		}
	case *[]byte:
		if *v != nil {
			return *v, nil
		}
	case *sql.NullTime:
		if !v.Valid {
			return nil, nil
		}
		if dt.Kind() == datatypes.KindDate32 {
			return arrays.DaysSinceEpoch(v.Time), nil
		}
		return arrays.ToEpoch(v.Time, dt.Unit()), nil
	case *sql.NullString:
		if !v.Valid {
			return nil, nil
		}
		if dt.Kind() == datatypes.KindTime64 {
			t, err := time.Parse(dispatch.TimeOfDayLayout, v.String)
			if err != nil {
				return nil, errs.Format("time of day "+v.String, err)
			}
			since := t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()))
			return int64(since / arrays.UnitDuration(dt.Unit())), nil
		}
		return v.String, nil
	}
	return nil, nil
}

// Write runs query once per row of c inside one transaction. The transaction
// is rolled back on the first failure.
func (s *SQL) Write(ctx context.Context, query string, c *chunk.Chunk) (err error) {
	bind := make([]func(int) any, c.NumCols())
	for i, a := range c.Arrays() {
		b, err := binder(a)
		if err != nil {
			return fmt.Errorf("column %d: %w", i, err)
		}
		bind[i] = b
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); !errors.Is(rerr, sql.ErrTxDone) {
				err = errors.Join(err, rerr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	args := make([]any, c.NumCols())
	for row := 0; row < c.Len(); row++ {
		for i, b := range bind {
			args[i] = b(row)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug().Str("query", query).Int("rows", c.Len()).Msg("wrote chunk")
	return nil
}

// binder returns a function producing the database/sql argument for a row of
// a. Temporal values are bound as time.Time or, for Time64, as a string.
func binder(a arrays.Array) (func(int) any, error) {
	dt := a.DataType()
	null := func(i int) bool { return !a.IsValid(i) }

	switch dt.Kind() {
	case datatypes.KindTimestamp:
		loc, err := arrays.Location(dt)
		if err != nil {
			return nil, err
		}
		ints := a.(*arrays.Int64Array)
		return func(i int) any {
			if null(i) {
				return nil
			}
			return arrays.FromEpoch(ints.Value(i), dt.Unit()).In(loc)
		}, nil
	case datatypes.KindDate32:
		ints := a.(*arrays.Int32Array)
		return func(i int) any {
			if null(i) {
				return nil
			}
			return time.Unix(int64(ints.Value(i))*24*60*60, 0).UTC()
		}, nil
	case datatypes.KindTime64:
		ints := a.(*arrays.Int64Array)
		step := arrays.UnitDuration(dt.Unit())
		return func(i int) any {
			if null(i) {
				return nil
			}
			return time.Time{}.Add(time.Duration(ints.Value(i)) * step).Format(dispatch.TimeOfDayLayout)
		}, nil
	case datatypes.KindUInt64:
		ints := a.(*arrays.UInt64Array)
		return func(i int) any {
			if null(i) {
				return nil
			}
			if v := ints.Value(i); v > 1<<63-1 {
				return fmt.Sprint(v)
			}
			return int64(ints.Value(i))
		}, nil
	}
	return a.Get, nil
}
