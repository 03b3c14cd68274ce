package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"time"

	"github.com/sarchlab/vclock/clock"
)

// QueryParams encapsulates all query parameters
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword
	// Example: "ClockID = ? AND Type = ?"
	Where string

	// Args holds the arguments for the placeholders in Where
	Args []any

	// Limit is the maximum number of records to return. 0 means no limit.
	Limit int

	// Offset is the number of records to skip.
	Offset int

	// OrderBy specifies sorting, without the "ORDER BY" keywords
	OrderBy string
}

// DataReader reads recorded tables back into structs.
type DataReader interface {
	// MapTable associates a table with the struct type of sampleEntry. A
	// table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables.
	ListTables() []string

	// Query returns pointers to structs of the mapped type, and the number
	// of rows matching params regardless of Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader
	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens a recording file for reading.
func NewReader(dbFilename string) (DataReader, error) {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		return nil, err
	}

	return NewReaderWithDB(db), nil
}

// NewReaderWithDB creates a DataReader with a given database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for table := range r.typeMap {
		tables = append(tables, table)
	}

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	query := fmt.Sprintf("SELECT * FROM %s", tableName)

	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	totalCount, err := r.queryTotalCount(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.DB.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (r *sqliteReader) queryTotalCount(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	var totalCount int

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s", tableName)

	if params.Where != "" {
		countQuery += " WHERE " + params.Where
	}

	err := r.DB.QueryRowContext(ctx, countQuery, params.Args...).Scan(&totalCount)
	if err != nil {
		return 0, err
	}

	return totalCount, nil
}

func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldMap := make(map[string]int)
	for i := 0; i < structType.NumField(); i++ {
		fieldMap[structType.Field(i).Name] = i
	}

	var results []any
	for rows.Next() {
		structPtr := reflect.New(structType)
		structVal := structPtr.Elem()
		scanTargets := make([]any, len(columns))

		for i, colName := range columns {
			if fieldIdx, ok := fieldMap[colName]; ok {
				scanTargets[i] = structVal.Field(fieldIdx).Addr().Interface()
			} else {
				var placeholder any
				scanTargets[i] = &placeholder
			}
		}

		if err := rows.Scan(scanTargets...); err != nil {
			return nil, err
		}

		results = append(results, structPtr.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}

// ReadHistory loads the recorded history of one clock in recording order.
// The result can be fed to clock.ReplayElapsed.
func ReadHistory(
	ctx context.Context,
	reader DataReader,
	clockID string,
) ([]clock.Event, error) {
	reader.MapTable(EventTable, eventEntry{})

	rows, _, err := reader.Query(ctx, EventTable, QueryParams{
		Where:   "ClockID = ?",
		Args:    []any{clockID},
		OrderBy: "Seq",
	})
	if err != nil {
		return nil, err
	}

	history := make([]clock.Event, 0, len(rows))
	for _, row := range rows {
		e := row.(*eventEntry)
		history = append(history, clock.Event{
			Time:      time.Unix(0, e.TimeNs),
			ElapsedMs: e.ElapsedMs,
			Type:      clock.EventType(e.Type),
			Data:      decodeData(e.Data),
		})
	}

	return history, nil
}

// Execution is one recorded callback invocation.
type Execution struct {
	Name      string
	Kind      string
	EventType string
	ElapsedMs int64
}

// ReadExecutions loads the recorded callback executions of one clock.
func ReadExecutions(
	ctx context.Context,
	reader DataReader,
	clockID string,
) ([]Execution, error) {
	reader.MapTable(ExecutionTable, executionEntry{})

	rows, _, err := reader.Query(ctx, ExecutionTable, QueryParams{
		Where:   "ClockID = ?",
		Args:    []any{clockID},
		OrderBy: "Seq",
	})
	if err != nil {
		return nil, err
	}

	execs := make([]Execution, 0, len(rows))
	for _, row := range rows {
		e := row.(*executionEntry)
		execs = append(execs, Execution{
			Name:      e.Name,
			Kind:      e.Kind,
			EventType: e.EventType,
			ElapsedMs: e.ElapsedMs,
		})
	}

	return execs, nil
}
