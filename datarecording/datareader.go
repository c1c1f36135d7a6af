package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
	"strings"
)

// QueryParams narrows down the rows returned by DataReader.Query.
type QueryParams struct {
	// Where is an SQL condition such as "SetID = ? AND Hit = ?".
	Where string

	// Args fill the placeholders of Where.
	Args []any

	// OrderBy is an SQL ordering such as "Seq DESC".
	OrderBy string

	// Limit caps the number of rows, 0 means all rows. Offset only applies
	// together with Limit.
	Limit  int
	Offset int
}

// GroupParams describes a per-group summary of one table. The result columns
// are named GroupKey, GroupCount, Sum0, Sum1 and so on, and OrderBy can refer
// to them.
type GroupParams struct {
	// GroupBy is the integer column that forms the groups.
	GroupBy string

	// Sums are integer SQL expressions summed within each group, for example
	// "1 - Hit".
	Sums []string

	Where   string
	Args    []any
	OrderBy string
	Limit   int
}

// Group is one row of a grouped summary.
type Group struct {
	Key   int64
	Count uint64
	Sums  []int64
}

// DataReader reads tables written by a DataRecorder.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. Query only works on mapped tables.
	MapTable(tableName string, sampleEntry any)

	// Query returns the matching rows as pointers to the mapped struct, and
	// the number of rows that match without Limit and Offset.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Group counts and sums rows per group inside the database, so large
	// tables never have to be loaded.
	Group(ctx context.Context, tableName string, params GroupParams) (
		[]Group,
		error,
	)

	// Close releases the database.
	Close() error
}

type sqliteReader struct {
	*sql.DB

	tableTypes map[string]reflect.Type
}

// NewReader opens a SQLite recording.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB reads from an already opened database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:         db,
		tableTypes: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.tableTypes[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	entryType, mapped := r.tableTypes[tableName]
	if !mapped {
		return nil, 0, fmt.Errorf("table %s is not mapped", tableName)
	}

	var total int

	countSQL := "SELECT COUNT(*) FROM " + tableName + whereClause(params.Where)

	err := r.QueryRowContext(ctx, countSQL, params.Args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	selectSQL := "SELECT * FROM " + tableName +
		whereClause(params.Where) +
		orderClause(params.OrderBy) +
		limitClause(params.Limit, params.Offset)

	rows, err := r.QueryContext(ctx, selectSQL, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries, err := decodeRows(rows, entryType)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (r *sqliteReader) Group(
	ctx context.Context,
	tableName string,
	params GroupParams,
) ([]Group, error) {
	columns := []string{
		params.GroupBy + " AS GroupKey",
		"COUNT(*) AS GroupCount",
	}
	for i, expr := range params.Sums {
		columns = append(columns, fmt.Sprintf("SUM(%s) AS Sum%d", expr, i))
	}

	groupSQL := "SELECT " + strings.Join(columns, ", ") +
		" FROM " + tableName +
		whereClause(params.Where) +
		" GROUP BY " + params.GroupBy +
		orderClause(params.OrderBy) +
		limitClause(params.Limit, 0)

	rows, err := r.QueryContext(ctx, groupSQL, params.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []Group

	for rows.Next() {
		g := Group{Sums: make([]int64, len(params.Sums))}

		targets := []any{&g.Key, &g.Count}
		for i := range g.Sums {
			targets = append(targets, &g.Sums[i])
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		groups = append(groups, g)
	}

	return groups, rows.Err()
}

func whereClause(where string) string {
	if where == "" {
		return ""
	}

	return " WHERE " + where
}

func orderClause(orderBy string) string {
	if orderBy == "" {
		return ""
	}

	return " ORDER BY " + orderBy
}

func limitClause(limit, offset int) string {
	switch {
	case limit <= 0:
		return ""
	case offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	default:
		return fmt.Sprintf(" LIMIT %d", limit)
	}
}

// decodeRows fills one new struct per row, matching columns to fields by
// name. Columns without a field are skipped.
func decodeRows(rows *sql.Rows, entryType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int, entryType.NumField())
	for i := 0; i < entryType.NumField(); i++ {
		fieldIndex[entryType.Field(i).Name] = i
	}

	var entries []any

	for rows.Next() {
		entry := reflect.New(entryType)
		targets := make([]any, len(columns))

		for i, column := range columns {
			idx, ok := fieldIndex[column]
			if !ok {
				targets[i] = new(any)
				continue
			}

			targets[i] = entry.Elem().Field(idx).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		entries = append(entries, entry.Interface())
	}

	return entries, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
