package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions tells the recorder where to connect.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// clickHouseRecorder writes entries into ClickHouse with one batch insert
// per table on every flush.
type clickHouseRecorder struct {
	conn      driver.Conn
	mu        sync.Mutex
	batchSize int

	tables     map[string]*table
	tableNames []string
	entryCount int
	closed     bool

	execRecorder *execRecorder
}

// NewClickHouseRecorder connects to a ClickHouse server and returns a
// DataRecorder that writes into it.
func NewClickHouseRecorder(opts ClickHouseOptions) DataRecorder {
	if opts.BatchSize == 0 {
		opts.BatchSize = 100000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      time.Second * 30,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		panic(fmt.Errorf("failed to connect to ClickHouse: %w", err))
	}

	if err := conn.Ping(context.Background()); err != nil {
		panic(fmt.Errorf("failed to ping ClickHouse: %w", err))
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*table),
	}

	r.execRecorder = newExecRecorder(r)
	r.execRecorder.Start()

	atexit.Register(func() { r.Close() })

	return r
}

func clickHouseColumnType(kind reflect.Kind) (string, error) {
	switch kind {
	case reflect.Bool:
		return "Bool", nil
	case reflect.Int, reflect.Int64:
		return "Int64", nil
	case reflect.Int8:
		return "Int8", nil
	case reflect.Int16:
		return "Int16", nil
	case reflect.Int32:
		return "Int32", nil
	case reflect.Uint, reflect.Uint64:
		return "UInt64", nil
	case reflect.Uint8:
		return "UInt8", nil
	case reflect.Uint16:
		return "UInt16", nil
	case reflect.Uint32:
		return "UInt32", nil
	case reflect.Float32:
		return "Float32", nil
	case reflect.Float64:
		return "Float64", nil
	case reflect.String:
		return "String", nil
	default:
		return "", fmt.Errorf("unsupported kind %s", kind)
	}
}

// clickHouseCreateTableSQL builds a MergeTree table definition. Indexed
// fields form the sorting key.
func clickHouseCreateTableSQL(tableName string, sampleEntry any) (string, error) {
	if err := checkStructFields(sampleEntry); err != nil {
		return "", err
	}

	structType := reflect.TypeOf(sampleEntry)
	columns := make([]string, 0, structType.NumField())

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		colType, err := clickHouseColumnType(field.Type.Kind())
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}

		columns = append(columns, field.Name+" "+colType)
	}

	orderBy := "tuple()"
	if indexed := indexedFields(sampleEntry); len(indexed) > 0 {
		orderBy = "(" + strings.Join(indexed, ", ") + ")"
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n) ENGINE = MergeTree()\nORDER BY %s",
		tableName, strings.Join(columns, ",\n\t"), orderBy), nil
}

// clickHouseRow converts an entry into values that match the column types
// chosen by clickHouseColumnType.
func clickHouseRow(entry any) []any {
	v := reflect.ValueOf(entry)
	row := make([]any, v.NumField())

	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)

		switch f.Kind() {
		case reflect.Int:
			row[i] = f.Int()
		case reflect.Uint:
			row[i] = f.Uint()
		default:
			row[i] = f.Interface()
		}
	}

	return row
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	createSQL, err := clickHouseCreateTableSQL(tableName, sampleEntry)
	if err != nil {
		panic(err)
	}

	err = r.conn.Exec(context.Background(), createSQL)
	if err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tables[tableName] = &table{structType: reflect.TypeOf(sampleEntry)}
	r.tableNames = append(r.tableNames, tableName)
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	t, exists := r.tables[tableName]
	if !exists {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.entries = append(t.entries, entry)
	r.entryCount++
	full := r.entryCount >= r.batchSize

	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	tables := make([]string, len(r.tableNames))
	copy(tables, r.tableNames)

	return tables
}

func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for _, tableName := range r.tableNames {
		t := r.tables[tableName]
		if len(t.entries) == 0 {
			continue
		}

		r.flushTable(ctx, tableName, t)
	}

	r.entryCount = 0
}

func (r *clickHouseRecorder) flushTable(
	ctx context.Context,
	tableName string,
	t *table,
) {
	batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+tableName)
	if err != nil {
		panic(fmt.Errorf("failed to prepare batch for %s: %w", tableName, err))
	}

	for _, entry := range t.entries {
		err = batch.Append(clickHouseRow(entry)...)
		if err != nil {
			panic(fmt.Errorf("failed to append to %s: %w", tableName, err))
		}
	}

	err = batch.Send()
	if err != nil {
		panic(fmt.Errorf("failed to send batch for %s: %w", tableName, err))
	}

	t.entries = nil
}

func (r *clickHouseRecorder) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.execRecorder.End()
	r.Flush()

	return r.conn.Close()
}
