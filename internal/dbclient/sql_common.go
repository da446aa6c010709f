package dbclient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dsjson/internal/domain"
)

// dialect holds what differs between the SQL drivers.
type dialect struct {
	driver      string
	placeholder func(i int) string // i is 1-based
	quote       func(ident string) string
	numericType string
	textType    string
	rownumType  string
	keyType     string
	// columnsQuery lists (name, type) of one table in physical order.
	// Empty means PRAGMA table_info.
	columnsQuery string
}

func quoteDouble(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteBacktick(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

func (d dialect) placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = d.placeholder(from + i)
	}
	return strings.Join(ph, ", ")
}

// sqlStore is the shared implementation for MySQL, Postgres, and SQLite.
// Each dataset is a table with a hidden ordering column; descriptors and
// labels live in two catalog tables.
type sqlStore struct {
	d  dialect
	db *sql.DB
}

// newSQLStore creates a generic SQL store.
func newSQLStore(d dialect, dsn string) (*sqlStore, error) {
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.driver, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlStore{d: d, db: db}, nil
}

func (s *sqlStore) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

// ── Introspection ─────────────────────────────────────────

type tableColumn struct {
	name    string
	sqlType string
}

// tableColumns returns the physical columns of table, empty if it does not exist.
func (s *sqlStore) tableColumns(ctx context.Context, table string) ([]tableColumn, error) {
	if s.d.columnsQuery == "" {
		return s.pragmaColumns(ctx, table)
	}
	rows, err := s.db.QueryContext(ctx, s.d.columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []tableColumn
	for rows.Next() {
		var tc tableColumn
		if err := rows.Scan(&tc.name, &tc.sqlType); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, tc)
	}
	return cols, rows.Err()
}

func (s *sqlStore) pragmaColumns(ctx context.Context, table string) ([]tableColumn, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", table, err)
	}
	defer rows.Close()

	var cols []tableColumn
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue sql.NullString
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols = append(cols, tableColumn{name: name, sqlType: colType})
	}
	return cols, rows.Err()
}

// isNumericType maps a declared SQL type onto the numeric storage class.
func isNumericType(sqlType string) bool {
	t := strings.ToUpper(sqlType)
	for _, k := range []string{"INT", "REAL", "FLOA", "DOUB", "NUMERIC", "DECIMAL", "NUMBER", "SERIAL", "BOOL"} {
		if strings.Contains(t, k) {
			return true
		}
	}
	return false
}

// ── Catalog ───────────────────────────────────────────────

func (s *sqlStore) ensureCatalog(ctx context.Context, tx *sql.Tx) error {
	q := s.d.quote
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s %s NOT NULL PRIMARY KEY,
			%s %s
		)`, q(catalogDatasets), q("name"), s.d.keyType, q("label"), s.d.textType),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			%s %s NOT NULL,
			%s %s NOT NULL,
			%s INTEGER NOT NULL,
			%s INTEGER NOT NULL,
			%s %s,
			%s %s,
			%s %s,
			%s INTEGER NOT NULL,
			PRIMARY KEY (%s, %s)
		)`, q(catalogColumns),
			q("dataset"), s.d.keyType,
			q("name"), s.d.keyType,
			q("type"), q("length"),
			q("format"), s.d.textType,
			q("informat"), s.d.textType,
			q("label"), s.d.textType,
			q("varnum"),
			q("dataset"), q("name")),
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create catalog: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) hasCatalog(ctx context.Context) (bool, error) {
	cols, err := s.tableColumns(ctx, catalogDatasets)
	if err != nil {
		return false, err
	}
	return len(cols) > 0, nil
}

// DatasetLabel returns the recorded label, "" when the dataset has none.
func (s *sqlStore) DatasetLabel(ctx context.Context, name string) (string, error) {
	ok, err := s.hasCatalog(ctx)
	if err != nil || !ok {
		return "", err
	}
	var label sql.NullString
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
			s.d.quote("label"), s.d.quote(catalogDatasets), s.d.quote("name"), s.d.placeholder(1)),
		name,
	).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup label of %s: %w", name, err)
	}
	return label.String, nil
}

func (s *sqlStore) ListDatasets(ctx context.Context) ([]string, error) {
	ok, err := s.hasCatalog(ctx)
	if err != nil || !ok {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		s.d.quote("name"), s.d.quote(catalogDatasets), s.d.quote("name")))
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan dataset name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// catalogColumnsOf returns recorded descriptors keyed by upper-cased name.
func (s *sqlStore) catalogColumnsOf(ctx context.Context, name string) (map[string]domain.Column, error) {
	ok, err := s.hasCatalog(ctx)
	if err != nil || !ok {
		return nil, err
	}
	q := s.d.quote
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT %s, %s, %s, %s, %s, %s, %s FROM %s WHERE %s = %s",
			q("name"), q("type"), q("length"), q("format"), q("informat"), q("label"), q("varnum"),
			q(catalogColumns), q("dataset"), s.d.placeholder(1)),
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("read descriptors of %s: %w", name, err)
	}
	defer rows.Close()

	out := make(map[string]domain.Column)
	for rows.Next() {
		var c domain.Column
		var typ int
		var format, informat, label sql.NullString
		if err := rows.Scan(&c.Name, &typ, &c.Length, &format, &informat, &label, &c.Varnum); err != nil {
			return nil, fmt.Errorf("scan descriptor of %s: %w", name, err)
		}
		c.Type = domain.ColumnType(typ)
		c.Format, c.Informat, c.Label = format.String, informat.String, label.String
		out[strings.ToUpper(c.Name)] = c
	}
	return out, rows.Err()
}

// ── Read ──────────────────────────────────────────────────

// ReadDataset loads a table in physical column order and rownum order.
// Tables without catalog entries get descriptors inferred from their SQL types.
func (s *sqlStore) ReadDataset(ctx context.Context, name string) (*domain.Dataset, error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	physical, err := s.tableColumns(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(physical) == 0 {
		return nil, fmt.Errorf("table %s: %w", name, domain.ErrDatasetNotFound)
	}
	described, err := s.catalogColumnsOf(ctx, name)
	if err != nil {
		return nil, err
	}
	label, err := s.DatasetLabel(ctx, name)
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{Name: name, Label: label, Rows: []domain.Row{}}
	hasRownum := false
	inferred := map[int]bool{}
	for _, tc := range physical {
		if strings.EqualFold(tc.name, rownumColumn) {
			hasRownum = true
			continue
		}
		col, ok := described[strings.ToUpper(tc.name)]
		if !ok {
			col = domain.Column{Name: tc.name, Type: domain.ColumnCharacter}
			if isNumericType(tc.sqlType) {
				col.Type = domain.ColumnNumeric
				col.Length = domain.DefaultNumericLength
			}
			inferred[len(ds.Columns)] = true
		}
		col.Name = tc.name
		ds.Columns = append(ds.Columns, col)
	}
	for i := range ds.Columns {
		if ds.Columns[i].Varnum <= 0 {
			ds.Columns[i].Varnum = i + 1
		}
	}

	names := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		names[i] = s.d.quote(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(names, ", "), s.d.quote(name))
	if hasRownum {
		query += " ORDER BY " + s.d.quote(rownumColumn)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer rows.Close()

	values := make([]any, len(ds.Columns))
	ptrs := make([]any, len(ds.Columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", name, err)
		}
		row := make(domain.Row, len(ds.Columns))
		for i, c := range ds.Columns {
			row[c.Name] = domain.CellValue(c, formatValue(values[i]))
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", name, err)
	}

	// inferred character widths follow the data
	for i := range inferred {
		if !ds.Columns[i].IsNumeric() {
			ds.FitLength(i)
		}
	}
	return ds, nil
}

// formatValue normalizes driver values before typing.
func formatValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}

// ── Write ─────────────────────────────────────────────────

// WriteDataset drops and recreates the table, then replaces its catalog
// entries, all inside one transaction.
func (s *sqlStore) WriteDataset(ctx context.Context, ds *domain.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if err := checkReserved(ds, rownumColumn); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := s.ensureCatalog(ctx, tx); err != nil {
		return err
	}

	q := s.d.quote
	table := q(ds.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", ds.Name, err)
	}
	defs := []string{q(rownumColumn) + " " + s.d.rownumType + " NOT NULL"}
	names := []string{q(rownumColumn)}
	for _, c := range ds.Columns {
		typ := s.d.textType
		if c.IsNumeric() {
			typ = s.d.numericType
		}
		defs = append(defs, q(c.Name)+" "+typ)
		names = append(names, q(c.Name))
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", ds.Name, err)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), s.d.placeholders(1, len(names))))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", ds.Name, err)
	}
	defer insert.Close()

	args := make([]any, len(names))
	for i, row := range ds.Rows {
		args[0] = i + 1
		for j, c := range ds.Columns {
			args[j+1] = domain.CellValue(c, row[c.Name])
		}
		if _, err := insert.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i+1, ds.Name, err)
		}
	}

	if err := s.writeCatalog(ctx, tx, ds); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *sqlStore) writeCatalog(ctx context.Context, tx *sql.Tx, ds *domain.Dataset) error {
	q, ph := s.d.quote, s.d.placeholder
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q(catalogColumns), q("dataset"), ph(1)), ds.Name); err != nil {
		return fmt.Errorf("clear descriptors of %s: %w", ds.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", q(catalogDatasets), q("name"), ph(1)), ds.Name); err != nil {
		return fmt.Errorf("clear label of %s: %w", ds.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (%s)", q(catalogDatasets), q("name"), q("label"), s.d.placeholders(1, 2)),
		ds.Name, ds.Label); err != nil {
		return fmt.Errorf("record label of %s: %w", ds.Name, err)
	}
	for i, c := range ds.Columns {
		varnum := c.Varnum
		if varnum <= 0 {
			varnum = i + 1
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s) VALUES (%s)",
				q(catalogColumns), q("dataset"), q("name"), q("type"), q("length"),
				q("format"), q("informat"), q("label"), q("varnum"), s.d.placeholders(1, 8)),
			ds.Name, c.Name, int(c.Type), c.Length, c.Format, c.Informat, c.Label, varnum,
		); err != nil {
			return fmt.Errorf("record descriptor %s.%s: %w", ds.Name, c.Name, err)
		}
	}
	return nil
}
