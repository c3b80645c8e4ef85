package store

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	schemapkg "github.com/arkilian/ember/pkg/schema"
	_ "github.com/mattn/go-sqlite3"
)

// columnMetaDDL tracks per-column metadata SQLite's own catalog can't carry:
// the PropertyType tag, whether the column is a link, and its target table.
// Grounded on the teacher's habit of pairing a primary table with a small
// sidecar metadata table (manifest.CreateSchemaVersionsTableSQL) rather than
// overloading the primary table's own column affinities.
const columnMetaDDL = `
CREATE TABLE IF NOT EXISTS ember_columns (
	table_name    TEXT NOT NULL,
	column_name   TEXT NOT NULL,
	property_type INTEGER NOT NULL,
	nullable      INTEGER NOT NULL,
	indexed       INTEGER NOT NULL,
	link_target   TEXT,
	ordinal       INTEGER NOT NULL,
	PRIMARY KEY (table_name, column_name)
)`

// SQLiteStore implements Store against a real SQLite file via
// github.com/mattn/go-sqlite3. It follows the teacher's manifest.SQLiteCatalog
// pattern: a single-writer *sql.DB opened with WAL mode, since the applier's
// own contract (Section 5) already requires exclusive access for the
// duration of a transaction.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLiteStore opens (creating if necessary) a SQLite-backed store at
// path. Pass ":memory:" for an ephemeral store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(columnMetaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to create column metadata table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Begin, Commit, and Rollback wrap a single SQLite transaction around every
// table operation the session layer performs during one apply() call. Since
// the pool is capped at one connection (SetMaxOpenConns(1) above), a plain
// BEGIN/COMMIT/ROLLBACK over that connection scopes every subsequent Table
// call issued by this process without threading a *sql.Tx through every
// Table method.
func (s *SQLiteStore) Begin() error {
	_, err := s.db.Exec("BEGIN")
	return err
}

func (s *SQLiteStore) Commit() error {
	_, err := s.db.Exec("COMMIT")
	return err
}

func (s *SQLiteStore) Rollback() error {
	_, err := s.db.Exec("ROLLBACK")
	return err
}

func (s *SQLiteStore) tableExists(name string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) GetTable(name string) (Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.tableExists(name)
	if err != nil || !ok {
		return nil, false
	}
	return &SQLiteTable{store: s, name: name}, true
}

func (s *SQLiteStore) GetOrAddTable(name string) (Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (_row_id INTEGER PRIMARY KEY AUTOINCREMENT)`, quoteIdent(name))
	if _, err := s.db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("store: failed to create table %s: %w", name, err)
	}
	return &SQLiteTable{store: s, name: name}, nil
}

func (s *SQLiteStore) RemoveTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name))); err != nil {
		return fmt.Errorf("store: failed to drop table %s: %w", name, err)
	}
	_, err := s.db.Exec(`DELETE FROM ember_columns WHERE table_name = ?`, name)
	return err
}

func (s *SQLiteStore) TableNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name != 'ember_columns'`)
	if err != nil {
		log.Printf("[WARN] store: failed to list tables: %v", err)
		return nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err == nil {
			names = append(names, n)
		}
	}
	return names
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteTable is the Table implementation backing SQLiteStore. Column
// metadata (type, nullability, index, link target) is read from the
// ember_columns sidecar; row addressing maps the Table interface's 0-based
// row index onto _row_id via ORDER BY _row_id, matching the order rows were
// inserted in (this core never deletes rows, only columns, so _row_id stays
// dense from the caller's point of view).
type SQLiteTable struct {
	store *SQLiteStore
	name  string
}

type columnMeta struct {
	name       string
	typ        schemapkg.PropertyType
	nullable   bool
	indexed    bool
	linkTarget string
	isLink     bool
}

func (t *SQLiteTable) columns() []columnMeta {
	rows, err := t.store.db.Query(
		`SELECT column_name, property_type, nullable, indexed, link_target FROM ember_columns WHERE table_name = ? ORDER BY ordinal`,
		t.name)
	if err != nil {
		log.Printf("[WARN] store: failed to read columns for %s: %v", t.name, err)
		return nil
	}
	defer rows.Close()

	var cols []columnMeta
	for rows.Next() {
		var c columnMeta
		var nullable, indexed int
		var linkTarget sql.NullString
		var propType int
		if err := rows.Scan(&c.name, &propType, &nullable, &indexed, &linkTarget); err != nil {
			continue
		}
		c.typ = schemapkg.PropertyType(propType)
		c.nullable = nullable != 0
		c.indexed = indexed != 0
		if linkTarget.Valid {
			c.linkTarget = linkTarget.String
			c.isLink = true
		}
		cols = append(cols, c)
	}
	return cols
}

func (t *SQLiteTable) Name() string { return t.name }

func (t *SQLiteTable) ColumnCount() int { return len(t.columns()) }

func (t *SQLiteTable) ColumnName(i int) string { return t.columns()[i].name }

func (t *SQLiteTable) ColumnType(i int) schemapkg.PropertyType { return t.columns()[i].typ }

func (t *SQLiteTable) ColumnIndex(name string) (int, bool) {
	for i, c := range t.columns() {
		if c.name == name {
			return i, true
		}
	}
	return 0, false
}

func (t *SQLiteTable) HasSearchIndex(i int) bool { return t.columns()[i].indexed }
func (t *SQLiteTable) IsNullable(i int) bool      { return t.columns()[i].nullable }

func (t *SQLiteTable) LinkTarget(i int) (string, bool) {
	c := t.columns()[i]
	return c.linkTarget, c.isLink
}

func (t *SQLiteTable) recordColumnMeta(c columnMeta, ordinal int) error {
	linkTarget := sql.NullString{}
	if c.isLink {
		linkTarget = sql.NullString{String: c.linkTarget, Valid: true}
	}
	_, err := t.store.db.Exec(
		`INSERT OR REPLACE INTO ember_columns (table_name, column_name, property_type, nullable, indexed, link_target, ordinal)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.name, c.name, int(c.typ), boolInt(c.nullable), boolInt(c.indexed), linkTarget, ordinal)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqlTypeFor(t schemapkg.PropertyType) string {
	switch t {
	case schemapkg.Int, schemapkg.Bool, schemapkg.Date, schemapkg.Object:
		return "INTEGER"
	case schemapkg.Float:
		return "REAL"
	case schemapkg.Double:
		return "REAL"
	case schemapkg.String:
		return "TEXT"
	case schemapkg.Data:
		return "BLOB"
	default:
		return "BLOB" // Any; link kinds are added by InsertColumnLink as INTEGER
	}
}

// InsertColumn adds a scalar column at logical position i. SQLite can only
// append columns; i is preserved purely in the ember_columns ordinal so the
// schema core's notion of column order is independent of SQLite's physical
// layout.
func (t *SQLiteTable) InsertColumn(i int, typ schemapkg.PropertyType, name string, nullable bool) error {
	ddl := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, quoteIdent(t.name), quoteIdent(name), sqlTypeFor(typ))
	if _, err := t.store.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: failed to add column %s.%s: %w", t.name, name, err)
	}
	if err := t.shiftOrdinalsFrom(i); err != nil {
		return err
	}
	return t.recordColumnMeta(columnMeta{name: name, typ: typ, nullable: nullable}, i)
}

// InsertColumnLink inserts a link column (Object or Array) at position i,
// creating the target table if it does not yet exist.
func (t *SQLiteTable) InsertColumnLink(i int, typ schemapkg.PropertyType, name string, targetTable string) error {
	if _, err := t.store.GetOrAddTable(targetTable); err != nil {
		return err
	}
	ddl := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s INTEGER`, quoteIdent(t.name), quoteIdent(name))
	if _, err := t.store.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: failed to add link column %s.%s: %w", t.name, name, err)
	}
	if err := t.shiftOrdinalsFrom(i); err != nil {
		return err
	}
	return t.recordColumnMeta(columnMeta{name: name, typ: typ, nullable: typ == schemapkg.Object, isLink: true, linkTarget: targetTable}, i)
}

func (t *SQLiteTable) shiftOrdinalsFrom(i int) error {
	_, err := t.store.db.Exec(`UPDATE ember_columns SET ordinal = ordinal + 1 WHERE table_name = ? AND ordinal >= ?`, t.name, i)
	return err
}

// RemoveColumn drops the column at position i. Requires SQLite 3.35+ (the
// version go-sqlite3 vendors), which supports ALTER TABLE DROP COLUMN.
func (t *SQLiteTable) RemoveColumn(i int) error {
	cols := t.columns()
	if i < 0 || i >= len(cols) {
		return fmt.Errorf("store: column index %d out of range for %s", i, t.name)
	}
	name := cols[i].name
	ddl := fmt.Sprintf(`ALTER TABLE %s DROP COLUMN %s`, quoteIdent(t.name), quoteIdent(name))
	if _, err := t.store.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: failed to drop column %s.%s: %w", t.name, name, err)
	}
	if _, err := t.store.db.Exec(`DELETE FROM ember_columns WHERE table_name = ? AND column_name = ?`, t.name, name); err != nil {
		return err
	}
	_, err := t.store.db.Exec(`UPDATE ember_columns SET ordinal = ordinal - 1 WHERE table_name = ? AND ordinal > ?`, t.name, i)
	return err
}

func (t *SQLiteTable) RenameColumn(i int, newName string) error {
	cols := t.columns()
	old := cols[i].name
	ddl := fmt.Sprintf(`ALTER TABLE %s RENAME COLUMN %s TO %s`, quoteIdent(t.name), quoteIdent(old), quoteIdent(newName))
	if _, err := t.store.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: failed to rename column %s.%s: %w", t.name, old, err)
	}
	_, err := t.store.db.Exec(`UPDATE ember_columns SET column_name = ? WHERE table_name = ? AND column_name = ?`, newName, t.name, old)
	return err
}

func (t *SQLiteTable) AddSearchIndex(i int) error {
	cols := t.columns()
	col := cols[i]
	if !isIndexableKind(col.typ) {
		return fmt.Errorf("store: indexing properties of type %s is not supported", col.typ)
	}
	indexName := fmt.Sprintf("idx_%s_%s", t.name, col.name)
	ddl := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (%s)`, quoteIdent(indexName), quoteIdent(t.name), quoteIdent(col.name))
	if _, err := t.store.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: failed to index %s.%s: %w", t.name, col.name, err)
	}
	_, err := t.store.db.Exec(`UPDATE ember_columns SET indexed = 1 WHERE table_name = ? AND column_name = ?`, t.name, col.name)
	return err
}

func (t *SQLiteTable) RemoveSearchIndex(i int) error {
	col := t.columns()[i]
	indexName := fmt.Sprintf("idx_%s_%s", t.name, col.name)
	if _, err := t.store.db.Exec(fmt.Sprintf(`DROP INDEX IF EXISTS %s`, quoteIdent(indexName))); err != nil {
		return fmt.Errorf("store: failed to drop index on %s.%s: %w", t.name, col.name, err)
	}
	_, err := t.store.db.Exec(`UPDATE ember_columns SET indexed = 0 WHERE table_name = ? AND column_name = ?`, t.name, col.name)
	return err
}

func (t *SQLiteTable) Size() int {
	var n int
	_ = t.store.db.QueryRow(fmt.Sprintf(`SELECT count(*) FROM %s`, quoteIdent(t.name))).Scan(&n)
	return n
}

func (t *SQLiteTable) IsEmpty() bool { return t.Size() == 0 }

func (t *SQLiteTable) AddEmptyRow() (int, error) {
	res, err := t.store.db.Exec(fmt.Sprintf(`INSERT INTO %s DEFAULT VALUES`, quoteIdent(t.name)))
	if err != nil {
		return 0, fmt.Errorf("store: failed to add row to %s: %w", t.name, err)
	}
	_ = res
	return t.Size() - 1, nil
}

func (t *SQLiteTable) rowID(row int) int64 {
	var id int64
	_ = t.store.db.QueryRow(fmt.Sprintf(`SELECT _row_id FROM %s ORDER BY _row_id LIMIT 1 OFFSET ?`, quoteIdent(t.name)), row).Scan(&id)
	return id
}

func (t *SQLiteTable) getCell(col, row int, dest interface{}) {
	name := t.columns()[col].name
	id := t.rowID(row)
	_ = t.store.db.QueryRow(fmt.Sprintf(`SELECT %s FROM %s WHERE _row_id = ?`, quoteIdent(name), quoteIdent(t.name)), id).Scan(dest)
}

func (t *SQLiteTable) setCell(col, row int, value interface{}) {
	name := t.columns()[col].name
	id := t.rowID(row)
	_, _ = t.store.db.Exec(fmt.Sprintf(`UPDATE %s SET %s = ? WHERE _row_id = ?`, quoteIdent(t.name), quoteIdent(name)), value, id)
}

func (t *SQLiteTable) GetInt(col, row int) int64 {
	var v sql.NullInt64
	t.getCell(col, row, &v)
	return v.Int64
}
func (t *SQLiteTable) SetInt(col, row int, v int64) { t.setCell(col, row, v) }

func (t *SQLiteTable) GetBool(col, row int) bool {
	var v sql.NullInt64
	t.getCell(col, row, &v)
	return v.Int64 != 0
}
func (t *SQLiteTable) SetBool(col, row int, v bool) { t.setCell(col, row, boolInt(v)) }

func (t *SQLiteTable) GetFloat(col, row int) float32 {
	var v sql.NullFloat64
	t.getCell(col, row, &v)
	return float32(v.Float64)
}
func (t *SQLiteTable) SetFloat(col, row int, v float32) { t.setCell(col, row, float64(v)) }

func (t *SQLiteTable) GetDouble(col, row int) float64 {
	var v sql.NullFloat64
	t.getCell(col, row, &v)
	return v.Float64
}
func (t *SQLiteTable) SetDouble(col, row int, v float64) { t.setCell(col, row, v) }

func (t *SQLiteTable) GetString(col, row int) string {
	var v sql.NullString
	t.getCell(col, row, &v)
	return v.String
}
func (t *SQLiteTable) SetString(col, row int, v string) { t.setCell(col, row, v) }

func (t *SQLiteTable) GetData(col, row int) []byte {
	var v []byte
	t.getCell(col, row, &v)
	return v
}
func (t *SQLiteTable) SetData(col, row int, v []byte) { t.setCell(col, row, v) }

func (t *SQLiteTable) GetDate(col, row int) time.Time {
	var v sql.NullInt64
	t.getCell(col, row, &v)
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(0, v.Int64)
}
func (t *SQLiteTable) SetDate(col, row int, v time.Time) { t.setCell(col, row, v.UnixNano()) }

func (t *SQLiteTable) GetAny(col, row int) interface{} {
	var v interface{}
	t.getCell(col, row, &v)
	return v
}
func (t *SQLiteTable) SetAny(col, row int, v interface{}) { t.setCell(col, row, v) }

func (t *SQLiteTable) DistinctCount(col int) (int, error) {
	name := t.columns()[col].name
	var n int
	err := t.store.db.QueryRow(fmt.Sprintf(`SELECT count(DISTINCT %s) FROM %s`, quoteIdent(name), quoteIdent(t.name))).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: distinct count failed for %s.%s: %w", t.name, name, err)
	}
	return n, nil
}

func isIndexableKind(t schemapkg.PropertyType) bool {
	switch t {
	case schemapkg.Int, schemapkg.Bool, schemapkg.String, schemapkg.Date:
		return true
	default:
		return false
	}
}
