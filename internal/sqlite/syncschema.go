package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"github.com/myrjola/caselink/internal/errors"
	"github.com/myrjola/caselink/internal/random"
	"log/slog"
	"strings"
)

// schemaObject is a table or index as recorded in sqlite_schema.
type schemaObject struct {
	Name string
	SQL  string
}

// migrateTo synchronizes the database schema with schemaDefinition.
//
// The migration is declarative: the target schema is created in a temporary database, then compared with the
// current one. Deleted tables are dropped, new tables are created and changed tables are rebuilt with the
// 12-step procedure https://www.sqlite.org/lang_altertable.html#otheralter. Indexes are synchronized afterwards.
//
// Inspired by https://david.rothlis.net/declarative-schema-migration-for-sqlite/
func (db *Database) migrateTo(ctx context.Context, schemaDefinition string) error {
	targetName, err := random.Letters(20) //nolint:mnd // 20 letters is unique enough
	if err != nil {
		return errors.Wrap(err, "generate random ID")
	}
	targetDSN := fmt.Sprintf("file:%s?mode=memory&cache=shared", targetName)
	target, err := sql.Open("sqlite3", targetDSN)
	if err != nil {
		return errors.Wrap(err, "open schema target database")
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to close schema target database",
				errors.SlogError(closeErr))
		}
	}()
	// The shared in-memory database lives as long as a connection to it stays open.
	target.SetMaxIdleConns(1)
	if _, err = target.ExecContext(ctx, schemaDefinition); err != nil {
		return errors.Wrap(err, "create schema target database")
	}

	// ATTACH and PRAGMA foreign_keys are per connection, so the whole migration runs on one.
	conn, err := db.ReadWrite.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "get connection")
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to release connection", errors.SlogError(closeErr))
		}
	}()

	if _, err = conn.ExecContext(ctx, "ATTACH DATABASE ? AS schemaTarget", targetDSN); err != nil {
		return errors.Wrap(err, "attach schema target database")
	}
	defer func() {
		if _, detachErr := conn.ExecContext(ctx, "DETACH DATABASE schemaTarget"); detachErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to detach schema target database",
				errors.SlogError(detachErr))
		}
	}()

	// Step 1: Disable foreign key validation temporarily. It cannot be changed inside a transaction.
	if _, err = conn.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		return errors.Wrap(err, "disable foreign key validation")
	}
	defer func() {
		// Step 12: Re-enable foreign key validation.
		if _, fkErr := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); fkErr != nil {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to re-enable foreign keys",
				errors.SlogError(errors.Wrap(fkErr, "re-enable foreign key validation")))
		}
	}()

	// Step 2: Start transaction.
	var tx *sql.Tx
	if tx, err = conn.BeginTx(ctx, nil); err != nil {
		return errors.Wrap(err, "start transaction")
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			db.logger.LogAttrs(ctx, slog.LevelError, "failed to rollback transaction", errors.SlogError(rbErr))
		}
	}()

	// Steps 3-7.
	if err = db.migrateTables(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate tables")
	}

	// Step 8: Recreate indexes.
	if err = db.migrateIndexes(ctx, tx); err != nil {
		return errors.Wrap(err, "migrate indexes")
	}

	// Step 10: Check foreign key constraints.
	var violations []string
	if violations, err = queryStrings(ctx, tx, `SELECT "table" FROM pragma_foreign_key_check`); err != nil {
		return errors.Wrap(err, "foreign key check")
	}
	if len(violations) > 0 {
		return errors.New("foreign key violations after migration",
			slog.String("tables", strings.Join(violations, ", ")))
	}

	// Step 11: Commit transaction from step 2.
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit transaction")
	}
	return nil
}

func (db *Database) migrateTables(ctx context.Context, tx *sql.Tx) error {
	current, err := querySchemaObjects(ctx, tx, "main", "table")
	if err != nil {
		return errors.Wrap(err, "query current tables")
	}
	wanted, err := querySchemaObjects(ctx, tx, "schemaTarget", "table")
	if err != nil {
		return errors.Wrap(err, "query target tables")
	}

	for name := range current.objects {
		if _, ok := wanted.objects[name]; ok {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping table", slog.String("table", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE "%s"`, name)); err != nil {
			return errors.Wrap(err, "drop table", slog.String("table", name))
		}
	}

	// Iterate in schema order so that referenced tables are created first.
	for _, name := range wanted.order {
		table := wanted.objects[name]
		existing, ok := current.objects[name]
		switch {
		case !ok:
			db.logger.LogAttrs(ctx, slog.LevelInfo, "creating table", slog.String("query", table.SQL))
			if _, err = tx.ExecContext(ctx, table.SQL); err != nil {
				return errors.Wrap(err, "create table", slog.String("table", name))
			}
		case normalizeSQL(existing) != normalizeSQL(table):
			if err = db.rebuildTable(ctx, tx, table); err != nil {
				return errors.Wrap(err, "rebuild table", slog.String("table", name))
			}
		}
	}
	return nil
}

// rebuildTable runs steps 4-7: create the new table under a temporary name, copy the common columns, drop the old
// table and rename the new one.
func (db *Database) rebuildTable(ctx context.Context, tx *sql.Tx, table schemaObject) error {
	db.logger.LogAttrs(ctx, slog.LevelInfo, "migrating table", slog.String("table", table.Name),
		slog.String("new_sql", table.SQL))

	tempName := table.Name + "_migration_temp"
	tempSQL := strings.Replace(table.SQL, table.Name, tempName, 1)
	if _, err := tx.ExecContext(ctx, tempSQL); err != nil {
		return errors.Wrap(err, "create temporary table", slog.String("query", tempSQL))
	}

	// Column names are quoted in case they are SQLite keywords.
	columns, err := queryStrings(ctx, tx, `SELECT '"' || target.name || '"'
FROM pragma_table_info(:table_name) AS current
JOIN pragma_table_info(:table_name, 'schemaTarget') AS target ON target.name = current.name`,
		sql.Named("table_name", table.Name))
	if err != nil {
		return errors.Wrap(err, "query common columns")
	}
	if len(columns) > 0 {
		common := strings.Join(columns, ", ")
		copySQL := fmt.Sprintf(`INSERT INTO "%s" (%s) SELECT %s FROM "%s"`, tempName, common, common, table.Name)
		if _, err = tx.ExecContext(ctx, copySQL); err != nil {
			return errors.Wrap(err, "copy data", slog.String("query", copySQL))
		}
	}

	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP TABLE "%s"`, table.Name)); err != nil {
		return errors.Wrap(err, "drop old table")
	}
	if _, err = tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE "%s" RENAME TO "%s"`, tempName, table.Name)); err != nil {
		return errors.Wrap(err, "rename new table")
	}
	return nil
}

// migrateIndexes drops indexes missing from the target schema and (re)creates new and changed ones.
// Indexes of rebuilt tables are gone at this point and get recreated too.
func (db *Database) migrateIndexes(ctx context.Context, tx *sql.Tx) error {
	current, err := querySchemaObjects(ctx, tx, "main", "index")
	if err != nil {
		return errors.Wrap(err, "query current indexes")
	}
	wanted, err := querySchemaObjects(ctx, tx, "schemaTarget", "index")
	if err != nil {
		return errors.Wrap(err, "query target indexes")
	}
	for name, index := range current.objects {
		if want, ok := wanted.objects[name]; ok && normalizeSQL(want) == normalizeSQL(index) {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "dropping index", slog.String("index", name))
		if _, err = tx.ExecContext(ctx, fmt.Sprintf(`DROP INDEX "%s"`, name)); err != nil {
			return errors.Wrap(err, "drop index", slog.String("index", name))
		}
	}
	for _, name := range wanted.order {
		index := wanted.objects[name]
		if existing, ok := current.objects[name]; ok && normalizeSQL(existing) == normalizeSQL(index) {
			continue
		}
		db.logger.LogAttrs(ctx, slog.LevelInfo, "creating index", slog.String("query", index.SQL))
		if _, err = tx.ExecContext(ctx, index.SQL); err != nil {
			return errors.Wrap(err, "create index", slog.String("index", name))
		}
	}
	return nil
}

// normalizeSQL unquotes the object name because ALTER TABLE RENAME stores it quoted.
func normalizeSQL(obj schemaObject) string {
	return strings.Replace(obj.SQL, `"`+obj.Name+`"`, obj.Name, 1)
}

type schemaObjects struct {
	objects map[string]schemaObject
	order   []string
}

// querySchemaObjects lists user-defined objects of the given type. Automatic indexes have no SQL and are skipped.
func querySchemaObjects(ctx context.Context, tx *sql.Tx, database, objectType string) (schemaObjects, error) {
	result := schemaObjects{objects: map[string]schemaObject{}, order: nil}
	query := fmt.Sprintf(`SELECT name, sql FROM %s.sqlite_schema
WHERE type = ? AND sql IS NOT NULL AND name NOT LIKE 'sqlite_%%'
ORDER BY rowid`, database)
	rows, err := tx.QueryContext(ctx, query, objectType)
	if err != nil {
		return result, errors.Wrap(err, "query schema", slog.String("database", database))
	}
	defer rows.Close()
	for rows.Next() {
		var obj schemaObject
		if err = rows.Scan(&obj.Name, &obj.SQL); err != nil {
			return result, errors.Wrap(err, "scan schema object")
		}
		result.objects[obj.Name] = obj
		result.order = append(result.order, obj.Name)
	}
	if err = rows.Err(); err != nil {
		return result, errors.Wrap(err, "rows error")
	}
	return result, nil
}

// queryStrings returns the single string column of query.
func queryStrings(ctx context.Context, tx *sql.Tx, query string, args ...any) ([]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()
	var results []string
	for rows.Next() {
		var result string
		if err = rows.Scan(&result); err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		results = append(results, result)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows error")
	}
	return results, nil
}
