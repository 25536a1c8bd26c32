package report

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/thalesfsp/hotrack/model"
)

// WriteCSV writes one row per example and one column per parameter.
func WriteCSV(w io.Writer, data *model.Data) error {
	names := paramNames(data)
	cw := csv.NewWriter(w)
	header := append([]string{"run_id", "timestamp", "alg", "gain", "loss"}, names...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range data.Examples {
		row := []string{
			e.RunID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Alg,
			formatFloatPtr(e.Gain),
			formatFloatPtr(e.Loss),
		}
		for _, name := range names {
			row = append(row, formatValue(e.Values[name]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// createTablesQuery creates the export schema. Examples keep their values
// both as a JSON object and as rows of example_values.
const createTablesQuery = `
CREATE TABLE IF NOT EXISTS params(
	name TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	args TEXT NOT NULL,
	choices TEXT NOT NULL,
	guess TEXT
);
CREATE TABLE IF NOT EXISTS examples(
	run_id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	alg TEXT NOT NULL,
	gain REAL,
	loss REAL,
	objective REAL,
	value_json TEXT NOT NULL,
	memo_json TEXT
);
CREATE TABLE IF NOT EXISTS example_values(
	run_id TEXT NOT NULL,
	name TEXT NOT NULL,
	value TEXT,
	PRIMARY KEY (run_id, name)
);
`

const insertParamQuery = `
INSERT OR REPLACE INTO params VALUES(?, ?, ?, ?, ?)
`

const insertExampleQuery = `
INSERT OR REPLACE INTO examples VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`

const insertValueQuery = `
INSERT OR REPLACE INTO example_values VALUES(?, ?, ?)
`

// ExportSQLite writes data into the SQLite database at path, creating it
// when needed. Rows already exported are replaced.
func ExportSQLite(ctx context.Context, path string, data *model.Data) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTablesQuery); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := exportRows(ctx, tx, data); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// exportRows inserts params and examples within tx.
func exportRows(ctx context.Context, tx *sql.Tx, data *model.Data) error {
	for _, name := range slices.Sorted(maps.Keys(data.Params)) {
		spec := data.Params[name]
		args, err := marshalText(spec.Args)
		if err != nil {
			return err
		}
		choices, err := marshalText(spec.Choices)
		if err != nil {
			return err
		}
		var guess sql.NullString
		if spec.Guess != nil {
			text, err := marshalText(spec.Guess)
			if err != nil {
				return err
			}
			guess = sql.NullString{String: text, Valid: true}
		}
		if _, err := tx.ExecContext(ctx, insertParamQuery, name, string(spec.Kind), args, choices, guess); err != nil {
			return err
		}
	}

	for _, e := range data.Examples {
		values, err := marshalText(e.Values)
		if err != nil {
			return err
		}
		var memo sql.NullString
		if e.Memo != nil {
			text, err := marshalText(e.Memo)
			if err != nil {
				return err
			}
			memo = sql.NullString{String: text, Valid: true}
		}
		var objective sql.NullFloat64
		if obj, ok := e.Objective(); ok {
			objective = sql.NullFloat64{Float64: obj, Valid: true}
		}
		_, err = tx.ExecContext(ctx, insertExampleQuery,
			e.RunID,
			e.Timestamp.UTC().Format(time.RFC3339Nano),
			e.Alg,
			nullFloat(e.Gain),
			nullFloat(e.Loss),
			objective,
			values,
			memo,
		)
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(e.Values)) {
			if _, err := tx.ExecContext(ctx, insertValueQuery, e.RunID, name, formatValue(e.Values[name])); err != nil {
				return err
			}
		}
	}
	return nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func marshalText(v any) (string, error) {
	if v == nil {
		return "null", nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
