package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/marcboeker/go-duckdb/v2"
)

const FindingsSchema = `
	CREATE TABLE IF NOT EXISTS findings (
		id VARCHAR NOT NULL PRIMARY KEY,
		unit_id VARCHAR NOT NULL,
		rule_id VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		month VARCHAR NOT NULL,
		delta VARCHAR,
		evidence JSON,
		narrative VARCHAR,
		evidence_incomplete BOOLEAN DEFAULT FALSE,
		status VARCHAR NOT NULL,
		notes VARCHAR,
		created_at TIMESTAMP
	);
`

const OverridesSchema = `
	CREATE TABLE IF NOT EXISTS override_records (
		finding_id VARCHAR NOT NULL,
		from_status VARCHAR NOT NULL,
		to_status VARCHAR NOT NULL,
		actor VARCHAR,
		recorded_at TIMESTAMP NOT NULL,
		notes VARCHAR
	);
`

var bootQueries = []string{
	FindingsSchema,
	OverridesSchema,
}

type Settings struct {
	DbPath string
}

func NewDB(settings Settings) (*sql.DB, error) {
	c, err := duckdb.NewConnector(fmt.Sprintf("%s?threads=4", settings.DbPath), func(exec driver.ExecerContext) error {
		for _, query := range bootQueries {
			_, err := exec.ExecContext(context.Background(), query, nil)
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(c)
	return db, nil
}
