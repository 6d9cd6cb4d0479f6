package migration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type countrySeed struct {
	ISO2   string
	ISO3   string
	Name   string
	Region string
}

// Southern African Customs Union members, present before any reference load.
var sacuCountries = []countrySeed{
	{ISO2: "ZA", ISO3: "ZAF", Name: "South Africa", Region: "SACU"},
	{ISO2: "BW", ISO3: "BWA", Name: "Botswana", Region: "SACU"},
	{ISO2: "LS", ISO3: "LSO", Name: "Lesotho", Region: "SACU"},
	{ISO2: "NA", ISO3: "NAM", Name: "Namibia", Region: "SACU"},
	{ISO2: "SZ", ISO3: "SWZ", Name: "Eswatini", Region: "SACU"},
}

func seedSystemImmutableData(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("system seed requires database handle")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin system seed transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := seedCountries(ctx, tx, sacuCountries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit system seed transaction: %w", err)
	}
	return nil
}

func seedCountries(ctx context.Context, tx *sql.Tx, seeds []countrySeed) error {
	const stmt = `
		INSERT INTO countries (iso2, iso3, name, region)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (iso2) DO UPDATE
		SET iso3 = EXCLUDED.iso3,
		    name = EXCLUDED.name,
		    region = EXCLUDED.region
	`

	for _, seed := range seeds {
		if _, err := tx.ExecContext(ctx, stmt, seed.ISO2, seed.ISO3, seed.Name, seed.Region); err != nil {
			return fmt.Errorf("seed country %s: %w", seed.ISO2, err)
		}
	}
	return nil
}
