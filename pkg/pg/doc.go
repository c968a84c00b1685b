// Package pg connects to PostgreSQL through a pgx connection pool, applies
// goose migrations from an embedded filesystem and classifies driver errors
// (not found, unique violation) for the storage implementations.
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	if err := pg.Migrate(ctx, pool, cfg, migrations.FS, log); err != nil {
//	    return err
//	}
package pg
