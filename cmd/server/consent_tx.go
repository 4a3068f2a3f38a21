package main

import (
	"context"
	"database/sql"
	"time"

	consentservice "xs2acms/internal/consent/service"
	consentstore "xs2acms/internal/consent/store"
	scastore "xs2acms/internal/sca/store"
	dErrors "xs2acms/pkg/domain-errors"
)

const defaultPostgresTxTimeout = 5 * time.Second

// consentPostgresTx runs a consent unit of work in one database transaction
// covering both the consent and its authorisations.
type consentPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newConsentPostgresTx(db *sql.DB) *consentPostgresTx {
	return &consentPostgresTx{db: db}
}

func (t *consentPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores consentservice.Stores) error) error {
	return runPostgresTx(ctx, t.db, t.timeout, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, consentservice.Stores{
			Consents:       consentstore.NewPostgresTx(tx),
			Authorisations: scastore.NewPostgresTx(tx),
		})
	})
}

// runPostgresTx commits when fn succeeds and rolls back otherwise.
func runPostgresTx(ctx context.Context, db *sql.DB, timeout time.Duration, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if timeout == 0 {
		timeout = defaultPostgresTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return nil
}
