package main

import (
	"context"
	"database/sql"
	"time"

	paymentservice "xs2acms/internal/payment/service"
	paymentstore "xs2acms/internal/payment/store"
	scastore "xs2acms/internal/sca/store"
)

// paymentPostgresTx runs a payment unit of work in one database transaction.
type paymentPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newPaymentPostgresTx(db *sql.DB) *paymentPostgresTx {
	return &paymentPostgresTx{db: db}
}

func (t *paymentPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context, stores paymentservice.Stores) error) error {
	return runPostgresTx(ctx, t.db, t.timeout, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, paymentservice.Stores{
			Payments:       paymentstore.NewPostgresTx(tx),
			Authorisations: scastore.NewPostgresTx(tx),
		})
	})
}
