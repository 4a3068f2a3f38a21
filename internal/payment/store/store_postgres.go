package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/payment/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// PostgresStore persists payments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed payment store bound to a transaction.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const paymentColumns = `id, instance_id, tpp_id, payment_product, payment_type, status, psu_data_list,
	multilevel_sca_required, tpp_ok_redirect_uri, tpp_nok_redirect_uri, payload,
	status_changed_at, created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	psus, payload, err := jsonColumns(payment)
	if err != nil {
		return err
	}
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, 1)
		ON CONFLICT (id) DO NOTHING`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(payment.ID), string(payment.InstanceID), payment.TppID, payment.PaymentProduct,
		string(payment.PaymentType), string(payment.Status), psus, payment.MultilevelScaRequired,
		payment.TppOKRedirectURI, payment.TppNOKRedirectURI, payload,
		payment.StatusChangedAt, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	payment.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, instanceID id.InstanceID, paymentID id.PaymentID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND instance_id = $2`
	payment, err := scanPayment(s.execer().QueryRowContext(ctx, query, uuid.UUID(paymentID), string(instanceID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return payment, nil
}

// Save writes payment if the stored version still equals payment.Version.
func (s *PostgresStore) Save(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	psus, payload, err := jsonColumns(payment)
	if err != nil {
		return err
	}
	query := `UPDATE payments SET
			status = $3, psu_data_list = $4, multilevel_sca_required = $5, payload = $6,
			status_changed_at = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND instance_id = $2 AND version = $9`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(payment.ID), string(payment.InstanceID),
		string(payment.Status), psus, payment.MultilevelScaRequired, payload,
		payment.StatusChangedAt, payment.UpdatedAt, payment.Version,
	)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment rows: %w", err)
	}
	if n == 0 {
		if _, findErr := s.FindByID(ctx, payment.InstanceID, payment.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrConflict
	}
	payment.Version++
	return nil
}

// ListByPsu matches on the identifying PSU fields through JSONB containment.
func (s *PostgresStore) ListByPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Payment, error) {
	filter := map[string]string{}
	if psu.PsuID != "" {
		filter["psuId"] = psu.PsuID
	}
	if psu.PsuCorporateID != "" {
		filter["psuCorporateId"] = psu.PsuCorporateID
	}
	raw, err := json.Marshal([]map[string]string{filter})
	if err != nil {
		return nil, fmt.Errorf("marshal psu filter: %w", err)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE instance_id = $1 AND psu_data_list @> $2::jsonb
		ORDER BY created_at`
	payments, err := s.list(ctx, query, string(instanceID), raw)
	if err != nil {
		return nil, err
	}
	out := payments[:0]
	for _, p := range payments {
		if p.HasPsu(psu) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PostgresStore) ListExpirable(ctx context.Context, notConfirmedBefore time.Time, limit int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status IN ('RCVD', 'PATC') AND created_at < $1
		ORDER BY created_at
		LIMIT $2`
	return s.list(ctx, query, notConfirmedBefore, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Payment, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func jsonColumns(p *models.Payment) (psus, payload []byte, err error) {
	list := p.PsuDataList
	if list == nil {
		list = []scamodels.PsuIdData{}
	}
	if psus, err = json.Marshal(list); err != nil {
		return nil, nil, fmt.Errorf("marshal psu data list: %w", err)
	}
	if len(p.Payload) > 0 {
		payload = p.Payload
	}
	return psus, payload, nil
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	var (
		paymentID               uuid.UUID
		instanceID, paymentType string
		status                  string
		psuDataList, payload    []byte
		payment                 models.Payment
	)
	err := row.Scan(&paymentID, &instanceID, &payment.TppID, &payment.PaymentProduct, &paymentType, &status,
		&psuDataList, &payment.MultilevelScaRequired, &payment.TppOKRedirectURI, &payment.TppNOKRedirectURI,
		&payload, &payment.StatusChangedAt, &payment.CreatedAt, &payment.UpdatedAt, &payment.Version)
	if err != nil {
		return nil, err
	}

	payment.ID = id.PaymentID(paymentID)
	payment.InstanceID = id.InstanceID(instanceID)
	payment.PaymentType = models.PaymentType(paymentType)
	payment.Status = models.TransactionStatus(status)
	if len(psuDataList) > 0 {
		if err := json.Unmarshal(psuDataList, &payment.PsuDataList); err != nil {
			return nil, fmt.Errorf("unmarshal psu data list: %w", err)
		}
	}
	if len(payload) > 0 {
		payment.Payload = json.RawMessage(payload)
	}
	return &payment, nil
}
