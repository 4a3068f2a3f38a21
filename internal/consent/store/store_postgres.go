package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/consent/models"
	scamodels "xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// PostgresStore persists consents in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed consent store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a PostgreSQL-backed consent store bound to a transaction.
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

const consentColumns = `id, instance_id, tpp_id, consent_type, status, psu_data_list, tpp_access,
	aspsp_access, valid_until, frequency_per_day, recurring_indicator, combined_service_indicator,
	multilevel_sca_required, tpp_ok_redirect_uri, tpp_nok_redirect_uri, payload, checksum,
	activated_at, status_changed_at, last_action_date, created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	row, err := toRow(consent)
	if err != nil {
		return err
	}
	query := `INSERT INTO consents (` + consentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, 1)
		ON CONFLICT (id) DO NOTHING`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(consent.ID), string(consent.InstanceID), consent.TppID, string(consent.ConsentType),
		string(consent.Status), row.psuDataList, row.tppAccess, row.aspspAccess, consent.ValidUntil,
		consent.FrequencyPerDay, consent.RecurringIndicator, consent.CombinedServiceIndicator,
		consent.MultilevelScaRequired, consent.TppOKRedirectURI, consent.TppNOKRedirectURI, row.payload,
		consent.Checksum, consent.ActivatedAt, consent.StatusChangedAt, consent.LastActionDate,
		consent.CreatedAt, consent.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert consent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	consent.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, instanceID id.InstanceID, consentID id.ConsentID) (*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents WHERE id = $1 AND instance_id = $2`
	consent, err := scanConsent(s.execer().QueryRowContext(ctx, query, uuid.UUID(consentID), string(instanceID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find consent: %w", err)
	}
	return consent, nil
}

// Save writes consent if the stored version still equals consent.Version.
func (s *PostgresStore) Save(ctx context.Context, consent *models.Consent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	row, err := toRow(consent)
	if err != nil {
		return err
	}
	query := `UPDATE consents SET
			status = $3, psu_data_list = $4, tpp_access = $5, aspsp_access = $6, valid_until = $7,
			frequency_per_day = $8, recurring_indicator = $9, combined_service_indicator = $10,
			multilevel_sca_required = $11, payload = $12, checksum = $13, activated_at = $14,
			status_changed_at = $15, last_action_date = $16, updated_at = $17, version = version + 1
		WHERE id = $1 AND instance_id = $2 AND version = $18`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(consent.ID), string(consent.InstanceID),
		string(consent.Status), row.psuDataList, row.tppAccess, row.aspspAccess, consent.ValidUntil,
		consent.FrequencyPerDay, consent.RecurringIndicator, consent.CombinedServiceIndicator,
		consent.MultilevelScaRequired, row.payload, consent.Checksum, consent.ActivatedAt,
		consent.StatusChangedAt, consent.LastActionDate, consent.UpdatedAt,
		consent.Version,
	)
	if err != nil {
		return fmt.Errorf("update consent: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update consent rows: %w", err)
	}
	if n == 0 {
		if _, findErr := s.FindByID(ctx, consent.InstanceID, consent.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrConflict
	}
	consent.Version++
	return nil
}

func (s *PostgresStore) ListByTpp(ctx context.Context, instanceID id.InstanceID, tppID string) ([]*models.Consent, error) {
	query := `SELECT ` + consentColumns + ` FROM consents
		WHERE instance_id = $1 AND tpp_id = $2
		ORDER BY created_at`
	return s.list(ctx, query, string(instanceID), tppID)
}

// ListByPsu matches on the identifying PSU fields through JSONB containment.
func (s *PostgresStore) ListByPsu(ctx context.Context, instanceID id.InstanceID, psu scamodels.PsuIdData) ([]*models.Consent, error) {
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
	query := `SELECT ` + consentColumns + ` FROM consents
		WHERE instance_id = $1 AND psu_data_list @> $2::jsonb
		ORDER BY created_at`
	consents, err := s.list(ctx, query, string(instanceID), raw)
	if err != nil {
		return nil, err
	}
	// containment also matches entries carrying extra identifiers; keep exact PSU matches only
	out := consents[:0]
	for _, c := range consents {
		if c.HasPsu(psu) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *PostgresStore) ListExpirable(ctx context.Context, now, notConfirmedBefore time.Time, limit int) ([]*models.Consent, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var cutoff sql.NullTime
	if !notConfirmedBefore.IsZero() {
		cutoff = sql.NullTime{Time: notConfirmedBefore, Valid: true}
	}
	query := `SELECT ` + consentColumns + ` FROM consents
		WHERE status IN ('RECEIVED', 'VALID', 'PARTIALLY_AUTHORISED')
		  AND (valid_until < $1::date OR (status = 'RECEIVED' AND $2::timestamptz IS NOT NULL AND created_at < $2))
		ORDER BY created_at
		LIMIT $3`
	return s.list(ctx, query, now.UTC(), cutoff, limit)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Consent, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var consents []*models.Consent
	for rows.Next() {
		consent, err := scanConsent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		consents = append(consents, consent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate consents: %w", err)
	}
	return consents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type jsonColumns struct {
	psuDataList []byte
	tppAccess   []byte
	aspspAccess []byte
	payload     []byte
}

func toRow(c *models.Consent) (*jsonColumns, error) {
	var row jsonColumns
	var err error
	psus := c.PsuDataList
	if psus == nil {
		psus = []scamodels.PsuIdData{}
	}
	if row.psuDataList, err = json.Marshal(psus); err != nil {
		return nil, fmt.Errorf("marshal psu data list: %w", err)
	}
	if row.tppAccess, err = json.Marshal(c.TppAccess); err != nil {
		return nil, fmt.Errorf("marshal tpp access: %w", err)
	}
	if c.AspspAccess != nil {
		if row.aspspAccess, err = json.Marshal(c.AspspAccess); err != nil {
			return nil, fmt.Errorf("marshal aspsp access: %w", err)
		}
	}
	if len(c.Payload) > 0 {
		row.payload = c.Payload
	}
	return &row, nil
}

func scanConsent(row rowScanner) (*models.Consent, error) {
	var (
		consentID                   uuid.UUID
		instanceID, consentType     string
		status                      string
		psuDataList, tppAccess      []byte
		aspspAccess, payload        []byte
		activatedAt, lastActionDate sql.NullTime
		consent                     models.Consent
	)
	err := row.Scan(&consentID, &instanceID, &consent.TppID, &consentType, &status, &psuDataList, &tppAccess,
		&aspspAccess, &consent.ValidUntil, &consent.FrequencyPerDay, &consent.RecurringIndicator, &consent.CombinedServiceIndicator,
		&consent.MultilevelScaRequired, &consent.TppOKRedirectURI, &consent.TppNOKRedirectURI, &payload, &consent.Checksum,
		&activatedAt, &consent.StatusChangedAt, &lastActionDate, &consent.CreatedAt, &consent.UpdatedAt, &consent.Version)
	if err != nil {
		return nil, err
	}

	consent.ID = id.ConsentID(consentID)
	consent.InstanceID = id.InstanceID(instanceID)
	consent.ConsentType = models.ConsentType(consentType)
	consent.Status = models.Status(status)
	if activatedAt.Valid {
		t := activatedAt.Time
		consent.ActivatedAt = &t
	}
	if lastActionDate.Valid {
		t := lastActionDate.Time
		consent.LastActionDate = &t
	}
	if len(psuDataList) > 0 {
		if err := json.Unmarshal(psuDataList, &consent.PsuDataList); err != nil {
			return nil, fmt.Errorf("unmarshal psu data list: %w", err)
		}
	}
	if len(tppAccess) > 0 {
		if err := json.Unmarshal(tppAccess, &consent.TppAccess); err != nil {
			return nil, fmt.Errorf("unmarshal tpp access: %w", err)
		}
	}
	if len(aspspAccess) > 0 {
		var access models.AccountAccess
		if err := json.Unmarshal(aspspAccess, &access); err != nil {
			return nil, fmt.Errorf("unmarshal aspsp access: %w", err)
		}
		consent.AspspAccess = &access
	}
	if len(payload) > 0 {
		consent.Payload = json.RawMessage(payload)
	}
	return &consent, nil
}
