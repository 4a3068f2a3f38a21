package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

// PostgresStore persists authorisations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

// NewPostgres constructs a PostgreSQL-backed authorisation store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx constructs a store bound to a transaction.
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

const authorisationColumns = `id, instance_id, parent_id, parent_type, authorisation_type, psu_data,
	sca_status, sca_approach, redirect_url_expires_at, expires_at, tpp_ok_redirect_uri,
	tpp_nok_redirect_uri, chosen_method_id, available_methods, authentication_data,
	created_at, updated_at, version`

func (s *PostgresStore) Create(ctx context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	row, err := toRow(auth)
	if err != nil {
		return err
	}
	query := `INSERT INTO authorisations (` + authorisationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, 1)
		ON CONFLICT (id) DO NOTHING`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(auth.ID), string(auth.InstanceID), auth.ParentID, string(auth.ParentType), string(auth.Type),
		row.psuData, string(auth.ScaStatus), string(auth.ScaApproach), auth.RedirectURLExpiresAt, auth.ExpiresAt,
		auth.TppOKRedirectURI, auth.TppNOKRedirectURI, auth.ChosenMethodID, row.methods, row.authData,
		auth.CreatedAt, auth.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert authorisation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sentinel.ErrConflict
	}
	auth.Version = 1
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*models.Authorisation, error) {
	query := `SELECT ` + authorisationColumns + ` FROM authorisations WHERE id = $1 AND instance_id = $2`
	auth, err := scanAuthorisation(s.execer().QueryRowContext(ctx, query, uuid.UUID(authID), string(instanceID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find authorisation: %w", err)
	}
	return auth, nil
}

// ListByParent returns the parent's authorisations in creation order; seq
// orders authorisations created within the same microsecond.
func (s *PostgresStore) ListByParent(ctx context.Context, instanceID id.InstanceID, parentType models.ParentType, parentID uuid.UUID) ([]*models.Authorisation, error) {
	query := `SELECT ` + authorisationColumns + ` FROM authorisations
		WHERE instance_id = $1 AND parent_type = $2 AND parent_id = $3
		ORDER BY created_at, seq`
	return s.list(ctx, query, string(instanceID), string(parentType), parentID)
}

func (s *PostgresStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Authorisation, error) {
	query := `SELECT ` + authorisationColumns + ` FROM authorisations
		WHERE sca_status NOT IN ('FINALISED', 'FAILED', 'EXEMPTED') AND expires_at < $1
		ORDER BY created_at
		LIMIT $2`
	if limit <= 0 {
		limit = 1000
	}
	return s.list(ctx, query, now, limit)
}

// Save writes auth if the stored version still equals auth.Version.
func (s *PostgresStore) Save(ctx context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	row, err := toRow(auth)
	if err != nil {
		return err
	}
	query := `UPDATE authorisations SET
			psu_data = $3, sca_status = $4, sca_approach = $5, redirect_url_expires_at = $6,
			expires_at = $7, chosen_method_id = $8, available_methods = $9,
			authentication_data = $10, updated_at = $11, version = version + 1
		WHERE id = $1 AND instance_id = $2 AND version = $12`
	res, err := s.execer().ExecContext(ctx, query,
		uuid.UUID(auth.ID), string(auth.InstanceID),
		row.psuData, string(auth.ScaStatus), string(auth.ScaApproach), auth.RedirectURLExpiresAt,
		auth.ExpiresAt, auth.ChosenMethodID, row.methods, row.authData, auth.UpdatedAt,
		auth.Version,
	)
	if err != nil {
		return fmt.Errorf("update authorisation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update authorisation rows: %w", err)
	}
	if n == 0 {
		if _, findErr := s.FindByID(ctx, auth.InstanceID, auth.ID); findErr != nil {
			return findErr
		}
		return sentinel.ErrConflict
	}
	auth.Version++
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Authorisation, error) {
	rows, err := s.execer().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list authorisations: %w", err)
	}
	defer rows.Close()

	var out []*models.Authorisation
	for rows.Next() {
		auth, err := scanAuthorisation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan authorisation: %w", err)
		}
		out = append(out, auth)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authorisations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

type jsonColumns struct {
	psuData  []byte
	methods  []byte
	authData []byte
}

func toRow(auth *models.Authorisation) (*jsonColumns, error) {
	var row jsonColumns
	var err error
	if auth.PsuData != nil {
		if row.psuData, err = json.Marshal(auth.PsuData); err != nil {
			return nil, fmt.Errorf("marshal psu data: %w", err)
		}
	}
	if row.methods, err = json.Marshal(auth.AvailableMethods); err != nil {
		return nil, fmt.Errorf("marshal sca methods: %w", err)
	}
	if auth.AuthenticationData != nil {
		if row.authData, err = json.Marshal(auth.AuthenticationData); err != nil {
			return nil, fmt.Errorf("marshal authentication data: %w", err)
		}
	}
	return &row, nil
}

func scanAuthorisation(row rowScanner) (*models.Authorisation, error) {
	var (
		authID, parentID                 uuid.UUID
		instanceID, parentType, authType string
		scaStatus, scaApproach           string
		psuData, methods, authData       []byte
		redirectExpiresAt, expiresAt     sql.NullTime
		okURI, nokURI, chosenMethod      string
		auth                             models.Authorisation
	)
	err := row.Scan(&authID, &instanceID, &parentID, &parentType, &authType, &psuData,
		&scaStatus, &scaApproach, &redirectExpiresAt, &expiresAt, &okURI,
		&nokURI, &chosenMethod, &methods, &authData,
		&auth.CreatedAt, &auth.UpdatedAt, &auth.Version)
	if err != nil {
		return nil, err
	}

	auth.ID = id.AuthorisationID(authID)
	auth.InstanceID = id.InstanceID(instanceID)
	auth.ParentID = parentID
	auth.ParentType = models.ParentType(parentType)
	auth.Type = models.AuthorisationType(authType)
	auth.ScaStatus = models.ScaStatus(scaStatus)
	auth.ScaApproach = models.ScaApproach(scaApproach)
	auth.TppOKRedirectURI = okURI
	auth.TppNOKRedirectURI = nokURI
	auth.ChosenMethodID = chosenMethod
	if redirectExpiresAt.Valid {
		t := redirectExpiresAt.Time
		auth.RedirectURLExpiresAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		auth.ExpiresAt = &t
	}
	if len(psuData) > 0 {
		var psu models.PsuIdData
		if err := json.Unmarshal(psuData, &psu); err != nil {
			return nil, fmt.Errorf("unmarshal psu data: %w", err)
		}
		auth.PsuData = &psu
	}
	if len(methods) > 0 {
		if err := json.Unmarshal(methods, &auth.AvailableMethods); err != nil {
			return nil, fmt.Errorf("unmarshal sca methods: %w", err)
		}
	}
	if len(authData) > 0 {
		var data models.AuthenticationData
		if err := json.Unmarshal(authData, &data); err != nil {
			return nil, fmt.Errorf("unmarshal authentication data: %w", err)
		}
		auth.AuthenticationData = &data
	}
	return &auth, nil
}
