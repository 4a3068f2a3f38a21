package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"xs2acms/internal/sca/models"
	id "xs2acms/pkg/domain"
	"xs2acms/pkg/platform/sentinel"
)

const (
	authorisationKeyPrefix = "xs2acms:authorisation:"
	parentIndexPrefix      = "xs2acms:authorisations:"
	// openIndexKey scores open authorisations by expiry (unix millis) for the sweeper.
	openIndexKey = "xs2acms:authorisations:open"
)

// authorisationJSON is the serialized form stored under each authorisation key.
type authorisationJSON struct {
	ID                   string                     `json:"id"`
	InstanceID           string                     `json:"instance_id"`
	ParentID             string                     `json:"parent_id"`
	ParentType           string                     `json:"parent_type"`
	Type                 string                     `json:"type"`
	PsuData              *models.PsuIdData          `json:"psu_data,omitempty"`
	ScaStatus            string                     `json:"sca_status"`
	ScaApproach          string                     `json:"sca_approach"`
	RedirectURLExpiresAt *int64                     `json:"redirect_url_expires_at,omitempty"` // Unix nano
	ExpiresAt            *int64                     `json:"expires_at,omitempty"`              // Unix nano
	TppOKRedirectURI     string                     `json:"tpp_ok_redirect_uri,omitempty"`
	TppNOKRedirectURI    string                     `json:"tpp_nok_redirect_uri,omitempty"`
	ChosenMethodID       string                     `json:"chosen_method_id,omitempty"`
	AvailableMethods     []models.ScaMethod         `json:"available_methods,omitempty"`
	AuthenticationData   *models.AuthenticationData `json:"authentication_data,omitempty"`
	CreatedAt            int64                      `json:"created_at"` // Unix nano
	UpdatedAt            int64                      `json:"updated_at"` // Unix nano
	Version              int64                      `json:"version"`
}

func toJSON(a *models.Authorisation) *authorisationJSON {
	return &authorisationJSON{
		ID:                   a.ID.String(),
		InstanceID:           a.InstanceID.String(),
		ParentID:             a.ParentID.String(),
		ParentType:           string(a.ParentType),
		Type:                 string(a.Type),
		PsuData:              a.PsuData,
		ScaStatus:            string(a.ScaStatus),
		ScaApproach:          string(a.ScaApproach),
		RedirectURLExpiresAt: unixNano(a.RedirectURLExpiresAt),
		ExpiresAt:            unixNano(a.ExpiresAt),
		TppOKRedirectURI:     a.TppOKRedirectURI,
		TppNOKRedirectURI:    a.TppNOKRedirectURI,
		ChosenMethodID:       a.ChosenMethodID,
		AvailableMethods:     a.AvailableMethods,
		AuthenticationData:   a.AuthenticationData,
		CreatedAt:            a.CreatedAt.UnixNano(),
		UpdatedAt:            a.UpdatedAt.UnixNano(),
		Version:              a.Version,
	}
}

func fromJSON(j *authorisationJSON) (*models.Authorisation, error) {
	authID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse authorisation id: %w", err)
	}
	parentID, err := uuid.Parse(j.ParentID)
	if err != nil {
		return nil, fmt.Errorf("parse parent id: %w", err)
	}
	return &models.Authorisation{
		ID:                   id.AuthorisationID(authID),
		InstanceID:           id.InstanceID(j.InstanceID),
		ParentID:             parentID,
		ParentType:           models.ParentType(j.ParentType),
		Type:                 models.AuthorisationType(j.Type),
		PsuData:              j.PsuData,
		ScaStatus:            models.ScaStatus(j.ScaStatus),
		ScaApproach:          models.ScaApproach(j.ScaApproach),
		RedirectURLExpiresAt: fromUnixNano(j.RedirectURLExpiresAt),
		ExpiresAt:            fromUnixNano(j.ExpiresAt),
		TppOKRedirectURI:     j.TppOKRedirectURI,
		TppNOKRedirectURI:    j.TppNOKRedirectURI,
		ChosenMethodID:       j.ChosenMethodID,
		AvailableMethods:     j.AvailableMethods,
		AuthenticationData:   j.AuthenticationData,
		CreatedAt:            time.Unix(0, j.CreatedAt).UTC(),
		UpdatedAt:            time.Unix(0, j.UpdatedAt).UTC(),
		Version:              j.Version,
	}, nil
}

// RedisStore persists authorisations in Redis for deployments that keep the
// SCA working set out of the relational database. Saves use WATCH/MULTI so a
// concurrent writer turns into sentinel.ErrConflict.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed authorisation store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func authorisationKey(instanceID id.InstanceID, authID id.AuthorisationID) string {
	return authorisationKeyPrefix + string(instanceID) + ":" + authID.String()
}

func parentIndexKey(instanceID id.InstanceID, parentType models.ParentType, parentID uuid.UUID) string {
	return parentIndexPrefix + parentKey(instanceID, parentType, parentID.String())
}

func openMember(a *models.Authorisation) string {
	return a.InstanceID.String() + "|" + a.ID.String()
}

func (s *RedisStore) Create(ctx context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	key := authorisationKey(auth.InstanceID, auth.ID)
	indexKey := parentIndexKey(auth.InstanceID, auth.ParentType, auth.ParentID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		exists, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("check authorisation: %w", err)
		}
		if exists > 0 {
			return sentinel.ErrConflict
		}
		// Scores are CreatedAt millis with the insertion position in the
		// last three digits, so authorisations created at the same instant
		// keep their insertion order. Exact below 2^53.
		position, err := tx.ZCard(ctx, indexKey).Result()
		if err != nil {
			return fmt.Errorf("count parent authorisations: %w", err)
		}

		stored := auth.Clone()
		stored.Version = 1
		data, err := json.Marshal(toJSON(stored))
		if err != nil {
			return fmt.Errorf("marshal authorisation: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, indexKey, redis.Z{
				Score:  float64(auth.CreatedAt.UnixMilli()*1000 + position%1000),
				Member: auth.ID.String(),
			})
			indexOpen(ctx, pipe, stored)
			return nil
		})
		return err
	}, key, indexKey)
	if err != nil {
		return translateTxErr(err, "create authorisation")
	}
	auth.Version = 1
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, instanceID id.InstanceID, authID id.AuthorisationID) (*models.Authorisation, error) {
	data, err := s.client.Get(ctx, authorisationKey(instanceID, authID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get authorisation: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) ListByParent(ctx context.Context, instanceID id.InstanceID, parentType models.ParentType, parentID uuid.UUID) ([]*models.Authorisation, error) {
	ids, err := s.client.ZRange(ctx, parentIndexKey(instanceID, parentType, parentID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list authorisation ids: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Authorisation{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(ids))
	for _, raw := range ids {
		authID, err := id.ParseAuthorisationID(raw)
		if err != nil {
			continue
		}
		cmds = append(cmds, pipe.Get(ctx, authorisationKey(instanceID, authID)))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load authorisations: %w", err)
	}

	out := make([]*models.Authorisation, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load authorisation: %w", err)
		}
		auth, err := decode(data)
		if err != nil {
			return nil, err
		}
		out = append(out, auth)
	}
	sortByCreation(out)
	return out, nil
}

// Save writes auth if the stored version still equals auth.Version.
func (s *RedisStore) Save(ctx context.Context, auth *models.Authorisation) error {
	if auth == nil {
		return fmt.Errorf("authorisation is required")
	}
	key := authorisationKey(auth.InstanceID, auth.ID)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get authorisation for save: %w", err)
		}
		current, err := decode(data)
		if err != nil {
			return err
		}
		if current.Version != auth.Version {
			return sentinel.ErrConflict
		}

		next := auth.Clone()
		next.Version++
		newData, err := json.Marshal(toJSON(next))
		if err != nil {
			return fmt.Errorf("marshal authorisation: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, 0)
			indexOpen(ctx, pipe, next)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return translateTxErr(err, "save authorisation")
	}
	auth.Version++
	return nil
}

// ListExpired reads the open index up to now and loads the matching authorisations.
func (s *RedisStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]*models.Authorisation, error) {
	opts := &redis.ZRangeBy{Min: "-inf", Max: "(" + strconv.FormatInt(now.UnixMilli(), 10)}
	if limit > 0 {
		opts.Count = int64(limit)
	}
	members, err := s.client.ZRangeByScore(ctx, openIndexKey, opts).Result()
	if err != nil {
		return nil, fmt.Errorf("list expired authorisations: %w", err)
	}

	out := make([]*models.Authorisation, 0, len(members))
	for _, member := range members {
		instance, rawID, ok := strings.Cut(member, "|")
		if !ok {
			continue
		}
		authID, err := id.ParseAuthorisationID(rawID)
		if err != nil {
			continue
		}
		auth, err := s.FindByID(ctx, id.InstanceID(instance), authID)
		if errors.Is(err, sentinel.ErrNotFound) {
			s.client.ZRem(ctx, openIndexKey, member)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !auth.ScaStatus.IsFinalised() {
			out = append(out, auth)
		}
	}
	return out, nil
}

func indexOpen(ctx context.Context, pipe redis.Pipeliner, a *models.Authorisation) {
	if a.ScaStatus.IsFinalised() || a.ExpiresAt == nil {
		pipe.ZRem(ctx, openIndexKey, openMember(a))
		return
	}
	pipe.ZAdd(ctx, openIndexKey, redis.Z{Score: float64(a.ExpiresAt.UnixMilli()), Member: openMember(a)})
}

func decode(data string) (*models.Authorisation, error) {
	var j authorisationJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal authorisation: %w", err)
	}
	return fromJSON(&j)
}

func translateTxErr(err error, op string) error {
	switch {
	case errors.Is(err, redis.TxFailedErr):
		return sentinel.ErrConflict
	case errors.Is(err, sentinel.ErrConflict), errors.Is(err, sentinel.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

func unixNano(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	v := t.UnixNano()
	return &v
}

func fromUnixNano(v *int64) *time.Time {
	if v == nil {
		return nil
	}
	t := time.Unix(0, *v).UTC()
	return &t
}
