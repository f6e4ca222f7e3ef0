package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- User API Keys ---

func (s *PostgresStore) GetActiveUserKey(ctx context.Context, userID uuid.UUID, providerName string) (*models.UserAPIKey, error) {
	var k models.UserAPIKey
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, provider_name, encrypted_key, is_active, last_used_at, created_at, updated_at
		 FROM user_api_keys WHERE user_id = $1 AND provider_name = $2 AND is_active`,
		userID, providerName,
	).Scan(&k.ID, &k.UserID, &k.ProviderName, &k.EncryptedKey, &k.IsActive,
		&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get active user key: %w", err)
	}
	return &k, nil
}

func (s *PostgresStore) ListUserKeys(ctx context.Context, userID uuid.UUID) ([]*models.UserAPIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, provider_name, encrypted_key, is_active, last_used_at, created_at, updated_at
		 FROM user_api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list user keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.UserAPIKey
	for rows.Next() {
		var k models.UserAPIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.ProviderName, &k.EncryptedKey, &k.IsActive,
			&k.LastUsedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan user key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

// UpsertUserKey creates a key for (user, provider) or replaces the existing
// one, reactivating it. Returns the stored row.
func (s *PostgresStore) UpsertUserKey(ctx context.Context, key *models.UserAPIKey) (*models.UserAPIKey, error) {
	var stored models.UserAPIKey
	err := s.pool.QueryRow(ctx,
		`INSERT INTO user_api_keys (id, user_id, provider_name, encrypted_key, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (user_id, provider_name) DO UPDATE SET
		   encrypted_key = EXCLUDED.encrypted_key,
		   is_active = TRUE,
		   updated_at = NOW()
		 RETURNING id, user_id, provider_name, encrypted_key, is_active, last_used_at, created_at, updated_at`,
		key.ID, key.UserID, key.ProviderName, key.EncryptedKey, key.IsActive,
		key.CreatedAt, key.UpdatedAt,
	).Scan(&stored.ID, &stored.UserID, &stored.ProviderName, &stored.EncryptedKey,
		&stored.IsActive, &stored.LastUsedAt, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert user key: %w", err)
	}
	return &stored, nil
}

func (s *PostgresStore) SetUserKeyActive(ctx context.Context, userID uuid.UUID, providerName string, active bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_api_keys SET is_active = $3, updated_at = NOW()
		 WHERE user_id = $1 AND provider_name = $2`, userID, providerName, active)
	if err != nil {
		return fmt.Errorf("set user key active: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteUserKey(ctx context.Context, userID uuid.UUID, providerName string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_api_keys WHERE user_id = $1 AND provider_name = $2`,
		userID, providerName)
	if err != nil {
		return fmt.Errorf("delete user key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchKeyLastUsed sets last_used_at on a single (user, provider) row.
// Last-write-wins on an independent column, so repeated flushes of the same
// usage log converge to the latest timestamp.
func (s *PostgresStore) TouchKeyLastUsed(ctx context.Context, userID uuid.UUID, providerName string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE user_api_keys SET last_used_at = $3, updated_at = NOW()
		 WHERE user_id = $1 AND provider_name = $2 AND is_active`,
		userID, providerName, at)
	if err != nil {
		return fmt.Errorf("touch key last used: %w", err)
	}
	return nil
}

// --- Access Keys ---

func (s *PostgresStore) GetAccessKeyByPrefix(ctx context.Context, prefix string) ([]*models.AccessKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM access_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get access key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.AccessKey
	for rows.Next() {
		var k models.AccessKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan access key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAccessKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE access_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update access key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAccessKey(ctx context.Context, key *models.AccessKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO access_keys (id, user_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create access key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAccessKeys(ctx context.Context, userID uuid.UUID) ([]*models.AccessKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM access_keys WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list access keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.AccessKey
	for rows.Next() {
		var k models.AccessKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan access key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAccessKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE access_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL`, id, userID)
	if err != nil {
		return fmt.Errorf("revoke access key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Council Requests ---

func (s *PostgresStore) CreateRequest(ctx context.Context, req *models.CouncilRequest) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO council_requests (id, user_id, mode, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.UserID, req.Mode, req.Status, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRequest(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.CouncilRequest, error) {
	var r models.CouncilRequest
	var summaryRaw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, mode, status, usage_summary, error_message, completed_at, created_at, updated_at
		 FROM council_requests WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&r.ID, &r.UserID, &r.Mode, &r.Status, &summaryRaw, &r.ErrorMessage,
		&r.CompletedAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get request: %w", err)
	}
	if len(summaryRaw) > 0 {
		if err := json.Unmarshal(summaryRaw, &r.UsageSummary); err != nil {
			return nil, fmt.Errorf("decode usage summary: %w", err)
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListRequests(ctx context.Context, filter RequestFilter) ([]*models.CouncilRequest, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{filter.UserID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM council_requests WHERE " + where
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT id, user_id, mode, status, usage_summary, error_message, completed_at, created_at, updated_at
		 FROM council_requests WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var reqs []*models.CouncilRequest
	for rows.Next() {
		var r models.CouncilRequest
		var summaryRaw []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.Mode, &r.Status, &summaryRaw, &r.ErrorMessage,
			&r.CompletedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan request: %w", err)
		}
		if len(summaryRaw) > 0 {
			if err := json.Unmarshal(summaryRaw, &r.UsageSummary); err != nil {
				return nil, 0, fmt.Errorf("decode usage summary: %w", err)
			}
		}
		reqs = append(reqs, &r)
	}
	return reqs, total, rows.Err()
}

var validTransitions = map[string][]string{
	models.RequestStatusReceived:      {models.RequestStatusKeysResolved, models.RequestStatusFailed},
	models.RequestStatusKeysResolved:  {models.RequestStatusRosterBuilt, models.RequestStatusFailed},
	models.RequestStatusRosterBuilt:   {models.RequestStatusExecuting, models.RequestStatusFailed},
	models.RequestStatusExecuting:     {models.RequestStatusUsageAttached, models.RequestStatusFailed},
	models.RequestStatusUsageAttached: {models.RequestStatusFlushed, models.RequestStatusFailed},
	models.RequestStatusFlushed:       {models.RequestStatusDone, models.RequestStatusFailed},
}

func (s *PostgresStore) UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string, opts ...RequestUpdateOption) error {
	params := &requestUpdateParams{}
	for _, opt := range opts {
		opt(params)
	}

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM council_requests WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get request status: %w", err)
	}

	allowed := validTransitions[currentStatus]
	valid := false
	for _, a := range allowed {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid request status transition: %s -> %s", currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE council_requests SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.RequestStatusDone || status == models.RequestStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.UsageSummary != nil {
		raw, err := json.Marshal(params.UsageSummary)
		if err != nil {
			return fmt.Errorf("encode usage summary: %w", err)
		}
		query += fmt.Sprintf(", usage_summary = $%d", argIdx)
		args = append(args, raw)
		argIdx++
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
