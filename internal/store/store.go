package store

import (
	"context"
	"errors"
	"time"

	"github.com/councilhq/council/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetActiveUserKey(ctx context.Context, userID uuid.UUID, providerName string) (*models.UserAPIKey, error)
	ListUserKeys(ctx context.Context, userID uuid.UUID) ([]*models.UserAPIKey, error)
	UpsertUserKey(ctx context.Context, key *models.UserAPIKey) (*models.UserAPIKey, error)
	SetUserKeyActive(ctx context.Context, userID uuid.UUID, providerName string, active bool) error
	DeleteUserKey(ctx context.Context, userID uuid.UUID, providerName string) error
	TouchKeyLastUsed(ctx context.Context, userID uuid.UUID, providerName string, at time.Time) error

	GetAccessKeyByPrefix(ctx context.Context, prefix string) ([]*models.AccessKey, error)
	UpdateAccessKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAccessKey(ctx context.Context, key *models.AccessKey) error
	ListAccessKeys(ctx context.Context, userID uuid.UUID) ([]*models.AccessKey, error)
	RevokeAccessKey(ctx context.Context, id uuid.UUID, userID uuid.UUID) error

	CreateRequest(ctx context.Context, req *models.CouncilRequest) error
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string, opts ...RequestUpdateOption) error
	GetRequest(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.CouncilRequest, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]*models.CouncilRequest, int, error)
}

type RequestFilter struct {
	UserID uuid.UUID
	Status string
	Since  time.Time
	Page   int
	Limit  int
}

type requestUpdateParams struct {
	ErrorMessage *string
	UsageSummary models.UsageSummary
}

type RequestUpdateOption func(*requestUpdateParams)

func WithErrorMessage(msg string) RequestUpdateOption {
	return func(p *requestUpdateParams) {
		p.ErrorMessage = &msg
	}
}

func WithUsageSummary(summary models.UsageSummary) RequestUpdateOption {
	return func(p *requestUpdateParams) {
		p.UsageSummary = summary
	}
}
