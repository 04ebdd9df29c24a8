package integration

import (
	"context"
	"errors"
	"time"

	"crosspost/internal/core/integration"

	"github.com/gofrs/uuid"
)

// ErrNotFound is returned when no enabled integration exists for the
// (user, platform) pair.
var ErrNotFound = errors.New("integration not found")

// IntegrationRepository is the outbound port for stored OAuth credentials.
// Token rotation is the only mutation this service performs on them.
type IntegrationRepository interface {
	Create(ctx context.Context, in *integration.Integration) (*integration.Integration, error)
	FindEnabled(ctx context.Context, userID, platform string) (*integration.Integration, error)
	UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error
}
