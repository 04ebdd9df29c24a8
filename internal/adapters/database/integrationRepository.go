package database

import (
	"context"
	"errors"
	"time"

	"crosspost/internal/config"
	"crosspost/internal/core/integration"
	integrationPort "crosspost/internal/ports/integration"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

// IntegrationRepositoryDatabase implements IntegrationRepository on MySQL.
type IntegrationRepositoryDatabase struct{}

func NewIntegrationRepositoryDatabase() *IntegrationRepositoryDatabase {
	return &IntegrationRepositoryDatabase{}
}

func (repo *IntegrationRepositoryDatabase) Create(ctx context.Context, in *integration.Integration) (*integration.Integration, error) {
	if err := config.DB.WithContext(ctx).Create(in).Error; err != nil {
		return nil, err
	}
	return in, nil
}

func (repo *IntegrationRepositoryDatabase) FindEnabled(ctx context.Context, userID, platform string) (*integration.Integration, error) {
	var in integration.Integration
	if err := config.DB.WithContext(ctx).
		Where("user_id = ? AND platform = ? AND disabled = ?", userID, platform, false).
		First(&in).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integrationPort.ErrNotFound
		}
		return nil, err
	}
	return &in, nil
}

func (repo *IntegrationRepositoryDatabase) UpdateTokens(ctx context.Context, id uuid.UUID, accessToken, refreshToken string, expiry time.Time) error {
	return config.DB.WithContext(ctx).Model(&integration.Integration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"access_token":  accessToken,
			"refresh_token": refreshToken,
			"token_expiry":  expiry,
		}).Error
}
