package tenant

import (
	"context"
	"fmt"

	"github.com/nkiryanov/tenantauth/internal/logger"
	"github.com/nkiryanov/tenantauth/internal/models"
	"github.com/nkiryanov/tenantauth/internal/repository"
)

type TenantService struct {
	tenantRepo repository.TenantRepo
	logger     logger.Logger
}

func NewService(tenantRepo repository.TenantRepo, l logger.Logger) *TenantService {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	return &TenantService{
		tenantRepo: tenantRepo,
		logger:     l,
	}
}

func (s *TenantService) CreateTenant(ctx context.Context, name string, address string) (models.Tenant, error) {
	tenant, err := s.tenantRepo.CreateTenant(ctx, name, address)
	if err != nil {
		return tenant, fmt.Errorf("can't create tenant. Err: %w", err)
	}

	s.logger.Info("Tenant has been created", "id", tenant.ID, "name", tenant.Name)
	return tenant, nil
}

// GetTenant returns apperrors.ErrTenantNotFound if there is no such tenant
func (s *TenantService) GetTenant(ctx context.Context, id int64) (models.Tenant, error) {
	return s.tenantRepo.GetTenant(ctx, id)
}
