package service

import (
	"context"
	"strings"
	"time"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

func (s *Service) GetSettings(ctx context.Context) (domain.Settings, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Settings{}, err
	}
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (domain.Settings, error) {
	if _, err := s.authorize(ctx, domain.PermManageSettings); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Settings{}, err
	}

	if req.BusinessName != nil {
		settings.BusinessName = strings.TrimSpace(*req.BusinessName)
		if settings.BusinessName == "" {
			return domain.Settings{}, store.Invalid("businessName must not be empty")
		}
	}
	if req.BusinessType != nil {
		settings.BusinessType = strings.ToUpper(strings.TrimSpace(*req.BusinessType))
		if settings.BusinessType == "" {
			return domain.Settings{}, store.Invalid("businessType must not be empty")
		}
	}
	if req.EnableShelfLocation != nil {
		settings.EnableShelfLocation = *req.EnableShelfLocation
	}
	if req.EnableWarehouseMode != nil {
		settings.EnableWarehouseMode = *req.EnableWarehouseMode
	}
	if req.CurrencySymbol != nil {
		settings.CurrencySymbol = strings.TrimSpace(*req.CurrencySymbol)
		if settings.CurrencySymbol == "" {
			return domain.Settings{}, store.Invalid("currencySymbol must not be empty")
		}
	}
	if req.EnableBulkImport != nil {
		settings.EnableBulkImport = *req.EnableBulkImport
	}

	saved, err := s.repo.SaveSettings(ctx, settings)
	if err != nil {
		return domain.Settings{}, err
	}
	s.logAudit(ctx, "settings_update", "settings", "1", "businessName="+saved.BusinessName)
	return saved, nil
}

// Backup exports every table as one JSON document. Password hashes are never
// included.
func (s *Service) Backup(ctx context.Context) (domain.Backup, error) {
	if _, err := s.requireSuperAdmin(ctx); err != nil {
		return domain.Backup{}, err
	}

	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	products, err := s.repo.ListProducts(ctx, 0)
	if err != nil {
		return domain.Backup{}, err
	}
	suppliers, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		return domain.Backup{}, err
	}
	purchases, err := s.repo.ListPurchases(ctx, 0)
	if err != nil {
		return domain.Backup{}, err
	}
	sales, err := s.repo.ListSales(ctx, 0)
	if err != nil {
		return domain.Backup{}, err
	}
	users, err := s.repo.ListUsers(ctx, "")
	if err != nil {
		return domain.Backup{}, err
	}
	views := make([]domain.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, domain.NewUserView(u))
	}

	s.logAudit(ctx, "backup_export", "backup", "all", "")
	return domain.Backup{
		ExportedAt: s.now().Format(time.RFC3339),
		Settings:   settings,
		Products:   products,
		Suppliers:  suppliers,
		Customers:  customers,
		Purchases:  purchases,
		Sales:      sales,
		Users:      views,
	}, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if _, err := s.requireSuperAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	return s.repo.ListAuditLogs(ctx, limit)
}
