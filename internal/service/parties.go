package service

import (
	"context"
	"fmt"
	"strings"

	"inventorypro/backend/internal/domain"
	"inventorypro/backend/internal/store"
)

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) GetSupplier(ctx context.Context, id int64) (domain.Supplier, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Supplier{}, err
	}
	supplier, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *supplier, nil
}

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.Supplier{}, err
	}
	supplier := domain.Supplier{
		Name:    trimmed(req.Name),
		Contact: trimmed(req.Contact),
	}
	if supplier.Name == "" {
		return domain.Supplier{}, store.Invalid("name is required")
	}

	saved, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, "supplier_create", "supplier", fmt.Sprint(saved.ID), "name="+saved.Name)
	return *saved, nil
}

func (s *Service) UpdateSupplier(ctx context.Context, id int64, req domain.SupplierRequest) (domain.Supplier, error) {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return domain.Supplier{}, err
	}
	existing, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}

	supplier := *existing
	if req.Name != nil {
		supplier.Name = strings.TrimSpace(*req.Name)
		if supplier.Name == "" {
			return domain.Supplier{}, store.Invalid("name is required")
		}
	}
	if req.Contact != nil {
		supplier.Contact = strings.TrimSpace(*req.Contact)
	}

	saved, err := s.repo.UpdateSupplier(ctx, supplier)
	if err != nil {
		return domain.Supplier{}, err
	}
	s.logAudit(ctx, "supplier_update", "supplier", fmt.Sprint(saved.ID), "name="+saved.Name)
	return *saved, nil
}

func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	if _, err := s.authorize(ctx, domain.PermManageSuppliers); err != nil {
		return err
	}
	if err := s.repo.DeleteSupplier(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "supplier_delete", "supplier", fmt.Sprint(id), "")
	return nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return nil, err
	}
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id int64) (domain.Customer, error) {
	if _, err := s.requireActor(ctx); err != nil {
		return domain.Customer{}, err
	}
	customer, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerRequest) (domain.Customer, error) {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	customer := domain.Customer{
		Name:    trimmed(req.Name),
		Phone:   trimmed(req.Phone),
		Address: trimmed(req.Address),
	}
	if customer.Name == "" {
		return domain.Customer{}, store.Invalid("name is required")
	}

	saved, err := s.repo.CreateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_create", "customer", fmt.Sprint(saved.ID), "name="+saved.Name)
	return *saved, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id int64, req domain.CustomerRequest) (domain.Customer, error) {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return domain.Customer{}, err
	}
	existing, err := s.repo.GetCustomer(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer := *existing
	if req.Name != nil {
		customer.Name = strings.TrimSpace(*req.Name)
		if customer.Name == "" {
			return domain.Customer{}, store.Invalid("name is required")
		}
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		customer.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateCustomer(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}
	s.logAudit(ctx, "customer_update", "customer", fmt.Sprint(saved.ID), "name="+saved.Name)
	return *saved, nil
}

func (s *Service) DeleteCustomer(ctx context.Context, id int64) error {
	if _, err := s.authorize(ctx, domain.PermManageCustomers); err != nil {
		return err
	}
	if err := s.repo.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "customer_delete", "customer", fmt.Sprint(id), "")
	return nil
}

func trimmed(val *string) string {
	if val == nil {
		return ""
	}
	return strings.TrimSpace(*val)
}
