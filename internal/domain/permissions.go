package domain

import (
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleStaff      Role = "STAFF"
)

func (r Role) Valid() bool {
	return r == RoleSuperAdmin || r == RoleStaff
}

// Permission is a capability that may be granted to a staff account.
type Permission string

const (
	PermManageProducts  Permission = "MANAGE_PRODUCTS"
	PermManageCustomers Permission = "MANAGE_CUSTOMERS"
	PermManageSuppliers Permission = "MANAGE_SUPPLIERS"
	PermManagePurchases Permission = "MANAGE_PURCHASES"
	PermManageSales     Permission = "MANAGE_SALES"
	PermViewPrices      Permission = "VIEW_PRICES"
	PermViewQuantities  Permission = "VIEW_QUANTITIES"
	PermManageStaff     Permission = "MANAGE_STAFF"
	PermManageSettings  Permission = "MANAGE_SETTINGS"
)

type PermissionInfo struct {
	Name        Permission `json:"name"`
	Description string     `json:"description"`
}

var permissionCatalog = []PermissionInfo{
	{PermManageProducts, "Create, edit and delete products"},
	{PermManageCustomers, "Create, edit and delete customers"},
	{PermManageSuppliers, "Create, edit and delete suppliers"},
	{PermManagePurchases, "Record and delete purchases"},
	{PermManageSales, "Record and delete sales"},
	{PermViewPrices, "View product purchase prices"},
	{PermViewQuantities, "View stock quantities"},
	{PermManageStaff, "Manage staff accounts and permissions"},
	{PermManageSettings, "Change business settings"},
}

// Permissions returns the full catalogue in a stable order.
func Permissions() []PermissionInfo {
	out := make([]PermissionInfo, len(permissionCatalog))
	copy(out, permissionCatalog)
	return out
}

func (p Permission) Valid() bool {
	for _, info := range permissionCatalog {
		if info.Name == p {
			return true
		}
	}
	return false
}

func ParsePermission(raw string) (Permission, error) {
	p := Permission(strings.ToUpper(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown permission %q", raw)
	}
	return p, nil
}

type PermissionGrant struct {
	PermissionName Permission `json:"permissionName"`
	Granted        bool       `json:"granted"`
}

type PermissionSet map[Permission]struct{}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

// List returns the granted permissions sorted by name.
func (s PermissionSet) List() []Permission {
	out := make([]Permission, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PermissionSet) Grants() []PermissionGrant {
	perms := s.List()
	out := make([]PermissionGrant, 0, len(perms))
	for _, p := range perms {
		out = append(out, PermissionGrant{PermissionName: p, Granted: true})
	}
	return out
}

type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentCard   PaymentMode = "CARD"
	PaymentUPI    PaymentMode = "UPI"
	PaymentCheque PaymentMode = "CHEQUE"
	PaymentOnline PaymentMode = "ONLINE"
)

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentCheque, PaymentOnline:
		return true
	default:
		return false
	}
}

type DiscountType string

const (
	DiscountAmount  DiscountType = "AMOUNT"
	DiscountPercent DiscountType = "PERCENT"
)

func (d DiscountType) Valid() bool {
	return d == DiscountAmount || d == DiscountPercent
}
