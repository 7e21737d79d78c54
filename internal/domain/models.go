package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ArticleNumber string          `json:"articleNumber"`
	Name          string          `json:"name"`
	Category      string          `json:"category,omitempty"`
	Brand         string          `json:"brand,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	SellingPrice  decimal.Decimal `json:"sellingPrice"`
	DiscountValue decimal.Decimal `json:"discountValue"`
	DiscountType  DiscountType    `json:"discountType"`
	TaxEnabled    bool            `json:"taxEnabled"`
	TaxPercent    decimal.Decimal `json:"taxPercent"`
	Quantity      int             `json:"quantity"`
	MinStock      int             `json:"minStock"`
	Unit          string          `json:"unit"`
	ShelfNumber   string          `json:"shelfNumber,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ProductView is the wire shape of a product for a given actor. Pointer
// fields are nil when the actor may not see them.
type ProductView struct {
	ArticleNumber string           `json:"articleNumber"`
	Name          string           `json:"name"`
	Category      string           `json:"category,omitempty"`
	Brand         string           `json:"brand,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	DiscountValue decimal.Decimal  `json:"discountValue"`
	DiscountType  DiscountType     `json:"discountType"`
	TaxEnabled    bool             `json:"taxEnabled"`
	TaxPercent    decimal.Decimal  `json:"taxPercent"`
	Quantity      *int             `json:"quantity,omitempty"`
	MinStock      *int             `json:"minStock,omitempty"`
	Unit          string           `json:"unit"`
	ShelfNumber   string           `json:"shelfNumber,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

func NewProductView(p Product, showPrices bool, showQuantities bool) ProductView {
	view := ProductView{
		ArticleNumber: p.ArticleNumber,
		Name:          p.Name,
		Category:      p.Category,
		Brand:         p.Brand,
		SellingPrice:  p.SellingPrice,
		DiscountValue: p.DiscountValue,
		DiscountType:  p.DiscountType,
		TaxEnabled:    p.TaxEnabled,
		TaxPercent:    p.TaxPercent,
		Unit:          p.Unit,
		ShelfNumber:   p.ShelfNumber,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	if showPrices {
		price := p.PurchasePrice
		view.PurchasePrice = &price
	}
	if showQuantities {
		qty, minStock := p.Quantity, p.MinStock
		view.Quantity = &qty
		view.MinStock = &minStock
	}
	return view
}

type ProductCreateRequest struct {
	ArticleNumber string           `json:"articleNumber"`
	Name          string           `json:"name"`
	Category      string           `json:"category"`
	Brand         string           `json:"brand"`
	PurchasePrice decimal.Decimal  `json:"purchasePrice"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	DiscountValue *decimal.Decimal `json:"discountValue,omitempty"`
	DiscountType  DiscountType     `json:"discountType"`
	TaxEnabled    bool             `json:"taxEnabled"`
	TaxPercent    *decimal.Decimal `json:"taxPercent,omitempty"`
	Quantity      int              `json:"quantity"`
	MinStock      int              `json:"minStock"`
	Unit          string           `json:"unit"`
	ShelfNumber   string           `json:"shelfNumber"`
}

type ProductUpdateRequest struct {
	Name          *string          `json:"name,omitempty"`
	Category      *string          `json:"category,omitempty"`
	Brand         *string          `json:"brand,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchasePrice,omitempty"`
	SellingPrice  *decimal.Decimal `json:"sellingPrice,omitempty"`
	DiscountValue *decimal.Decimal `json:"discountValue,omitempty"`
	DiscountType  *DiscountType    `json:"discountType,omitempty"`
	TaxEnabled    *bool            `json:"taxEnabled,omitempty"`
	TaxPercent    *decimal.Decimal `json:"taxPercent,omitempty"`
	Quantity      *int             `json:"quantity,omitempty"`
	MinStock      *int             `json:"minStock,omitempty"`
	Unit          *string          `json:"unit,omitempty"`
	ShelfNumber   *string          `json:"shelfNumber,omitempty"`
}

type LowStockItem struct {
	ArticleNumber  string `json:"articleNumber"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	MinStock       int    `json:"minStock"`
	SuggestedOrder int    `json:"suggestedOrder"`
}

type LowStockReport struct {
	GeneratedAt string         `json:"generatedAt"`
	Items       []LowStockItem `json:"items"`
}

type Supplier struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type SupplierRequest struct {
	Name    *string `json:"name,omitempty"`
	Contact *string `json:"contact,omitempty"`
}

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CustomerRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

type Purchase struct {
	ID            int64           `json:"id"`
	SupplierID    *int64          `json:"supplierId,omitempty"`
	SupplierName  string          `json:"supplierName,omitempty"`
	InvoiceNumber string          `json:"invoiceNumber"`
	PurchaseDate  time.Time       `json:"purchaseDate"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []PurchaseItem  `json:"items"`
}

type PurchaseItem struct {
	ID            int64           `json:"id"`
	ProductArtNo  string          `json:"productArtNo"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	Total         decimal.Decimal `json:"total"`
}

type PurchaseCreateRequest struct {
	SupplierID    *int64               `json:"supplierId,omitempty"`
	InvoiceNumber string               `json:"invoiceNumber"`
	PurchaseDate  *time.Time           `json:"purchaseDate,omitempty"`
	Items         []PurchaseItemRequest `json:"items"`
}

type PurchaseItemRequest struct {
	ProductArtNo  string          `json:"productArtNo"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
}

type Sale struct {
	ID            int64           `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	CustomerID    *int64          `json:"customerId,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	PaymentMode   PaymentMode     `json:"paymentMode"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Notes         string          `json:"notes,omitempty"`
	SaleDate      time.Time       `json:"saleDate"`
	CreatedAt     time.Time       `json:"createdAt"`
	Items         []SaleItem      `json:"items"`
}

type SaleItem struct {
	ID           int64           `json:"id"`
	ProductArtNo string          `json:"productArtNo"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	Total        decimal.Decimal `json:"total"`
}

type SaleCreateRequest struct {
	CustomerID  *int64            `json:"customerId,omitempty"`
	PaymentMode PaymentMode       `json:"paymentMode"`
	Discount    *decimal.Decimal  `json:"discount,omitempty"`
	Notes       string            `json:"notes"`
	Items       []SaleItemRequest `json:"items"`
}

type SaleItemRequest struct {
	ProductArtNo string          `json:"productArtNo"`
	Quantity     int             `json:"quantity"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
}

type SaleCreateResponse struct {
	Sale          Sale   `json:"sale"`
	InvoiceNumber string `json:"invoiceNumber"`
}

type DeleteResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type User struct {
	ID           int64         `json:"id"`
	Username     string        `json:"username"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Active       bool          `json:"active"`
	Permissions  PermissionSet `json:"-"`
	CreatedAt    time.Time     `json:"createdAt"`
}

type UserView struct {
	ID          int64             `json:"id"`
	Username    string            `json:"username"`
	Role        Role              `json:"role"`
	Active      bool              `json:"active"`
	CreatedAt   time.Time         `json:"createdAt"`
	Permissions []PermissionGrant `json:"permissions"`
}

func NewUserView(u User) UserView {
	return UserView{
		ID:          u.ID,
		Username:    u.Username,
		Role:        u.Role,
		Active:      u.Active,
		CreatedAt:   u.CreatedAt,
		Permissions: u.Permissions.Grants(),
	}
}

type StaffCreateRequest struct {
	Username    string       `json:"username"`
	Password    string       `json:"password"`
	Permissions []Permission `json:"permissions"`
}

type StaffPermissionsRequest struct {
	Permissions []Permission `json:"permissions"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

type LoginResponse struct {
	OK          bool      `json:"ok"`
	User        LoginUser `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   string    `json:"expiresAt"`
}

type SetupRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	BusinessName string `json:"businessName"`
}

type MeResponse struct {
	User        UserView          `json:"user"`
	Permissions []PermissionGrant `json:"permissions"`
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID      int64
	Username    string
	Role        Role
	Permissions PermissionSet
}

func (a Actor) Can(p Permission) bool {
	if a.Role == RoleSuperAdmin {
		return true
	}
	return a.Permissions.Has(p)
}

type Settings struct {
	BusinessName        string    `json:"businessName"`
	BusinessType        string    `json:"businessType"`
	EnableShelfLocation bool      `json:"enableShelfLocation"`
	EnableWarehouseMode bool      `json:"enableWarehouseMode"`
	CurrencySymbol      string    `json:"currencySymbol"`
	EnableBulkImport    bool      `json:"enableBulkImport"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

func DefaultSettings() Settings {
	return Settings{
		BusinessName:        "InventoryPro",
		BusinessType:        "RETAILER",
		EnableShelfLocation: false,
		EnableWarehouseMode: false,
		CurrencySymbol:      "₹",
		EnableBulkImport:    true,
		UpdatedAt:           time.Now().UTC(),
	}
}

type SettingsUpdateRequest struct {
	BusinessName        *string `json:"businessName,omitempty"`
	BusinessType        *string `json:"businessType,omitempty"`
	EnableShelfLocation *bool   `json:"enableShelfLocation,omitempty"`
	EnableWarehouseMode *bool   `json:"enableWarehouseMode,omitempty"`
	CurrencySymbol      *string `json:"currencySymbol,omitempty"`
	EnableBulkImport    *bool   `json:"enableBulkImport,omitempty"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Backup struct {
	ExportedAt string     `json:"exportedAt"`
	Settings   Settings   `json:"settings"`
	Products   []Product  `json:"products"`
	Suppliers  []Supplier `json:"suppliers"`
	Customers  []Customer `json:"customers"`
	Purchases  []Purchase `json:"purchases"`
	Sales      []Sale     `json:"sales"`
	Users      []UserView `json:"users"`
}

