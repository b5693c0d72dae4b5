package domain

import "time"

type Medicine struct {
	ID           string `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Unit         string `json:"unit"`
	PriceCents   int64  `json:"price_cents"`
	MRPCents     int64  `json:"mrp_cents"`
	Stock        int    `json:"stock"`
	Description  string `json:"description,omitempty"`
	Dosage       string `json:"dosage,omitempty"`
	Composition  string `json:"composition,omitempty"`
	Active       bool   `json:"active"`
}

type MedicineCreateRequest struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Manufacturer string `json:"manufacturer"`
	Unit         string `json:"unit"`
	PriceCents   int64  `json:"price_cents"`
	MRPCents     int64  `json:"mrp_cents"`
	InitialStock int    `json:"initial_stock"`
	Description  string `json:"description"`
	Dosage       string `json:"dosage"`
	Composition  string `json:"composition"`
}

type MedicineUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Category     *string `json:"category,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
	Unit         *string `json:"unit,omitempty"`
	PriceCents   *int64  `json:"price_cents,omitempty"`
	MRPCents     *int64  `json:"mrp_cents,omitempty"`
	Stock        *int    `json:"stock,omitempty"`
	Description  *string `json:"description,omitempty"`
	Dosage       *string `json:"dosage,omitempty"`
	Composition  *string `json:"composition,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

type OrderLine struct {
	MedicineID     string `json:"medicine_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
}

type OrderLineRequest struct {
	MedicineID string `json:"medicine_id"`
	Qty        int    `json:"qty"`
}

type OrderCreateRequest struct {
	DeliveryAddress string             `json:"delivery_address"`
	Items           []OrderLineRequest `json:"items"`
}

type Order struct {
	ID              string      `json:"id"`
	RetailerID      string      `json:"retailer_id"`
	RetailerEmail   string      `json:"retailer_email"`
	Items           []OrderLine `json:"items"`
	TotalCents      int64       `json:"total_cents"`
	PaidCents       int64       `json:"paid_cents"`
	DueCents        int64       `json:"due_cents"`
	Status          string      `json:"status"`
	PaymentStatus   string      `json:"payment_status"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	OrderedAt       time.Time   `json:"ordered_at"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
}

type OrderResponse struct {
	Order Order `json:"order"`
}

type OrderListResponse struct {
	Orders []Order `json:"orders"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type OrderCancelRequest struct {
	Reason string `json:"reason"`
}

type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Note        string    `json:"note,omitempty"`
	CollectedBy string    `json:"collected_by"`
	PaidAt      time.Time `json:"paid_at"`
}

type PaymentCreateRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Method      string `json:"method"`
	Note        string `json:"note"`
}

type PaymentRecordResponse struct {
	Payment Payment `json:"payment"`
	Order   Order   `json:"order"`
}

type PaymentListResponse struct {
	Payments []Payment `json:"payments"`
}

// FrequencyRecord is the per-medicine purchase history rollup the
// recommendation engine works from. It is derived, never persisted.
type FrequencyRecord struct {
	MedicineID   string     `json:"medicine_id"`
	Count        int        `json:"count"`
	LastPurchase *time.Time `json:"last_purchase,omitempty"`
}

type ScoredMedicine struct {
	Medicine     Medicine   `json:"medicine"`
	Score        float64    `json:"score"`
	ReorderDue   bool       `json:"reorder_due"`
	LastPurchase *time.Time `json:"last_purchase,omitempty"`
}

type RecommendationResponse struct {
	RetailerID      string           `json:"retailer_id"`
	Recommendations []ScoredMedicine `json:"recommendations"`
	GeneratedAt     string           `json:"generated_at"`
}

type ReorderAlert struct {
	Medicine      Medicine  `json:"medicine"`
	LastPurchase  time.Time `json:"last_purchase"`
	DaysSinceLast float64   `json:"days_since_last"`
}

type ReorderAlertResponse struct {
	RetailerID string         `json:"retailer_id"`
	Alerts     []ReorderAlert `json:"alerts"`
}

type ReorderBadgeResponse struct {
	MedicineID string `json:"medicine_id"`
	ShowBadge  bool   `json:"show_badge"`
}

type TopPurchasedEntry struct {
	Medicine Medicine `json:"medicine"`
	Count    int      `json:"count"`
}

type TopPurchasedResponse struct {
	RetailerID string              `json:"retailer_id"`
	Items      []TopPurchasedEntry `json:"items"`
}

type AccountingSummary struct {
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	TotalPaidCents    int64 `json:"total_paid_cents"`
	TotalDueCents     int64 `json:"total_due_cents"`
	TotalOrders       int   `json:"total_orders"`
	PaidOrders        int   `json:"paid_orders"`
	UnpaidOrders      int   `json:"unpaid_orders"`
	PartialOrders     int   `json:"partial_orders"`
}

type RetailerStatement struct {
	RetailerID        string  `json:"retailer_id"`
	RetailerEmail     string  `json:"retailer_email"`
	Orders            []Order `json:"orders"`
	TotalOrderedCents int64   `json:"total_ordered_cents"`
	TotalPaidCents    int64   `json:"total_paid_cents"`
	TotalDueCents     int64   `json:"total_due_cents"`
}

type Banner struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Subtitle  string    `json:"subtitle,omitempty"`
	Color     string    `json:"color,omitempty"`
	Icon      string    `json:"icon,omitempty"`
	LinkTo    string    `json:"link_to,omitempty"`
	Active    bool      `json:"active"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BannerCreateRequest struct {
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Color     string `json:"color"`
	Icon      string `json:"icon"`
	LinkTo    string `json:"link_to"`
	SortOrder int    `json:"sort_order"`
}

type BannerUpdateRequest struct {
	Title     *string `json:"title,omitempty"`
	Subtitle  *string `json:"subtitle,omitempty"`
	Color     *string `json:"color,omitempty"`
	Icon      *string `json:"icon,omitempty"`
	LinkTo    *string `json:"link_to,omitempty"`
	Active    *bool   `json:"active,omitempty"`
	SortOrder *int    `json:"sort_order,omitempty"`
}

type BannerListResponse struct {
	Banners []Banner `json:"banners"`
}

type Favorite struct {
	RetailerID string    `json:"retailer_id"`
	MedicineID string    `json:"medicine_id"`
	AddedAt    time.Time `json:"added_at"`
}

type FavoriteListResponse struct {
	Medicines []Medicine `json:"medicines"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	RetailerID  string `json:"retailer_id,omitempty"`
	ExpiresAt   string `json:"expires_at"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ShopName string `json:"shop_name"`
}

type Actor struct {
	Username   string
	Role       string
	RetailerID string
}

type RetailerCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ShopName string `json:"shop_name"`
}

type RetailerUser struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	ShopName  string    `json:"shop_name,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	ShopName  string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	OrderStatusPending    = "Pending"
	OrderStatusDispatched = "Dispatched"
	OrderStatusDelivered  = "Delivered"
	OrderStatusCancelled  = "Cancelled"
)

const (
	PaymentStatusPaid    = "Paid"
	PaymentStatusPartial = "Partial"
	PaymentStatusUnpaid  = "Unpaid"
)

const (
	PaymentMethodCash         = "cash"
	PaymentMethodCard         = "card"
	PaymentMethodUPI          = "upi"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodCheque       = "cheque"
)

const (
	RoleAdmin    = "admin"
	RoleRetailer = "retailer"
)
