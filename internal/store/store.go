package store

import (
	"context"
	"errors"
	"time"

	"davakart/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrConflict          = errors.New("conflict")
)

type Repository interface {
	ListMedicines(ctx context.Context, includeInactive bool) ([]domain.Medicine, error)
	GetMedicineByID(ctx context.Context, id string) (*domain.Medicine, error)
	GetMedicinesByIDs(ctx context.Context, ids []string) (map[string]domain.Medicine, error)
	CreateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error)
	UpdateMedicine(ctx context.Context, med domain.Medicine) (*domain.Medicine, error)

	CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByRetailer(ctx context.Context, retailerID string, limit int) ([]domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error)
	CancelOrder(ctx context.Context, id string, reason string, at time.Time) (*domain.Order, error)

	CreatePayment(ctx context.Context, payment domain.Payment, order domain.Order) (*domain.Payment, error)
	ListPaymentsByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)

	ListBanners(ctx context.Context, activeOnly bool) ([]domain.Banner, error)
	CreateBanner(ctx context.Context, banner domain.Banner) (*domain.Banner, error)
	UpdateBanner(ctx context.Context, banner domain.Banner) (*domain.Banner, error)
	GetBannerByID(ctx context.Context, id string) (*domain.Banner, error)
	DeleteBanner(ctx context.Context, id string) error

	AddFavorite(ctx context.Context, fav domain.Favorite) error
	RemoveFavorite(ctx context.Context, retailerID string, medicineID string) error
	ListFavorites(ctx context.Context, retailerID string) ([]domain.Favorite, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}
