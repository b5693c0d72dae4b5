package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"davakart/backend/internal/domain"
	"davakart/backend/internal/ledger"
	"davakart/backend/internal/recommendation"
	"davakart/backend/internal/store"
	"davakart/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo           store.Repository
	recommender    *recommendation.Engine
	recommendCount int
}

func New(repo store.Repository, recommender *recommendation.Engine, recommendCount int) *Service {
	if recommendCount < 1 {
		recommendCount = recommendation.DefaultCount
	}

	return &Service{
		repo:           repo,
		recommender:    recommender,
		recommendCount: recommendCount,
	}
}

func (s *Service) ListMedicines(ctx context.Context) ([]domain.Medicine, error) {
	actor, _ := ActorFromContext(ctx)
	includeInactive := actor.Role == domain.RoleAdmin
	return s.repo.ListMedicines(ctx, includeInactive)
}

func (s *Service) GetMedicine(ctx context.Context, id string) (domain.Medicine, error) {
	med, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}
	return *med, nil
}

func (s *Service) CreateMedicine(ctx context.Context, req domain.MedicineCreateRequest) (domain.Medicine, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Medicine{}, fmt.Errorf("admin role required")
	}

	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	if req.Name == "" || req.Category == "" {
		return domain.Medicine{}, store.ErrInvalidOrder
	}
	if req.PriceCents < 1 || req.MRPCents < 0 || req.InitialStock < 0 {
		return domain.Medicine{}, store.ErrInvalidOrder
	}

	med := domain.Medicine{
		ID:           xid.New("med"),
		Code:         req.Code,
		Name:         req.Name,
		Category:     req.Category,
		Manufacturer: strings.TrimSpace(req.Manufacturer),
		Unit:         strings.TrimSpace(req.Unit),
		PriceCents:   req.PriceCents,
		MRPCents:     req.MRPCents,
		Stock:        req.InitialStock,
		Description:  strings.TrimSpace(req.Description),
		Dosage:       strings.TrimSpace(req.Dosage),
		Composition:  strings.TrimSpace(req.Composition),
		Active:       true,
	}

	created, err := s.repo.CreateMedicine(ctx, med)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.logAudit(ctx, "medicine_create", "medicine", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) UpdateMedicine(ctx context.Context, id string, req domain.MedicineUpdateRequest) (domain.Medicine, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Medicine{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Medicine{}, store.ErrInvalidOrder
	}

	existing, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return domain.Medicine{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Medicine{}, store.ErrInvalidOrder
		}
		updated.Name = name
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Medicine{}, store.ErrInvalidOrder
		}
		updated.Category = category
	}
	if req.Manufacturer != nil {
		updated.Manufacturer = strings.TrimSpace(*req.Manufacturer)
	}
	if req.Unit != nil {
		updated.Unit = strings.TrimSpace(*req.Unit)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Medicine{}, store.ErrInvalidOrder
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.MRPCents != nil {
		if *req.MRPCents < 0 {
			return domain.Medicine{}, store.ErrInvalidOrder
		}
		updated.MRPCents = *req.MRPCents
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return domain.Medicine{}, store.ErrInvalidOrder
		}
		updated.Stock = *req.Stock
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Dosage != nil {
		updated.Dosage = strings.TrimSpace(*req.Dosage)
	}
	if req.Composition != nil {
		updated.Composition = strings.TrimSpace(*req.Composition)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateMedicine(ctx, updated)
	if err != nil {
		return domain.Medicine{}, err
	}

	s.logAudit(ctx, "medicine_update", "medicine", saved.ID, fmt.Sprintf("active=%t,price=%d,stock=%d", saved.Active, saved.PriceCents, saved.Stock))
	return *saved, nil
}

// DeleteMedicine is a soft delete: the medicine stays on historical
// orders but disappears from the catalog.
func (s *Service) DeleteMedicine(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetMedicineByID(ctx, id)
	if err != nil {
		return err
	}
	existing.Active = false
	if _, err := s.repo.UpdateMedicine(ctx, *existing); err != nil {
		return err
	}
	s.logAudit(ctx, "medicine_delete", "medicine", id, "soft delete")
	return nil
}

func (s *Service) PlaceOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.OrderResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.OrderResponse{}, fmt.Errorf("retailer identity required")
	}

	lines := normalizeLines(req.Items)
	if len(lines) == 0 {
		return domain.OrderResponse{}, store.ErrInvalidOrder
	}

	order := domain.Order{
		ID:              xid.New("ord"),
		RetailerID:      actor.RetailerID,
		RetailerEmail:   actor.Username,
		Items:           lines,
		DeliveryAddress: strings.TrimSpace(req.DeliveryAddress),
		OrderedAt:       time.Now().UTC(),
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	s.logAudit(ctx, "order_place", "order", created.ID, fmt.Sprintf("total=%d,lines=%d", created.TotalCents, len(created.Items)))
	return domain.OrderResponse{Order: *created}, nil
}

func (s *Service) ListMyOrders(ctx context.Context, limit int) (domain.OrderListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.OrderListResponse{}, fmt.Errorf("retailer identity required")
	}

	orders, err := s.repo.ListOrdersByRetailer(ctx, actor.RetailerID, limit)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	return domain.OrderListResponse{Orders: orders}, nil
}

func (s *Service) ListAllOrders(ctx context.Context, limit int) (domain.OrderListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.OrderListResponse{}, fmt.Errorf("admin role required")
	}

	orders, err := s.repo.ListOrders(ctx, limit)
	if err != nil {
		return domain.OrderListResponse{}, err
	}
	return domain.OrderListResponse{Orders: orders}, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.OrderResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.OrderResponse{}, fmt.Errorf("authentication required")
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if actor.Role != domain.RoleAdmin && order.RetailerID != actor.RetailerID {
		return domain.OrderResponse{}, store.ErrNotFound
	}
	return domain.OrderResponse{Order: *order}, nil
}

// UpdateOrderStatus enforces the forward-only lifecycle
// Pending -> Dispatched -> Delivered. Cancellation goes through
// CancelOrder so stock is returned.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, req domain.OrderStatusRequest) (domain.OrderResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.OrderResponse{}, fmt.Errorf("admin role required")
	}

	next := strings.TrimSpace(req.Status)
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if !validStatusTransition(order.Status, next) {
		return domain.OrderResponse{}, store.ErrInvalidOrder
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, next)
	if err != nil {
		return domain.OrderResponse{}, err
	}

	s.logAudit(ctx, "order_status", "order", id, fmt.Sprintf("%s->%s", order.Status, next))
	return domain.OrderResponse{Order: *updated}, nil
}

func (s *Service) CancelOrder(ctx context.Context, id string, req domain.OrderCancelRequest) (domain.OrderResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.OrderResponse{}, fmt.Errorf("authentication required")
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.OrderResponse{}, err
	}
	if actor.Role != domain.RoleAdmin && order.RetailerID != actor.RetailerID {
		return domain.OrderResponse{}, store.ErrNotFound
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled by " + actor.Role
	}

	cancelled, err := s.repo.CancelOrder(ctx, id, reason, time.Now().UTC())
	if err != nil {
		return domain.OrderResponse{}, err
	}

	s.logAudit(ctx, "order_cancel", "order", id, reason)
	return domain.OrderResponse{Order: *cancelled}, nil
}

// RecordPayment applies one collection against an order. The amount must
// be positive and must not exceed the outstanding due; passing either
// check, the order's ledger fields are recomputed from totals and
// persisted together with the append-only payment row.
func (s *Service) RecordPayment(ctx context.Context, orderID string, req domain.PaymentCreateRequest) (domain.PaymentRecordResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.PaymentRecordResponse{}, fmt.Errorf("admin role required")
	}

	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = domain.PaymentMethodCash
	}
	if !ledger.ValidMethod(method) {
		return domain.PaymentRecordResponse{}, store.ErrInvalidOrder
	}

	order, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return domain.PaymentRecordResponse{}, err
	}
	if order.Status == domain.OrderStatusCancelled {
		return domain.PaymentRecordResponse{}, store.ErrInvalidOrder
	}
	if req.AmountCents > ledger.OutstandingDue(order.TotalCents, order.PaidCents) {
		return domain.PaymentRecordResponse{}, ledger.ErrInvalidAmount
	}

	updated, err := ledger.ApplyPayment(*order, req.AmountCents)
	if err != nil {
		return domain.PaymentRecordResponse{}, err
	}

	payment := ledger.NewPayment(xid.New("pay"), order.ID, req.AmountCents, method, strings.TrimSpace(req.Note), actor.Username, time.Now().UTC())
	created, err := s.repo.CreatePayment(ctx, payment, updated)
	if err != nil {
		return domain.PaymentRecordResponse{}, err
	}

	s.logAudit(ctx, "payment_record", "order", order.ID, fmt.Sprintf("amount=%d,method=%s,status=%s", req.AmountCents, method, updated.PaymentStatus))
	return domain.PaymentRecordResponse{Payment: *created, Order: updated}, nil
}

func (s *Service) ListPayments(ctx context.Context, orderID string) (domain.PaymentListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.PaymentListResponse{}, fmt.Errorf("admin role required")
	}

	if _, err := s.repo.GetOrderByID(ctx, orderID); err != nil {
		return domain.PaymentListResponse{}, err
	}
	payments, err := s.repo.ListPaymentsByOrder(ctx, orderID)
	if err != nil {
		return domain.PaymentListResponse{}, err
	}
	return domain.PaymentListResponse{Payments: payments}, nil
}

func (s *Service) Recommendations(ctx context.Context) (domain.RecommendationResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.RecommendationResponse{}, fmt.Errorf("retailer identity required")
	}

	catalog, err := s.repo.ListMedicines(ctx, false)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}
	orders, err := s.repo.ListOrdersByRetailer(ctx, actor.RetailerID, 0)
	if err != nil {
		return domain.RecommendationResponse{}, err
	}

	return s.recommender.Recommend(ctx, actor.RetailerID, catalog, orders, s.recommendCount), nil
}

func (s *Service) ReorderAlerts(ctx context.Context) (domain.ReorderAlertResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.ReorderAlertResponse{}, fmt.Errorf("retailer identity required")
	}

	catalog, err := s.repo.ListMedicines(ctx, false)
	if err != nil {
		return domain.ReorderAlertResponse{}, err
	}
	orders, err := s.repo.ListOrdersByRetailer(ctx, actor.RetailerID, 0)
	if err != nil {
		return domain.ReorderAlertResponse{}, err
	}

	return domain.ReorderAlertResponse{
		RetailerID: actor.RetailerID,
		Alerts:     recommendation.NeedingReorder(catalog, orders, time.Now().UTC()),
	}, nil
}

func (s *Service) TopPurchased(ctx context.Context) (domain.TopPurchasedResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.TopPurchasedResponse{}, fmt.Errorf("retailer identity required")
	}

	catalog, err := s.repo.ListMedicines(ctx, false)
	if err != nil {
		return domain.TopPurchasedResponse{}, err
	}
	orders, err := s.repo.ListOrdersByRetailer(ctx, actor.RetailerID, 0)
	if err != nil {
		return domain.TopPurchasedResponse{}, err
	}

	return domain.TopPurchasedResponse{
		RetailerID: actor.RetailerID,
		Items:      recommendation.TopPurchased(catalog, orders, s.recommendCount, time.Now().UTC()),
	}, nil
}

func (s *Service) ReorderBadge(ctx context.Context, medicineID string) (domain.ReorderBadgeResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.ReorderBadgeResponse{}, fmt.Errorf("retailer identity required")
	}
	if medicineID == "" {
		return domain.ReorderBadgeResponse{}, store.ErrInvalidOrder
	}

	orders, err := s.repo.ListOrdersByRetailer(ctx, actor.RetailerID, 0)
	if err != nil {
		return domain.ReorderBadgeResponse{}, err
	}

	return domain.ReorderBadgeResponse{
		MedicineID: medicineID,
		ShowBadge:  recommendation.ReorderBadge(medicineID, orders, time.Now().UTC()),
	}, nil
}

func (s *Service) AccountingSummary(ctx context.Context) (domain.AccountingSummary, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.AccountingSummary{}, fmt.Errorf("admin role required")
	}

	orders, err := s.repo.ListOrders(ctx, 0)
	if err != nil {
		return domain.AccountingSummary{}, err
	}
	return ledger.Summarize(orders), nil
}

func (s *Service) RetailerStatement(ctx context.Context, retailerID string) (domain.RetailerStatement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.RetailerStatement{}, fmt.Errorf("admin role required")
	}
	if retailerID == "" {
		return domain.RetailerStatement{}, store.ErrInvalidOrder
	}

	orders, err := s.repo.ListOrdersByRetailer(ctx, retailerID, 0)
	if err != nil {
		return domain.RetailerStatement{}, err
	}
	email := ""
	if len(orders) > 0 {
		email = orders[0].RetailerEmail
	}
	return ledger.Statement(retailerID, email, orders), nil
}

func (s *Service) ListActiveBanners(ctx context.Context) (domain.BannerListResponse, error) {
	banners, err := s.repo.ListBanners(ctx, true)
	if err != nil {
		return domain.BannerListResponse{}, err
	}
	return domain.BannerListResponse{Banners: banners}, nil
}

func (s *Service) ListBanners(ctx context.Context) (domain.BannerListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.BannerListResponse{}, fmt.Errorf("admin role required")
	}

	banners, err := s.repo.ListBanners(ctx, false)
	if err != nil {
		return domain.BannerListResponse{}, err
	}
	return domain.BannerListResponse{Banners: banners}, nil
}

func (s *Service) CreateBanner(ctx context.Context, req domain.BannerCreateRequest) (domain.Banner, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Banner{}, fmt.Errorf("admin role required")
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.Banner{}, store.ErrInvalidOrder
	}

	banner := domain.Banner{
		ID:        xid.New("banner"),
		Title:     title,
		Subtitle:  strings.TrimSpace(req.Subtitle),
		Color:     strings.TrimSpace(req.Color),
		Icon:      strings.TrimSpace(req.Icon),
		LinkTo:    strings.TrimSpace(req.LinkTo),
		SortOrder: req.SortOrder,
		Active:    true,
	}

	created, err := s.repo.CreateBanner(ctx, banner)
	if err != nil {
		return domain.Banner{}, err
	}
	s.logAudit(ctx, "banner_create", "banner", created.ID, title)
	return *created, nil
}

func (s *Service) UpdateBanner(ctx context.Context, id string, req domain.BannerUpdateRequest) (domain.Banner, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return domain.Banner{}, fmt.Errorf("admin role required")
	}

	existing, err := s.repo.GetBannerByID(ctx, id)
	if err != nil {
		return domain.Banner{}, err
	}

	updated := *existing
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return domain.Banner{}, store.ErrInvalidOrder
		}
		updated.Title = title
	}
	if req.Subtitle != nil {
		updated.Subtitle = strings.TrimSpace(*req.Subtitle)
	}
	if req.Color != nil {
		updated.Color = strings.TrimSpace(*req.Color)
	}
	if req.Icon != nil {
		updated.Icon = strings.TrimSpace(*req.Icon)
	}
	if req.LinkTo != nil {
		updated.LinkTo = strings.TrimSpace(*req.LinkTo)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}
	if req.SortOrder != nil {
		updated.SortOrder = *req.SortOrder
	}

	saved, err := s.repo.UpdateBanner(ctx, updated)
	if err != nil {
		return domain.Banner{}, err
	}
	s.logAudit(ctx, "banner_update", "banner", saved.ID, fmt.Sprintf("active=%t", saved.Active))
	return *saved, nil
}

func (s *Service) DeleteBanner(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return fmt.Errorf("admin role required")
	}

	if err := s.repo.DeleteBanner(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "banner_delete", "banner", id, "")
	return nil
}

func (s *Service) AddFavorite(ctx context.Context, medicineID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return fmt.Errorf("retailer identity required")
	}

	return s.repo.AddFavorite(ctx, domain.Favorite{
		RetailerID: actor.RetailerID,
		MedicineID: medicineID,
		AddedAt:    time.Now().UTC(),
	})
}

func (s *Service) RemoveFavorite(ctx context.Context, medicineID string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return fmt.Errorf("retailer identity required")
	}
	return s.repo.RemoveFavorite(ctx, actor.RetailerID, medicineID)
}

func (s *Service) ListFavorites(ctx context.Context) (domain.FavoriteListResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.RetailerID == "" {
		return domain.FavoriteListResponse{}, fmt.Errorf("retailer identity required")
	}

	favorites, err := s.repo.ListFavorites(ctx, actor.RetailerID)
	if err != nil {
		return domain.FavoriteListResponse{}, err
	}

	ids := make([]string, 0, len(favorites))
	for _, fav := range favorites {
		ids = append(ids, fav.MedicineID)
	}
	medMap, err := s.repo.GetMedicinesByIDs(ctx, ids)
	if err != nil {
		return domain.FavoriteListResponse{}, err
	}

	medicines := make([]domain.Medicine, 0, len(favorites))
	for _, fav := range favorites {
		if med, ok := medMap[fav.MedicineID]; ok {
			medicines = append(medicines, med)
		}
	}
	return domain.FavoriteListResponse{Medicines: medicines}, nil
}

func (s *Service) ListRetailers(ctx context.Context) ([]domain.RetailerUser, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}

	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]domain.RetailerUser, 0, len(users))
	for _, user := range users {
		result = append(result, domain.RetailerUser{
			ID:        user.ID,
			Username:  user.Username,
			Role:      user.Role,
			ShopName:  user.ShopName,
			Active:    user.Active,
			CreatedAt: user.CreatedAt,
		})
	}
	return result, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, fmt.Errorf("admin role required")
	}
	if to.IsZero() {
		to = time.Now().UTC().Add(time.Minute)
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func normalizeLines(items []domain.OrderLineRequest) []domain.OrderLine {
	agg := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.MedicineID)
		if id == "" || item.Qty < 1 {
			continue
		}
		if _, seen := agg[id]; !seen {
			order = append(order, id)
		}
		agg[id] += item.Qty
	}

	lines := make([]domain.OrderLine, 0, len(agg))
	for _, id := range order {
		lines = append(lines, domain.OrderLine{MedicineID: id, Qty: agg[id]})
	}
	return lines
}

func validStatusTransition(current string, next string) bool {
	switch current {
	case domain.OrderStatusPending:
		return next == domain.OrderStatusDispatched
	case domain.OrderStatusDispatched:
		return next == domain.OrderStatusDelivered
	default:
		return false
	}
}

// IsNotFound reports whether err maps to a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
