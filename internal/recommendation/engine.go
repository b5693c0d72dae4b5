package recommendation

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"davakart/backend/internal/cache"
	"davakart/backend/internal/domain"
)

// Scoring weights. These were tuned against retailer purchase patterns;
// change them together with the tests that pin the ranking behavior.
const (
	DefaultReorderIntervalDays = 30.0
	ReorderThresholdRatio      = 0.8
	FrequencyWeight            = 5.0
	ReorderDueBonus            = 10.0
	RecencyBonus               = 3.0
	RecencyWindowDays          = 60.0
	InStockBonus               = 1.0
	OutOfStockPenalty          = -5.0
	DefaultCount               = 6
)

type Engine struct {
	cache    cache.RecommendationCache
	cacheTTL time.Duration
}

func NewEngine(cacheStore cache.RecommendationCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopRecommendationCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Aggregate folds a retailer's order history into per-medicine frequency
// records. Count sums line quantities; LastPurchase keeps the latest
// ordered_at that touched the medicine. The fold is commutative, so the
// result does not depend on the order the orders arrive in.
func Aggregate(orders []domain.Order) map[string]domain.FrequencyRecord {
	records := make(map[string]domain.FrequencyRecord)
	for _, order := range orders {
		orderedAt := order.OrderedAt
		for _, line := range order.Items {
			if line.MedicineID == "" || line.Qty < 1 {
				continue
			}
			rec := records[line.MedicineID]
			rec.MedicineID = line.MedicineID
			rec.Count += line.Qty
			if rec.LastPurchase == nil || orderedAt.After(*rec.LastPurchase) {
				t := orderedAt
				rec.LastPurchase = &t
			}
			records[line.MedicineID] = rec
		}
	}
	return records
}

// NeedsReorder reports whether enough of the reorder interval has elapsed
// since the last purchase to prompt the retailer. Elapsed time is measured
// in fractional days and the prompt fires at 80% of the interval, so a
// 30-day interval prompts from day 24. A medicine never purchased does not
// need reordering.
func NeedsReorder(lastPurchase *time.Time, intervalDays float64, now time.Time) bool {
	if lastPurchase == nil {
		return false
	}
	if intervalDays <= 0 {
		intervalDays = DefaultReorderIntervalDays
	}
	elapsedDays := now.Sub(*lastPurchase).Hours() / 24
	return elapsedDays >= ReorderThresholdRatio*intervalDays
}

// Score computes the recommendation score for one medicine given its
// frequency record. A nil record means the medicine was never purchased;
// it then competes on stock signal alone.
func Score(med domain.Medicine, rec *domain.FrequencyRecord, now time.Time) float64 {
	score := 0.0
	if rec != nil {
		score += float64(rec.Count) * FrequencyWeight
		if NeedsReorder(rec.LastPurchase, DefaultReorderIntervalDays, now) {
			score += ReorderDueBonus
		}
		if rec.LastPurchase != nil {
			elapsedDays := now.Sub(*rec.LastPurchase).Hours() / 24
			if elapsedDays < RecencyWindowDays {
				score += RecencyBonus
			}
		}
	}
	if med.Stock > 0 {
		score += InStockBonus
	} else {
		score += OutOfStockPenalty
	}
	return score
}

// Rank scores the catalog against the retailer's history and returns the
// top count medicines, highest score first. Ties keep catalog order. With
// no history at all it falls back to the first count catalog medicines.
func Rank(catalog []domain.Medicine, orders []domain.Order, count int, now time.Time) []domain.ScoredMedicine {
	if count < 1 {
		count = DefaultCount
	}

	records := Aggregate(orders)
	if len(records) == 0 {
		result := make([]domain.ScoredMedicine, 0, count)
		for _, med := range catalog {
			if len(result) == count {
				break
			}
			result = append(result, domain.ScoredMedicine{Medicine: med})
		}
		return result
	}

	scored := make([]domain.ScoredMedicine, 0, len(catalog))
	for _, med := range catalog {
		var rec *domain.FrequencyRecord
		if r, ok := records[med.ID]; ok {
			rec = &r
		}
		entry := domain.ScoredMedicine{
			Medicine: med,
			Score:    Score(med, rec, now),
		}
		if rec != nil {
			entry.LastPurchase = rec.LastPurchase
			entry.ReorderDue = NeedsReorder(rec.LastPurchase, DefaultReorderIntervalDays, now)
		}
		scored = append(scored, entry)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > count {
		scored = scored[:count]
	}
	return scored
}

// ReorderBadge reports whether the given medicine should carry a reorder
// prompt for this retailer, based on their own order history.
func ReorderBadge(medicineID string, orders []domain.Order, now time.Time) bool {
	records := Aggregate(orders)
	rec, ok := records[medicineID]
	if !ok {
		return false
	}
	return NeedsReorder(rec.LastPurchase, DefaultReorderIntervalDays, now)
}

// NeedingReorder lists catalog medicines whose last purchase has crossed
// the reorder threshold, most overdue first.
func NeedingReorder(catalog []domain.Medicine, orders []domain.Order, now time.Time) []domain.ReorderAlert {
	records := Aggregate(orders)
	alerts := make([]domain.ReorderAlert, 0)
	for _, med := range catalog {
		rec, ok := records[med.ID]
		if !ok || rec.LastPurchase == nil {
			continue
		}
		if !NeedsReorder(rec.LastPurchase, DefaultReorderIntervalDays, now) {
			continue
		}
		alerts = append(alerts, domain.ReorderAlert{
			Medicine:      med,
			LastPurchase:  *rec.LastPurchase,
			DaysSinceLast: now.Sub(*rec.LastPurchase).Hours() / 24,
		})
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].DaysSinceLast > alerts[j].DaysSinceLast
	})
	return alerts
}

// TopPurchased returns the retailer's most purchased medicines by total
// quantity, capped at count.
func TopPurchased(catalog []domain.Medicine, orders []domain.Order, count int, now time.Time) []domain.TopPurchasedEntry {
	if count < 1 {
		count = DefaultCount
	}
	records := Aggregate(orders)
	entries := make([]domain.TopPurchasedEntry, 0, len(records))
	for _, med := range catalog {
		rec, ok := records[med.ID]
		if !ok || rec.Count == 0 {
			continue
		}
		entries = append(entries, domain.TopPurchasedEntry{Medicine: med, Count: rec.Count})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	if len(entries) > count {
		entries = entries[:count]
	}
	return entries
}

// Recommend is the cached entry point used by the service layer.
func (e *Engine) Recommend(ctx context.Context, retailerID string, catalog []domain.Medicine, orders []domain.Order, count int) domain.RecommendationResponse {
	cacheKey := buildCacheKey(retailerID, count, orders)
	if cached, ok, err := e.cache.Get(ctx, cacheKey); err == nil && ok {
		return *cached
	}

	resp := domain.RecommendationResponse{
		RetailerID:      retailerID,
		Recommendations: Rank(catalog, orders, count, time.Now().UTC()),
		GeneratedAt:     time.Now().UTC().Format(time.RFC3339),
	}

	_ = e.cache.Set(ctx, cacheKey, &resp, e.cacheTTL)
	return resp
}

// buildCacheKey folds the latest order into the key so a fresh order
// invalidates the cached ranking immediately instead of waiting out the TTL.
func buildCacheKey(retailerID string, count int, orders []domain.Order) string {
	latest := ""
	for _, order := range orders {
		if order.ID > latest {
			latest = order.ID
		}
	}
	raw := fmt.Sprintf("%s|%d|%d|%s", retailerID, count, len(orders), latest)
	hash := sha1.Sum([]byte(raw))
	return "davakart:recommendation:" + hex.EncodeToString(hash[:])
}
