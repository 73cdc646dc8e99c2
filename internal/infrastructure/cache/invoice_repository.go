package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"go.uber.org/zap"
)

const (
	defaultInvoiceTTL = 5 * time.Minute

	invoiceKeyPrefix   = "invoice:"
	statsGenerationKey = "invoice:stats:generation"
)

// InvoiceRepository caches single-invoice reads and statistics in front of
// another invoice.Repository. Every write evicts the invoice it touches and
// rotates the statistics generation. Cache failures are logged and the call
// falls through to the wrapped repository.
type InvoiceRepository struct {
	invoice.Repository
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewInvoiceRepository wraps next with a read cache
func NewInvoiceRepository(next invoice.Repository, store Store, ttl time.Duration, logger *zap.Logger) *InvoiceRepository {
	if ttl <= 0 {
		ttl = defaultInvoiceTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceRepository{Repository: next, store: store, ttl: ttl, logger: logger}
}

func invoiceKey(id uuid.UUID) string {
	return invoiceKeyPrefix + id.String()
}

// FindByID serves from cache when possible
func (r *InvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	key := invoiceKey(id)
	var cached invoice.Invoice
	if r.load(ctx, key, &cached) {
		return &cached, nil
	}

	inv, err := r.Repository.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.save(ctx, key, inv)
	return inv, nil
}

// Statistics caches per scope under the current generation
func (r *InvoiceRepository) Statistics(ctx context.Context, userID *uuid.UUID) (*invoice.Statistics, error) {
	key := r.statsKey(ctx, userID)
	var cached invoice.Statistics
	if key != "" && r.load(ctx, key, &cached) {
		return &cached, nil
	}

	stats, err := r.Repository.Statistics(ctx, userID)
	if err != nil {
		return nil, err
	}
	if key != "" {
		r.save(ctx, key, stats)
	}
	return stats, nil
}

// Create implements invoice.Repository
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	if err := r.Repository.Create(ctx, inv); err != nil {
		return err
	}
	r.invalidate(ctx, inv.ID)
	return nil
}

// Update implements invoice.Repository
func (r *InvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice, changed []invoice.Field) error {
	err := r.Repository.Update(ctx, inv, changed)
	r.invalidate(ctx, inv.ID)
	return err
}

// Delete implements invoice.Repository
func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.Repository.Delete(ctx, id)
	r.invalidate(ctx, id)
	return err
}

// UpdateStatus implements invoice.Repository
func (r *InvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	err := r.Repository.UpdateStatus(ctx, id, status)
	r.invalidate(ctx, id)
	return err
}

// SetPDFReference implements invoice.Repository
func (r *InvoiceRepository) SetPDFReference(ctx context.Context, id uuid.UUID, path *string) error {
	err := r.Repository.SetPDFReference(ctx, id, path)
	r.invalidate(ctx, id)
	return err
}

// MarkOverdue implements invoice.Repository
func (r *InvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]invoice.Invoice, error) {
	flipped, err := r.Repository.MarkOverdue(ctx, now)
	if len(flipped) == 0 {
		return flipped, err
	}
	ids := make([]uuid.UUID, len(flipped))
	for i := range flipped {
		ids[i] = flipped[i].ID
	}
	r.invalidate(ctx, ids...)
	return flipped, err
}

func (r *InvoiceRepository) invalidate(ctx context.Context, ids ...uuid.UUID) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = invoiceKey(id)
	}
	if err := r.store.Delete(ctx, keys...); err != nil {
		r.logger.Warn("failed to evict cached invoices", zap.Error(err), zap.Strings("keys", keys))
	}
	if err := r.store.Set(ctx, statsGenerationKey, []byte(uuid.NewString()), 0); err != nil {
		r.logger.Warn("failed to rotate statistics generation", zap.Error(err))
	}
}

// statsKey returns "" when the generation cannot be read, disabling caching
// for the call.
func (r *InvoiceRepository) statsKey(ctx context.Context, userID *uuid.UUID) string {
	gen, found, err := r.store.Get(ctx, statsGenerationKey)
	if err != nil {
		r.logger.Warn("failed to read statistics generation", zap.Error(err))
		return ""
	}
	if !found {
		gen = []byte(uuid.NewString())
		if err := r.store.Set(ctx, statsGenerationKey, gen, 0); err != nil {
			r.logger.Warn("failed to seed statistics generation", zap.Error(err))
			return ""
		}
	}
	scope := "all"
	if userID != nil {
		scope = userID.String()
	}
	return "invoice:stats:" + string(gen) + ":" + scope
}

func (r *InvoiceRepository) load(ctx context.Context, key string, dst any) bool {
	data, found, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	if !found {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		_ = r.store.Delete(ctx, key)
		return false
	}
	return true
}

func (r *InvoiceRepository) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		r.logger.Warn("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, key, data, r.ttl); err != nil {
		r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var _ invoice.Repository = (*InvoiceRepository)(nil)
