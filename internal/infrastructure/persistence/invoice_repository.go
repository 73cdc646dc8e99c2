package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/infinity-9427/invoicing/internal/domain/invoice"
	"github.com/infinity-9427/invoicing/internal/domain/shared"
	"github.com/infinity-9427/invoicing/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements invoice.Repository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// hydrated preloads the associations every read returns
func hydrated(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Client").
		Preload("User")
}

// Create stores the header and its items in one transaction
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Client", "User").Create(model).Error
	})
	return r.mapWriteErr(err, "create invoice")
}

// Update writes the changed header columns plus updated_at, and replaces the
// whole item set when items changed. Columns outside changed keep their
// stored value, so a concurrent status change is not overwritten. The
// document reference is never written here.
func (r *GormInvoiceRepository) Update(ctx context.Context, inv *invoice.Invoice, changed []invoice.Field) error {
	model := models.InvoiceModelFromDomain(inv)
	columns := map[string]any{"updated_at": model.UpdatedAt}
	replaceItems := false
	for _, f := range changed {
		switch f {
		case invoice.FieldNumber:
			columns["invoice_number"] = model.InvoiceNumber
		case invoice.FieldClient:
			columns["client_id"] = model.ClientID
		case invoice.FieldDescription:
			columns["description"] = model.Description
		case invoice.FieldNotes:
			columns["additional_notes"] = model.AdditionalNotes
		case invoice.FieldIssueDate:
			columns["issue_date"] = model.IssueDate
		case invoice.FieldDueDate:
			columns["due_date"] = model.DueDate
		case invoice.FieldTotal:
			columns["total_amount"] = model.TotalAmount
		case invoice.FieldStatus:
			columns["status"] = model.Status
		case invoice.FieldAttachment:
			columns["attachment_path"] = model.AttachmentPath
		case invoice.FieldItems:
			replaceItems = true
		}
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.InvoiceModel{}).
			Where("id = ?", inv.ID).
			Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invoice.ErrInvoiceNotFound
		}
		if !replaceItems {
			return nil
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		if len(model.Items) == 0 {
			return nil
		}
		return tx.Create(&model.Items).Error
	})
	return r.mapWriteErr(err, "update invoice")
}

// Delete removes the items and the header in one transaction
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.InvoiceModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invoice.ErrInvoiceNotFound
		}
		return nil
	})
	return wrapErr(err, invoice.ErrInvoiceNotFound, "delete invoice")
}

// FindByID returns the invoice hydrated with items, client and user
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	var model models.InvoiceModel
	if err := hydrated(r.db.WithContext(ctx)).First(&model, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err, invoice.ErrInvoiceNotFound, "load invoice")
	}
	return model.ToDomain(), nil
}

// List returns one page of invoices matching the filter and the total count
func (r *GormInvoiceRepository) List(ctx context.Context, filter invoice.Filter) ([]invoice.Invoice, int64, error) {
	filter.Filter = filter.Filter.Normalize()
	base := func() *gorm.DB {
		return r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, wrapErr(err, shared.ErrNotFound, "count invoices")
	}

	orderBy := ValidateSortField(filter.OrderBy, InvoiceSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var rows []models.InvoiceModel
	err := hydrated(base()).
		Order("invoices." + orderBy + " " + orderDir).
		Order("invoices.id " + orderDir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, wrapErr(err, shared.ErrNotFound, "list invoices")
	}

	invoices := make([]invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

// UpdateStatus writes the status column
func (r *GormInvoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status invoice.Status) error {
	res := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return wrapErr(res.Error, invoice.ErrInvoiceNotFound, "update invoice status")
	}
	if res.RowsAffected == 0 {
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

// MarkOverdue flips pending invoices due strictly before now. Each row is
// re-checked in its own guarded update, so an invoice paid between the scan
// and the update is left alone.
func (r *GormInvoiceRepository) MarkOverdue(ctx context.Context, now time.Time) ([]invoice.Invoice, error) {
	now = now.UTC()
	db := r.db.WithContext(ctx)

	var candidates []uuid.UUID
	err := db.Model(&models.InvoiceModel{}).
		Where("status = ? AND due_date < ?", invoice.StatusPending, now).
		Order("due_date ASC").
		Pluck("id", &candidates).Error
	if err != nil {
		return nil, wrapErr(err, shared.ErrNotFound, "scan overdue invoices")
	}

	flipped := make([]uuid.UUID, 0, len(candidates))
	for _, id := range candidates {
		res := db.Model(&models.InvoiceModel{}).
			Where("id = ? AND status = ? AND due_date < ?", id, invoice.StatusPending, now).
			Updates(map[string]any{"status": invoice.StatusOverdue, "updated_at": now})
		if res.Error != nil {
			return nil, wrapErr(res.Error, shared.ErrNotFound, "mark invoice overdue")
		}
		if res.RowsAffected == 1 {
			flipped = append(flipped, id)
		}
	}
	if len(flipped) == 0 {
		return nil, nil
	}

	var rows []models.InvoiceModel
	if err := hydrated(db).Where("id IN ?", flipped).Order("due_date ASC").Find(&rows).Error; err != nil {
		return nil, wrapErr(err, shared.ErrNotFound, "load overdue invoices")
	}
	invoices := make([]invoice.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// SetPDFReference writes only the document path. UpdateColumn skips hooks and
// leaves updated_at untouched.
func (r *GormInvoiceRepository) SetPDFReference(ctx context.Context, id uuid.UUID, path *string) error {
	res := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("id = ?", id).
		UpdateColumn("pdf_path", path)
	if res.Error != nil {
		return wrapErr(res.Error, invoice.ErrInvoiceNotFound, "store document reference")
	}
	if res.RowsAffected == 0 {
		return invoice.ErrInvoiceNotFound
	}
	return nil
}

// ExistsByNumber checks number uniqueness, ignoring excludeID
func (r *GormInvoiceRepository) ExistsByNumber(ctx context.Context, number string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("invoice_number = ?", number)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, wrapErr(err, shared.ErrNotFound, "check invoice number")
	}
	return count > 0, nil
}

// NextNumber returns the number after the highest sequence used in at's month.
// Numbers sharing the prefix but not ending in a sequence are ignored.
func (r *GormInvoiceRepository) NextNumber(ctx context.Context, at time.Time) (string, error) {
	prefix := invoice.MonthPrefix(at)

	var numbers []string
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("invoice_number LIKE ?", prefix+"%").
		Pluck("invoice_number", &numbers).Error
	if err != nil {
		return "", wrapErr(err, shared.ErrNotFound, "generate invoice number")
	}

	highest := 0
	for _, n := range numbers {
		if seq, ok := invoice.ParseSequence(n, prefix); ok && seq > highest {
			highest = seq
		}
	}
	return invoice.FormatNumber(at, highest+1), nil
}

type statusAggregate struct {
	Status string
	Count  int64
	Total  decimal.Decimal
}

// Statistics aggregates counts and amounts per status, optionally for one issuer
func (r *GormInvoiceRepository) Statistics(ctx context.Context, userID *uuid.UUID) (*invoice.Statistics, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS total").
		Group("status")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var rows []statusAggregate
	if err := query.Scan(&rows).Error; err != nil {
		return nil, wrapErr(err, shared.ErrNotFound, "compute invoice statistics")
	}

	stats := &invoice.Statistics{
		TotalAmount:   decimal.Zero,
		PaidAmount:    decimal.Zero,
		PendingAmount: decimal.Zero,
		OverdueAmount: decimal.Zero,
	}
	for _, row := range rows {
		total := row.Total.Round(2)
		stats.TotalInvoices += row.Count
		stats.TotalAmount = stats.TotalAmount.Add(total)
		switch invoice.Status(row.Status) {
		case invoice.StatusPending:
			stats.PendingInvoices = row.Count
			stats.PendingAmount = total
		case invoice.StatusPaid:
			stats.PaidInvoices = row.Count
			stats.PaidAmount = total
		case invoice.StatusOverdue:
			stats.OverdueInvoices = row.Count
			stats.OverdueAmount = total
		}
	}
	return stats, nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter invoice.Filter) *gorm.DB {
	if filter.UserID != nil {
		query = query.Where("invoices.user_id = ?", *filter.UserID)
	}
	if filter.ClientID != nil {
		query = query.Where("invoices.client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("invoices.status = ?", *filter.Status)
	}
	if n := strings.TrimSpace(filter.Number); n != "" {
		query = query.Where(`LOWER(invoices.invoice_number) LIKE ? ESCAPE '\'`, likePattern(n))
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		p := likePattern(s)
		query = query.Where(
			`LOWER(invoices.invoice_number) LIKE ? ESCAPE '\' OR LOWER(invoices.description) LIKE ? ESCAPE '\' OR invoices.client_id IN (?)`,
			p, p,
			r.db.Model(&models.ClientModel{}).Select("id").
				Where(`LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, p, p, p),
		)
	}
	if filter.IssueDateFrom != nil {
		query = query.Where("invoices.issue_date >= ?", filter.IssueDateFrom.UTC())
	}
	if filter.IssueDateTo != nil {
		query = query.Where("invoices.issue_date <= ?", filter.IssueDateTo.UTC())
	}
	if filter.DueDateFrom != nil {
		query = query.Where("invoices.due_date >= ?", filter.DueDateFrom.UTC())
	}
	if filter.DueDateTo != nil {
		query = query.Where("invoices.due_date <= ?", filter.DueDateTo.UTC())
	}
	if filter.AmountMin != nil {
		query = query.Where("invoices.total_amount >= ?", *filter.AmountMin)
	}
	if filter.AmountMax != nil {
		query = query.Where("invoices.total_amount <= ?", *filter.AmountMax)
	}
	return query
}

func (r *GormInvoiceRepository) mapWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if _, ok := uniqueViolation(err); ok {
		return invoice.ErrNumberConflict.WithCause(err)
	}
	if errors.Is(err, invoice.ErrInvoiceNotFound) {
		return err
	}
	return wrapErr(err, invoice.ErrInvoiceNotFound, op)
}

func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(strings.ToLower(s))
	return "%" + s + "%"
}

// Ensure GormInvoiceRepository implements invoice.Repository
var _ invoice.Repository = (*GormInvoiceRepository)(nil)
