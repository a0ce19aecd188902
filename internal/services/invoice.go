package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/models"
)

// InvoiceInput creates an invoice that does not come from a quotation.
type InvoiceInput struct {
	LeadID    uint       `json:"lead_id"`
	PackageID *uint      `json:"package_id,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	DocumentInput
}

// InvoiceUpdate replaces the content of an invoice.
type InvoiceUpdate struct {
	DueDate *time.Time `json:"due_date,omitempty"`
	DocumentInput
}

var invoiceTransitions = map[models.InvoiceStatus][]models.InvoiceStatus{
	models.InvoiceStatusDraft:   {models.InvoiceStatusSent, models.InvoiceStatusCancelled},
	models.InvoiceStatusSent:    {models.InvoiceStatusCancelled},
	models.InvoiceStatusOverdue: {models.InvoiceStatusCancelled},
}

type InvoiceService struct {
	base
}

func NewInvoiceService(db *gorm.DB, opts ...Option) *InvoiceService {
	return &InvoiceService{base: newBase(db, opts)}
}

func (s *InvoiceService) newInvoice(tx *gorm.DB, leadID uint, now time.Time, due *time.Time) (*models.Invoice, error) {
	number, err := models.GenerateNumber(tx, &models.Invoice{}, models.InvoicePrefix, now)
	if err != nil {
		return nil, err
	}
	dueDate := now.Add(s.policy.InvoiceTerm)
	if due != nil {
		dueDate = *due
	}
	return &models.Invoice{
		CreatedAt:  now,
		Number:     number,
		LeadID:     leadID,
		IssueDate:  now,
		DueDate:    dueDate,
		Status:     models.InvoiceStatusDraft,
		PaidAmount: decimal.Zero,
		Version:    1,
	}, nil
}

// ConvertQuotation creates an invoice carrying the quotation's items, mode, discount,
// tax and service charge, and marks the quotation converted. Both happen in one
// transaction; a quotation converts only once.
func (s *InvoiceService) ConvertQuotation(ctx context.Context, quotationID uint) (*models.Invoice, error) {
	now := s.now()
	var inv *models.Invoice
	err := s.run(ctx, "invoice.convert", func(tx *gorm.DB) error {
		var q models.Quotation
		if err := translate(loadQuotation(tx, quotationID, &q), "quotation", quotationID); err != nil {
			return err
		}
		if q.IsConverted() {
			return invalid(ErrAlreadyConverted, "quotation %s was already converted", q.Number)
		}
		if !q.CanConvert() {
			return invalid(ErrInvalidTransition, "quotation %s is %s", q.Number, q.Status)
		}

		var err error
		inv, err = s.newInvoice(tx, q.LeadID, now, nil)
		if err != nil {
			return err
		}
		items := q.LineItems()
		inv.QuotationID = &q.ID
		inv.PackageID = q.PackageID
		inv.Notes = q.Notes
		inv.Pricing = q.Pricing
		inv.Recompute(items)
		inv.Items = models.InvoiceItemsFrom(items)
		inv.Settle(decimal.Zero, now)
		if err := tx.Create(inv).Error; err != nil {
			return err
		}

		res := tx.Model(&models.Quotation{}).
			Where("id = ? AND status <> ?", q.ID, models.QuotationStatusConverted).
			Updates(map[string]any{
				"status":                  models.QuotationStatusConverted,
				"converted_to_invoice_id": inv.ID,
				"version":                 gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return invalid(ErrAlreadyConverted, "quotation %s was already converted", q.Number)
		}
		if err := s.audit(ctx, tx, "quotation", q.ID, "convert", "status", string(q.Status), string(models.QuotationStatusConverted)); err != nil {
			return err
		}
		return s.audit(ctx, tx, "invoice", inv.ID, "create", "quotation", "", q.Number)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("invoice")
	s.metrics.StatusChanged("quotation", string(models.QuotationStatusConverted))
	s.logger(ctx).WithFields(logrus.Fields{"invoice": inv.Number, "quotation_id": quotationID, "total": inv.TotalAmount.StringFixed(2)}).Info("quotation converted")
	return inv, nil
}

// Create stores a draft invoice built directly from input.
func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (*models.Invoice, error) {
	pricing, items, err := in.prepare()
	if err != nil {
		return nil, err
	}
	now := s.now()
	var inv *models.Invoice
	err = s.run(ctx, "invoice.create", func(tx *gorm.DB) error {
		lead, err := loadLead(tx, in.LeadID)
		if err != nil {
			return err
		}
		inv, err = s.newInvoice(tx, lead.ID, now, in.DueDate)
		if err != nil {
			return err
		}
		inv.PackageID = in.PackageID
		if inv.PackageID == nil {
			inv.PackageID = lead.PackageID
		}
		inv.Notes = in.Notes
		inv.Pricing = pricing
		inv.Items = models.InvoiceItemsFrom(items)
		inv.Settle(decimal.Zero, now)
		if err := tx.Create(inv).Error; err != nil {
			return err
		}
		return s.audit(ctx, tx, "invoice", inv.ID, "create", "", "", inv.Number)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("invoice")
	s.logger(ctx).WithFields(logrus.Fields{"invoice": inv.Number, "lead_id": inv.LeadID}).Info("invoice created")
	return inv, nil
}

// Get loads an invoice with its items.
func (s *InvoiceService) Get(ctx context.Context, id uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.run(ctx, "invoice.get", func(tx *gorm.DB) error {
		inv = models.Invoice{}
		return translate(loadInvoice(tx, id, &inv), "invoice", id)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func loadInvoice(tx *gorm.DB, id uint, inv *models.Invoice) error {
	return tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(inv, id).Error
}

// Update is the only way an invoice's totals change. It is refused for paid or cancelled
// invoices and when the new total would fall below what has already been paid.
func (s *InvoiceService) Update(ctx context.Context, id uint, in InvoiceUpdate) (*models.Invoice, error) {
	pricing, items, err := in.prepare()
	if err != nil {
		return nil, err
	}
	now := s.now()
	var inv models.Invoice
	err = s.run(ctx, "invoice.update", func(tx *gorm.DB) error {
		inv = models.Invoice{}
		if err := translate(tx.First(&inv, id).Error, "invoice", id); err != nil {
			return err
		}
		if !inv.CanEdit() {
			return invalid(ErrDocumentLocked, "invoice %s is %s", inv.Number, inv.Status)
		}
		if pricing.TotalAmount.LessThan(inv.PaidAmount) {
			return invalid(ErrTotalBelowPaid, "new total %s is below paid amount %s",
				pricing.TotalAmount.StringFixed(2), inv.PaidAmount.StringFixed(2))
		}
		previous := inv.TotalAmount
		version := inv.Version
		inv.Pricing = pricing
		inv.Notes = in.Notes
		if in.DueDate != nil {
			inv.DueDate = *in.DueDate
		}
		inv.Settle(inv.PaidAmount, now)
		inv.Version++
		if err := saveVersioned(tx, &inv, version); err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}
		inv.Items = models.InvoiceItemsFrom(items)
		for i := range inv.Items {
			inv.Items[i].InvoiceID = inv.ID
		}
		if err := tx.Create(&inv.Items).Error; err != nil {
			return err
		}
		return s.audit(ctx, tx, "invoice", inv.ID, "update", "total_amount", previous.StringFixed(2), inv.TotalAmount.StringFixed(2))
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Transition sends or cancels an invoice. Payment statuses follow receipts and cannot be
// set directly; an invoice with receipts cannot be cancelled.
func (s *InvoiceService) Transition(ctx context.Context, id uint, status models.InvoiceStatus) (*models.Invoice, error) {
	var inv models.Invoice
	err := s.run(ctx, "invoice.transition", func(tx *gorm.DB) error {
		inv = models.Invoice{}
		if err := translate(loadInvoice(tx, id, &inv), "invoice", id); err != nil {
			return err
		}
		if !allowed(invoiceTransitions[inv.Status], status) {
			return invalid(ErrInvalidTransition, "invoice cannot move from %s to %s", inv.Status, status)
		}
		if status == models.InvoiceStatusCancelled {
			var receipts int64
			if err := tx.Model(&models.Receipt{}).Where("invoice_id = ?", inv.ID).Count(&receipts).Error; err != nil {
				return err
			}
			if receipts > 0 || inv.PaidAmount.IsPositive() {
				return invalid(ErrHasReceipts, "invoice %s has %d receipt(s)", inv.Number, receipts)
			}
		}
		from := inv.Status
		version := inv.Version
		inv.Status = status
		inv.Version++
		if err := saveVersioned(tx, &inv, version); err != nil {
			return err
		}
		return s.audit(ctx, tx, "invoice", inv.ID, "status", "status", string(from), string(status))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.StatusChanged("invoice", string(status))
	s.logger(ctx).WithFields(logrus.Fields{"invoice": inv.Number, "status": status}).Info("invoice status changed")
	return &inv, nil
}

// MarkOverdue flags sent or partially paid invoices whose due date passed before now.
func (s *InvoiceService) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.run(ctx, "invoice.overdue", func(tx *gorm.DB) error {
		n = 0
		var due []models.Invoice
		err := tx.Select("id", "status").
			Where("status IN ? AND due_date < ?",
				[]models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusPartial}, now).
			Find(&due).Error
		if err != nil {
			return err
		}
		for _, inv := range due {
			res := tx.Model(&models.Invoice{}).
				Where("id = ? AND status = ?", inv.ID, inv.Status).
				Updates(map[string]any{"status": models.InvoiceStatusOverdue, "version": gorm.Expr("version + 1")})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			n++
			if err := s.audit(ctx, tx, "invoice", inv.ID, "status", "status", string(inv.Status), string(models.InvoiceStatusOverdue)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.SweepUpdated("invoice_overdue", n)
	return n, nil
}

// ListByLead returns a lead's invoices, most recent first.
func (s *InvoiceService) ListByLead(ctx context.Context, leadID uint) ([]models.Invoice, error) {
	var out []models.Invoice
	err := s.run(ctx, "invoice.list", func(tx *gorm.DB) error {
		return tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("lead_id = ?", leadID).
			Order("created_at DESC, id DESC").
			Find(&out).Error
	})
	return out, err
}
