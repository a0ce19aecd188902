package services

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/models"
	"github.com/diewo77/voyage-billing/internal/validation"
)

var last4 = regexp.MustCompile(`^[0-9]{4}$`)

// ReceiptInput records a payment against an invoice.
type ReceiptInput struct {
	Amount               decimal.Decimal      `json:"amount"`
	PaymentMethod        models.PaymentMethod `json:"payment_method"`
	PaymentDate          *time.Time           `json:"payment_date,omitempty"`
	TransactionReference string               `json:"transaction_reference,omitempty"`
	BankName             string               `json:"bank_name,omitempty"`
	ChequeNumber         string               `json:"cheque_number,omitempty"`
	ChequeDate           *time.Time           `json:"cheque_date,omitempty"`
	CardLast4            string               `json:"card_last4,omitempty"`
	Notes                string               `json:"notes,omitempty"`
}

func (in ReceiptInput) validate() error {
	if !in.Amount.IsPositive() {
		return invalid(ErrNonPositiveAmount, "amount %s must be greater than zero", in.Amount.String())
	}
	v := validation.Violations{}
	validation.OneOf("payment_method", in.PaymentMethod, models.PaymentMethods, v)
	switch in.PaymentMethod {
	case models.PaymentBankTransfer, models.PaymentUPI:
		validation.Required("transaction_reference", in.TransactionReference, v)
	case models.PaymentCheque:
		validation.Required("cheque_number", in.ChequeNumber, v)
		validation.Required("bank_name", in.BankName, v)
	case models.PaymentCard:
		if in.CardLast4 != "" && !last4.MatchString(in.CardLast4) {
			v["card_last4"] = "invalid_value"
		}
	}
	if v.Empty() {
		return nil
	}
	return &ValidationError{Err: ErrPaymentDetails, Fields: v}
}

func (in ReceiptInput) apply(r *models.Receipt, now time.Time) {
	r.Amount = in.Amount
	r.PaymentMethod = in.PaymentMethod
	r.PaymentDate = now
	if in.PaymentDate != nil {
		r.PaymentDate = *in.PaymentDate
	}
	r.TransactionReference = strings.TrimSpace(in.TransactionReference)
	r.BankName = strings.TrimSpace(in.BankName)
	r.ChequeNumber = strings.TrimSpace(in.ChequeNumber)
	r.ChequeDate = in.ChequeDate
	r.CardLast4 = in.CardLast4
	r.Notes = in.Notes
}

// ReceiptService records payments. Saves for one invoice are serialized in process, and
// the invoice row's version catches writers from other processes.
type ReceiptService struct {
	base
	locks *keyedMutex
}

func NewReceiptService(db *gorm.DB, opts ...Option) *ReceiptService {
	return &ReceiptService{base: newBase(db, opts), locks: newKeyedMutex()}
}

// Save records a receipt. The invoice is re-read inside the transaction and the amount
// must not exceed what is outstanding at that moment.
func (s *ReceiptService) Save(ctx context.Context, invoiceID uint, in ReceiptInput) (*models.Receipt, error) {
	if err := in.validate(); err != nil {
		s.metrics.Receipt("rejected")
		return nil, err
	}
	unlock := s.locks.Lock(invoiceID)
	defer unlock()

	now := s.now()
	var (
		r   *models.Receipt
		inv models.Invoice
	)
	err := s.run(ctx, "receipt.save", func(tx *gorm.DB) error {
		inv = models.Invoice{}
		if err := translate(tx.First(&inv, invoiceID).Error, "invoice", invoiceID); err != nil {
			return err
		}
		if !inv.AcceptsPayment() {
			return invalid(ErrDocumentLocked, "invoice %s is %s", inv.Number, inv.Status)
		}
		outstanding := inv.Outstanding()
		if in.Amount.GreaterThan(outstanding) {
			return invalid(ErrExceedsOutstanding, "amount %s exceeds outstanding %s",
				in.Amount.StringFixed(2), outstanding.StringFixed(2))
		}

		number, err := models.GenerateNumber(tx, &models.Receipt{}, models.ReceiptPrefix, now)
		if err != nil {
			return err
		}
		r = &models.Receipt{
			CreatedAt: now,
			Number:    number,
			Reference: uuid.NewString(),
			InvoiceID: inv.ID,
			LeadID:    inv.LeadID,
		}
		in.apply(r, now)
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		from := inv.Status
		if err := s.settle(tx, &inv, inv.PaidAmount.Add(in.Amount), now); err != nil {
			return err
		}
		if err := s.audit(ctx, tx, "invoice", inv.ID, "payment", "paid_amount", "", inv.PaidAmount.StringFixed(2)); err != nil {
			return err
		}
		if from != inv.Status {
			return s.audit(ctx, tx, "invoice", inv.ID, "status", "status", string(from), string(inv.Status))
		}
		return nil
	})
	if err != nil {
		s.metrics.Receipt("rejected")
		return nil, err
	}
	s.metrics.Receipt("saved")
	s.logger(ctx).WithFields(logrus.Fields{
		"receipt":     r.Number,
		"invoice":     inv.Number,
		"amount":      r.Amount.StringFixed(2),
		"outstanding": inv.OutstandingAmount.StringFixed(2),
		"status":      inv.Status,
	}).Info("receipt saved")
	return r, nil
}

// settle writes the new paid amount and derived status to the invoice, guarded by its version.
func (s *ReceiptService) settle(tx *gorm.DB, inv *models.Invoice, paid decimal.Decimal, now time.Time) error {
	version := inv.Version
	inv.Settle(paid, now)
	inv.Version++
	res := tx.Model(&models.Invoice{}).
		Where("id = ? AND version = ?", inv.ID, version).
		Updates(map[string]any{
			"paid_amount":        inv.PaidAmount,
			"outstanding_amount": inv.OutstandingAmount,
			"status":             inv.Status,
			"paid_date":          inv.PaidDate,
			"version":            inv.Version,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invalid(ErrConcurrentUpdate, "invoice %s was modified by another request", inv.Number)
	}
	if inv.Status == models.InvoiceStatusPaid {
		s.metrics.StatusChanged("invoice", string(models.InvoiceStatusPaid))
	}
	return nil
}

// Update edits a receipt. The invoice's paid amount is recomputed as the sum of its
// receipts, so the new amount may use what the old amount covered.
func (s *ReceiptService) Update(ctx context.Context, id uint, in ReceiptInput) (*models.Receipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(existing.InvoiceID)
	defer unlock()

	now := s.now()
	var r models.Receipt
	err = s.run(ctx, "receipt.update", func(tx *gorm.DB) error {
		r = models.Receipt{}
		if err := translate(tx.First(&r, id).Error, "receipt", id); err != nil {
			return err
		}
		var inv models.Invoice
		if err := translate(tx.First(&inv, r.InvoiceID).Error, "invoice", r.InvoiceID); err != nil {
			return err
		}
		if !inv.AcceptsPayment() {
			return invalid(ErrDocumentLocked, "invoice %s is %s", inv.Number, inv.Status)
		}
		var others decimal.Decimal
		var rows []models.Receipt
		if err := tx.Select("id", "amount").Where("invoice_id = ? AND id <> ?", inv.ID, r.ID).Find(&rows).Error; err != nil {
			return err
		}
		for _, o := range rows {
			others = others.Add(o.Amount)
		}
		available := inv.TotalAmount.Sub(others)
		if in.Amount.GreaterThan(available) {
			return invalid(ErrExceedsOutstanding, "amount %s exceeds outstanding %s",
				in.Amount.StringFixed(2), available.StringFixed(2))
		}
		previous := r.Amount
		in.apply(&r, r.PaymentDate)
		err := tx.Model(&r).
			Select("amount", "payment_method", "payment_date", "transaction_reference", "bank_name", "cheque_number", "cheque_date", "card_last4", "notes").
			Updates(&r).Error
		if err != nil {
			return err
		}
		if err := s.settle(tx, &inv, others.Add(r.Amount), now); err != nil {
			return err
		}
		return s.audit(ctx, tx, "receipt", r.ID, "update", "amount", previous.StringFixed(2), r.Amount.StringFixed(2))
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *ReceiptService) Get(ctx context.Context, id uint) (*models.Receipt, error) {
	var r models.Receipt
	err := s.run(ctx, "receipt.get", func(tx *gorm.DB) error {
		r = models.Receipt{}
		return translate(tx.First(&r, id).Error, "receipt", id)
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListByInvoice returns an invoice's receipts, most recent first.
func (s *ReceiptService) ListByInvoice(ctx context.Context, invoiceID uint) ([]models.Receipt, error) {
	var out []models.Receipt
	err := s.run(ctx, "receipt.list", func(tx *gorm.DB) error {
		if err := translate(tx.Select("id").First(&models.Invoice{}, invoiceID).Error, "invoice", invoiceID); err != nil {
			return err
		}
		return tx.Where("invoice_id = ?", invoiceID).Order("created_at DESC, id DESC").Find(&out).Error
	})
	return out, err
}

// ListByLead returns every receipt of a lead, most recent first.
func (s *ReceiptService) ListByLead(ctx context.Context, leadID uint) ([]models.Receipt, error) {
	var out []models.Receipt
	err := s.run(ctx, "receipt.list", func(tx *gorm.DB) error {
		return tx.Where("lead_id = ?", leadID).Order("created_at DESC, id DESC").Find(&out).Error
	})
	return out, err
}
