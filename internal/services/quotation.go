package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/models"
)

// QuotationInput creates a quotation for a lead.
type QuotationInput struct {
	LeadID     uint       `json:"lead_id"`
	PackageID  *uint      `json:"package_id,omitempty"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	DocumentInput
}

// QuotationUpdate replaces the content of an existing quotation.
type QuotationUpdate struct {
	ValidUntil *time.Time `json:"valid_until,omitempty"`
	DocumentInput
}

var quotationTransitions = map[models.QuotationStatus][]models.QuotationStatus{
	models.QuotationStatusDraft: {models.QuotationStatusSent},
	models.QuotationStatusSent:  {models.QuotationStatusAccepted, models.QuotationStatusRejected, models.QuotationStatusExpired},
}

type QuotationService struct {
	base
}

func NewQuotationService(db *gorm.DB, opts ...Option) *QuotationService {
	return &QuotationService{base: newBase(db, opts)}
}

// Create validates the input, computes totals and stores a draft quotation.
// The lead's package is used when none is given.
func (s *QuotationService) Create(ctx context.Context, in QuotationInput) (*models.Quotation, error) {
	pricing, items, err := in.prepare()
	if err != nil {
		return nil, err
	}
	now := s.now()
	validUntil := in.ValidUntil
	if validUntil == nil {
		t := now.Add(s.policy.QuotationValidity)
		validUntil = &t
	}

	var q *models.Quotation
	err = s.run(ctx, "quotation.create", func(tx *gorm.DB) error {
		lead, err := loadLead(tx, in.LeadID)
		if err != nil {
			return err
		}
		number, err := models.GenerateNumber(tx, &models.Quotation{}, models.QuotationPrefix, now)
		if err != nil {
			return err
		}
		packageID := in.PackageID
		if packageID == nil {
			packageID = lead.PackageID
		}
		q = &models.Quotation{
			CreatedAt:  now,
			Number:     number,
			LeadID:     lead.ID,
			PackageID:  packageID,
			Pricing:    pricing,
			Status:     models.QuotationStatusDraft,
			ValidUntil: validUntil,
			Notes:      in.Notes,
			Version:    1,
			Items:      models.QuotationItemsFrom(items),
		}
		if err := tx.Create(q).Error; err != nil {
			return err
		}
		return s.audit(ctx, tx, "quotation", q.ID, "create", "", "", q.Number)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.DocumentCreated("quotation")
	s.logger(ctx).WithFields(logrus.Fields{"quotation": q.Number, "lead_id": q.LeadID, "total": q.TotalAmount.StringFixed(2)}).Info("quotation created")
	return q, nil
}

// Get loads a quotation with its items.
func (s *QuotationService) Get(ctx context.Context, id uint) (*models.Quotation, error) {
	var q models.Quotation
	err := s.run(ctx, "quotation.get", func(tx *gorm.DB) error {
		q = models.Quotation{}
		return translate(loadQuotation(tx, id, &q), "quotation", id)
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func loadQuotation(tx *gorm.DB, id uint, q *models.Quotation) error {
	return tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).First(q, id).Error
}

// Update replaces the items and pricing of a quotation and recomputes its totals.
// Converted quotations cannot change.
func (s *QuotationService) Update(ctx context.Context, id uint, in QuotationUpdate) (*models.Quotation, error) {
	pricing, items, err := in.prepare()
	if err != nil {
		return nil, err
	}
	var q models.Quotation
	err = s.run(ctx, "quotation.update", func(tx *gorm.DB) error {
		q = models.Quotation{}
		if err := translate(tx.First(&q, id).Error, "quotation", id); err != nil {
			return err
		}
		if q.IsConverted() {
			return invalid(ErrDocumentLocked, "quotation %s was converted to an invoice", q.Number)
		}
		previous := q.TotalAmount
		version := q.Version
		q.Pricing = pricing
		q.Notes = in.Notes
		if in.ValidUntil != nil {
			q.ValidUntil = in.ValidUntil
		}
		q.Version++
		if err := saveVersioned(tx, &q, version); err != nil {
			return err
		}
		if err := tx.Where("quotation_id = ?", q.ID).Delete(&models.QuotationItem{}).Error; err != nil {
			return err
		}
		q.Items = models.QuotationItemsFrom(items)
		for i := range q.Items {
			q.Items[i].QuotationID = q.ID
		}
		if err := tx.Create(&q.Items).Error; err != nil {
			return err
		}
		return s.audit(ctx, tx, "quotation", q.ID, "update", "total_amount", previous.StringFixed(2), q.TotalAmount.StringFixed(2))
	})
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// Transition moves a quotation to status. Conversion has its own operation and is
// rejected here.
func (s *QuotationService) Transition(ctx context.Context, id uint, status models.QuotationStatus) (*models.Quotation, error) {
	var q models.Quotation
	err := s.run(ctx, "quotation.transition", func(tx *gorm.DB) error {
		q = models.Quotation{}
		if err := translate(loadQuotation(tx, id, &q), "quotation", id); err != nil {
			return err
		}
		if !allowed(quotationTransitions[q.Status], status) {
			return invalid(ErrInvalidTransition, "quotation cannot move from %s to %s", q.Status, status)
		}
		from := q.Status
		version := q.Version
		q.Status = status
		q.Version++
		if err := saveVersioned(tx, &q, version); err != nil {
			return err
		}
		return s.audit(ctx, tx, "quotation", q.ID, "status", "status", string(from), string(status))
	})
	if err != nil {
		return nil, err
	}
	s.metrics.StatusChanged("quotation", string(status))
	return &q, nil
}

// ExpireDue marks sent quotations whose validity ended before now as expired and returns
// how many changed. Drafts never expire.
func (s *QuotationService) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := s.run(ctx, "quotation.expire", func(tx *gorm.DB) error {
		n = 0
		var due []models.Quotation
		err := tx.Select("id", "status").
			Where("status = ? AND valid_until IS NOT NULL AND valid_until < ?", models.QuotationStatusSent, now).
			Find(&due).Error
		if err != nil {
			return err
		}
		for _, q := range due {
			res := tx.Model(&models.Quotation{}).
				Where("id = ? AND status = ?", q.ID, q.Status).
				Updates(map[string]any{"status": models.QuotationStatusExpired, "version": gorm.Expr("version + 1")})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			n++
			if err := s.audit(ctx, tx, "quotation", q.ID, "status", "status", string(q.Status), string(models.QuotationStatusExpired)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.metrics.SweepUpdated("quotation_expiry", n)
	return n, nil
}

// ListByLead returns a lead's quotations, most recent first.
func (s *QuotationService) ListByLead(ctx context.Context, leadID uint) ([]models.Quotation, error) {
	var out []models.Quotation
	err := s.run(ctx, "quotation.list", func(tx *gorm.DB) error {
		return tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
			Where("lead_id = ?", leadID).
			Order("created_at DESC, id DESC").
			Find(&out).Error
	})
	return out, err
}

func allowed[T comparable](targets []T, to T) bool {
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}
