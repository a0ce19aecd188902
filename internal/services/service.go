package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/voyage-billing/internal/config"
	"github.com/diewo77/voyage-billing/internal/logging"
	"github.com/diewo77/voyage-billing/internal/metrics"
	"github.com/diewo77/voyage-billing/internal/models"
)

// Policy holds the defaults given to new documents: validity and payment terms, and the
// rates a draft is saved with when none are given.
type Policy struct {
	QuotationValidity time.Duration
	InvoiceTerm       time.Duration
	TaxRate           decimal.Decimal
	ServiceChargeRate decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{QuotationValidity: 15 * 24 * time.Hour, InvoiceTerm: 30 * 24 * time.Hour}
}

// PolicyFromConfig converts the billing settings into a Policy.
func PolicyFromConfig(cfg config.BillingConfig) Policy {
	p := DefaultPolicy()
	p.TaxRate = cfg.DefaultTaxRate
	p.ServiceChargeRate = cfg.DefaultServiceChargeRate
	if cfg.QuotationValidityDays > 0 {
		p.QuotationValidity = time.Duration(cfg.QuotationValidityDays) * 24 * time.Hour
	}
	if cfg.InvoiceDueDays > 0 {
		p.InvoiceTerm = time.Duration(cfg.InvoiceDueDays) * 24 * time.Hour
	}
	return p
}

// Option configures a service.
type Option func(*base)

func WithLogger(log logrus.FieldLogger) Option { return func(b *base) { b.log = log } }

func WithMetrics(m *metrics.Metrics) Option { return func(b *base) { b.metrics = m } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(b *base) { b.now = now } }

func WithPolicy(p Policy) Option { return func(b *base) { b.policy = p } }

type base struct {
	db      *gorm.DB
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	now     func() time.Time
	policy  Policy
}

func newBase(db *gorm.DB, opts []Option) base {
	b := base{db: db, log: logrus.StandardLogger(), now: time.Now, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) logger(ctx context.Context) logrus.FieldLogger {
	return logging.FromContext(ctx, b.log)
}

// run executes fn in a transaction bound to ctx. A failure that is not a domain error is
// retried once; a second failure is reported as an UpstreamError.
func (b *base) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	defer b.metrics.ObserveOperation(op, time.Now())
	attempt := func() error { return b.db.WithContext(ctx).Transaction(fn) }

	err := attempt()
	if err == nil || isDomainError(err) {
		return err
	}
	b.logger(ctx).WithError(err).WithField("operation", op).Warn("persistence failed, retrying once")
	b.metrics.Retried(op)
	if err = attempt(); err == nil || isDomainError(err) {
		return err
	}
	b.logger(ctx).WithError(err).WithField("operation", op).Error("persistence failed after retry")
	return &UpstreamError{Op: op, Err: err}
}

func (b *base) audit(ctx context.Context, tx *gorm.DB, entity string, id uint, action, field, oldValue, newValue string) error {
	return tx.Create(&models.AuditLog{
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		Field:      field,
		OldValue:   oldValue,
		NewValue:   newValue,
		RequestID:  logging.RequestID(ctx),
		CreatedAt:  b.now(),
	}).Error
}

func loadLead(tx *gorm.DB, id uint) (*models.Lead, error) {
	var lead models.Lead
	if err := tx.First(&lead, id).Error; err != nil {
		return nil, translate(err, "lead", id)
	}
	return &lead, nil
}

func translate(err error, entity string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return err
}

// saveVersioned writes every column of model when the stored row still has version.
// The caller bumps the version on model before calling.
func saveVersioned(tx *gorm.DB, model any, version int) error {
	res := tx.Model(model).
		Where("version = ?", version).
		Select("*").
		Omit("CreatedAt", clause.Associations).
		Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return invalid(ErrConcurrentUpdate, "document was modified by another request")
	}
	return nil
}

// keyedMutex serializes work per key.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex { return &keyedMutex{locks: map[uint]*refMutex{}} }

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key uint) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		if m.refs--; m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
