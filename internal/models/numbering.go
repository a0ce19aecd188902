package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

const (
	QuotationPrefix = "QUO"
	InvoicePrefix   = "INV"
	ReceiptPrefix   = "RCP"
)

// GenerateNumber generates the next document number for model within the year of at.
// Format: PREFIX-YYYY-NNNN (e.g., INV-2025-0001)
func GenerateNumber(db *gorm.DB, model any, prefix string, at time.Time) (string, error) {
	year := at.Year()
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, at.Location())
	var count int64
	err := db.Model(model).
		Where("created_at >= ? AND created_at < ?", start, start.AddDate(1, 0, 0)).
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%d-%04d", prefix, year, count+1), nil
}

// All returns every model managed by AutoMigrate, parents first.
func All() []any {
	return []any{
		&Lead{}, &Package{}, &CustomizedPackage{}, &ManualItinerary{},
		&Quotation{}, &QuotationItem{},
		&Invoice{}, &InvoiceItem{},
		&Receipt{}, &AuditLog{},
	}
}
