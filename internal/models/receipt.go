package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how a receipt was paid.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentCard         PaymentMethod = "card"
	PaymentUPI          PaymentMethod = "upi"
	PaymentOther        PaymentMethod = "other"
)

// PaymentMethods lists the accepted payment methods.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentBankTransfer, PaymentCheque, PaymentCard, PaymentUPI, PaymentOther}

// Receipt records money received against an invoice.
type Receipt struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Number    string `gorm:"size:50;uniqueIndex" json:"number"`
	Reference string `gorm:"size:36;uniqueIndex" json:"reference"`

	InvoiceID uint     `gorm:"index;not null" json:"invoice_id"`
	Invoice   *Invoice `gorm:"foreignKey:InvoiceID" json:"-"`
	LeadID    uint     `gorm:"index;not null" json:"lead_id"`

	Amount        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaymentMethod PaymentMethod   `gorm:"size:20;not null" json:"payment_method"`
	PaymentDate   time.Time       `gorm:"not null" json:"payment_date"`

	// method specific details
	TransactionReference string     `gorm:"size:100" json:"transaction_reference,omitempty"`
	BankName             string     `gorm:"size:255" json:"bank_name,omitempty"`
	ChequeNumber         string     `gorm:"size:50" json:"cheque_number,omitempty"`
	ChequeDate           *time.Time `json:"cheque_date,omitempty"`
	CardLast4            string     `gorm:"size:4" json:"card_last4,omitempty"`

	Notes string `gorm:"type:text" json:"notes,omitempty"`
}
