package services

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/voyage-billing/internal/models"
)

func TestReceiptExceedingOutstandingIsRejected(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	_, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("1200"), PaymentMethod: models.PaymentCash})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, ErrExceedsOutstanding)
	assert.Contains(t, err.Error(), "1100.00")

	got, err := f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assertMoney(t, "0", got.PaidAmount, "paid")
	assertMoney(t, "1100", got.OutstandingAmount, "outstanding")
	var receipts int64
	f.db.Model(&models.Receipt{}).Count(&receipts)
	assert.Zero(t, receipts)
}

func TestDraftInvoiceRefusesReceipts(t *testing.T) {
	f := newFixture(t)
	inv := f.draftInvoice(t)

	_, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("100"), PaymentMethod: models.PaymentCash})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ErrorIs(t, err, ErrDocumentLocked)

	got, err := f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusDraft, got.Status)
	assertMoney(t, "1100", got.OutstandingAmount, "outstanding")

	_, err = f.invoices.Transition(t.Context(), inv.ID, models.InvoiceStatusSent)
	require.NoError(t, err)
	_, err = f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("100"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	got, _ = f.invoices.Get(t.Context(), inv.ID)
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
}

func TestReceiptSettlingInvoice(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	r, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("1100"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "RCP-2025-0001", r.Number)
	assert.Equal(t, inv.LeadID, r.LeadID)
	assert.Equal(t, f.now, r.PaymentDate)
	_, err = uuid.Parse(r.Reference)
	assert.NoError(t, err)

	got, err := f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assertMoney(t, "1100", got.PaidAmount, "paid")
	assertMoney(t, "0", got.OutstandingAmount, "outstanding")
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)
	require.NotNil(t, got.PaidDate)

	_, err = f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("0.01"), PaymentMethod: models.PaymentCash})
	assert.ErrorIs(t, err, ErrExceedsOutstanding)
}

func TestReceiptAmountMustBePositive(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)
	for _, amount := range []string{"0", "-5"} {
		_, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec(amount), PaymentMethod: models.PaymentCash})
		assert.ErrorIs(t, err, ErrNonPositiveAmount, amount)
	}
}

func TestReceiptPaymentDetails(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	tests := []struct {
		name  string
		in    ReceiptInput
		field string
	}{
		{"unknown method", ReceiptInput{PaymentMethod: "barter"}, "payment_method"},
		{"bank transfer without reference", ReceiptInput{PaymentMethod: models.PaymentBankTransfer}, "transaction_reference"},
		{"upi without reference", ReceiptInput{PaymentMethod: models.PaymentUPI}, "transaction_reference"},
		{"cheque without number", ReceiptInput{PaymentMethod: models.PaymentCheque, BankName: "HDFC"}, "cheque_number"},
		{"cheque without bank", ReceiptInput{PaymentMethod: models.PaymentCheque, ChequeNumber: "004512"}, "bank_name"},
		{"card digits", ReceiptInput{PaymentMethod: models.PaymentCard, CardLast4: "12a4"}, "card_last4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Amount = dec("10")
			_, err := f.receipts.Save(t.Context(), inv.ID, tt.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, ErrPaymentDetails)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}

	r, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{
		Amount: dec("10"), PaymentMethod: models.PaymentCheque, ChequeNumber: "004512", BankName: "HDFC",
	})
	require.NoError(t, err)
	assert.Equal(t, "HDFC", r.BankName)
}

func TestOutstandingNeverIncreases(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	previous := dec("1100")
	for _, amount := range []string{"100", "250.50", "0.5", "2000", "749", "1"} {
		_, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec(amount), PaymentMethod: models.PaymentCash})
		got, getErr := f.invoices.Get(t.Context(), inv.ID)
		require.NoError(t, getErr)

		assert.True(t, got.OutstandingAmount.LessThanOrEqual(previous), "outstanding grew after %s", amount)
		assert.False(t, got.OutstandingAmount.IsNegative())
		assert.True(t, got.PaidAmount.Add(got.OutstandingAmount).Equal(got.TotalAmount))
		if err == nil {
			assert.True(t, previous.Sub(dec(amount)).Equal(got.OutstandingAmount))
		}
		previous = got.OutstandingAmount
	}
	assertMoney(t, "0", previous, "final outstanding")
}

func TestConcurrentReceiptsNeverOverpay(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("300"), PaymentMethod: models.PaymentCash})
		}(i)
	}
	wg.Wait()

	saved := 0
	for _, err := range results {
		if err == nil {
			saved++
			continue
		}
		assert.ErrorIs(t, err, ErrExceedsOutstanding)
	}
	assert.Equal(t, 3, saved)

	got, err := f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assertMoney(t, "900", got.PaidAmount, "paid")
	assertMoney(t, "200", got.OutstandingAmount, "outstanding")
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
}

func TestUpdateReceiptRecomputesPaidAmount(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)
	first, err := f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("600"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	_, err = f.receipts.Save(t.Context(), inv.ID, ReceiptInput{Amount: dec("400"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)

	// 600 may grow by the remaining 100, not more
	_, err = f.receipts.Update(t.Context(), first.ID, ReceiptInput{Amount: dec("800"), PaymentMethod: models.PaymentCash})
	assert.ErrorIs(t, err, ErrExceedsOutstanding)

	updated, err := f.receipts.Update(t.Context(), first.ID, ReceiptInput{
		Amount: dec("700"), PaymentMethod: models.PaymentUPI, TransactionReference: "UPI-88213",
	})
	require.NoError(t, err)
	assert.Equal(t, first.Number, updated.Number)
	assert.Equal(t, "UPI-88213", updated.TransactionReference)

	got, err := f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assertMoney(t, "1100", got.PaidAmount, "paid")
	assert.Equal(t, models.InvoiceStatusPaid, got.Status)

	_, err = f.receipts.Update(t.Context(), first.ID, ReceiptInput{Amount: dec("200"), PaymentMethod: models.PaymentCash})
	require.NoError(t, err)
	got, err = f.invoices.Get(t.Context(), inv.ID)
	require.NoError(t, err)
	assertMoney(t, "600", got.PaidAmount, "paid")
	assertMoney(t, "500", got.OutstandingAmount, "outstanding")
	assert.Equal(t, models.InvoiceStatusPartial, got.Status)
	assert.Nil(t, got.PaidDate)

	list, err := f.receipts.ListByInvoice(t.Context(), inv.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	total := decimal.Zero
	for _, r := range list {
		total = total.Add(r.Amount)
	}
	assertMoney(t, "600", total, "sum of receipts")
}

func TestStaleInvoiceVersionIsRejected(t *testing.T) {
	f := newFixture(t)
	inv := f.invoice1100(t)

	stale := *inv
	require.NoError(t, f.db.Model(&models.Invoice{}).Where("id = ?", inv.ID).Update("version", inv.Version+1).Error)

	err := f.receipts.settle(f.db, &stale, dec("100"), f.now)
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
}
