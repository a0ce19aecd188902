package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/config"
	"github.com/diewo77/voyage-billing/internal/metrics"
)

func TestRunRetriesOnce(t *testing.T) {
	db := setupTestDB(t)
	log, hook := test.NewNullLogger()
	m := metrics.New(prometheus.NewRegistry())
	b := newBase(db, []Option{WithLogger(log), WithMetrics(m)})
	flaky := errors.New("connection reset")

	t.Run("recovers on second attempt", func(t *testing.T) {
		calls := 0
		err := b.run(t.Context(), "test.flaky", func(*gorm.DB) error {
			calls++
			if calls == 1 {
				return flaky
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("test.flaky")))
	})

	t.Run("reports upstream after two failures", func(t *testing.T) {
		calls := 0
		err := b.run(t.Context(), "test.down", func(*gorm.DB) error {
			calls++
			return flaky
		})
		var ue *UpstreamError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, "test.down", ue.Op)
		assert.ErrorIs(t, err, flaky)
		assert.Equal(t, 2, calls)
		assert.Equal(t, "persistence failed after retry", hook.LastEntry().Message)
	})

	t.Run("domain errors are not retried", func(t *testing.T) {
		for _, domainErr := range []error{
			invalid(ErrInvalidInput, "bad"),
			notFound("lead", 7),
			context.Canceled,
		} {
			calls := 0
			err := b.run(t.Context(), "test.domain", func(*gorm.DB) error {
				calls++
				return domainErr
			})
			assert.Equal(t, domainErr, err)
			assert.Equal(t, 1, calls)
		}
	})
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()

	unlock := k.Lock(1)
	other := k.Lock(2)
	other()

	acquired := make(chan struct{})
	go func() {
		defer k.Lock(1)()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired key 1 while it was locked")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired

	var wg sync.WaitGroup
	counter := 0
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer k.Lock(3)()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.Empty(t, k.locks)
}

func TestPolicyFromConfig(t *testing.T) {
	p := PolicyFromConfig(config.BillingConfig{QuotationValidityDays: 7, DefaultTaxRate: dec("18")})
	assert.Equal(t, 7*24*time.Hour, p.QuotationValidity)
	assertMoney(t, "18", p.TaxRate, "tax rate")
	assert.True(t, p.ServiceChargeRate.IsZero())
	assert.Equal(t, DefaultPolicy().InvoiceTerm, p.InvoiceTerm)
}
