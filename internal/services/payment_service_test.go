package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"school_fees_echo/internal/apperrors"
	"school_fees_echo/internal/models"
)

type serviceHarness struct {
	db       *gorm.DB
	f        fixtures
	gateway  *fakeGateway
	notifier *recordingNotifier
	svc      *PaymentService
}

func newHarness(t *testing.T) *serviceHarness {
	t.Helper()
	db := newTestDB(t)
	h := &serviceHarness{
		db:       db,
		f:        seed(t, db),
		gateway:  &fakeGateway{},
		notifier: newRecordingNotifier(),
	}
	h.svc = NewPaymentService(PaymentServiceConfig{
		Store:    NewGormPaymentStore(db),
		Gateway:  h.gateway,
		Notifier: h.notifier,
		AppURL:   "https://school.example.com/",
	})
	return h
}

func (h *serviceHarness) initiate(t *testing.T, feeType string) *InitiatePaymentResult {
	t.Helper()
	res, err := h.svc.InitiatePayment(context.Background(), h.f.parent.ID, InitiatePaymentInput{
		FeeType:   feeType,
		StudentID: h.f.student.StudentID,
	})
	require.NoError(t, err)
	return res
}

func (h *serviceHarness) load(t *testing.T, ref string) models.Payment {
	t.Helper()
	var p models.Payment
	require.NoError(t, h.db.Where("reference = ?", ref).First(&p).Error)
	return p
}

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"100.00", 10000},
		{"0.01", 1},
		{"500", 50000},
		{"75.50", 7550},
		{"19.99", 1999},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, ToMinorUnits(decimal.RequireFromString(tt.amount)))
		})
	}
}

func TestResolveAmount(t *testing.T) {
	svc := NewPaymentService(PaymentServiceConfig{})

	t.Run("fee table", func(t *testing.T) {
		amount, err := svc.ResolveAmount("tuition", nil)
		require.NoError(t, err)
		assert.Equal(t, "500.00", amount.StringFixed(2))
	})

	t.Run("explicit amount wins over the fee table", func(t *testing.T) {
		explicit := decimal.RequireFromString("75.50")
		amount, err := svc.ResolveAmount("tuition", &explicit)
		require.NoError(t, err)
		assert.Equal(t, "75.50", amount.StringFixed(2))
	})

	t.Run("explicit amount with free-text fee type", func(t *testing.T) {
		explicit := decimal.RequireFromString("12.00")
		amount, err := svc.ResolveAmount("excursion", &explicit)
		require.NoError(t, err)
		assert.Equal(t, "12.00", amount.StringFixed(2))
	})

	t.Run("unknown fee type without amount", func(t *testing.T) {
		_, err := svc.ResolveAmount("excursion", nil)
		assert.True(t, errors.Is(err, apperrors.ErrMissingAmount))
	})

	t.Run("trailing zeros beyond cents are accepted", func(t *testing.T) {
		explicit := decimal.RequireFromString("75.500")
		amount, err := svc.ResolveAmount("", &explicit)
		require.NoError(t, err)
		assert.Equal(t, int64(7550), ToMinorUnits(amount))
	})

	for _, bad := range []string{"0", "-5.00", "0.004", "10.125", "100000000.00"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			explicit := decimal.RequireFromString(bad)
			_, err := svc.ResolveAmount("tuition", &explicit)
			assert.True(t, errors.Is(err, apperrors.ErrValidationFailed), "got %v", err)
		})
	}
}

func TestInitiatePaymentCreatesPendingRecord(t *testing.T) {
	h := newHarness(t)
	h.gateway.initRef = "ref-123"

	res := h.initiate(t, "bus_fee")

	assert.Equal(t, "ref-123", res.Reference)
	assert.Equal(t, "https://checkout.example.com/ref-123", res.AuthorizationURL)

	require.Len(t, h.gateway.initCalls, 1)
	call := h.gateway.initCalls[0]
	assert.Equal(t, int64(10000), call.AmountMinorUnits)
	assert.Equal(t, "ama@example.com", call.Email)
	assert.Equal(t, "https://school.example.com/api/v1/payments/verify/"+call.Reference+"/", call.CallbackURL)

	p := h.load(t, "ref-123")
	assert.Equal(t, models.PaymentStatusPending, p.Status)
	assert.False(t, p.Verified)
	assert.Equal(t, "100.00", p.Amount.StringFixed(2))
	assert.Equal(t, models.FeeTypeBusFee, p.FeeType)
	require.NotNil(t, p.StudentID)
	assert.Equal(t, h.f.student.ID, *p.StudentID)
	assert.Equal(t, h.f.parent.ID, p.PayerID)
	assert.Contains(t, string(p.Metadata), "ref-123")
}

func TestInitiatePaymentUsesLocalReferenceWhenGatewayKeepsIt(t *testing.T) {
	h := newHarness(t)

	res := h.initiate(t, "tuition")

	require.Len(t, h.gateway.initCalls, 1)
	assert.Equal(t, h.gateway.initCalls[0].Reference, res.Reference)
	assert.Len(t, res.Reference, 36)
	assert.Equal(t, "500.00", h.load(t, res.Reference).Amount.StringFixed(2))
}

func TestInitiatePaymentGatewayFailureLeavesNoRecord(t *testing.T) {
	for _, gwErr := range []error{
		apperrors.ErrGatewayUnavailable.Wrap(errors.New("dial tcp: i/o timeout")),
		apperrors.ErrGatewayRejected.WithDetails("Invalid Email Address Passed"),
	} {
		h := newHarness(t)
		h.gateway.initErr = gwErr

		_, err := h.svc.InitiatePayment(context.Background(), h.f.parent.ID, InitiatePaymentInput{
			FeeType:   "tuition",
			StudentID: "SA007",
		})

		require.Error(t, err)
		assert.True(t, errors.Is(err, gwErr))
		assert.Zero(t, countPayments(t, h.db))
	}
}

func TestInitiatePaymentValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.InitiatePayment(ctx, h.f.parent.ID, InitiatePaymentInput{FeeType: "tuition", StudentID: "  "})
	assert.True(t, errors.Is(err, apperrors.ErrValidationFailed))

	_, err = h.svc.InitiatePayment(ctx, h.f.parent.ID, InitiatePaymentInput{FeeType: "tuition", StudentID: "SA999"})
	assert.True(t, errors.Is(err, apperrors.ErrStudentNotFound))

	_, err = h.svc.InitiatePayment(ctx, h.f.parent.ID, InitiatePaymentInput{FeeType: "library", StudentID: "SA007"})
	assert.True(t, errors.Is(err, apperrors.ErrMissingAmount))

	assert.Empty(t, h.gateway.initCalls)
	assert.Zero(t, countPayments(t, h.db))
}

func TestVerifySuccessIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.gateway.initRef = "ref-123"
	h.initiate(t, "bus_fee")
	h.gateway.setVerify(true, "success")
	ctx := context.Background()

	first, err := h.svc.VerifyPayment(ctx, "ref-123")
	require.NoError(t, err)
	assert.True(t, first.Succeeded)
	assert.True(t, first.Transitioned)
	assert.Equal(t, models.PaymentStatusSuccess, first.Payment.Status)
	assert.True(t, first.Payment.Verified)
	assert.Equal(t, "ama@example.com", first.Payment.Payer.Email)

	second, err := h.svc.VerifyPayment(ctx, "ref-123")
	require.NoError(t, err)
	assert.True(t, second.Succeeded)
	assert.False(t, second.Transitioned)
	assert.Equal(t, models.PaymentStatusSuccess, second.Payment.Status)

	assert.Equal(t, 1, h.notifier.count("ref-123"))
}

func TestVerifyNonSuccessMarksFailed(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, "feeding_fee")
	h.gateway.setVerify(false, "abandoned")

	out, err := h.svc.VerifyPayment(context.Background(), res.Reference)
	require.NoError(t, err)

	assert.False(t, out.Succeeded)
	assert.Equal(t, models.PaymentStatusFailed, out.Payment.Status)
	assert.False(t, out.Payment.Verified)
	assert.False(t, out.Succeeded)
	assert.Contains(t, string(out.Details), "abandoned")
	assert.Zero(t, h.notifier.count(res.Reference))
}

func TestVerifyNeverLeavesTerminalState(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, "tuition")
	ctx := context.Background()

	h.gateway.setVerify(false, "failed")
	_, err := h.svc.VerifyPayment(ctx, res.Reference)
	require.NoError(t, err)

	// a later success report only refreshes metadata
	h.gateway.setVerify(true, "success")
	out, err := h.svc.VerifyPayment(ctx, res.Reference)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusFailed, out.Payment.Status)
	assert.False(t, out.Payment.Verified)
	assert.False(t, out.Succeeded)
	assert.Contains(t, string(out.Payment.Metadata), `"success"`)
	assert.Zero(t, h.notifier.count(res.Reference))

	// and a success stays a success
	h2 := newHarness(t)
	res2 := h2.initiate(t, "tuition")
	h2.gateway.setVerify(true, "success")
	_, err = h2.svc.VerifyPayment(ctx, res2.Reference)
	require.NoError(t, err)
	h2.gateway.setVerify(false, "reversed")
	out2, err := h2.svc.VerifyPayment(ctx, res2.Reference)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusSuccess, out2.Payment.Status)
	assert.True(t, out2.Payment.Verified)
	assert.True(t, out2.Succeeded)
	assert.Equal(t, 1, h2.notifier.count(res2.Reference))
}

func TestVerifyUnknownReference(t *testing.T) {
	h := newHarness(t)
	h.gateway.setVerify(true, "success")

	_, err := h.svc.VerifyPayment(context.Background(), "does-not-exist")

	assert.True(t, errors.Is(err, apperrors.ErrPaymentNotFound))
	assert.Zero(t, h.gateway.verifyCalls)
	assert.Zero(t, countPayments(t, h.db))
}

func TestVerifyGatewayUnavailableLeavesPaymentUntouched(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, "tuition")
	before := h.load(t, res.Reference)

	h.gateway.verifyErr = apperrors.ErrGatewayUnavailable.Wrap(errors.New("context deadline exceeded"))
	_, err := h.svc.VerifyPayment(context.Background(), res.Reference)

	assert.True(t, errors.Is(err, apperrors.ErrGatewayUnavailable))
	after := h.load(t, res.Reference)
	assert.Equal(t, models.PaymentStatusPending, after.Status)
	assert.JSONEq(t, string(before.Metadata), string(after.Metadata))
}

func TestConcurrentVerifiesDispatchOnce(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, "tuition")
	h.gateway.setVerify(true, "success")

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	transitions := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.svc.VerifyPayment(context.Background(), res.Reference)
			if !assert.NoError(t, err) {
				return
			}
			if out.Transitioned {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions)
	assert.Equal(t, 1, h.notifier.count(res.Reference))
	assert.Equal(t, models.PaymentStatusSuccess, h.load(t, res.Reference).Status)
}

func TestListForPayerNewestFirst(t *testing.T) {
	h := newHarness(t)
	first := h.initiate(t, "tuition")
	second := h.initiate(t, "bus_fee")

	other, err := h.svc.InitiatePayment(context.Background(), h.f.noPhone.ID, InitiatePaymentInput{
		FeeType:   "feeding_fee",
		StudentID: h.f.student2.StudentID,
	})
	require.NoError(t, err)

	payments, err := h.svc.ListForPayer(context.Background(), h.f.parent.ID)
	require.NoError(t, err)

	require.Len(t, payments, 2)
	assert.Equal(t, second.Reference, payments[0].Reference)
	assert.Equal(t, first.Reference, payments[1].Reference)
	for _, p := range payments {
		assert.NotEqual(t, other.Reference, p.Reference)
		require.NotNil(t, p.Student)
		assert.Equal(t, "SA007", p.Student.StudentID)
	}
}

func TestVerifyRecordsHistory(t *testing.T) {
	h := newHarness(t)
	res := h.initiate(t, "tuition")
	ctx := context.Background()

	h.gateway.setVerify(false, "ongoing")
	_, err := h.svc.VerifyPayment(ctx, res.Reference)
	require.NoError(t, err)
	h.gateway.setVerify(true, "success")
	_, err = h.svc.VerifyPayment(ctx, res.Reference)
	require.NoError(t, err)

	history, err := h.svc.History(ctx, res.Reference)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "ongoing", history[0].GatewayStatus)
	assert.True(t, history[0].Transitioned)
	assert.Equal(t, "success", history[1].GatewayStatus)
	assert.False(t, history[1].Transitioned)
	assert.Equal(t, models.PaymentGateway("fake"), history[1].PaymentGateway)

	_, err = h.svc.History(ctx, "nope")
	assert.True(t, errors.Is(err, apperrors.ErrPaymentNotFound))
}

func TestListPendingSkipsSettledAndRecent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	store := NewGormPaymentStore(h.db)

	settled := h.initiate(t, "tuition")
	open := h.initiate(t, "bus_fee")
	h.gateway.setVerify(true, "success")
	_, err := h.svc.VerifyPayment(ctx, settled.Reference)
	require.NoError(t, err)

	pending, err := store.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, open.Reference, pending[0].Reference)
	assert.Equal(t, h.f.parent.Email, pending[0].Payer.Email)

	pending, err = store.ListPending(ctx, time.Hour)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
