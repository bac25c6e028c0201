package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collabhub/internal/fanout"
	"collabhub/internal/model"
	"collabhub/internal/payment"
	"collabhub/internal/transition"
)

const testGatewaySecret = "vnpay-test-secret"

func newPaymentEnv(t *testing.T) (*env, *PaymentAdapter, *payment.Verifier) {
	t.Helper()
	e := newEnv()

	verifier, err := payment.NewVerifier(payment.GatewayVNPay, testGatewaySecret)
	require.NoError(t, err)

	adapter := NewPaymentAdapter(
		[]*payment.Verifier{verifier},
		e.phases, e.categories, e.pitchings, e.users,
		e.notifier, e.bus, &fakeGuard{}, zap.NewNop())
	return e, adapter, verifier
}

func signedParams(v *payment.Verifier, phaseID int, txnRef string) map[string]string {
	params := map[string]string{
		"vnp_TxnRef":       txnRef,
		"vnp_OrderInfo":    fmt.Sprintf("Chuyen tien phase-%d", phaseID),
		"vnp_Amount":       "50000000",
		"vnp_ResponseCode": "00",
	}
	params["vnp_SecureHash"] = v.Sign(params)
	return params
}

func TestHandleCallbackTransfersPhase(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()

	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))
	open := e.addCategory(phase.ID, model.CategoryDoing)

	got, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, signedParams(verifier, phase.ID, "TXN-1"))
	require.NoError(t, err)
	assert.Equal(t, model.CostTransferred, got.CostStatus)

	stored, _ := e.phases.GetByID(ctx, phase.ID)
	assert.Equal(t, model.CostTransferred, stored.CostStatus)

	// Confirmed funding cascades the phase's open categories to done.
	c, _ := e.categories.GetByID(ctx, open.ID)
	assert.Equal(t, model.CategoryDone, c.Status)

	// The selected group's leader is told about the transfer.
	transfers := e.notifs.byType(model.NotificationCostTransferred)
	require.Len(t, transfers, 1)
	assert.Equal(t, 100, transfers[0].ReceiverID)

	assert.Contains(t, e.bus.topics(), fanout.PhasesTopic(1))
	assert.Contains(t, e.bus.topics(), fanout.CategoriesTopic(phase.ID))
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()
	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))

	params := signedParams(verifier, phase.ID, "TXN-2")
	params["vnp_Amount"] = "99999999"

	_, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	assert.Equal(t, transition.KindSignatureInvalid, transition.KindOf(err))

	// Nothing moved.
	stored, _ := e.phases.GetByID(ctx, phase.ID)
	assert.Equal(t, model.CostNotTransferred, stored.CostStatus)
	assert.Empty(t, e.notifs.rows)
}

func TestHandleCallbackRejectsGatewayFailure(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()
	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))

	params := map[string]string{
		"vnp_TxnRef":       "TXN-3",
		"vnp_OrderInfo":    fmt.Sprintf("phase-%d", phase.ID),
		"vnp_ResponseCode": "24", // user cancelled
	}
	params["vnp_SecureHash"] = verifier.Sign(params)

	_, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	assert.Equal(t, transition.KindExternalFailure, transition.KindOf(err))

	stored, _ := e.phases.GetByID(ctx, phase.ID)
	assert.Equal(t, model.CostNotTransferred, stored.CostStatus)
}

func TestHandleCallbackReplay(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()
	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))

	params := signedParams(verifier, phase.ID, "TXN-4")
	_, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	require.NoError(t, err)

	// Same transaction reference again: exactly-once holds.
	_, err = adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	assert.Equal(t, transition.KindConflict, transition.KindOf(err))

	transfers := e.notifs.byType(model.NotificationCostTransferred)
	assert.Len(t, transfers, 1)
}

func TestHandleCallbackRetriesAfterFailedCommit(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()
	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))
	open := e.addCategory(phase.ID, model.CategoryDoing)

	e.phases.transferErr = errors.New("connection reset")
	params := signedParams(verifier, phase.ID, "TXN-8")

	_, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	require.Error(t, err)

	// The failed commit mutated nothing.
	stored, _ := e.phases.GetByID(ctx, phase.ID)
	assert.Equal(t, model.CostNotTransferred, stored.CostStatus)
	c, _ := e.categories.GetByID(ctx, open.ID)
	assert.Equal(t, model.CategoryDoing, c.Status)

	// The lease was returned, so the gateway's retry of the same txn
	// ref completes the transition instead of hitting a conflict.
	e.phases.transferErr = nil
	got, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	require.NoError(t, err)
	assert.Equal(t, model.CostTransferred, got.CostStatus)
	c, _ = e.categories.GetByID(ctx, open.ID)
	assert.Equal(t, model.CategoryDone, c.Status)

	// A third delivery is a true replay again.
	_, err = adapter.HandleCallback(ctx, payment.GatewayVNPay, params)
	assert.Equal(t, transition.KindConflict, transition.KindOf(err))
}

func TestHandleCallbackAlreadyTransferred(t *testing.T) {
	e, adapter, verifier := newPaymentEnv(t)
	ctx := context.Background()
	phase := e.addPhase(1, model.PhaseProcessing, d(time.January, 10), d(time.March, 1))
	e.phases.m[phase.ID].CostStatus = model.CostTransferred

	// Fresh txn ref, but the phase funds already moved.
	_, err := adapter.HandleCallback(ctx, payment.GatewayVNPay, signedParams(verifier, phase.ID, "TXN-5"))
	assert.Equal(t, transition.KindInvalidTransition, transition.KindOf(err))
}

func TestHandleCallbackUnknownGateway(t *testing.T) {
	_, adapter, verifier := newPaymentEnv(t)

	_, err := adapter.HandleCallback(context.Background(), "stripe", signedParams(verifier, 1, "TXN-6"))
	assert.Equal(t, transition.KindNotFound, transition.KindOf(err))
}

func TestHandleCallbackMalformedOrderInfo(t *testing.T) {
	_, adapter, verifier := newPaymentEnv(t)

	params := map[string]string{
		"vnp_TxnRef":       "TXN-7",
		"vnp_OrderInfo":    "no reference here",
		"vnp_ResponseCode": "00",
	}
	params["vnp_SecureHash"] = verifier.Sign(params)

	_, err := adapter.HandleCallback(context.Background(), payment.GatewayVNPay, params)
	assert.Equal(t, transition.KindPreconditionFailed, transition.KindOf(err))
}

func TestParsePhaseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "phase-42", want: 42},
		{in: "Thanh toan phase-7", want: 7},
		{in: "phase-3 dot 2", want: 3},
		{in: "phase-", wantErr: true},
		{in: "phase-0", wantErr: true},
		{in: "nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parsePhaseID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
