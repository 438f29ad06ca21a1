package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name            string
		from            RedeemStatus
		to              RedeemStatus
		paymentRequired bool
		want            bool
	}{
		{name: "pending to approved", from: RedeemStatusPending, to: RedeemStatusApproved, want: true},
		{name: "pending to rejected", from: RedeemStatusPending, to: RedeemStatusRejected, want: true},
		{name: "pending to used", from: RedeemStatusPending, to: RedeemStatusUsed, want: false},
		{name: "approved to used", from: RedeemStatusApproved, to: RedeemStatusUsed, want: true},
		{name: "approved to pending", from: RedeemStatusApproved, to: RedeemStatusPending, want: false},
		{name: "approved to rejected", from: RedeemStatusApproved, to: RedeemStatusRejected, want: false},
		{name: "approved to payment pending without payment", from: RedeemStatusApproved, to: RedeemStatusPaymentPending, want: false},
		{name: "rejected is terminal", from: RedeemStatusRejected, to: RedeemStatusApproved, want: false},
		{name: "used is terminal", from: RedeemStatusUsed, to: RedeemStatusPending, want: false},
		{name: "paid approved to used", from: RedeemStatusApproved, to: RedeemStatusUsed, paymentRequired: true, want: false},
		{name: "paid approved to payment pending", from: RedeemStatusApproved, to: RedeemStatusPaymentPending, paymentRequired: true, want: true},
		{name: "payment pending to purchased", from: RedeemStatusPaymentPending, to: RedeemStatusPurchased, paymentRequired: true, want: true},
		{name: "payment pending to rejected", from: RedeemStatusPaymentPending, to: RedeemStatusRejected, paymentRequired: true, want: true},
		{name: "purchased to used", from: RedeemStatusPurchased, to: RedeemStatusUsed, paymentRequired: true, want: true},
		{name: "purchased to approved", from: RedeemStatusPurchased, to: RedeemStatusApproved, paymentRequired: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to, tt.paymentRequired))
		})
	}
}

func TestParseRedeemStatus(t *testing.T) {
	st, err := ParseRedeemStatus("Payment Pending")
	require.NoError(t, err)
	assert.Equal(t, RedeemStatusPaymentPending, st)

	_, err = ParseRedeemStatus("approved")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRedeemStatusClasses(t *testing.T) {
	assert.True(t, RedeemStatusPending.Open())
	assert.True(t, RedeemStatusApproved.Open())
	assert.False(t, RedeemStatusRejected.Open())
	assert.False(t, RedeemStatusUsed.Open())

	assert.True(t, RedeemStatusUsed.Terminal())
	assert.True(t, RedeemStatusRejected.Terminal())
	assert.False(t, RedeemStatusPurchased.Terminal())
}

func TestRedeemOfferUsable(t *testing.T) {
	plain := RedeemOffer{Status: RedeemStatusApproved, PaymentStatus: PaymentStatusNotRequired}
	assert.True(t, plain.Usable())

	paid := RedeemOffer{Status: RedeemStatusApproved, PaymentStatus: PaymentStatusPending}
	assert.False(t, paid.Usable())

	paid.Status = RedeemStatusPurchased
	assert.True(t, paid.Usable())
}
