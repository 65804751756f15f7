package importing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestTransactionFingerprint(t *testing.T) {
	ownerID := uuid.New()
	bookedAt := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

	base := TransactionCandidate{
		BookedAt:    bookedAt,
		Description: strPtr("Rent January"),
		Transfers: []TransferCandidate{
			{BankReference: strPtr("REF1"), ExternalReference: strPtr("DOC1")},
			{BankReference: strPtr("REF1"), ExternalReference: strPtr("DOC2")},
		},
	}

	t.Run("identical content yields identical fingerprints", func(t *testing.T) {
		assert.Equal(t, TransactionFingerprint(ownerID, base), TransactionFingerprint(ownerID, base))
	})

	t.Run("transfer order does not matter", func(t *testing.T) {
		swapped := base
		swapped.Transfers = []TransferCandidate{base.Transfers[1], base.Transfers[0]}
		assert.Equal(t, TransactionFingerprint(ownerID, base), TransactionFingerprint(ownerID, swapped))
	})

	t.Run("timezone representation does not matter", func(t *testing.T) {
		riga, err := time.LoadLocation("Europe/Riga")
		require.NoError(t, err)
		shifted := base
		shifted.BookedAt = bookedAt.In(riga)
		assert.Equal(t, TransactionFingerprint(ownerID, base), TransactionFingerprint(ownerID, shifted))
	})

	t.Run("owner is part of the identity", func(t *testing.T) {
		assert.NotEqual(t, TransactionFingerprint(ownerID, base), TransactionFingerprint(uuid.New(), base))
	})

	t.Run("absent description differs from empty", func(t *testing.T) {
		absent := base
		absent.Description = nil
		empty := base
		empty.Description = strPtr("")
		assert.NotEqual(t, TransactionFingerprint(ownerID, absent), TransactionFingerprint(ownerID, empty))
	})

	t.Run("bank and external references never collide", func(t *testing.T) {
		bank := base
		bank.Transfers = []TransferCandidate{{BankReference: strPtr("X")}}
		external := base
		external.Transfers = []TransferCandidate{{ExternalReference: strPtr("X")}}
		assert.NotEqual(t, TransactionFingerprint(ownerID, bank), TransactionFingerprint(ownerID, external))
	})
}

func TestTransferFingerprint(t *testing.T) {
	ownerID := uuid.New()
	sourceID := uuid.New()
	targetID := uuid.New()

	base := TransferCandidate{
		BankReference:  strPtr("REF1"),
		SourceAmount:   decimal.RequireFromString("125.00"),
		TargetAmount:   decimal.RequireFromString("125.00"),
		SourceCurrency: "EUR",
		TargetCurrency: "EUR",
	}

	t.Run("decimal scale does not matter", func(t *testing.T) {
		rescaled := base
		rescaled.SourceAmount = decimal.RequireFromString("125.0000")
		rescaled.TargetAmount = decimal.RequireFromString("125")
		assert.Equal(t,
			TransferFingerprint(ownerID, sourceID, targetID, base),
			TransferFingerprint(ownerID, sourceID, targetID, rescaled))
	})

	t.Run("direction matters", func(t *testing.T) {
		assert.NotEqual(t,
			TransferFingerprint(ownerID, sourceID, targetID, base),
			TransferFingerprint(ownerID, targetID, sourceID, base))
	})

	t.Run("amount matters", func(t *testing.T) {
		changed := base
		changed.TargetAmount = decimal.RequireFromString("125.01")
		assert.NotEqual(t,
			TransferFingerprint(ownerID, sourceID, targetID, base),
			TransferFingerprint(ownerID, sourceID, targetID, changed))
	})
}

func TestAccountFingerprint(t *testing.T) {
	ownerID := uuid.New()

	base := AccountCandidate{
		Name:          "SIA NAMSAIMNIEKS",
		Iban:          strPtr("LV55UNLA0098765432109"),
		AccountNumber: strPtr("LV55UNLA0098765432109"),
		Bic:           strPtr("UNLALV2X"),
		CurrencyCode:  "EUR",
	}

	t.Run("stable across calls", func(t *testing.T) {
		assert.Equal(t, AccountFingerprint(ownerID, base), AccountFingerprint(ownerID, base))
	})

	t.Run("absent iban differs from empty iban", func(t *testing.T) {
		absent := base
		absent.Iban = nil
		empty := base
		empty.Iban = strPtr("")
		assert.NotEqual(t, AccountFingerprint(ownerID, absent), AccountFingerprint(ownerID, empty))
	})

	t.Run("sub-account number is part of the identity", func(t *testing.T) {
		sub := base
		sub.SubAccountNumber = strPtr("01")
		assert.NotEqual(t, AccountFingerprint(ownerID, base), AccountFingerprint(ownerID, sub))
	})

	t.Run("field shuffling between iban and bic never collides", func(t *testing.T) {
		a := AccountCandidate{Name: "X", Iban: strPtr("A"), Bic: strPtr("B")}
		b := AccountCandidate{Name: "X", Iban: strPtr("B"), Bic: strPtr("A")}
		assert.NotEqual(t, AccountFingerprint(ownerID, a), AccountFingerprint(ownerID, b))
	})
}

func TestPurchaseFingerprint(t *testing.T) {
	ownerID := uuid.New()
	transactionID := uuid.New()
	productID := uuid.New()

	base := PurchaseCandidate{
		LineTotal:    decimal.RequireFromString("2.99"),
		Quantity:     decimal.NewFromInt(1),
		CurrencyCode: "EUR",
	}

	t.Run("stable for equal content", func(t *testing.T) {
		rescaled := base
		rescaled.LineTotal = decimal.RequireFromString("2.990")
		assert.Equal(t,
			PurchaseFingerprint(ownerID, transactionID, productID, base),
			PurchaseFingerprint(ownerID, transactionID, productID, rescaled))
	})

	t.Run("product identity matters", func(t *testing.T) {
		assert.NotEqual(t,
			PurchaseFingerprint(ownerID, transactionID, productID, base),
			PurchaseFingerprint(ownerID, transactionID, uuid.New(), base))
	})

	t.Run("target transaction matters", func(t *testing.T) {
		assert.NotEqual(t,
			PurchaseFingerprint(ownerID, transactionID, productID, base),
			PurchaseFingerprint(ownerID, uuid.New(), productID, base))
	})
}
