package importing

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fingerprint is the hex form of a SHA-256 digest over the identity-relevant
// fields of a candidate. Identical logical content always yields an identical
// fingerprint regardless of processing time or source field ordering.
type Fingerprint string

// fingerprintWriter accumulates the canonical byte encoding: every field is
// written in a fixed order, strings are length-prefixed UTF-8, optional fields
// carry a presence marker so that absence never collides with "".
type fingerprintWriter struct {
	h interface {
		Write(p []byte) (int, error)
		Sum(b []byte) []byte
	}
}

func newFingerprintWriter(kind string) *fingerprintWriter {
	w := &fingerprintWriter{h: sha256.New()}
	w.writeString(kind)
	return w
}

func (w *fingerprintWriter) writeString(s string) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(s)))
	w.h.Write(length[:])
	w.h.Write([]byte(s))
}

func (w *fingerprintWriter) writeOptString(s *string) {
	if s == nil {
		w.h.Write([]byte{0})
		return
	}
	w.h.Write([]byte{1})
	w.writeString(*s)
}

// writeDecimal encodes the value as a reduced rational so that differently
// scaled but equal decimals (4.99 vs 4.990) encode identically.
func (w *fingerprintWriter) writeDecimal(d decimal.Decimal) {
	w.writeString(d.Rat().RatString())
}

func (w *fingerprintWriter) writeInstant(unixNano int64) {
	w.writeString(strconv.FormatInt(unixNano, 10))
}

func (w *fingerprintWriter) writeUUID(id uuid.UUID) {
	w.h.Write(id[:])
}

func (w *fingerprintWriter) sum() Fingerprint {
	return Fingerprint(hex.EncodeToString(w.h.Sum(nil)))
}

// TransactionFingerprint derives the dedup key of a transaction candidate from
// its owner, business timestamp, description and the sorted set of bank and
// external references carried by its transfers. Processing timestamps are
// deliberately excluded.
func TransactionFingerprint(ownerID uuid.UUID, c TransactionCandidate) Fingerprint {
	w := newFingerprintWriter("transaction")
	w.writeUUID(ownerID)
	w.writeInstant(c.BookedAt.UTC().UnixNano())
	w.writeOptString(c.Description)

	refs := make([]string, 0, len(c.Transfers)*2)
	for _, t := range c.Transfers {
		if t.BankReference != nil {
			refs = append(refs, "b:"+*t.BankReference)
		}
		if t.ExternalReference != nil {
			refs = append(refs, "e:"+*t.ExternalReference)
		}
	}
	sort.Strings(refs)
	for _, ref := range refs {
		w.writeString(ref)
	}
	return w.sum()
}

// TransferFingerprint derives the dedup key of a transfer from the resolved
// account identities, both amounts and the reference strings.
func TransferFingerprint(ownerID, sourceAccountID, targetAccountID uuid.UUID, c TransferCandidate) Fingerprint {
	w := newFingerprintWriter("transfer")
	w.writeUUID(ownerID)
	w.writeUUID(sourceAccountID)
	w.writeUUID(targetAccountID)
	w.writeDecimal(c.SourceAmount)
	w.writeDecimal(c.TargetAmount)
	w.writeString(c.SourceCurrency)
	w.writeString(c.TargetCurrency)
	w.writeOptString(c.BankReference)
	w.writeOptString(c.ExternalReference)
	return w.sum()
}

// AccountFingerprint derives the dedup key of an account candidate. The IBAN
// dominates identity when present; name and BIC cover accounts the statement
// identifies only by holder.
func AccountFingerprint(ownerID uuid.UUID, c AccountCandidate) Fingerprint {
	w := newFingerprintWriter("account")
	w.writeUUID(ownerID)
	w.writeOptString(c.Iban)
	w.writeOptString(c.AccountNumber)
	w.writeOptString(c.SubAccountNumber)
	w.writeOptString(c.Bic)
	w.writeString(c.Name)
	return w.sum()
}

// PurchaseFingerprint derives the dedup key of a purchase within its target
// transaction from the resolved product, price, quantity and currency.
func PurchaseFingerprint(ownerID, transactionID, productID uuid.UUID, c PurchaseCandidate) Fingerprint {
	w := newFingerprintWriter("purchase")
	w.writeUUID(ownerID)
	w.writeUUID(transactionID)
	w.writeUUID(productID)
	w.writeDecimal(c.LineTotal)
	w.writeDecimal(c.Quantity)
	w.writeString(c.CurrencyCode)
	return w.sum()
}
