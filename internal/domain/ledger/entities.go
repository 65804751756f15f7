// Package ledger holds the normalized ledger entities and the persistence
// interfaces the import pipeline consumes. All entities are owned by a single
// owner id and soft-deleted: a deletion sets DeletedAt, and a later import of
// the same source document restores the row instead of creating a duplicate.
package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account is a party money moves to or from: one of the user's bank accounts
// or a counterparty seen on a statement.
type Account struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Name              string
	NormalizedName    string
	Iban              *string
	AccountNumber     *string
	Bic               *string
	LegalID           *string
	PreferredCurrency string
	Fingerprint       string
	CreatedAt         time.Time
	ModifiedAt        time.Time
	DeletedAt         *time.Time
}

// Deleted reports whether the entity is soft-deleted.
func (a Account) Deleted() bool { return a.DeletedAt != nil }

// Currency is an ISO-4217 currency known to the catalog.
type Currency struct {
	ID             uuid.UUID
	AlphabeticCode string
	Name           string
}

// Unit is a measurement unit for purchases, e.g. "Gram" with symbol "g".
// Symbol is nil for units that never appear on receipts.
type Unit struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
	Symbol  *string
}

// Product is a catalog entry purchases refer to.
type Product struct {
	ID             uuid.UUID
	OwnerID        uuid.UUID
	Name           string
	NormalizedName string
	Description    *string
	UnitID         *uuid.UUID
	CreatedAt      time.Time
	ModifiedAt     time.Time
	DeletedAt      *time.Time
}

func (p Product) Deleted() bool { return p.DeletedAt != nil }

// Transaction is a ledger transaction; its money movements are Transfers and
// its line items are Purchases.
type Transaction struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	BookedAt    time.Time
	ValuedAt    *time.Time
	Description *string
	Fingerprint string
	ImportedAt  *time.Time
	CreatedAt   time.Time
	ModifiedAt  time.Time
	DeletedAt   *time.Time
}

func (t Transaction) Deleted() bool { return t.DeletedAt != nil }

// Transfer moves an amount from a source account to a target account within a
// transaction. Source and target amounts differ when the two sides settle in
// different currencies.
type Transfer struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	TransactionID     uuid.UUID
	SourceAccountID   uuid.UUID
	TargetAccountID   uuid.UUID
	SourceAmount      decimal.Decimal
	TargetAmount      decimal.Decimal
	SourceCurrency    string
	TargetCurrency    string
	BankReference     *string
	ExternalReference *string
	Fingerprint       string
	CreatedAt         time.Time
	ModifiedAt        time.Time
	DeletedAt         *time.Time
}

func (t Transfer) Deleted() bool { return t.DeletedAt != nil }

// Purchase is one line item of a transaction: an amount of a product at a
// price in a currency.
type Purchase struct {
	ID            uuid.UUID
	OwnerID       uuid.UUID
	TransactionID uuid.UUID
	ProductID     uuid.UUID
	Price         decimal.Decimal
	CurrencyCode  string
	Amount        decimal.Decimal
	Order         int
	Fingerprint   string
	CreatedAt     time.Time
	ModifiedAt    time.Time
	DeletedAt     *time.Time
}

func (p Purchase) Deleted() bool { return p.DeletedAt != nil }
