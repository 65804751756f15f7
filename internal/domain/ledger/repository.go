package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrConflict is returned by Create* methods when the (owner_id, fingerprint)
// uniqueness constraint rejects the row. The merger retries the lookup and
// reports a reuse instead of failing the caller.
var ErrConflict = errors.New("ledger: fingerprint already exists")

// ErrNotFound is returned by Restore* methods when the target row is missing.
var ErrNotFound = errors.New("ledger: entity not found")

// Catalog is the read-only snapshot of products, currencies and units taken
// once per import call. Implementations must not expose shared mutable state.
type Catalog interface {
	Products(ctx context.Context, ownerID uuid.UUID) ([]Product, error)
	Currencies(ctx context.Context) ([]Currency, error)
	Units(ctx context.Context, ownerID uuid.UUID) ([]Unit, error)
}

// Store opens one transaction per source document. All reconciliation
// decisions for a document run inside a single Tx and commit or roll back
// together.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is the transactional surface the reconciliation merger runs against.
//
// The *ByFingerprint lookups return (nil, nil) when no row matches; with
// includeDeleted they also see soft-deleted rows so a re-import can restore
// instead of recreating. Create* methods return ErrConflict on a uniqueness
// violation; Restore* methods clear the deletion marker keeping the identity.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	AccountByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Account, error)
	CreateAccount(ctx context.Context, account *Account) error
	RestoreAccount(ctx context.Context, ownerID, id uuid.UUID) error

	TransactionByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Transaction, error)
	TransactionByID(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	CreateTransaction(ctx context.Context, transaction *Transaction) error
	RestoreTransaction(ctx context.Context, ownerID, id uuid.UUID) error

	TransferByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Transfer, error)
	CreateTransfer(ctx context.Context, transfer *Transfer) error
	RestoreTransfer(ctx context.Context, ownerID, id uuid.UUID) error

	PurchaseByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Purchase, error)
	CreatePurchase(ctx context.Context, purchase *Purchase) error
	RestorePurchase(ctx context.Context, ownerID, id uuid.UUID) error

	ProductByNormalizedName(ctx context.Context, ownerID uuid.UUID, normalizedName string, includeDeleted bool) (*Product, error)
	CreateProduct(ctx context.Context, product *Product) error
	RestoreProduct(ctx context.Context, ownerID, id uuid.UUID) error
}
