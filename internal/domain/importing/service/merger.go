// Package service orchestrates document imports: it runs the parsing
// pipeline for each source kind and reconciles the resulting candidates
// against the ledger inside one store transaction per document.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// Decision is the reconciliation outcome for one candidate. Restore counts
// as not-created for the caller: the entity keeps its identity, it only
// becomes available again.
type Decision int

const (
	DecisionReuse Decision = iota
	DecisionRestore
	DecisionCreate
)

func (d Decision) String() string {
	switch d {
	case DecisionReuse:
		return "reuse"
	case DecisionRestore:
		return "restore"
	case DecisionCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Created reports whether the decision produced a new ledger entity.
func (d Decision) Created() bool { return d == DecisionCreate }

// merger reconciles candidates against the ledger within a single store
// transaction. Lookups include soft-deleted rows so that re-importing a
// document restores what the user deleted instead of duplicating it.
type merger struct {
	tx      ledger.Tx
	ownerID uuid.UUID
	now     func() time.Time
	logger  *slog.Logger
}

func (m *merger) mergeAccount(ctx context.Context, c importing.AccountCandidate) (*ledger.Account, Decision, error) {
	fingerprint := importing.AccountFingerprint(m.ownerID, c)
	lookup := func(ctx context.Context) (*ledger.Account, error) {
		return m.tx.AccountByFingerprint(ctx, m.ownerID, string(fingerprint), true)
	}

	existing, err := lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("account lookup: %w", err)
	}
	if existing != nil {
		decision, err := m.settleExisting(ctx, "account", &existing.DeletedAt, func(ctx context.Context) error {
			return m.tx.RestoreAccount(ctx, m.ownerID, existing.ID)
		})
		return existing, decision, err
	}

	now := m.now()
	account := &ledger.Account{
		ID:                uuid.New(),
		OwnerID:           m.ownerID,
		Name:              c.Name,
		NormalizedName:    normalizeName(c.Name),
		Iban:              c.Iban,
		AccountNumber:     c.AccountNumber,
		Bic:               c.Bic,
		LegalID:           c.LegalID,
		PreferredCurrency: c.CurrencyCode,
		Fingerprint:       string(fingerprint),
		CreatedAt:         now,
		ModifiedAt:        now,
	}

	switch err := m.tx.CreateAccount(ctx, account); {
	case err == nil:
		m.logger.Debug("created account", "name", c.Name, "fingerprint", fingerprint)
		recordDecision("account", DecisionCreate)
		return account, DecisionCreate, nil
	case !errors.Is(err, ledger.ErrConflict):
		return nil, 0, fmt.Errorf("create account: %w", err)
	}

	// Lost a create race; the row must be visible now.
	existing, err = lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("account conflict lookup: %w", err)
	}
	if existing == nil {
		return nil, 0, &importing.IntegrityError{Kind: "account", Fingerprint: fingerprint}
	}
	decision, err := m.settleExisting(ctx, "account", &existing.DeletedAt, func(ctx context.Context) error {
		return m.tx.RestoreAccount(ctx, m.ownerID, existing.ID)
	})
	return existing, decision, err
}

func (m *merger) mergeTransaction(ctx context.Context, c importing.TransactionCandidate) (*ledger.Transaction, Decision, error) {
	fingerprint := importing.TransactionFingerprint(m.ownerID, c)
	lookup := func(ctx context.Context) (*ledger.Transaction, error) {
		return m.tx.TransactionByFingerprint(ctx, m.ownerID, string(fingerprint), true)
	}

	existing, err := lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("transaction lookup: %w", err)
	}
	if existing != nil {
		decision, err := m.settleExisting(ctx, "transaction", &existing.DeletedAt, func(ctx context.Context) error {
			return m.tx.RestoreTransaction(ctx, m.ownerID, existing.ID)
		})
		return existing, decision, err
	}

	now := m.now()
	transaction := &ledger.Transaction{
		ID:          uuid.New(),
		OwnerID:     m.ownerID,
		BookedAt:    c.BookedAt,
		ValuedAt:    c.ValuedAt,
		Description: c.Description,
		Fingerprint: string(fingerprint),
		ImportedAt:  &now,
		CreatedAt:   now,
		ModifiedAt:  now,
	}

	switch err := m.tx.CreateTransaction(ctx, transaction); {
	case err == nil:
		m.logger.Debug("created transaction", "booked_at", c.BookedAt, "fingerprint", fingerprint)
		recordDecision("transaction", DecisionCreate)
		return transaction, DecisionCreate, nil
	case !errors.Is(err, ledger.ErrConflict):
		return nil, 0, fmt.Errorf("create transaction: %w", err)
	}

	existing, err = lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("transaction conflict lookup: %w", err)
	}
	if existing == nil {
		return nil, 0, &importing.IntegrityError{Kind: "transaction", Fingerprint: fingerprint}
	}
	decision, err := m.settleExisting(ctx, "transaction", &existing.DeletedAt, func(ctx context.Context) error {
		return m.tx.RestoreTransaction(ctx, m.ownerID, existing.ID)
	})
	return existing, decision, err
}

func (m *merger) mergeTransfer(
	ctx context.Context,
	transactionID, sourceAccountID, targetAccountID uuid.UUID,
	c importing.TransferCandidate,
) (*ledger.Transfer, Decision, error) {
	fingerprint := importing.TransferFingerprint(m.ownerID, sourceAccountID, targetAccountID, c)
	lookup := func(ctx context.Context) (*ledger.Transfer, error) {
		return m.tx.TransferByFingerprint(ctx, m.ownerID, string(fingerprint), true)
	}

	existing, err := lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("transfer lookup: %w", err)
	}
	if existing != nil {
		decision, err := m.settleExisting(ctx, "transfer", &existing.DeletedAt, func(ctx context.Context) error {
			return m.tx.RestoreTransfer(ctx, m.ownerID, existing.ID)
		})
		return existing, decision, err
	}

	now := m.now()
	transfer := &ledger.Transfer{
		ID:                uuid.New(),
		OwnerID:           m.ownerID,
		TransactionID:     transactionID,
		SourceAccountID:   sourceAccountID,
		TargetAccountID:   targetAccountID,
		SourceAmount:      c.SourceAmount,
		TargetAmount:      c.TargetAmount,
		SourceCurrency:    c.SourceCurrency,
		TargetCurrency:    c.TargetCurrency,
		BankReference:     c.BankReference,
		ExternalReference: c.ExternalReference,
		Fingerprint:       string(fingerprint),
		CreatedAt:         now,
		ModifiedAt:        now,
	}

	switch err := m.tx.CreateTransfer(ctx, transfer); {
	case err == nil:
		recordDecision("transfer", DecisionCreate)
		return transfer, DecisionCreate, nil
	case !errors.Is(err, ledger.ErrConflict):
		return nil, 0, fmt.Errorf("create transfer: %w", err)
	}

	existing, err = lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("transfer conflict lookup: %w", err)
	}
	if existing == nil {
		return nil, 0, &importing.IntegrityError{Kind: "transfer", Fingerprint: fingerprint}
	}
	decision, err := m.settleExisting(ctx, "transfer", &existing.DeletedAt, func(ctx context.Context) error {
		return m.tx.RestoreTransfer(ctx, m.ownerID, existing.ID)
	})
	return existing, decision, err
}

func (m *merger) mergePurchase(
	ctx context.Context,
	transactionID, productID uuid.UUID,
	order int,
	c importing.PurchaseCandidate,
) (*ledger.Purchase, Decision, error) {
	fingerprint := importing.PurchaseFingerprint(m.ownerID, transactionID, productID, c)
	lookup := func(ctx context.Context) (*ledger.Purchase, error) {
		return m.tx.PurchaseByFingerprint(ctx, m.ownerID, string(fingerprint), true)
	}

	existing, err := lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("purchase lookup: %w", err)
	}
	if existing != nil {
		decision, err := m.settleExisting(ctx, "purchase", &existing.DeletedAt, func(ctx context.Context) error {
			return m.tx.RestorePurchase(ctx, m.ownerID, existing.ID)
		})
		return existing, decision, err
	}

	now := m.now()
	purchase := &ledger.Purchase{
		ID:            uuid.New(),
		OwnerID:       m.ownerID,
		TransactionID: transactionID,
		ProductID:     productID,
		Price:         c.LineTotal,
		CurrencyCode:  c.CurrencyCode,
		Amount:        c.Quantity,
		Order:         order,
		Fingerprint:   string(fingerprint),
		CreatedAt:     now,
		ModifiedAt:    now,
	}

	switch err := m.tx.CreatePurchase(ctx, purchase); {
	case err == nil:
		recordDecision("purchase", DecisionCreate)
		return purchase, DecisionCreate, nil
	case !errors.Is(err, ledger.ErrConflict):
		return nil, 0, fmt.Errorf("create purchase: %w", err)
	}

	existing, err = lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("purchase conflict lookup: %w", err)
	}
	if existing == nil {
		return nil, 0, &importing.IntegrityError{Kind: "purchase", Fingerprint: fingerprint}
	}
	decision, err := m.settleExisting(ctx, "purchase", &existing.DeletedAt, func(ctx context.Context) error {
		return m.tx.RestorePurchase(ctx, m.ownerID, existing.ID)
	})
	return existing, decision, err
}

// mergeProduct reconciles by normalized name rather than fingerprint:
// products are catalog entries shared across documents, so their name is
// their identity.
func (m *merger) mergeProduct(
	ctx context.Context,
	name string,
	description *string,
	unitID *uuid.UUID,
) (*ledger.Product, Decision, error) {
	normalized := normalizeName(name)
	lookup := func(ctx context.Context) (*ledger.Product, error) {
		return m.tx.ProductByNormalizedName(ctx, m.ownerID, normalized, true)
	}

	existing, err := lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("product lookup: %w", err)
	}
	if existing != nil {
		decision, err := m.settleExisting(ctx, "product", &existing.DeletedAt, func(ctx context.Context) error {
			return m.tx.RestoreProduct(ctx, m.ownerID, existing.ID)
		})
		return existing, decision, err
	}

	now := m.now()
	product := &ledger.Product{
		ID:             uuid.New(),
		OwnerID:        m.ownerID,
		Name:           name,
		NormalizedName: normalized,
		Description:    description,
		UnitID:         unitID,
		CreatedAt:      now,
		ModifiedAt:     now,
	}

	switch err := m.tx.CreateProduct(ctx, product); {
	case err == nil:
		m.logger.Debug("created product", "name", name)
		recordDecision("product", DecisionCreate)
		return product, DecisionCreate, nil
	case !errors.Is(err, ledger.ErrConflict):
		return nil, 0, fmt.Errorf("create product: %w", err)
	}

	existing, err = lookup(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("product conflict lookup: %w", err)
	}
	if existing == nil {
		return nil, 0, &importing.IntegrityError{Kind: "product", Fingerprint: importing.Fingerprint(normalized)}
	}
	decision, err := m.settleExisting(ctx, "product", &existing.DeletedAt, func(ctx context.Context) error {
		return m.tx.RestoreProduct(ctx, m.ownerID, existing.ID)
	})
	return existing, decision, err
}

// settleExisting turns a found row into the final decision: a live row is
// reused, a soft-deleted one is restored and its marker cleared in place.
func (m *merger) settleExisting(
	ctx context.Context,
	kind string,
	deletedAt **time.Time,
	restore func(ctx context.Context) error,
) (Decision, error) {
	if *deletedAt == nil {
		recordDecision(kind, DecisionReuse)
		return DecisionReuse, nil
	}
	if err := restore(ctx); err != nil {
		return 0, fmt.Errorf("restore %s: %w", kind, err)
	}
	*deletedAt = nil
	m.logger.Debug("restored soft-deleted entity", "kind", kind)
	recordDecision(kind, DecisionRestore)
	return DecisionRestore, nil
}
