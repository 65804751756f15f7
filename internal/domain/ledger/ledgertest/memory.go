// Package ledgertest provides an in-memory ledger store and catalog for
// tests. It enforces the same uniqueness rules as the Postgres store:
// (owner, fingerprint) for importable entities, non-deleted normalized name
// for products.
package ledgertest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// MemoryStore implements ledger.Store and ledger.Catalog over plain maps.
type MemoryStore struct {
	mu sync.Mutex

	accounts     map[uuid.UUID]ledger.Account
	transactions map[uuid.UUID]ledger.Transaction
	transfers    map[uuid.UUID]ledger.Transfer
	purchases    map[uuid.UUID]ledger.Purchase
	products     map[uuid.UUID]ledger.Product
	currencies   []ledger.Currency
	units        []ledger.Unit
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[uuid.UUID]ledger.Account),
		transactions: make(map[uuid.UUID]ledger.Transaction),
		transfers:    make(map[uuid.UUID]ledger.Transfer),
		purchases:    make(map[uuid.UUID]ledger.Purchase),
		products:     make(map[uuid.UUID]ledger.Product),
	}
}

// SeedCurrency registers a catalog currency.
func (s *MemoryStore) SeedCurrency(code, name string) ledger.Currency {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := ledger.Currency{ID: uuid.New(), AlphabeticCode: code, Name: name}
	s.currencies = append(s.currencies, c)
	return c
}

// SeedUnit registers a catalog unit. symbol may be empty for symbol-less
// units such as "Piece".
func (s *MemoryStore) SeedUnit(ownerID uuid.UUID, name, symbol string) ledger.Unit {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := ledger.Unit{ID: uuid.New(), OwnerID: ownerID, Name: name}
	if symbol != "" {
		u.Symbol = &symbol
	}
	s.units = append(s.units, u)
	return u
}

// SeedProduct registers a catalog product.
func (s *MemoryStore) SeedProduct(ownerID uuid.UUID, name string) ledger.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	p := ledger.Product{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Name:           name,
		NormalizedName: normalizeName(name),
		CreatedAt:      now,
		ModifiedAt:     now,
	}
	s.products[p.ID] = p
	return p
}

// SeedTransaction registers a transaction purchases can attach to.
func (s *MemoryStore) SeedTransaction(ownerID uuid.UUID, bookedAt time.Time) ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	t := ledger.Transaction{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		BookedAt:    bookedAt,
		Fingerprint: "seed-" + uuid.NewString(),
		CreatedAt:   now,
		ModifiedAt:  now,
	}
	s.transactions[t.ID] = t
	return t
}

// SoftDeletePurchase marks a purchase deleted, as a user removal would.
func (s *MemoryStore) SoftDeletePurchase(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.purchases[id]; ok {
		now := time.Now()
		p.DeletedAt = &now
		s.purchases[id] = p
	}
}

// SoftDeleteTransfer marks a transfer deleted.
func (s *MemoryStore) SoftDeleteTransfer(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transfers[id]; ok {
		now := time.Now()
		t.DeletedAt = &now
		s.transfers[id] = t
	}
}

// SoftDeleteTransaction marks a transaction deleted.
func (s *MemoryStore) SoftDeleteTransaction(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.transactions[id]; ok {
		now := time.Now()
		t.DeletedAt = &now
		s.transactions[id] = t
	}
}

// Counts reports how many rows of each kind exist, soft-deleted included.
func (s *MemoryStore) Counts() (accounts, transactions, transfers, purchases, products int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts), len(s.transactions), len(s.transfers), len(s.purchases), len(s.products)
}

// Products implements ledger.Catalog, sorted is not required here since the
// matcher sorts its own snapshot.
func (s *MemoryStore) Products(_ context.Context, ownerID uuid.UUID) ([]ledger.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Product
	for _, p := range s.products {
		if p.OwnerID == ownerID && p.DeletedAt == nil {
			out = append(out, p)
		}
	}
	return out, nil
}

// Currencies implements ledger.Catalog.
func (s *MemoryStore) Currencies(_ context.Context) ([]ledger.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Currency(nil), s.currencies...), nil
}

// Units implements ledger.Catalog.
func (s *MemoryStore) Units(_ context.Context, ownerID uuid.UUID) ([]ledger.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Unit
	for _, u := range s.units {
		if u.OwnerID == ownerID {
			out = append(out, u)
		}
	}
	return out, nil
}

// Begin implements ledger.Store. The returned transaction mutates the store
// directly and restores a snapshot on rollback.
func (s *MemoryStore) Begin(_ context.Context) (ledger.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memoryTx{
		store:        s,
		accounts:     cloneMap(s.accounts),
		transactions: cloneMap(s.transactions),
		transfers:    cloneMap(s.transfers),
		purchases:    cloneMap(s.purchases),
		products:     cloneMap(s.products),
	}, nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type memoryTx struct {
	store *MemoryStore

	// pre-transaction snapshot, restored on rollback
	accounts     map[uuid.UUID]ledger.Account
	transactions map[uuid.UUID]ledger.Transaction
	transfers    map[uuid.UUID]ledger.Transfer
	purchases    map[uuid.UUID]ledger.Purchase
	products     map[uuid.UUID]ledger.Product

	done bool
}

func (t *memoryTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	t.done = true
	return nil
}

func (t *memoryTx) Rollback(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.store.accounts = t.accounts
	t.store.transactions = t.transactions
	t.store.transfers = t.transfers
	t.store.purchases = t.purchases
	t.store.products = t.products
	return nil
}

func (t *memoryTx) AccountByFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*ledger.Account, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, a := range t.store.accounts {
		if a.OwnerID == ownerID && a.Fingerprint == fingerprint && (includeDeleted || a.DeletedAt == nil) {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateAccount(_ context.Context, account *ledger.Account) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, a := range t.store.accounts {
		if a.OwnerID == account.OwnerID && a.Fingerprint == account.Fingerprint {
			return ledger.ErrConflict
		}
	}
	t.store.accounts[account.ID] = *account
	return nil
}

func (t *memoryTx) RestoreAccount(_ context.Context, ownerID, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	a, ok := t.store.accounts[id]
	if !ok || a.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	a.DeletedAt = nil
	t.store.accounts[id] = a
	return nil
}

func (t *memoryTx) TransactionByFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*ledger.Transaction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, tr := range t.store.transactions {
		if tr.OwnerID == ownerID && tr.Fingerprint == fingerprint && (includeDeleted || tr.DeletedAt == nil) {
			found := tr
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) TransactionByID(_ context.Context, ownerID, id uuid.UUID) (*ledger.Transaction, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tr, ok := t.store.transactions[id]
	if !ok || tr.OwnerID != ownerID || tr.DeletedAt != nil {
		return nil, nil
	}
	found := tr
	return &found, nil
}

func (t *memoryTx) CreateTransaction(_ context.Context, transaction *ledger.Transaction) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, tr := range t.store.transactions {
		if tr.OwnerID == transaction.OwnerID && tr.Fingerprint == transaction.Fingerprint {
			return ledger.ErrConflict
		}
	}
	t.store.transactions[transaction.ID] = *transaction
	return nil
}

func (t *memoryTx) RestoreTransaction(_ context.Context, ownerID, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tr, ok := t.store.transactions[id]
	if !ok || tr.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	tr.DeletedAt = nil
	t.store.transactions[id] = tr
	return nil
}

func (t *memoryTx) TransferByFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*ledger.Transfer, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, tr := range t.store.transfers {
		if tr.OwnerID == ownerID && tr.Fingerprint == fingerprint && (includeDeleted || tr.DeletedAt == nil) {
			found := tr
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateTransfer(_ context.Context, transfer *ledger.Transfer) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, tr := range t.store.transfers {
		if tr.OwnerID == transfer.OwnerID && tr.Fingerprint == transfer.Fingerprint {
			return ledger.ErrConflict
		}
	}
	t.store.transfers[transfer.ID] = *transfer
	return nil
}

func (t *memoryTx) RestoreTransfer(_ context.Context, ownerID, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	tr, ok := t.store.transfers[id]
	if !ok || tr.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	tr.DeletedAt = nil
	t.store.transfers[id] = tr
	return nil
}

func (t *memoryTx) PurchaseByFingerprint(_ context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*ledger.Purchase, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.store.purchases {
		if p.OwnerID == ownerID && p.Fingerprint == fingerprint && (includeDeleted || p.DeletedAt == nil) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreatePurchase(_ context.Context, purchase *ledger.Purchase) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.store.purchases {
		if p.OwnerID == purchase.OwnerID && p.Fingerprint == purchase.Fingerprint {
			return ledger.ErrConflict
		}
	}
	t.store.purchases[purchase.ID] = *purchase
	return nil
}

func (t *memoryTx) RestorePurchase(_ context.Context, ownerID, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.purchases[id]
	if !ok || p.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	p.DeletedAt = nil
	t.store.purchases[id] = p
	return nil
}

func (t *memoryTx) ProductByNormalizedName(_ context.Context, ownerID uuid.UUID, normalizedName string, includeDeleted bool) (*ledger.Product, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.store.products {
		if p.OwnerID == ownerID && p.NormalizedName == normalizedName && (includeDeleted || p.DeletedAt == nil) {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memoryTx) CreateProduct(_ context.Context, product *ledger.Product) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for _, p := range t.store.products {
		if p.OwnerID == product.OwnerID && p.NormalizedName == product.NormalizedName && p.DeletedAt == nil {
			return ledger.ErrConflict
		}
	}
	t.store.products[product.ID] = *product
	return nil
}

func (t *memoryTx) RestoreProduct(_ context.Context, ownerID, id uuid.UUID) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	p, ok := t.store.products[id]
	if !ok || p.OwnerID != ownerID {
		return ledger.ErrNotFound
	}
	p.DeletedAt = nil
	t.store.products[id] = p
	return nil
}

func normalizeName(name string) string {
	return strings.ToUpper(name)
}
