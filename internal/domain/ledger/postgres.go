package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store and Catalog on top of pgx.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a Postgres-backed ledger store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Begin opens the per-document transaction.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &postgresTx{tx: tx}, nil
}

// Products returns the owner's catalog products, excluding deleted ones,
// ordered by name so matcher tie-breaks stay deterministic.
func (s *PostgresStore) Products(ctx context.Context, ownerID uuid.UUID) ([]Product, error) {
	query := `
		SELECT id, owner_id, name, normalized_name, description, unit_id, created_at, modified_at, deleted_at
		FROM products
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY name`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(
			&p.ID, &p.OwnerID, &p.Name, &p.NormalizedName, &p.Description,
			&p.UnitID, &p.CreatedAt, &p.ModifiedAt, &p.DeletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Currencies returns all known currencies.
func (s *PostgresStore) Currencies(ctx context.Context) ([]Currency, error) {
	rows, err := s.db.Query(ctx, `SELECT id, alphabetic_code, name FROM currencies ORDER BY alphabetic_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to query currencies: %w", err)
	}
	defer rows.Close()

	var currencies []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.AlphabeticCode, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan currency: %w", err)
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

// Units returns the owner's measurement units.
func (s *PostgresStore) Units(ctx context.Context, ownerID uuid.UUID) ([]Unit, error) {
	rows, err := s.db.Query(ctx, `SELECT id, owner_id, name, symbol FROM units WHERE owner_id = $1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var u Unit
		if err := rows.Scan(&u.ID, &u.OwnerID, &u.Name, &u.Symbol); err != nil {
			return nil, fmt.Errorf("failed to scan unit: %w", err)
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) Commit(ctx context.Context) error   { return t.tx.Commit(ctx) }
func (t *postgresTx) Rollback(ctx context.Context) error { return t.tx.Rollback(ctx) }

// mapCreateErr converts unique violations into ErrConflict so the merger can
// retry them as reuse lookups.
func mapCreateErr(err error, kind string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("create %s: %w", kind, ErrConflict)
	}
	return fmt.Errorf("failed to create %s: %w", kind, err)
}

func deletedFilter(includeDeleted bool) string {
	if includeDeleted {
		return ""
	}
	return " AND deleted_at IS NULL"
}

func (t *postgresTx) AccountByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Account, error) {
	query := `
		SELECT id, owner_id, name, normalized_name, iban, account_number, bic, legal_id,
		       preferred_currency, import_fingerprint, created_at, modified_at, deleted_at
		FROM accounts
		WHERE owner_id = $1 AND import_fingerprint = $2` + deletedFilter(includeDeleted)

	var a Account
	err := t.tx.QueryRow(ctx, query, ownerID, fingerprint).Scan(
		&a.ID, &a.OwnerID, &a.Name, &a.NormalizedName, &a.Iban, &a.AccountNumber,
		&a.Bic, &a.LegalID, &a.PreferredCurrency, &a.Fingerprint,
		&a.CreatedAt, &a.ModifiedAt, &a.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account by fingerprint: %w", err)
	}
	return &a, nil
}

func (t *postgresTx) CreateAccount(ctx context.Context, account *Account) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	query := `
		INSERT INTO accounts (id, owner_id, name, normalized_name, iban, account_number, bic, legal_id,
		                      preferred_currency, import_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, modified_at`

	err := t.tx.QueryRow(ctx, query,
		account.ID, account.OwnerID, account.Name, account.NormalizedName,
		account.Iban, account.AccountNumber, account.Bic, account.LegalID,
		account.PreferredCurrency, account.Fingerprint,
	).Scan(&account.CreatedAt, &account.ModifiedAt)
	return mapCreateErr(err, "account")
}

func (t *postgresTx) RestoreAccount(ctx context.Context, ownerID, id uuid.UUID) error {
	return t.restore(ctx, "accounts", ownerID, id)
}

func (t *postgresTx) TransactionByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Transaction, error) {
	query := `
		SELECT id, owner_id, booked_at, valued_at, description, import_fingerprint, imported_at,
		       created_at, modified_at, deleted_at
		FROM transactions
		WHERE owner_id = $1 AND import_fingerprint = $2` + deletedFilter(includeDeleted)

	return t.scanTransaction(t.tx.QueryRow(ctx, query, ownerID, fingerprint))
}

func (t *postgresTx) TransactionByID(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error) {
	query := `
		SELECT id, owner_id, booked_at, valued_at, description, import_fingerprint, imported_at,
		       created_at, modified_at, deleted_at
		FROM transactions
		WHERE owner_id = $1 AND id = $2 AND deleted_at IS NULL`

	return t.scanTransaction(t.tx.QueryRow(ctx, query, ownerID, id))
}

func (t *postgresTx) scanTransaction(row pgx.Row) (*Transaction, error) {
	var tr Transaction
	err := row.Scan(
		&tr.ID, &tr.OwnerID, &tr.BookedAt, &tr.ValuedAt, &tr.Description,
		&tr.Fingerprint, &tr.ImportedAt, &tr.CreatedAt, &tr.ModifiedAt, &tr.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transaction: %w", err)
	}
	return &tr, nil
}

func (t *postgresTx) CreateTransaction(ctx context.Context, transaction *Transaction) error {
	if transaction.ID == uuid.Nil {
		transaction.ID = uuid.New()
	}
	query := `
		INSERT INTO transactions (id, owner_id, booked_at, valued_at, description, import_fingerprint, imported_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING imported_at, created_at, modified_at`

	err := t.tx.QueryRow(ctx, query,
		transaction.ID, transaction.OwnerID, transaction.BookedAt, transaction.ValuedAt,
		transaction.Description, transaction.Fingerprint,
	).Scan(&transaction.ImportedAt, &transaction.CreatedAt, &transaction.ModifiedAt)
	return mapCreateErr(err, "transaction")
}

func (t *postgresTx) RestoreTransaction(ctx context.Context, ownerID, id uuid.UUID) error {
	return t.restore(ctx, "transactions", ownerID, id)
}

func (t *postgresTx) TransferByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Transfer, error) {
	query := `
		SELECT id, owner_id, transaction_id, source_account_id, target_account_id,
		       source_amount, target_amount, source_currency, target_currency,
		       bank_reference, external_reference, import_fingerprint,
		       created_at, modified_at, deleted_at
		FROM transfers
		WHERE owner_id = $1 AND import_fingerprint = $2` + deletedFilter(includeDeleted)

	var tr Transfer
	err := t.tx.QueryRow(ctx, query, ownerID, fingerprint).Scan(
		&tr.ID, &tr.OwnerID, &tr.TransactionID, &tr.SourceAccountID, &tr.TargetAccountID,
		&tr.SourceAmount, &tr.TargetAmount, &tr.SourceCurrency, &tr.TargetCurrency,
		&tr.BankReference, &tr.ExternalReference, &tr.Fingerprint,
		&tr.CreatedAt, &tr.ModifiedAt, &tr.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find transfer by fingerprint: %w", err)
	}
	return &tr, nil
}

func (t *postgresTx) CreateTransfer(ctx context.Context, transfer *Transfer) error {
	if transfer.ID == uuid.Nil {
		transfer.ID = uuid.New()
	}
	query := `
		INSERT INTO transfers (id, owner_id, transaction_id, source_account_id, target_account_id,
		                       source_amount, target_amount, source_currency, target_currency,
		                       bank_reference, external_reference, import_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, modified_at`

	err := t.tx.QueryRow(ctx, query,
		transfer.ID, transfer.OwnerID, transfer.TransactionID,
		transfer.SourceAccountID, transfer.TargetAccountID,
		transfer.SourceAmount, transfer.TargetAmount,
		transfer.SourceCurrency, transfer.TargetCurrency,
		transfer.BankReference, transfer.ExternalReference, transfer.Fingerprint,
	).Scan(&transfer.CreatedAt, &transfer.ModifiedAt)
	return mapCreateErr(err, "transfer")
}

func (t *postgresTx) RestoreTransfer(ctx context.Context, ownerID, id uuid.UUID) error {
	return t.restore(ctx, "transfers", ownerID, id)
}

func (t *postgresTx) PurchaseByFingerprint(ctx context.Context, ownerID uuid.UUID, fingerprint string, includeDeleted bool) (*Purchase, error) {
	query := `
		SELECT id, owner_id, transaction_id, product_id, price, currency_code, amount, sort_order,
		       import_fingerprint, created_at, modified_at, deleted_at
		FROM purchases
		WHERE owner_id = $1 AND import_fingerprint = $2` + deletedFilter(includeDeleted)

	var p Purchase
	err := t.tx.QueryRow(ctx, query, ownerID, fingerprint).Scan(
		&p.ID, &p.OwnerID, &p.TransactionID, &p.ProductID, &p.Price, &p.CurrencyCode,
		&p.Amount, &p.Order, &p.Fingerprint, &p.CreatedAt, &p.ModifiedAt, &p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find purchase by fingerprint: %w", err)
	}
	return &p, nil
}

func (t *postgresTx) CreatePurchase(ctx context.Context, purchase *Purchase) error {
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	query := `
		INSERT INTO purchases (id, owner_id, transaction_id, product_id, price, currency_code, amount,
		                       sort_order, import_fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, modified_at`

	err := t.tx.QueryRow(ctx, query,
		purchase.ID, purchase.OwnerID, purchase.TransactionID, purchase.ProductID,
		purchase.Price, purchase.CurrencyCode, purchase.Amount, purchase.Order, purchase.Fingerprint,
	).Scan(&purchase.CreatedAt, &purchase.ModifiedAt)
	return mapCreateErr(err, "purchase")
}

func (t *postgresTx) RestorePurchase(ctx context.Context, ownerID, id uuid.UUID) error {
	return t.restore(ctx, "purchases", ownerID, id)
}

func (t *postgresTx) ProductByNormalizedName(ctx context.Context, ownerID uuid.UUID, normalizedName string, includeDeleted bool) (*Product, error) {
	query := `
		SELECT id, owner_id, name, normalized_name, description, unit_id, created_at, modified_at, deleted_at
		FROM products
		WHERE owner_id = $1 AND normalized_name = $2` + deletedFilter(includeDeleted)

	var p Product
	err := t.tx.QueryRow(ctx, query, ownerID, normalizedName).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.NormalizedName, &p.Description,
		&p.UnitID, &p.CreatedAt, &p.ModifiedAt, &p.DeletedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by name: %w", err)
	}
	return &p, nil
}

func (t *postgresTx) CreateProduct(ctx context.Context, product *Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	query := `
		INSERT INTO products (id, owner_id, name, normalized_name, description, unit_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, modified_at`

	err := t.tx.QueryRow(ctx, query,
		product.ID, product.OwnerID, product.Name, product.NormalizedName,
		product.Description, product.UnitID,
	).Scan(&product.CreatedAt, &product.ModifiedAt)
	return mapCreateErr(err, "product")
}

func (t *postgresTx) RestoreProduct(ctx context.Context, ownerID, id uuid.UUID) error {
	return t.restore(ctx, "products", ownerID, id)
}

// restore clears the deletion marker keeping the row's identity. The table
// name is always one of the fixed entity tables, never caller input.
func (t *postgresTx) restore(ctx context.Context, table string, ownerID, id uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET deleted_at = NULL, modified_at = now() WHERE owner_id = $1 AND id = $2`, table)
	tag, err := t.tx.Exec(ctx, query, ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to restore %s row: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("restore %s %s: %w", table, id, ErrNotFound)
	}
	return nil
}
