// Package importing defines the transient candidate records produced by the
// document parsers, the import result reported back to the caller, and the
// fingerprinting used to deduplicate candidates against the ledger.
package importing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
)

// SourceKind identifies the category of the source document.
type SourceKind string

const (
	SourceReceipt   SourceKind = "receipt"
	SourceStatement SourceKind = "statement"
)

// PurchaseCandidate is one purchase extracted from a receipt group and matched
// against the product catalog. It is transient - owned by the import call that
// produced it and never persisted as-is.
type PurchaseCandidate struct {
	RawLabel           string
	MatchedProductName string // best catalog match, empty when the catalog is empty
	MatchConfidence    int    // 0..100
	CurrencyCode       string
	UnitPrice          decimal.Decimal
	Quantity           decimal.Decimal
	UnitSymbol         *string
	LineTotal          decimal.Decimal
	DiscountApplied    bool
}

// AccountCandidate carries the minimal fields needed to look up or create a
// ledger account. Optional fields stay nil when the source document omits
// them; absence is meaningful for fingerprinting and must not collapse to "".
type AccountCandidate struct {
	// Key identifies this candidate within one document so transfers can
	// reference their two accounts before ledger ids exist.
	Key              string
	Name             string
	Iban             *string
	AccountNumber    *string
	SubAccountNumber *string
	Bic              *string
	LegalID          *string
	CurrencyCode     string
}

// TransferCandidate is one money movement between two account candidates.
type TransferCandidate struct {
	BankReference     *string
	ExternalReference *string
	SourceAccountKey  string
	TargetAccountKey  string
	SourceAmount      decimal.Decimal
	TargetAmount      decimal.Decimal
	SourceCurrency    string
	TargetCurrency    string
}

// TransactionCandidate groups the transfers that originated from the same
// bank-statement entry group.
type TransactionCandidate struct {
	BookedAt    time.Time
	ValuedAt    *time.Time
	Description *string
	Transfers   []TransferCandidate
}

// StatementCandidates is the flattened form of one bank-statement document.
type StatementCandidates struct {
	Accounts     []AccountCandidate
	Transactions []TransactionCandidate
}

// AccountReference reports whether an account was newly created by an import.
type AccountReference struct {
	Created bool
	Account ledger.Account
}

// TransactionReference reports whether a transaction was newly created.
type TransactionReference struct {
	Created     bool
	Transaction ledger.Transaction
}

// TransferReference reports whether a transfer was newly created.
type TransferReference struct {
	Created  bool
	Transfer ledger.Transfer
}

// ProductReference reports whether a product was newly created.
type ProductReference struct {
	Created bool
	Product ledger.Product
}

// PurchaseReference reports whether a purchase was newly created.
type PurchaseReference struct {
	Created  bool
	Purchase ledger.Purchase
}

// Result aggregates everything one import call touched. It is constructed once
// per call, returned to the caller and discarded - never persisted.
type Result struct {
	Accounts     []AccountReference
	Transactions []TransactionReference
	Transfers    []TransferReference
	Products     []ProductReference
	Purchases    []PurchaseReference
}

// AddAccount records an account reference, collapsing repeat reports of the
// same account within one document.
func (r *Result) AddAccount(account ledger.Account, created bool) {
	for _, ref := range r.Accounts {
		if ref.Account.ID == account.ID {
			return
		}
	}
	r.Accounts = append(r.Accounts, AccountReference{Created: created, Account: account})
}

// AddTransaction records a transaction reference, collapsing duplicates.
func (r *Result) AddTransaction(transaction ledger.Transaction, created bool) {
	for _, ref := range r.Transactions {
		if ref.Transaction.ID == transaction.ID {
			return
		}
	}
	r.Transactions = append(r.Transactions, TransactionReference{Created: created, Transaction: transaction})
}

// AddTransfer records a transfer reference.
func (r *Result) AddTransfer(transfer ledger.Transfer, created bool) {
	r.Transfers = append(r.Transfers, TransferReference{Created: created, Transfer: transfer})
}

// AddProduct records a product reference, collapsing duplicates.
func (r *Result) AddProduct(product ledger.Product, created bool) {
	for _, ref := range r.Products {
		if ref.Product.ID == product.ID {
			return
		}
	}
	r.Products = append(r.Products, ProductReference{Created: created, Product: product})
}

// AddPurchase records a purchase reference.
func (r *Result) AddPurchase(purchase ledger.Purchase, created bool) {
	r.Purchases = append(r.Purchases, PurchaseReference{Created: created, Purchase: purchase})
}
