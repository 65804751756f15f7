package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/internal/domain/product"
	"github.com/FACorreiaa/ledger-import/internal/domain/receipt"
	"github.com/FACorreiaa/ledger-import/internal/domain/statement"
	"github.com/FACorreiaa/ledger-import/pkg/money"
)

// generatedDescription marks products the import created because no catalog
// entry matched well enough.
const generatedDescription = "Generated during import"

// defaultUnitName is the unit assigned to purchases whose receipt line names
// no unit at all.
const defaultUnitName = "Piece"

// ImportService runs the full pipeline for one source document: parse,
// match, reconcile, commit. Parsing happens before the store transaction
// begins, so a ParseError never leaves partial state behind.
type ImportService struct {
	store          ledger.Store
	catalog        ledger.Catalog
	logger         *slog.Logger
	tracer         trace.Tracer
	location       *time.Location
	matchThreshold int
	now            func() time.Time
}

// Options tune an ImportService. The zero value picks sane defaults.
type Options struct {
	Logger *slog.Logger
	// Location interprets zone-less statement dates. Defaults to UTC.
	Location *time.Location
	// MatchThreshold is the minimum product-match confidence (0-100) for
	// reusing an existing catalog product. Defaults to 70.
	MatchThreshold int
	// Clock overrides time.Now, for tests.
	Clock func() time.Time
}

// NewImportService wires an import service over the given store and catalog.
func NewImportService(store ledger.Store, catalog ledger.Catalog, opts Options) *ImportService {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = 70
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &ImportService{
		store:          store,
		catalog:        catalog,
		logger:         opts.Logger,
		tracer:         otel.Tracer("ledger-import/service"),
		location:       opts.Location,
		matchThreshold: opts.MatchThreshold,
		now:            opts.Clock,
	}
}

// Import dispatches on the source kind. Receipt imports need a target
// transaction to attach purchases to; statement imports ignore it.
func (s *ImportService) Import(
	ctx context.Context,
	ownerID uuid.UUID,
	kind importing.SourceKind,
	payload []byte,
	targetTransactionID uuid.UUID,
) (*importing.Result, error) {
	switch kind {
	case importing.SourceReceipt:
		return s.ImportReceipt(ctx, ownerID, targetTransactionID, string(payload))
	case importing.SourceStatement:
		return s.ImportStatement(ctx, ownerID, payload)
	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

// ImportReceipt parses receipt text, matches each purchase against the
// product catalog and attaches the purchases to an existing transaction.
// Re-submitting the same receipt is a no-op thanks to purchase fingerprints.
func (s *ImportService) ImportReceipt(
	ctx context.Context,
	ownerID, transactionID uuid.UUID,
	content string,
) (result *importing.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "ImportReceipt")
	defer span.End()
	start := s.now()
	defer func() { observeImport(string(importing.SourceReceipt), s.now().Sub(start), err) }()

	snapshot, err := s.loadCatalog(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	defer snapshot.close()

	segmenter := receipt.NewSegmenter(snapshot.currencyCodes, s.logger)
	groups, err := segmenter.Segment(content)
	if err != nil {
		return nil, err
	}

	extractor := receipt.NewExtractor(s.logger)
	candidates := make([]importing.PurchaseCandidate, 0, len(groups))
	for _, group := range groups {
		candidate, err := extractor.Extract(group, snapshot.currencyCodes, snapshot.unitSymbols)
		if err != nil {
			return nil, err
		}
		s.matchProduct(&candidate, snapshot.matcher)
		candidates = append(candidates, candidate)
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	m := &merger{tx: tx, ownerID: ownerID, now: s.now, logger: s.logger}
	result = &importing.Result{}

	target, err := tx.TransactionByID(ctx, ownerID, transactionID)
	if err != nil {
		return nil, fmt.Errorf("target transaction lookup: %w", err)
	}
	if target == nil {
		return nil, fmt.Errorf("target transaction %s: %w", transactionID, ledger.ErrNotFound)
	}
	result.AddTransaction(*target, false)

	for i, candidate := range candidates {
		prod, decision, err := s.resolveProduct(ctx, m, snapshot, candidate)
		if err != nil {
			return nil, err
		}
		result.AddProduct(*prod, decision.Created())

		purchase, decision, err := m.mergePurchase(ctx, target.ID, prod.ID, i, candidate)
		if err != nil {
			return nil, err
		}
		result.AddPurchase(*purchase, decision.Created())
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit receipt import: %w", err)
	}

	s.logger.Info("imported receipt",
		"owner_id", ownerID, "transaction_id", transactionID, "purchases", len(result.Purchases))
	return result, nil
}

// ImportStatement parses a Fidavista document and reconciles its accounts,
// transactions and transfers against the ledger.
func (s *ImportService) ImportStatement(
	ctx context.Context,
	ownerID uuid.UUID,
	payload []byte,
) (result *importing.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "ImportStatement")
	defer span.End()
	start := s.now()
	defer func() { observeImport(string(importing.SourceStatement), s.now().Sub(start), err) }()

	doc, err := statement.Parse(payload)
	if err != nil {
		return nil, err
	}

	mapper := statement.NewMapper(s.location, s.logger)
	candidates, err := mapper.Map(doc)
	if err != nil {
		return nil, err
	}

	for _, candidate := range candidates.Accounts {
		if !money.Known(candidate.CurrencyCode) {
			return nil, importing.NewParseError("map",
				fmt.Sprintf("unknown currency code %q", candidate.CurrencyCode), candidate.Key)
		}
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin import transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	m := &merger{tx: tx, ownerID: ownerID, now: s.now, logger: s.logger}
	result = &importing.Result{}

	accountsByKey := make(map[string]*ledger.Account, len(candidates.Accounts))
	for _, candidate := range candidates.Accounts {
		account, decision, err := m.mergeAccount(ctx, candidate)
		if err != nil {
			return nil, err
		}
		accountsByKey[candidate.Key] = account
		result.AddAccount(*account, decision.Created())
	}

	for _, candidate := range candidates.Transactions {
		transaction, decision, err := m.mergeTransaction(ctx, candidate)
		if err != nil {
			return nil, err
		}
		result.AddTransaction(*transaction, decision.Created())

		for _, transferCandidate := range candidate.Transfers {
			source, ok := accountsByKey[transferCandidate.SourceAccountKey]
			if !ok {
				return nil, fmt.Errorf("unresolved source account key %q", transferCandidate.SourceAccountKey)
			}
			target, ok := accountsByKey[transferCandidate.TargetAccountKey]
			if !ok {
				return nil, fmt.Errorf("unresolved target account key %q", transferCandidate.TargetAccountKey)
			}

			transfer, decision, err := m.mergeTransfer(ctx, transaction.ID, source.ID, target.ID, transferCandidate)
			if err != nil {
				return nil, err
			}
			result.AddTransfer(*transfer, decision.Created())
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit statement import: %w", err)
	}

	s.logger.Info("imported statement", "owner_id", ownerID,
		"accounts", len(result.Accounts), "transactions", len(result.Transactions),
		"transfers", len(result.Transfers))
	return result, nil
}

// matchProduct annotates a candidate with the best catalog match. A low
// score is surfaced in the result rather than blocking the import.
func (s *ImportService) matchProduct(candidate *importing.PurchaseCandidate, matcher *product.Matcher) {
	match, ok := matcher.Match(candidate.RawLabel)
	if !ok {
		return
	}
	candidate.MatchedProductName = match.Name
	candidate.MatchConfidence = match.Score

	if match.Score < s.matchThreshold {
		lowConfidenceMatches.Inc()
		s.logger.Warn("low confidence product match",
			"label", candidate.RawLabel, "match", match.Name, "score", match.Score)
	}
}

// resolveProduct picks the ledger product a purchase belongs to: a
// confident match reuses the catalog entry, anything else creates (or
// revives) a product named after the raw label.
func (s *ImportService) resolveProduct(
	ctx context.Context,
	m *merger,
	snapshot *catalogSnapshot,
	candidate importing.PurchaseCandidate,
) (*ledger.Product, Decision, error) {
	name := candidate.RawLabel
	var description *string
	if candidate.MatchConfidence >= s.matchThreshold && candidate.MatchedProductName != "" {
		name = candidate.MatchedProductName
	} else {
		d := generatedDescription
		description = &d
	}

	return m.mergeProduct(ctx, name, description, snapshot.unitIDFor(candidate.UnitSymbol))
}

// catalogSnapshot is the read-only catalog state one import call works
// against.
type catalogSnapshot struct {
	currencyCodes []string
	unitSymbols   []string
	units         []ledger.Unit
	matcher       *product.Matcher
	index         *product.Index
}

func (s *ImportService) loadCatalog(ctx context.Context, ownerID uuid.UUID) (*catalogSnapshot, error) {
	products, err := s.catalog.Products(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	currencies, err := s.catalog.Currencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("load currencies: %w", err)
	}
	units, err := s.catalog.Units(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}

	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}

	codes := make([]string, 0, len(currencies))
	for _, c := range currencies {
		codes = append(codes, c.AlphabeticCode)
	}

	symbols := make([]string, 0, len(units))
	for _, u := range units {
		if u.Symbol != nil {
			symbols = append(symbols, *u.Symbol)
		}
	}

	index, err := product.NewIndex(names)
	if err != nil {
		s.logger.Warn("product index unavailable, matching exhaustively", "error", err)
		index = nil
	}

	return &catalogSnapshot{
		currencyCodes: codes,
		unitSymbols:   symbols,
		units:         units,
		matcher:       product.NewMatcher(names, index, s.logger),
		index:         index,
	}, nil
}

// close releases the in-memory search index backing the snapshot's
// matcher. Safe to call more than once.
func (c *catalogSnapshot) close() {
	if c.index != nil {
		_ = c.index.Close()
		c.index = nil
	}
}

// unitIDFor maps a receipt unit symbol to a catalog unit, falling back to
// the default piece unit. Returns nil when the catalog has neither.
func (c *catalogSnapshot) unitIDFor(symbol *string) *uuid.UUID {
	if symbol != nil {
		for _, u := range c.units {
			if u.Symbol != nil && strings.EqualFold(*u.Symbol, *symbol) {
				id := u.ID
				return &id
			}
		}
	}
	for _, u := range c.units {
		if strings.EqualFold(u.Name, defaultUnitName) {
			id := u.ID
			return &id
		}
	}
	return nil
}

// normalizeName is the canonical uppercase form used for name-identity
// lookups.
func normalizeName(name string) string {
	return strings.ToUpper(name)
}
