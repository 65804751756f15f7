package statement

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
)

// dateLayouts covers the date forms banks are known to emit. Dates carry no
// zone; the mapper's location decides which instant they mean.
var dateLayouts = []string{"2006-01-02", "2006-01-02T15:04:05"}

// Mapper flattens a decoded Fidavista document into import candidates.
type Mapper struct {
	location *time.Location
	logger   *slog.Logger
}

// NewMapper creates a mapper that interprets statement dates in the given
// location. A nil location means UTC.
func NewMapper(location *time.Location, logger *slog.Logger) *Mapper {
	if location == nil {
		location = time.UTC
	}
	return &Mapper{location: location, logger: logger}
}

// Map walks every statement, account and currency sub-statement and returns
// the flattened candidates. Entries sharing a bank reference fold into one
// transaction candidate with multiple transfers; entries without one each
// become their own transaction.
func (m *Mapper) Map(doc *Document) (importing.StatementCandidates, error) {
	var out importing.StatementCandidates
	accountKeys := make(map[string]bool)

	for _, stmt := range doc.Statements {
		for _, accountSet := range stmt.Accounts {
			for _, ccyStmt := range accountSet.CurrencyStatements {
				if err := m.mapCurrencyStatement(doc, accountSet, ccyStmt, accountKeys, &out); err != nil {
					return importing.StatementCandidates{}, err
				}
			}
		}
	}

	m.logger.Debug("mapped statement document",
		"accounts", len(out.Accounts), "transactions", len(out.Transactions))
	return out, nil
}

func (m *Mapper) mapCurrencyStatement(
	doc *Document,
	accountSet AccountSet,
	ccyStmt CurrencyStmt,
	accountKeys map[string]bool,
	out *importing.StatementCandidates,
) error {
	accNo := accountSet.AccountNumber
	userKey := fmt.Sprintf("own/%s/%s", accNo, ccyStmt.Currency)
	addAccount(out, accountKeys, importing.AccountCandidate{
		Key:              userKey,
		Name:             accountSet.AccountHolder.Name,
		Iban:             &accNo,
		AccountNumber:    &accNo,
		SubAccountNumber: accountSet.SubAccountNumber,
		LegalID:          accountSet.AccountHolder.LegalID,
		CurrencyCode:     ccyStmt.Currency,
	})

	// One transaction per bank reference, in first-seen entry order.
	transactionIdx := make(map[string]int)

	for i, entry := range ccyStmt.Entries {
		transfer, counterparty, err := m.mapEntry(doc, ccyStmt, userKey, i, entry)
		if err != nil {
			return err
		}
		addAccount(out, accountKeys, counterparty)

		if entry.BankReference != nil {
			if idx, ok := transactionIdx[*entry.BankReference]; ok {
				out.Transactions[idx].Transfers = append(out.Transactions[idx].Transfers, transfer)
				continue
			}
		}

		transaction, err := m.mapTransaction(i, entry)
		if err != nil {
			return err
		}
		transaction.Transfers = []importing.TransferCandidate{transfer}
		out.Transactions = append(out.Transactions, transaction)
		if entry.BankReference != nil {
			transactionIdx[*entry.BankReference] = len(out.Transactions) - 1
		}
	}
	return nil
}

func (m *Mapper) mapTransaction(idx int, entry Entry) (importing.TransactionCandidate, error) {
	bookedAt, err := m.parseDate(entry.BookDate)
	if err != nil {
		return importing.TransactionCandidate{},
			importing.NewParseError("map", "invalid book date", entryFragment(idx, entry.BookDate))
	}

	var valuedAt *time.Time
	if entry.ValueDate != nil {
		v, err := m.parseDate(*entry.ValueDate)
		if err != nil {
			return importing.TransactionCandidate{},
				importing.NewParseError("map", "invalid value date", entryFragment(idx, *entry.ValueDate))
		}
		valuedAt = &v
	}

	return importing.TransactionCandidate{
		BookedAt:    bookedAt,
		ValuedAt:    valuedAt,
		Description: entry.PaymentInfo,
	}, nil
}

// mapEntry turns one statement row into a transfer between the user's
// account and the counterparty, plus the counterparty's account candidate.
// Rows without a counterparty settle against the statement's origin bank.
func (m *Mapper) mapEntry(
	doc *Document,
	ccyStmt CurrencyStmt,
	userKey string,
	idx int,
	entry Entry,
) (importing.TransferCandidate, importing.AccountCandidate, error) {
	userAmount, err := decimal.NewFromString(entry.AccountAmount)
	if err != nil {
		return importing.TransferCandidate{}, importing.AccountCandidate{},
			importing.NewParseError("map", "invalid account amount", entryFragment(idx, entry.AccountAmount))
	}

	counterparty := counterpartyCandidate(doc, ccyStmt, entry)

	counterAmount := userAmount
	if counterparty.CurrencyCode != ccyStmt.Currency {
		if entry.Counterparty == nil || entry.Counterparty.Amount == nil {
			return importing.TransferCandidate{}, importing.AccountCandidate{},
				importing.NewParseError("map", "cross-currency entry without counterparty amount",
					entryFragment(idx, counterparty.CurrencyCode))
		}
		counterAmount, err = decimal.NewFromString(*entry.Counterparty.Amount)
		if err != nil {
			return importing.TransferCandidate{}, importing.AccountCandidate{},
				importing.NewParseError("map", "invalid counterparty amount",
					entryFragment(idx, *entry.Counterparty.Amount))
		}
	}

	transfer := importing.TransferCandidate{
		BankReference:     entry.BankReference,
		ExternalReference: entry.DocumentNo,
	}

	if entry.CreditOrDebit == "C" {
		transfer.SourceAccountKey = counterparty.Key
		transfer.SourceAmount = counterAmount
		transfer.SourceCurrency = counterparty.CurrencyCode
		transfer.TargetAccountKey = userKey
		transfer.TargetAmount = userAmount
		transfer.TargetCurrency = ccyStmt.Currency
	} else {
		transfer.SourceAccountKey = userKey
		transfer.SourceAmount = userAmount
		transfer.SourceCurrency = ccyStmt.Currency
		transfer.TargetAccountKey = counterparty.Key
		transfer.TargetAmount = counterAmount
		transfer.TargetCurrency = counterparty.CurrencyCode
	}

	return transfer, counterparty, nil
}

// counterpartyCandidate builds the account candidate for the other side of
// an entry. Bank fees and similar rows carry no counterparty at all; those
// settle against an account named after the statement's origin.
func counterpartyCandidate(doc *Document, ccyStmt CurrencyStmt, entry Entry) importing.AccountCandidate {
	cp := entry.Counterparty
	if cp == nil {
		return importing.AccountCandidate{
			Key:          "origin/" + doc.Header.From,
			Name:         doc.Header.From,
			CurrencyCode: ccyStmt.Currency,
		}
	}

	currency := ccyStmt.Currency
	if cp.Currency != nil {
		currency = *cp.Currency
	}

	key := "cp/name/" + cp.AccountHolder.Name
	if cp.AccountNumber != nil {
		key = fmt.Sprintf("cp/%s/%s", *cp.AccountNumber, currency)
	}

	return importing.AccountCandidate{
		Key:           key,
		Name:          cp.AccountHolder.Name,
		Iban:          cp.AccountNumber,
		AccountNumber: cp.AccountNumber,
		Bic:           cp.BankCode,
		LegalID:       cp.AccountHolder.LegalID,
		CurrencyCode:  currency,
	}
}

func addAccount(out *importing.StatementCandidates, seen map[string]bool, candidate importing.AccountCandidate) {
	if seen[candidate.Key] {
		return
	}
	seen[candidate.Key] = true
	out.Accounts = append(out.Accounts, candidate)
}

func (m *Mapper) parseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, m.location); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

func entryFragment(idx int, value string) string {
	return fmt.Sprintf("entry %d: %s", idx, value)
}
