// Package statement decodes Fidavista bank-statement XML and flattens it
// into import candidates.
package statement

import (
	"encoding/xml"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
)

// Document is the root of a Fidavista statement file. Amounts and dates stay
// strings at this layer; the mapper parses them so that a malformed value
// reports the offending entry instead of failing the whole decode.
type Document struct {
	XMLName    xml.Name    `xml:"FIDAVISTA"`
	Header     Header      `xml:"Header"`
	Statements []Statement `xml:"Statement"`
}

// Header identifies when and by whom the statement was prepared.
type Header struct {
	Timestamp string `xml:"Timestamp"`
	From      string `xml:"From"`
}

// Statement is one reporting period with the accounts it covers.
type Statement struct {
	Period   Period       `xml:"Period"`
	Accounts []AccountSet `xml:"AccountSet"`
}

// Period bounds the statement's reporting window.
type Period struct {
	StartDate string `xml:"StartDate"`
	EndDate   string `xml:"EndDate"`
	PrepDate  string `xml:"PrepDate"`
}

// AccountSet is one of the statement owner's accounts, with zero or more
// currency-scoped sub-statements.
type AccountSet struct {
	AccountNumber      string         `xml:"AccNo"`
	SubAccountNumber   *string        `xml:"SubAccNo"`
	AccountHolder      AccountHolder  `xml:"AccHolder"`
	CurrencyStatements []CurrencyStmt `xml:"CcyStmt"`
}

// AccountHolder names the owner of an account. LegalID is absent for
// private persons.
type AccountHolder struct {
	Name    string  `xml:"Name"`
	LegalID *string `xml:"LegalId"`
}

// CurrencyStmt holds the entries of one account in one currency.
type CurrencyStmt struct {
	Currency       string  `xml:"Ccy"`
	OpeningBalance *string `xml:"OpenBal"`
	ClosingBalance *string `xml:"CloseBal"`
	Entries        []Entry `xml:"TrxSet"`
}

// Entry is a single booked statement row.
type Entry struct {
	TypeCode      string        `xml:"TypeCode"`
	TypeName      string        `xml:"TypeName"`
	BookDate      string        `xml:"BookDate"`
	ValueDate     *string       `xml:"ValueDate"`
	BankReference *string       `xml:"BankRef"`
	DocumentNo    *string       `xml:"DocNo"`
	CreditOrDebit string        `xml:"CorD"`
	AccountAmount string        `xml:"AccAmt"`
	PaymentInfo   *string       `xml:"PmtInfo"`
	Counterparty  *Counterparty `xml:"CPartySet"`
}

// Counterparty is the other side of an entry. Currency and Amount are only
// present when the counterparty side settled in a different currency.
type Counterparty struct {
	AccountNumber *string       `xml:"AccNo"`
	AccountHolder AccountHolder `xml:"AccHolder"`
	BankCode      *string       `xml:"BankCode"`
	Currency      *string       `xml:"Ccy"`
	Amount        *string       `xml:"Amt"`
}

// Parse decodes a Fidavista document. It fails with a ParseError when the
// payload is not valid XML or carries no statement.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, importing.NewParseError("map", "not a valid Fidavista document: "+err.Error(), "")
	}
	if len(doc.Statements) == 0 {
		return nil, importing.NewParseError("map", "document has no statements", "")
	}
	return &doc, nil
}
