// Package e2etest exercises the full import pipeline end to end: raw source
// documents in, reconciled ledger rows out.
package e2etest

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	importservice "github.com/FACorreiaa/ledger-import/internal/domain/importing/service"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger"
	"github.com/FACorreiaa/ledger-import/internal/domain/ledger/ledgertest"
)

// scannedReceipt is a full scanned supermarket receipt, OCR artifacts
// included: a noisy header, four purchase groups and a discounts footer.
const scannedReceipt = `RimilY

Katra diena arvien labaka

SIA RIME LATVIA
Jur adrese Riga, A Deglava iela 161
Rimi Super Agenskalns (Riga)

Kase Nr 33,

Elektroniska izdruka




Tualetes papire Zewa Delicate
Care, gab

1 gab X 4,99 EUR 4,99 8
Atl -2,00 Gala cena 2,99
Tostermaize franéu

Brioche 450g

1 gab x 2,55 EUR 2,55 8

Sviests Exporta 82,5% 200g

1 gab X 3,09 EUR 3,09 A
Atl -0,50 Gala cena 2,59

Sviests Smltene 82% 200g

1 gab X 2,99 EUR 2,99 8

ATLAIDES
Mana Rimi atlaide -2,50`

const bankStatement = `<FIDAVISTA>
  <Header>
    <Timestamp>20210104120000</Timestamp>
    <From>CITADELE</From>
  </Header>
  <Statement>
    <Period>
      <StartDate>2021-01-01</StartDate>
      <EndDate>2021-01-31</EndDate>
      <PrepDate>2021-02-01</PrepDate>
    </Period>
    <AccountSet>
      <AccNo>LV97HABA0012345678910</AccNo>
      <AccHolder>
        <Name>JANIS BERZINS</Name>
      </AccHolder>
      <CcyStmt>
        <Ccy>EUR</Ccy>
        <TrxSet>
          <TypeCode>OUTP</TypeCode>
          <TypeName>Payment</TypeName>
          <BookDate>2021-01-04</BookDate>
          <ValueDate>2021-01-04</ValueDate>
          <BankRef>REF100</BankRef>
          <DocNo>1</DocNo>
          <CorD>D</CorD>
          <AccAmt>350.00</AccAmt>
          <PmtInfo>Rent January</PmtInfo>
          <CPartySet>
            <AccNo>LV12PARX0000000000001</AccNo>
            <AccHolder>
              <Name>SIA NAMSAIMNIEKS</Name>
            </AccHolder>
            <Ccy>EUR</Ccy>
          </CPartySet>
        </TrxSet>
        <TrxSet>
          <TypeCode>CMSN</TypeCode>
          <TypeName>Commission</TypeName>
          <BookDate>2021-01-05</BookDate>
          <BankRef>REF101</BankRef>
          <CorD>D</CorD>
          <AccAmt>0.35</AccAmt>
          <PmtInfo>Monthly fee</PmtInfo>
        </TrxSet>
      </CcyStmt>
    </AccountSet>
  </Statement>
</FIDAVISTA>`

func newService(store *ledgertest.MemoryStore) *importservice.ImportService {
	location, _ := time.LoadLocation("Europe/Riga")
	return importservice.NewImportService(store, store, importservice.Options{
		Logger:   slog.New(slog.DiscardHandler),
		Location: location,
	})
}

func seedCatalog(store *ledgertest.MemoryStore, ownerID uuid.UUID) ledger.Transaction {
	store.SeedCurrency("EUR", "Euro")
	store.SeedUnit(ownerID, "Gabals", "gab")
	store.SeedUnit(ownerID, "Gram", "g")
	store.SeedUnit(ownerID, "Piece", "")
	return store.SeedTransaction(ownerID, time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC))
}

func TestReceiptImport(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	store := ledgertest.NewMemoryStore()
	target := seedCatalog(store, ownerID)
	svc := newService(store)

	result, err := svc.ImportReceipt(ctx, ownerID, target.ID, scannedReceipt)
	require.NoError(t, err)

	require.Len(t, result.Purchases, 4)
	require.Len(t, result.Products, 4)
	for _, ref := range result.Purchases {
		assert.True(t, ref.Created)
	}
	for _, ref := range result.Products {
		assert.True(t, ref.Created, "catalog was empty, every product is new")
	}

	t.Run("discounted line settles at the final price", func(t *testing.T) {
		first := result.Purchases[0].Purchase
		assert.Equal(t, "2.99", first.Price.String())
		assert.Equal(t, "EUR", first.CurrencyCode)
	})

	t.Run("label weight multiplies the quantity", func(t *testing.T) {
		butter := result.Purchases[2].Purchase
		assert.Equal(t, "200", butter.Amount.String())
	})

	t.Run("reimport creates nothing", func(t *testing.T) {
		accountsBefore, transactionsBefore, _, purchasesBefore, productsBefore := store.Counts()

		again, err := svc.ImportReceipt(ctx, ownerID, target.ID, scannedReceipt)
		require.NoError(t, err)
		for _, ref := range again.Purchases {
			assert.False(t, ref.Created)
		}
		for _, ref := range again.Products {
			assert.False(t, ref.Created)
		}

		accounts, transactions, _, purchases, products := store.Counts()
		assert.Equal(t, accountsBefore, accounts)
		assert.Equal(t, transactionsBefore, transactions)
		assert.Equal(t, purchasesBefore, purchases)
		assert.Equal(t, productsBefore, products)
	})

	t.Run("deleted purchase is restored with its old id", func(t *testing.T) {
		deleted := result.Purchases[1].Purchase
		store.SoftDeletePurchase(deleted.ID)
		_, _, _, purchasesBefore, _ := store.Counts()

		again, err := svc.ImportReceipt(ctx, ownerID, target.ID, scannedReceipt)
		require.NoError(t, err)

		var restored *ledger.Purchase
		for _, ref := range again.Purchases {
			if ref.Purchase.ID == deleted.ID {
				p := ref.Purchase
				restored = &p
			}
		}
		require.NotNil(t, restored, "the deleted purchase should come back under the same id")
		assert.False(t, restored.Deleted())

		_, _, _, purchases, _ := store.Counts()
		assert.Equal(t, purchasesBefore, purchases)
	})
}

func TestStatementImport(t *testing.T) {
	ctx := context.Background()
	ownerID := uuid.New()
	store := ledgertest.NewMemoryStore()
	store.SeedCurrency("EUR", "Euro")
	svc := newService(store)

	result, err := svc.ImportStatement(ctx, ownerID, []byte(bankStatement))
	require.NoError(t, err)

	// user account, landlord, and the bank itself for the commission entry
	require.Len(t, result.Accounts, 3)
	require.Len(t, result.Transactions, 2)
	require.Len(t, result.Transfers, 2)

	t.Run("commission without counterparty settles against the bank", func(t *testing.T) {
		names := make([]string, 0, len(result.Accounts))
		for _, ref := range result.Accounts {
			names = append(names, ref.Account.Name)
		}
		assert.Contains(t, names, "CITADELE")
	})

	t.Run("reimport is a no-op", func(t *testing.T) {
		accountsBefore, transactionsBefore, transfersBefore, _, _ := store.Counts()

		again, err := svc.ImportStatement(ctx, ownerID, []byte(bankStatement))
		require.NoError(t, err)
		for _, ref := range again.Accounts {
			assert.False(t, ref.Created)
		}
		for _, ref := range again.Transactions {
			assert.False(t, ref.Created)
		}
		for _, ref := range again.Transfers {
			assert.False(t, ref.Created)
		}

		accounts, transactions, transfers, _, _ := store.Counts()
		assert.Equal(t, accountsBefore, accounts)
		assert.Equal(t, transactionsBefore, transactions)
		assert.Equal(t, transfersBefore, transfers)
	})

	t.Run("deleted transaction and transfer are restored together", func(t *testing.T) {
		transaction := result.Transactions[0].Transaction
		store.SoftDeleteTransaction(transaction.ID)
		store.SoftDeleteTransfer(result.Transfers[0].Transfer.ID)

		again, err := svc.ImportStatement(ctx, ownerID, []byte(bankStatement))
		require.NoError(t, err)

		var found bool
		for _, ref := range again.Transactions {
			if ref.Transaction.ID == transaction.ID {
				found = true
				assert.False(t, ref.Transaction.Deleted())
			}
		}
		assert.True(t, found)
	})
}
