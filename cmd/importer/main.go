package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/ledger-import/internal/domain/importing"
	"github.com/FACorreiaa/ledger-import/pkg/config"
	"github.com/FACorreiaa/ledger-import/pkg/money"
)

func main() {
	var (
		filePath      = flag.String("file", "", "path to the source document")
		kind          = flag.String("kind", "", "source kind: receipt or statement")
		owner         = flag.String("owner", "", "owner user id (uuid)")
		transactionID = flag.String("transaction", "", "target transaction id for receipt imports (uuid)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger, *filePath, *kind, *owner, *transactionID); err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, filePath, kind, owner, transactionID string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sourceKind := importing.SourceKind(kind)
	if sourceKind != importing.SourceReceipt && sourceKind != importing.SourceStatement {
		return fmt.Errorf("unknown source kind %q, want receipt or statement", kind)
	}

	if filePath == "" {
		return fmt.Errorf("missing -file")
	}
	payload, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read source document: %w", err)
	}

	ownerID, err := uuid.Parse(owner)
	if err != nil {
		return fmt.Errorf("invalid -owner: %w", err)
	}

	targetID := uuid.Nil
	if sourceKind == importing.SourceReceipt {
		targetID, err = uuid.Parse(transactionID)
		if err != nil {
			return fmt.Errorf("invalid -transaction: %w", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	deps, err := InitDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	if cfg.Observability.MetricsEnabled {
		startMetricsServer(logger, cfg.Observability.MetricsPort)
	}

	start := time.Now()
	result, err := deps.ImportService.Import(ctx, ownerID, sourceKind, payload, targetID)
	if err != nil {
		return err
	}

	logger.Info("import finished", "source", kind, "duration", time.Since(start))
	printSummary(result)
	return nil
}

func startMetricsServer(logger *slog.Logger, port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		addr := fmt.Sprintf(":%d", port)
		logger.Info("metrics listening", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func printSummary(result *importing.Result) {
	fmt.Printf("accounts:     %d (%d created)\n", len(result.Accounts), createdAccounts(result))
	fmt.Printf("transactions: %d (%d created)\n", len(result.Transactions), createdTransactions(result))
	fmt.Printf("transfers:    %d (%d created)\n", len(result.Transfers), createdTransfers(result))
	fmt.Printf("products:     %d (%d created)\n", len(result.Products), createdProducts(result))
	fmt.Printf("purchases:    %d (%d created)\n", len(result.Purchases), createdPurchases(result))

	for _, ref := range result.Transfers {
		fmt.Printf("  transfer %s: %s\n", ref.Transfer.ID, formatAmount(ref.Transfer.SourceAmount, ref.Transfer.SourceCurrency))
	}
	for _, ref := range result.Purchases {
		fmt.Printf("  purchase %s: %s\n", ref.Purchase.ID, formatAmount(ref.Purchase.Price, ref.Purchase.CurrencyCode))
	}
}

func formatAmount(amount decimal.Decimal, code string) string {
	formatted, err := money.Format(amount, code)
	if err != nil {
		return fmt.Sprintf("%s %s", amount, code)
	}
	return formatted
}

func createdAccounts(result *importing.Result) (n int) {
	for _, ref := range result.Accounts {
		if ref.Created {
			n++
		}
	}
	return n
}

func createdTransactions(result *importing.Result) (n int) {
	for _, ref := range result.Transactions {
		if ref.Created {
			n++
		}
	}
	return n
}

func createdTransfers(result *importing.Result) (n int) {
	for _, ref := range result.Transfers {
		if ref.Created {
			n++
		}
	}
	return n
}

func createdProducts(result *importing.Result) (n int) {
	for _, ref := range result.Products {
		if ref.Created {
			n++
		}
	}
	return n
}

func createdPurchases(result *importing.Result) (n int) {
	for _, ref := range result.Purchases {
		if ref.Created {
			n++
		}
	}
	return n
}
