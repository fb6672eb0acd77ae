// Package main seeds the database with demo products and purchase batches.
// Receipts go through the consumption engine, so the seeded state satisfies
// the same invariants as production data.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"stocklot/internal/core/id"
	"stocklot/internal/core/types"
	"stocklot/internal/domain/inventory"
	"stocklot/internal/domain/product"
	"stocklot/internal/infrastructure/storage/postgres"
	"stocklot/pkg/logger"
)

type seedProduct struct {
	code         string
	name         string
	minimumStock string
	batches      []seedBatch
}

type seedBatch struct {
	quantity    string
	unitCost    string
	purchaseAge time.Duration // how long before now the purchase happened
}

var demoProducts = []seedProduct{
	{
		code: "FLT-OIL-5W30", name: "Engine oil 5W-30, 1L", minimumStock: "20",
		batches: []seedBatch{
			{quantity: "120", unitCost: "7.40", purchaseAge: 45 * 24 * time.Hour},
			{quantity: "80", unitCost: "7.95", purchaseAge: 12 * 24 * time.Hour},
		},
	},
	{
		code: "FLT-PAD-FR", name: "Front brake pads", minimumStock: "10",
		batches: []seedBatch{
			{quantity: "40", unitCost: "23.50", purchaseAge: 30 * 24 * time.Hour},
		},
	},
	{
		code: "FLT-COOL-G12", name: "Coolant G12, 5L", minimumStock: "15",
		batches: []seedBatch{
			{quantity: "60", unitCost: "11.00", purchaseAge: 60 * 24 * time.Hour},
			{quantity: "25.5", unitCost: "11.80", purchaseAge: 7 * 24 * time.Hour},
		},
	},
}

func main() {
	log, err := logger.New(logger.Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("APP_ENV", "development") == "development",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	dsn := mustEnv("DATABASE_URL")

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dsn))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)
	products := postgres.NewProductRepo(txm)
	batches := postgres.NewBatchRepo(txm)
	movements := postgres.NewMovementRepo(txm)
	engine := inventory.NewEngine(batches, products, movements, txm)

	for _, sp := range demoProducts {
		productID, created, err := ensureProduct(ctx, txm, products, sp)
		if err != nil {
			log.Fatalw("failed to seed product", "code", sp.code, "error", err)
		}
		if !created {
			log.Infow("product already seeded, skipping", "code", sp.code)
			continue
		}

		for _, sb := range sp.batches {
			_, err := engine.RecordInbound(ctx, inventory.InboundRequest{
				ProductID:    productID,
				Quantity:     types.MustQuantity(sb.quantity),
				UnitCost:     types.MustMoney(sb.unitCost),
				PurchaseDate: time.Now().UTC().Add(-sb.purchaseAge),
			})
			if err != nil {
				log.Fatalw("failed to seed batch", "code", sp.code, "error", err)
			}
		}

		log.Infow("product seeded", "code", sp.code, "batches", len(sp.batches))
	}

	log.Info("seeding complete")
}

// ensureProduct creates the product unless one with the same code exists.
func ensureProduct(ctx context.Context, txm *postgres.TxManager, repo *postgres.ProductRepo, sp seedProduct) (id.ID, bool, error) {
	var productID id.ID
	var created bool

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		existing, err := repo.List(ctx, product.ListFilter{Search: sp.code})
		if err != nil {
			return err
		}
		for i := range existing {
			if existing[i].Code == sp.code {
				productID = existing[i].ID
				return nil
			}
		}

		p := product.New(sp.code, sp.name, types.MustQuantity(sp.minimumStock))
		if err := p.Validate(ctx); err != nil {
			return err
		}
		if err := repo.Create(ctx, p); err != nil {
			return err
		}
		productID = p.ID
		created = true
		return nil
	})
	return productID, created, err
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		fmt.Printf("required environment variable %s is not set\n", key)
		os.Exit(1)
	}
	return val
}
