// Package main provides a CLI tool for seeding the database with initial data.
package main

import (
	"context"
	"fmt"
	"os"

	"printq/internal/core/apperror"
	"printq/internal/core/security"
	"printq/internal/core/types"
	"printq/internal/domain/auth"
	"printq/internal/domain/catalogs/product"
	"printq/internal/domain/catalogs/supply"
	"printq/internal/infrastructure/storage/postgres"
	"printq/internal/infrastructure/storage/postgres/auth_repo"
	"printq/internal/infrastructure/storage/postgres/catalog_repo"
	"printq/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	txManager := postgres.NewTxManager(pool)

	jwtConfig := auth.DefaultJWTConfig()
	jwtConfig.Secret = "seed-only"
	jwtService, err := auth.NewJWTService(jwtConfig)
	if err != nil {
		log.Fatalw("failed to initialize jwt service", "error", err)
	}
	authService := auth.NewService(auth_repo.NewUserRepo(txManager), jwtService, auth.DefaultConfig())

	if err := seedUsers(ctx, authService, log); err != nil {
		log.Fatalw("failed to seed users", "error", err)
	}

	if os.Getenv("SEED_DEMO_DATA") == "true" {
		if err := seedDemoCatalog(ctx, txManager, log); err != nil {
			log.Fatalw("failed to seed demo catalog", "error", err)
		}
	}

	log.Info("seeding complete")
}

func seedUsers(ctx context.Context, authService *auth.Service, log *logger.Logger) error {
	users := []auth.CreateUserRequest{
		{
			Email:    envOr("SEED_ADMIN_EMAIL", "admin@printq.local"),
			Password: envOr("SEED_ADMIN_PASSWORD", "admin-change-me"),
			FullName: "Administrator",
			Role:     security.RoleAdmin,
		},
		{
			Email:    "supervisor@printq.local",
			Password: "supervisor-change-me",
			FullName: "Shop Supervisor",
			Role:     security.RoleSupervisor,
		},
		{
			Email:    "sales@printq.local",
			Password: "sales-change-me",
			FullName: "Sales Desk",
			Role:     security.RoleSales,
		},
	}

	for _, req := range users {
		user, err := authService.CreateUser(ctx, req)
		if err != nil {
			if apperror.IsCode(err, apperror.CodeConflict) {
				log.Infow("user already exists, skipping", "email", req.Email)
				continue
			}
			return err
		}
		log.Infow("user created", "email", user.Email, "role", user.Role)
	}
	return nil
}

func seedDemoCatalog(ctx context.Context, txManager *postgres.TxManager, log *logger.Logger) error {
	supplyRepo := catalog_repo.NewSupplyRepo(txManager)
	productRepo := catalog_repo.NewProductRepo(txManager)

	supplyService := supply.NewService(supplyRepo, txManager)
	productService := product.NewService(productRepo, txManager)

	vinyl := supply.NewSupply("Vinyl banner roll", supply.UnitSquareMeter, types.NewMoney(85), types.NewQuantityFromFloat64(200))
	ink := supply.NewSupply("Eco-solvent ink", supply.UnitMilliliter, types.NewMoney(1.2), types.NewQuantityFromFloat64(5000))
	grommets := supply.NewSupply("Grommets", supply.UnitPiece, types.NewMoney(0.5), types.NewQuantityFromFloat64(1000))

	for _, s := range []*supply.Supply{vinyl, ink, grommets} {
		if err := supplyService.Create(ctx, s); err != nil {
			return err
		}
	}

	banner := product.NewProduct("Banner 13oz")
	tpl := product.TemplateInput{
		WastePct:       0.1,
		MarginPct:      0.35,
		OperationalPct: 0.15,
		Items: []product.TemplateItem{
			{SupplyID: vinyl.ID, QtyFormula: "quantity * 2"},
			{SupplyID: ink.ID, QtyFormula: "quantity * 24"},
			{SupplyID: grommets.ID, QtyFormula: "ceil(quantity * 8)"},
		},
	}
	if _, err := productService.Create(ctx, banner, tpl); err != nil {
		return err
	}

	log.Infow("demo catalog seeded", "product", banner.Name)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
