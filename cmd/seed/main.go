package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"sproutcv/internal/config"
	"sproutcv/internal/domain/model"
	pg "sproutcv/internal/infra/db/postgres"
	"sproutcv/internal/domain/ports/repository"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	pkgRepo := pg.NewCreditPackageRepo(pool)

	// If packages already exist, do nothing
	existing, err := pkgRepo.ListActive(ctx, repository.NoTX)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (credits=%d, price=%d %s)\n", p.Name, p.Credits, p.Price, p.Currency)
		}
		return
	}

	// Seed a few sample packages for testing the payment flow
	seed := []struct {
		ID      string
		Name    string
		Credits int64
		Price   int64 // minor units
	}{
		{"starter", "Starter", 10, 500},
		{"pro", "Pro", 50, 1_900},
		{"ultra", "Ultra", 200, 5_900},
	}

	for _, s := range seed {
		p, err := model.NewCreditPackage(s.ID, s.Name, s.Credits, s.Price, "USD")
		if err != nil {
			log.Fatalf("build package %q: %v", s.Name, err)
		}
		if err := pkgRepo.Save(ctx, repository.NoTX, p); err != nil {
			log.Fatalf("save package %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, credits=%d, price=%d USD minor units)\n", p.Name, p.ID, p.Credits, p.Price)
	}

	fmt.Println("✅ Seeding complete.")
}
