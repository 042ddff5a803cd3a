// Command seed fills an empty catalog with the default fleet and, when
// SEED_ADMIN_EMAIL is set, creates the first administrator.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/config"
	"github.com/alanwtom/carmodel/internal/database"
	"github.com/alanwtom/carmodel/internal/model"
	"github.com/alanwtom/carmodel/internal/repository"
)

type vehicleSeeder interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, v *model.Vehicle) error
}

type adminSeeder interface {
	Create(ctx context.Context, in repository.NewUser, cost int) (uint64, error)
}

func defaultFleet() []model.Vehicle {
	car := func(mk, mdl string, year int, category string, rate int64, desc string) model.Vehicle {
		return model.Vehicle{
			Make: mk, Model: mdl, Year: year, Category: category,
			DailyRate: decimal.NewFromInt(rate), Description: desc, IsAvailable: true,
		}
	}
	return []model.Vehicle{
		car("Toyota", "Corolla", 2020, model.CategoryEconomy, 45, "Reliable compact with great fuel economy."),
		car("Honda", "Civic", 2021, model.CategorySedan, 55, "Comfortable sedan for city and highway."),
		car("Ford", "Escape", 2019, model.CategorySUV, 65, "Compact SUV with room for the family."),
		car("BMW", "3 Series", 2022, model.CategorySedan, 120, "Premium sport sedan."),
		car("Jeep", "Wrangler", 2018, model.CategorySUV, 95, "Off-road ready with a removable top."),
		car("Kia", "Rio", 2020, model.CategoryEconomy, 40, "Budget friendly and easy to park."),
	}
}

// seedVehicles inserts the default fleet when the catalog is empty and
// returns how many vehicles it created.
func seedVehicles(ctx context.Context, repo vehicleSeeder) (int, error) {
	n, err := repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	created := 0
	for _, v := range defaultFleet() {
		v := v
		if err := repo.Create(ctx, &v); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// seedAdmin creates an administrator account; an existing email is not an error.
func seedAdmin(ctx context.Context, repo adminSeeder, in repository.NewUser, cost int) (bool, error) {
	in.Role = model.RoleAdmin
	if _, err := repo.Create(ctx, in, cost); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := seedVehicles(ctx, repository.NewVehicleRepo(db))
	if err != nil {
		log.Fatalf("seed vehicles: %v", err)
	}
	log.Printf("seed: %d vehicles created", n)

	if email := os.Getenv("SEED_ADMIN_EMAIL"); email != "" {
		created, err := seedAdmin(ctx, repository.NewUserRepo(db), repository.NewUser{
			Name:     "Administrator",
			Email:    email,
			Phone:    os.Getenv("SEED_ADMIN_PHONE"),
			Password: os.Getenv("SEED_ADMIN_PASSWORD"),
		}, cfg.BcryptCost)
		if err != nil {
			log.Fatalf("seed admin: %v", err)
		}
		log.Printf("seed: admin %s created=%t", email, created)
	}
}
