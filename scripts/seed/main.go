package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fleetbook/fleetbook/internal/app"
	"github.com/fleetbook/fleetbook/internal/auth"
	"github.com/fleetbook/fleetbook/internal/billing/invoices"
	"github.com/fleetbook/fleetbook/internal/billing/payments"
	"github.com/fleetbook/fleetbook/internal/ledger"
	"github.com/fleetbook/fleetbook/internal/masterdata/cars"
	"github.com/fleetbook/fleetbook/internal/masterdata/customers"
	"github.com/fleetbook/fleetbook/internal/masterdata/employees"
	"github.com/fleetbook/fleetbook/internal/masterdata/items"
	"github.com/fleetbook/fleetbook/internal/platform/db"
	"github.com/fleetbook/fleetbook/internal/shared"
	"github.com/fleetbook/fleetbook/migrations"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Applying migrations...")
	applied, err := migrations.Up(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	for _, v := range applied {
		fmt.Println("  applied", v)
	}

	fmt.Println("→ Seeding admin...")
	admin, err := seedAdmin(ctx, pool, cfg)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	ctx = shared.ContextWithActor(ctx, shared.Actor{ID: admin.ID, Role: admin.Role})
	fmt.Println("→ Seeding demo fleet...")
	if err := seedDemo(ctx, pool); err != nil {
		log.Fatalf("seed demo: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedAdmin(ctx context.Context, pool *pgxpool.Pool, cfg *app.Config) (auth.User, error) {
	email := getenv("SEED_ADMIN_EMAIL", "admin@fleetbook.local")
	repo := auth.NewRepository(pool)
	if existing, err := repo.FindByEmail(ctx, email); err == nil {
		fmt.Println("  admin exists:", existing.Email)
		return *existing, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return auth.User{}, err
	}
	svc := auth.NewService(repo, auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL), nil, nil)
	return svc.CreateUser(ctx, auth.UserInput{
		Email:    email,
		Name:     getenv("SEED_ADMIN_NAME", "Administrator"),
		Password: getenv("SEED_ADMIN_PASSWORD", "fleetbook-admin"),
		Role:     auth.RoleAdmin,
	})
}

func seedDemo(ctx context.Context, pool *pgxpool.Pool) error {
	carSvc := cars.NewService(cars.NewRepository(pool), nil)
	_, total, err := carSvc.List(ctx, cars.ListFilter{Page: shared.Page{Limit: 1}})
	if err != nil {
		return err
	}
	if total > 0 {
		fmt.Println("  cars present, skipping demo data")
		return nil
	}

	employeeSvc := employees.NewService(employees.NewRepository(pool), nil)
	itemSvc := items.NewService(items.NewRepository(pool), nil)
	customerSvc := customers.NewService(customers.NewRepository(pool), ledger.NewRepository(pool), nil)
	invoiceSvc := invoices.NewService(invoices.NewRepository(pool), nil, nil, nil)
	paymentSvc := payments.NewService(payments.NewRepository(pool), nil, nil, nil)

	driver, err := employeeSvc.Create(ctx, employees.EmployeeInput{
		Name: "Rustam Karimov", Phone: "+998901112233", Category: employees.CategoryDriver,
	})
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	helper, err := employeeSvc.Create(ctx, employees.EmployeeInput{
		Name: "Jasur Aliev", Phone: "+998907778899", Category: employees.CategoryKirishboy,
	})
	if err != nil {
		return fmt.Errorf("kirishboy: %w", err)
	}

	truck, err := carSvc.Create(ctx, cars.CarInput{
		Name: "Isuzu NPR", NumberPlate: "01 A 123 BC", DriverID: &driver.ID, KirishboyID: &helper.ID,
		Status: cars.StatusActive,
	})
	if err != nil {
		return fmt.Errorf("car: %w", err)
	}
	if _, err := carSvc.Create(ctx, cars.CarInput{Name: "Gazel Next", NumberPlate: "01 B 456 DE", Status: cars.StatusRepair}); err != nil {
		return fmt.Errorf("car: %w", err)
	}

	cement, err := itemSvc.Create(ctx, items.ItemInput{Name: "Cement M400 (bag)", Price: decimal.NewFromInt(65000)})
	if err != nil {
		return fmt.Errorf("item: %w", err)
	}
	sand, err := itemSvc.Create(ctx, items.ItemInput{Name: "Sand (ton)", Price: decimal.NewFromInt(120000)})
	if err != nil {
		return fmt.Errorf("item: %w", err)
	}

	builder, err := customerSvc.Create(ctx, customers.CustomerInput{Name: "Chilonzor Qurilish", Phone: "+998711234567"})
	if err != nil {
		return fmt.Errorf("customer: %w", err)
	}

	today := shared.NewDate(time.Now())
	inv, err := invoiceSvc.Create(ctx, invoices.InvoiceInput{
		CarID: truck.ID,
		Date:  today,
		Items: []invoices.LineInput{
			{
				ItemID: &cement.ID, CustomerID: &builder.ID, Description: cement.Name,
				Quantity: decimal.NewFromInt(40), Price: cement.Price,
				LeftAmount: decimal.NewFromInt(300000), PaymentMethod: ledger.MethodCredit,
			},
			{
				ItemID: &sand.ID, Description: sand.Name,
				Quantity: decimal.NewFromInt(5), Price: sand.Price, PaymentMethod: ledger.MethodCash,
			},
		},
		Notes: "demo delivery",
	}, "")
	if err != nil {
		return fmt.Errorf("invoice: %w", err)
	}
	fmt.Println("  invoice", inv.InvoiceNo)

	month := today.Month()
	received, err := paymentSvc.Receive(ctx, payments.PaymentInput{
		CustomerID: &builder.ID, Amount: decimal.NewFromInt(1000000), PaymentDate: today,
		Description: "partial settlement", AccountMonth: month,
	}, "")
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	fuel, err := paymentSvc.PayOut(ctx, payments.PaymentInput{
		CarID: &truck.ID, Amount: decimal.NewFromInt(250000), PaymentDate: today,
		Description: "diesel", Category: "fuel", AccountMonth: month,
	}, "")
	if err != nil {
		return fmt.Errorf("payment out: %w", err)
	}
	fmt.Println("  payments", received.PaymentNo, fuel.PaymentNo)
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
