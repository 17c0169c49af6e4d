package main

import (
	"context"
	"database/sql"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/itamhq/inventory/internal/adapter/storage"
	"github.com/itamhq/inventory/internal/config"
	"github.com/itamhq/inventory/internal/core/domain"
)

func strptr(s string) *string { return &s }

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	ctx := context.Background()

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open mysql")
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping mysql")
	}

	store := storage.NewMySQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	batches := []domain.ReceiveInput{
		{Barcode: strptr("CAB-HDMI-2M"), Name: "HDMI Cable 2m", Quantity: 40, Category: strptr("Cables"), Location: strptr("Shelf A1"), MinStockLevel: 10, PricePerUnit: decimal.NewFromFloat(4.50)},
		{Barcode: strptr("CAB-CAT6-3M"), Name: "Cat6 Patch Cable 3m", Quantity: 120, Category: strptr("Cables"), Location: strptr("Shelf A2"), MinStockLevel: 25, PricePerUnit: decimal.NewFromFloat(2.20)},
		{Barcode: strptr("PER-KB-USB"), Name: "USB Keyboard", Quantity: 25, Category: strptr("Peripherals"), Location: strptr("Shelf B1"), MinStockLevel: 5, PricePerUnit: decimal.NewFromFloat(12.90)},
		{Barcode: strptr("PER-MS-USB"), Name: "USB Mouse", Quantity: 30, Category: strptr("Peripherals"), Location: strptr("Shelf B1"), MinStockLevel: 5, PricePerUnit: decimal.NewFromFloat(8.40)},
		{Barcode: strptr("TON-HP-26A"), Name: "HP 26A Toner Cartridge", Quantity: 8, Category: strptr("Printer Supplies"), Location: strptr("Cabinet C"), MinStockLevel: 3, PricePerUnit: decimal.NewFromFloat(89.00)},
		{Barcode: strptr("BAT-AA-PK"), Name: "AA Battery Pack", Quantity: 60, Category: strptr("Consumables"), Location: strptr("Drawer D2"), MinStockLevel: 20, PricePerUnit: decimal.NewFromFloat(3.10)},
	}

	for _, in := range batches {
		item, _, err := store.ReceiveStock(ctx, in)
		if err != nil {
			log.Fatal().Err(err).Str("name", in.Name).Msg("seed failed")
		}
		log.Info().Int64("id", item.ID).Str("name", item.Name).Int("quantity", item.Quantity).Msg("seeded")
	}

	log.Info().Int("items", len(batches)).Msg("seeding complete")
}
