// Command seed inserts a sale listing and its stock counter. Listings are
// administrative data; the engine only ever reads them.
//
//	seed -id 1000 -name "1000 off iphone" -stock 100 \
//	     -start 2026-09-01T10:00:00Z -end 2026-09-01T11:00:00Z
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"seckill/internal/catalog"
	"seckill/internal/config"
	"seckill/internal/models"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	var (
		id    = flag.Int64("id", 0, "sale id")
		name  = flag.String("name", "", "sale name")
		stock = flag.Int("stock", 0, "initial stock")
		start = flag.String("start", "", "start time (RFC3339)")
		end   = flag.String("end", "", "end time (RFC3339)")
	)
	flag.Parse()

	startTime, err := time.Parse(time.RFC3339, *start)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -start")
	}
	endTime, err := time.Parse(time.RFC3339, *end)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -end")
	}
	if *id <= 0 || *name == "" || *stock < 0 || !startTime.Before(endTime) {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.NewConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	cat := catalog.NewPostgresCatalog(pool)
	if err := cat.InitSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to initialize schema")
	}

	listing := models.SaleListing{
		ID:           *id,
		Name:         *name,
		InitialStock: *stock,
		StartTime:    startTime.UTC(),
		EndTime:      endTime.UTC(),
	}

	if err := cat.CreateListing(ctx, listing); err != nil {
		log.Fatal().Err(err).Int64("sale_id", *id).Msg("failed to create listing")
	}

	log.Info().Int64("sale_id", *id).Int("stock", *stock).Msg("listing seeded")
}
