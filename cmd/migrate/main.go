package main

import (
	"context"
	"flag"
	"time"

	listingrepo "wanderlust/internal/listings/repository"
	mongoMigration "wanderlust/internal/migrations/mongo"
	"wanderlust/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	seedPath := flag.String("seed", "", "JSON file of listings to load after migrating (replaces existing listings)")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()

	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, cfg.Log); err != nil {
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	if *seedPath == "" {
		*seedPath = cfg.ListingsSeedFile
	}
	if *seedPath != "" {
		listings, err := listingrepo.LoadSeedFile(*seedPath)
		if err != nil {
			cfg.Log.Fatal("Failed to load listings seed", "error", err, "path", *seedPath)
		}
		if err := mongoMigration.SeedListings(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName, listings, cfg.Log); err != nil {
			cfg.Log.Fatal("Seeding failed", "error", err)
		}
	}

	cfg.Log.Info("Migration completed successfully")
}
