package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/stock-ledger-service/internal/domain"
	mongoRepo "github.com/wms-platform/stock-ledger-service/internal/infrastructure/mongodb"
	"github.com/wms-platform/stock-ledger-service/pkg/idempotency"
)

// Bootstrap tool for the stock ledger database: creates the collection
// indexes and optionally seeds reference data (items, locations, reason
// codes) from a JSON file.

var (
	mongoURI = flag.String("mongo-uri", "mongodb://localhost:27017", "MongoDB connection URI")
	dbName   = flag.String("db", "stock_ledger_db", "Database name")
	seedFile = flag.String("seed-file", "", "Path to a reference data seed file (JSON), optional")
	dryRun   = flag.Bool("dry-run", false, "Parse and report without writing")
)

// SeedData is the shape of the -seed-file document.
type SeedData struct {
	Items       []domain.Item       `json:"items"`
	Locations   []domain.Location   `json:"locations"`
	ReasonCodes []domain.ReasonCode `json:"reasonCodes"`
}

func main() {
	flag.Parse()

	log.Printf("Starting stock ledger bootstrap...")
	log.Printf("MongoDB URI: %s", *mongoURI)
	log.Printf("Database: %s", *dbName)
	log.Printf("Seed File: %s", *seedFile)
	log.Printf("Dry Run: %v", *dryRun)

	// Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(*mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("Connected to MongoDB successfully")

	db := client.Database(*dbName)

	if !*dryRun {
		if err := createIndexes(context.Background(), db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		log.Println("Indexes created")
	}

	if *seedFile != "" {
		if err := seedReferenceData(context.Background(), db); err != nil {
			log.Fatalf("Seeding failed: %v", err)
		}
	}

	log.Println("Bootstrap completed successfully!")
}

// createIndexes builds every index the service relies on. Repository
// constructors ensure their own indexes, so instantiating them is
// enough for the ledger collections; idempotency indexes are built
// explicitly.
func createIndexes(ctx context.Context, db *mongo.Database) error {
	mongoRepo.NewReferenceRepository(db)
	mongoRepo.NewBalanceRepository(db)
	mongoRepo.NewEventRepository(db)

	if err := idempotency.InitializeIndexes(ctx, db); err != nil {
		return fmt.Errorf("failed to initialize idempotency indexes: %w", err)
	}
	return nil
}

func seedReferenceData(ctx context.Context, db *mongo.Database) error {
	data, err := os.ReadFile(*seedFile)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedData
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	log.Printf("Seed file parsed: %d items, %d locations, %d reason codes",
		len(seed.Items), len(seed.Locations), len(seed.ReasonCodes))

	if err := validateSeed(&seed); err != nil {
		return err
	}

	if *dryRun {
		log.Println("DRY RUN MODE - no reference data written")
		return nil
	}

	repo := mongoRepo.NewReferenceRepository(db)
	now := time.Now().UTC()

	for i := range seed.Items {
		item := &seed.Items[i]
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now
		if err := repo.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("failed to seed item %s: %w", item.ID, err)
		}
	}
	log.Printf("Seeded %d items", len(seed.Items))

	for i := range seed.Locations {
		location := &seed.Locations[i]
		if location.CreatedAt.IsZero() {
			location.CreatedAt = now
		}
		location.UpdatedAt = now
		if err := repo.SaveLocation(ctx, location); err != nil {
			return fmt.Errorf("failed to seed location %s: %w", location.ID, err)
		}
	}
	log.Printf("Seeded %d locations", len(seed.Locations))

	for i := range seed.ReasonCodes {
		reasonCode := &seed.ReasonCodes[i]
		if reasonCode.CreatedAt.IsZero() {
			reasonCode.CreatedAt = now
		}
		if err := repo.SaveReasonCode(ctx, reasonCode); err != nil {
			return fmt.Errorf("failed to seed reason code %s: %w", reasonCode.ID, err)
		}
	}
	log.Printf("Seeded %d reason codes", len(seed.ReasonCodes))

	return nil
}

// validateSeed rejects obviously broken reference data before any
// write happens, so a typo in the seed file cannot half-populate the
// catalog.
func validateSeed(seed *SeedData) error {
	for _, item := range seed.Items {
		if item.ID == "" || item.TenantID == "" || item.BaseUOM == "" {
			return fmt.Errorf("item %q: id, tenantId and baseUom are required", item.ID)
		}
		for _, conv := range item.Conversions {
			if conv.UOM == "" || !conv.Factor.IsPositive() {
				return fmt.Errorf("item %q: conversion %q needs a positive factor", item.ID, conv.UOM)
			}
		}
	}
	for _, location := range seed.Locations {
		if location.ID == "" || location.TenantID == "" || location.SiteID == "" {
			return fmt.Errorf("location %q: id, tenantId and siteId are required", location.ID)
		}
	}
	for _, reasonCode := range seed.ReasonCodes {
		if reasonCode.ID == "" || reasonCode.TenantID == "" {
			return fmt.Errorf("reason code %q: id and tenantId are required", reasonCode.ID)
		}
		if !reasonCode.EventType.IsValid() {
			return fmt.Errorf("reason code %q: unknown event type %q", reasonCode.ID, reasonCode.EventType)
		}
	}
	return nil
}
