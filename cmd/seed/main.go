package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newFileFlag(usage, value string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "file",
		Usage: usage,
		Value: value,
	}
}

func openDB(c *cli.Context) (*sql.DB, error) {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Initialize and load the replenishment database",
		Commands: []*cli.Command{
			{
				Name:   "init-db",
				Usage:  "Create the database schema",
				Flags:  []cli.Flag{newDBURLFlag()},
				Action: runInitDB,
			},
			{
				Name:  "snapshots",
				Usage: "Load inventory batches and in-transit orders from CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("Inventory batches CSV", "./data/seeds/inventory_batches.csv"),
					&cli.StringFlag{
						Name:  "in-transit-file",
						Usage: "In-transit orders CSV (optional)",
						Value: "",
					},
				},
				Action: runSeedSnapshots,
			},
			{
				Name:   "forecasts",
				Usage:  "Load forecast rows from CSV",
				Flags:  []cli.Flag{newDBURLFlag(), newFileFlag("Forecasts CSV", "./data/seeds/forecasts.csv")},
				Action: runSeedForecasts,
			},
			{
				Name:  "params",
				Usage: "Load policy parameters and markdown tiers from CSV",
				Flags: []cli.Flag{
					newDBURLFlag(),
					newFileFlag("Policy parameters CSV", "./data/seeds/policy_parameters.csv"),
					&cli.StringFlag{
						Name:  "tiers-file",
						Usage: "Markdown tiers CSV (optional)",
						Value: "",
					},
				},
				Action: runSeedParams,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
