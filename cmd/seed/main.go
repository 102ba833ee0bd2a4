// Command seed fills the record stores with demo users, availability and
// medicines for trying out the console tool.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"hospadmin/internal/config"
	"hospadmin/internal/directory"
	"hospadmin/internal/ledger"
	"hospadmin/internal/models"
	"hospadmin/internal/store"
	"hospadmin/internal/timeslot"
)

func main() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("HOSPADMIN_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	var catalog store.Catalog
	switch cfg.Storage.Backend {
	case "sqlite":
		catalog, err = store.NewSQLiteCatalog(cfg.Storage.DBPath, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open sqlite")
		}
	default:
		catalog = store.NewCSVCatalog(cfg.Storage.DataDir, &logger)
	}
	defer catalog.Close()

	gofakeit.Seed(time.Now().UnixNano())
	ctx := context.Background()

	dir := directory.New(catalog.Users(), logger)
	ldg := ledger.New(catalog.Availability(), nil, logger)

	if err := seedUsers(ctx, dir); err != nil {
		logger.Fatal().Err(err).Msg("seed users")
	}
	if err := seedAvailability(ctx, ldg); err != nil {
		logger.Fatal().Err(err).Msg("seed availability")
	}
	if err := seedMedicines(ctx, catalog.Medicines()); err != nil {
		logger.Fatal().Err(err).Msg("seed medicines")
	}

	logger.Info().Msg("seed complete")
}

func seedUsers(ctx context.Context, dir *directory.Directory) error {
	users := []models.User{
		{ID: "AD001", Password: "admin", Role: models.RoleAdministrator, Name: gofakeit.Name()},
		{ID: "PH001", Password: "pharm", Role: models.RolePharmacist, Name: gofakeit.Name()},
	}
	for i := 1; i <= 5; i++ {
		users = append(users, models.User{
			ID:       fmt.Sprintf("DR%03d", i),
			Password: gofakeit.Password(true, true, true, false, false, 8),
			Role:     models.RoleDoctor,
			Name:     "Dr. " + gofakeit.Name(),
		})
	}
	for i := 1; i <= 20; i++ {
		users = append(users, models.User{
			ID:       fmt.Sprintf("PT%03d", i),
			Password: gofakeit.Password(true, true, true, false, false, 8),
			Role:     models.RolePatient,
			Name:     gofakeit.Name(),
		})
	}
	for _, u := range users {
		if err := dir.Create(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

func seedAvailability(ctx context.Context, ldg *ledger.Ledger) error {
	from := timeslot.Clock{Hour: 9}
	to := timeslot.Clock{Hour: 17}
	for i := 1; i <= 5; i++ {
		doctorID := fmt.Sprintf("DR%03d", i)
		name := "Dr. " + gofakeit.Name()
		for day := 0; day < 5; day++ {
			date := timeslot.FormatDate(time.Now().AddDate(0, 0, day+1))
			if _, err := ldg.PublishWindow(ctx, doctorID, name, date, from, to); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedMedicines(ctx context.Context, st store.RecordStore) error {
	names := []string{"Paracetamol", "Ibuprofen", "Amoxicillin", "Cetirizine", "Omeprazole", "Metformin"}
	records := make([]store.Record, 0, len(names))
	for i, name := range names {
		m := models.Medicine{
			ID:    fmt.Sprintf("MD%03d", i+1),
			Name:  name,
			Stock: gofakeit.Number(20, 200),
			Price: gofakeit.Price(2, 40),
		}
		records = append(records, m.Row())
	}
	return st.Save(ctx, records)
}
