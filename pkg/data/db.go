package data

import (
	"fmt"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// User holds per-user launch window margins in hours. Nil means the server
// default applies.
type User struct {
	gorm.Model
	Name      string
	LeadHours *float64 // hours before low tide
	LagHours  *float64 // hours after low tide
	LastSeen  time.Time
}

// PostgresFromEnv connects using the standard PG* environment variables. An
// empty PGHOST disables persistence: the caller gets a nil DB and no error.
func PostgresFromEnv() (*gorm.DB, error) {
	host := os.Getenv("PGHOST")
	if host == "" {
		return nil, nil
	}
	dsn := fmt.Sprintf("host=%s user=postgres password=%s dbname=tidewatch port=%s sslmode=disable TimeZone=Pacific/Auckland",
		host,
		os.Getenv("PGPASSWORD"),
		os.Getenv("PGPORT"))
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return db, nil
}
