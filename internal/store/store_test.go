package store

import (
	"fmt"
	"os"
	"testing"
	"time"

	"mypalette/database"
	"mypalette/internal/domain/opencalls"
	"mypalette/internal/domain/submissions"
	"mypalette/internal/domain/users"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB connects to the Postgres database named by MYPALETTE_TEST_DB_URL,
// migrates it and empties every table. The tests lock rows, so they need the
// real database rather than a stand-in.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	dsn := os.Getenv("MYPALETTE_TEST_DB_URL")
	if dsn == "" {
		t.Skip("MYPALETTE_TEST_DB_URL not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := db.Exec("TRUNCATE submissions, open_calls, profiles RESTART IDENTITY CASCADE").Error; err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedProfile(t *testing.T, db *gorm.DB, name string) users.Profile {
	t.Helper()
	p := users.Profile{Name: name, Email: fmt.Sprintf("%s@example.com", name), Role: users.RoleArtist}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	return p
}

func seedCall(t *testing.T, db *gorm.DB, status opencalls.Status, deadline time.Time) opencalls.OpenCall {
	t.Helper()
	c := opencalls.OpenCall{Title: "Nocturnes", Deadline: deadline, Status: status, NumWinners: 2, Currency: "usd"}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("seed call: %v", err)
	}
	return c
}

func newSub(artistID, callID uint, status submissions.PaymentStatus) *submissions.Submission {
	return &submissions.Submission{
		OpenCallID: callID,
		ArtistID:   artistID,
		Data: datatypes.NewJSONType(submissions.Data{
			Title:       "Lantern Field",
			Description: "Gouache night study",
			Medium:      "Gouache",
			ImageURLs:   []string{"https://cdn.example.com/lantern.jpg?w=800&h=600"},
		}),
		PaymentStatus: status,
		AmountMinor:   200,
		Currency:      "usd",
		SubmittedAt:   time.Now().UTC(),
	}
}

// insert writes a row directly, bypassing the cap.
func insert(t *testing.T, db *gorm.DB, sub *submissions.Submission) *submissions.Submission {
	t.Helper()
	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("insert submission: %v", err)
	}
	return sub
}

func strPtr(s string) *string { return &s }
