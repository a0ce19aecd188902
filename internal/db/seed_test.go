package db

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/voyage-billing/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func TestSeedIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	for i := 0; i < 2; i++ {
		if err := Seed(db); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var leads, packages, plans int64
	db.Model(&models.Lead{}).Count(&leads)
	db.Model(&models.Package{}).Count(&packages)
	db.Model(&models.ManualItinerary{}).Count(&plans)
	if leads != 3 || packages != 1 || plans != 1 {
		t.Fatalf("got leads=%d packages=%d plans=%d, want 3/1/1", leads, packages, plans)
	}

	var pkg models.Package
	if err := db.First(&pkg).Error; err != nil {
		t.Fatalf("load package: %v", err)
	}
	if len(pkg.Days) != 3 || pkg.Days[1].Places[0].Name != "Fort Aguada" {
		t.Fatalf("package days did not round-trip: %+v", pkg.Days)
	}
}
