package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-search-cache/model"
)

// FixtureDir is where fixtures live, relative to the test package.
const FixtureDir = "testdata"

// ReadFixture returns the contents of FixtureDir/name.
func ReadFixture(t testing.TB, name string) []byte {
	t.Helper()

	path := filepath.Join(FixtureDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}
	return data
}

// DecodeFixture decodes the JSON array in FixtureDir/name.
func DecodeFixture[T any](t testing.TB, name string) []T {
	t.Helper()

	var records []T
	if err := json.Unmarshal(ReadFixture(t, name), &records); err != nil {
		t.Fatalf("failed to decode fixture %s: %v", name, err)
	}
	return records
}

// SeedCompaniesFixture inserts the companies listed in FixtureDir/name.
func SeedCompaniesFixture(t testing.TB, db bun.IDB, name string) []model.Company {
	t.Helper()

	companies := DecodeFixture[model.Company](t, name)
	SeedCompanies(t, db, companies)
	return companies
}

// SeedUsersFixture inserts the users listed in FixtureDir/name.
func SeedUsersFixture(t testing.TB, db bun.IDB, name string) []model.User {
	t.Helper()

	users := DecodeFixture[model.User](t, name)
	SeedUsers(t, db, users)
	return users
}
