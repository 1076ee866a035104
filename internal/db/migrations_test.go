package db

import (
	"regexp"
	"sort"
	"strings"
	"testing"
)

func TestAvailableVersionsSorted(t *testing.T) {
	versions, err := availableVersions()
	if err != nil {
		t.Fatalf("availableVersions: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no embedded migrations found")
	}
	if !sort.StringsAreSorted(versions) {
		t.Errorf("versions not in deterministic order: %v", versions)
	}
	for _, v := range versions {
		if !strings.HasSuffix(v, ".sql") {
			t.Errorf("unexpected migration file %q", v)
		}
	}
}

func TestPendingVersions(t *testing.T) {
	available := []string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}

	tests := []struct {
		name     string
		applied  []string
		expected []string
	}{
		{"none applied", nil, []string{"0001_a.sql", "0002_b.sql", "0003_c.sql"}},
		{"all applied", available, []string{}},
		{"partial", []string{"0001_a.sql"}, []string{"0002_b.sql", "0003_c.sql"}},
		{"gap in middle", []string{"0002_b.sql"}, []string{"0001_a.sql", "0003_c.sql"}},
		{"unknown applied entries ignored", []string{"9999_z.sql"}, available},
	}

	for _, test := range tests {
		got := pendingVersions(available, test.applied)
		if len(got) != len(test.expected) {
			t.Errorf("%s: pending = %v, expected %v", test.name, got, test.expected)
			continue
		}
		for i := range got {
			if got[i] != test.expected[i] {
				t.Errorf("%s: pending[%d] = %q, expected %q", test.name, i, got[i], test.expected[i])
			}
		}
	}
}

// Table owners bypass row-level security unless it is forced, and the
// application role owns every table it migrates. Each table that enables RLS
// must therefore also force it, or the policies are decorative.
func TestRowLevelSecurityForcedForEveryTable(t *testing.T) {
	sql, err := migrationFiles.ReadFile("migrations/0002_row_level_security.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}

	enabled := regexp.MustCompile(`ALTER TABLE (\w+) ENABLE ROW LEVEL SECURITY`).FindAllStringSubmatch(string(sql), -1)
	if len(enabled) == 0 {
		t.Fatal("no tables enable row level security")
	}

	for _, match := range enabled {
		table := match[1]
		if !strings.Contains(string(sql), "ALTER TABLE "+table+" FORCE ROW LEVEL SECURITY;") {
			t.Errorf("table %s enables row level security without forcing it for the owner", table)
		}
	}
}

// Credential uniqueness must span merchant_id; the model cannot declare the
// composite index because the column lives in an embedded struct, so the
// migration is the only place it exists.
func TestCredentialUniqueIndexSpansMerchant(t *testing.T) {
	sql, err := migrationFiles.ReadFile("migrations/0003_unique_identities.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}

	pattern := regexp.MustCompile(`CREATE UNIQUE INDEX IF NOT EXISTS idx_credentials_merchant_platform\s+ON credentials\(merchant_id, platform\);`)
	if !pattern.Match(sql) {
		t.Error("credentials migration lost the (merchant_id, platform) unique index")
	}
}

func TestPendingVersionsIdempotent(t *testing.T) {
	// Applying the diff twice against the same applied set yields the same
	// result: the pending computation itself has no side effects.
	available := []string{"0001_a.sql", "0002_b.sql"}
	applied := []string{"0001_a.sql"}

	first := pendingVersions(available, applied)
	second := pendingVersions(available, applied)
	if len(first) != len(second) || first[0] != second[0] {
		t.Errorf("pending diff not stable: %v vs %v", first, second)
	}
}
