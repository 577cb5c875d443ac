package db

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeMigrations lays out files in a fresh directory and returns it.
func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func versions(migs []Migration) []int {
	out := make([]int, len(migs))
	for i, m := range migs {
		out[i] = m.Version
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// The shipped schema must load in order and keep the constraints the
// repositories map to workflow errors.
func TestLoadMigrations_ShippedSchema(t *testing.T) {
	migs, err := NewMigrator(nil, filepath.Join("..", "..", "..", "migrations")).LoadMigrations()
	if err != nil {
		t.Fatalf("load shipped migrations: %v", err)
	}
	if got := versions(migs); !equalInts(got, []int{1, 2, 3, 4}) {
		t.Fatalf("expected versions [1 2 3 4], got %v", got)
	}

	wantFragments := map[int][]string{
		1: {"accounts", "username"},
		2: {"doctors", "patients", "approval_status"},
		3: {"appointments_doctor_slot_key", "has_time"},
		4: {"episodes_one_open_per_patient", "discharge_details"},
	}
	for _, m := range migs {
		for _, frag := range wantFragments[m.Version] {
			if !strings.Contains(m.SQL, frag) {
				t.Errorf("%s: expected to mention %q", m.Name, frag)
			}
		}
	}
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		want    []int
		wantErr bool
	}{
		{
			name: "ordered by numeric prefix",
			files: map[string]string{
				"010_reminders.sql":    "SELECT 10;",
				"002_profiles.sql":     "SELECT 2;",
				"001_accounts.sql":     "SELECT 1;",
				"004_discharges.sql":   "SELECT 4;",
				"003_appointments.sql": "SELECT 3;",
			},
			want: []int{1, 2, 3, 4, 10},
		},
		{
			name: "skips unversioned and non-sql files",
			files: map[string]string{
				"001_accounts.sql":  "SELECT 1;",
				"seed.sql":          "-- no prefix",
				"draft_billing.sql": "-- non-numeric prefix",
				"README.md":         "docs",
				"002_profiles.sql":  "SELECT 2;",
			},
			want: []int{1, 2},
		},
		{
			name:  "empty directory",
			files: map[string]string{},
			want:  []int{},
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"003_appointments.sql": "SELECT 3;",
				"03_slots.sql":         "SELECT 3;",
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			migs, err := NewMigrator(nil, writeMigrations(t, tt.files)).LoadMigrations()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := versions(migs); !equalInts(got, tt.want) {
				t.Errorf("expected versions %v, got %v", tt.want, got)
			}
		})
	}
}

func TestLoadMigrations_KeepsNameAndBody(t *testing.T) {
	body := "ALTER TABLE appointments ADD COLUMN has_time BOOLEAN NOT NULL DEFAULT FALSE;"
	dir := writeMigrations(t, map[string]string{"005_appointment_time.sql": body})

	migs, err := NewMigrator(nil, dir).LoadMigrations()
	if err != nil || len(migs) != 1 {
		t.Fatalf("expected one migration, got %d (%v)", len(migs), err)
	}
	if migs[0].Name != "005_appointment_time.sql" || migs[0].Version != 5 || migs[0].SQL != body {
		t.Errorf("unexpected migration %+v", migs[0])
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "absent")
	if _, err := NewMigrator(nil, dir).LoadMigrations(); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestBuildStatus(t *testing.T) {
	migs := []Migration{
		{Version: 1, Name: "001_accounts.sql"},
		{Version: 2, Name: "002_profiles.sql"},
		{Version: 3, Name: "003_appointments.sql"},
		{Version: 4, Name: "004_discharges.sql"},
	}
	at := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)

	statuses := buildStatus(migs, map[int]time.Time{1: at, 2: at.Add(time.Second)})
	if len(statuses) != len(migs) {
		t.Fatalf("expected %d statuses, got %d", len(migs), len(statuses))
	}
	for i, st := range statuses {
		applied := i < 2
		if st.Applied != applied || (st.AppliedAt != nil) != applied {
			t.Errorf("%s: applied=%v at=%v, want applied=%v", st.Name, st.Applied, st.AppliedAt, applied)
		}
	}
	if !statuses[0].AppliedAt.Equal(at) {
		t.Errorf("expected 001 applied at %s, got %s", at, statuses[0].AppliedAt)
	}
	if statuses[3].Name != "004_discharges.sql" {
		t.Errorf("unexpected name %s", statuses[3].Name)
	}
}

func TestPending(t *testing.T) {
	migs := []Migration{{Version: 1}, {Version: 2}, {Version: 3}, {Version: 4}}
	applied := map[int]time.Time{1: time.Now(), 3: time.Now()}

	tests := []struct {
		target int
		want   []int
	}{
		{0, []int{2, 4}},
		{3, []int{2}},
		{1, []int{}},
	}
	for _, tt := range tests {
		if got := versions(pending(migs, applied, tt.target)); !equalInts(got, tt.want) {
			t.Errorf("pending up to %d: expected %v, got %v", tt.target, tt.want, got)
		}
	}
}
