package backup

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/tripkit/internal/constants"
	"github.com/julianstephens/tripkit/internal/localstore"
)

func setupStore(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tripkit.db")
	kv := localstore.NewSQLiteKV(path)
	if err := kv.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := kv.Set(constants.KeyTravelPlans, `[{"id":"p1"}]`); err != nil {
		t.Fatal(err)
	}
	kv.Close()
	return path
}

func fixedClock(ts time.Time) func() time.Time {
	return func() time.Time { return ts }
}

func readPlans(t *testing.T, path string) string {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	var v string
	if err := db.QueryRow("SELECT value FROM kv WHERE key = ?", constants.KeyTravelPlans).Scan(&v); err != nil {
		t.Fatalf("failed to query backup: %v", err)
	}
	return v
}

func TestCreateBackup(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		t.Fatalf("backup file was not created: %s", backupPath)
	}
	if got := readPlans(t, backupPath); got != `[{"id":"p1"}]` {
		t.Errorf("backup content = %s", got)
	}
	if filepath.Dir(backupPath) != mgr.Dir() {
		t.Errorf("backup written outside %s", mgr.Dir())
	}
}

func TestCreateBackup_MissingStore(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "none.db"))
	if _, err := mgr.CreateBackup(); err == nil {
		t.Errorf("expected error for missing store")
	}
}

func TestCreateBackup_UniqueNames(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)
	mgr.Now = fixedClock(time.Date(2025, 6, 1, 9, 30, 15, 0, time.Local))

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		p, err := mgr.CreateBackup()
		if err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
		if seen[p] {
			t.Fatalf("duplicate backup name %s", p)
		}
		seen[p] = true
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 {
		t.Errorf("ListBackups() returned %d, want 3", len(backups))
	}
}

func TestRotation(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)
	start := time.Date(2025, 1, 1, 8, 0, 0, 0, time.Local)

	for i := 0; i < constants.MaxBackups+3; i++ {
		mgr.Now = fixedClock(start.Add(time.Duration(i) * time.Hour))
		if _, err := mgr.CreateBackup(); err != nil {
			t.Fatalf("CreateBackup #%d failed: %v", i, err)
		}
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != constants.MaxBackups {
		t.Fatalf("kept %d backups, want %d", len(backups), constants.MaxBackups)
	}
	newest := start.Add(time.Duration(constants.MaxBackups+2) * time.Hour)
	if !backups[0].Timestamp.Equal(newest) {
		t.Errorf("newest backup = %v, want %v", backups[0].Timestamp, newest)
	}
}

func TestListBackups_IgnoresForeignFiles(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)
	if err := os.MkdirAll(mgr.Dir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "tripkit-garbage.db", "other-20250101-1200.db"} {
		if err := os.WriteFile(filepath.Join(mgr.Dir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Errorf("expected foreign files to be ignored, got %+v", backups)
	}

	empty := NewManager(filepath.Join(t.TempDir(), "fresh.db"))
	if got, err := empty.ListBackups(); err != nil || len(got) != 0 {
		t.Errorf("ListBackups() without directory = %v, %v", got, err)
	}
}

func TestParseName(t *testing.T) {
	mgr := NewManager("/tmp/tripkit.db")
	tests := []struct {
		name string
		ok   bool
	}{
		{"tripkit-20250601-0930.db", true},
		{"tripkit-20250601-093015.db", true},
		{"tripkit-20250601-093015-2.db", true},
		{"tripkit-20250601.db", false},
		{"tripkit-20250601-0930.json", false},
	}
	for _, tt := range tests {
		if _, ok := mgr.parseName(tt.name); ok != tt.ok {
			t.Errorf("parseName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
		}
	}
}

func TestRestoreBackup(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)
	mgr.Now = fixedClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.Local))

	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatal(err)
	}

	kv := localstore.NewSQLiteKV(path)
	if err := kv.Load(); err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(constants.KeyTravelPlans, `[]`); err != nil {
		t.Fatal(err)
	}
	kv.Close()

	mgr.Now = fixedClock(time.Date(2025, 6, 1, 10, 0, 0, 0, time.Local))
	if err := mgr.RestoreBackup(backupPath); err != nil {
		t.Fatalf("RestoreBackup failed: %v", err)
	}
	if got := readPlans(t, path); got != `[{"id":"p1"}]` {
		t.Errorf("restored content = %s", got)
	}

	backups, err := mgr.ListBackups()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 2 {
		t.Errorf("restore should back up the current store first, got %d backups", len(backups))
	}
}

func TestRestoreBackup_Invalid(t *testing.T) {
	path := setupStore(t)
	mgr := NewManager(path)

	if err := mgr.RestoreBackup(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Errorf("expected error for missing backup")
	}

	bogus := filepath.Join(t.TempDir(), "bogus.db")
	if err := os.WriteFile(bogus, []byte("definitely not sqlite, padded to look like a header....."), 0600); err != nil {
		t.Fatal(err)
	}
	if err := mgr.RestoreBackup(bogus); err == nil {
		t.Errorf("expected error for corrupt backup")
	}
}

func TestJSONStoreBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.json")
	if err := os.WriteFile(path, []byte(`{"travel-plans":"[]"}`), 0600); err != nil {
		t.Fatal(err)
	}
	mgr := NewManager(path)
	backupPath, err := mgr.CreateBackup()
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if filepath.Ext(backupPath) != ".json" {
		t.Errorf("json store backup should keep .json suffix, got %s", backupPath)
	}
	data, err := os.ReadFile(backupPath)
	if err != nil || string(data) != `{"travel-plans":"[]"}` {
		t.Errorf("backup content = %q, %v", data, err)
	}
}
