package db

import (
	"CafeAPI/src/types"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "cafes.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addCafe(t *testing.T, store *SQLiteStore, name, location string) types.Cafe {
	t.Helper()
	cafe := types.Cafe{
		Name:        name,
		Location:    types.String(location),
		HasWifi:     types.Bool(true),
		CoffeePrice: types.String("£2.40"),
	}
	if err := store.AddCafe(context.Background(), &cafe); err != nil {
		t.Fatalf("AddCafe(%s) error = %v", name, err)
	}
	return cafe
}

func TestAddAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cafes, err := store.GetCafes(ctx)
	if err != nil {
		t.Fatalf("GetCafes() error = %v", err)
	}
	if cafes == nil || len(cafes) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", cafes)
	}

	first := addCafe(t, store, "Science Gallery", "London Bridge")
	second := addCafe(t, store, "Bean", "Peckham")
	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("expected increasing ids, got %d and %d", first.ID, second.ID)
	}

	cafes, err = store.GetCafes(ctx)
	if err != nil {
		t.Fatalf("GetCafes() error = %v", err)
	}
	if len(cafes) != 2 {
		t.Fatalf("expected 2 cafes, got %d", len(cafes))
	}
	if cafes[0].Name != "Science Gallery" || *cafes[1].Location != "Peckham" {
		t.Errorf("unexpected rows %+v", cafes)
	}
	if cafes[0].MapURL != nil || cafes[0].HasToilet != nil {
		t.Error("unset columns should stay null")
	}
}

func TestAddDuplicateName(t *testing.T) {
	store := newTestStore(t)
	addCafe(t, store, "Bean", "Peckham")

	dup := types.Cafe{Name: "Bean"}
	err := store.AddCafe(context.Background(), &dup)
	if !errors.Is(err, types.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	count, _ := store.CountCafes(context.Background())
	if count != 1 {
		t.Errorf("expected 1 row after failed insert, got %d", count)
	}
}

func TestGetCafeByLocation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first := addCafe(t, store, "A", "Shoreditch")
	addCafe(t, store, "B", "Shoreditch")

	got, err := store.GetCafeByLocation(ctx, "Shoreditch")
	if err != nil {
		t.Fatalf("GetCafeByLocation() error = %v", err)
	}
	if got.ID != first.ID {
		t.Errorf("expected lowest id %d, got %d", first.ID, got.ID)
	}

	if _, err = store.GetCafeByLocation(ctx, "shoreditch"); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("lookup should be exact, got %v", err)
	}
}

func TestGetRandomCafe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.GetRandomCafe(ctx); !errors.Is(err, types.ErrNoCafes) {
		t.Fatalf("expected ErrNoCafes on empty store, got %v", err)
	}

	a := addCafe(t, store, "A", "X")
	b := addCafe(t, store, "B", "Y")

	var offsets []int64
	store.intn = func(n int64) int64 {
		if n != 2 {
			t.Errorf("expected n=2, got %d", n)
		}
		o := int64(len(offsets) % 2)
		offsets = append(offsets, o)
		return o
	}

	got1, err := store.GetRandomCafe(ctx)
	if err != nil {
		t.Fatalf("GetRandomCafe() error = %v", err)
	}
	got2, err := store.GetRandomCafe(ctx)
	if err != nil {
		t.Fatalf("GetRandomCafe() error = %v", err)
	}
	if got1.ID != a.ID || got2.ID != b.ID {
		t.Errorf("expected offsets to map to %d,%d got %d,%d", a.ID, b.ID, got1.ID, got2.ID)
	}
}

func TestGetRandomCafe_NonDegenerate(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"A", "B", "C"} {
		addCafe(t, store, name, "X")
	}

	seen := map[int64]bool{}
	for i := 0; i < 200 && len(seen) < 2; i++ {
		cafe, err := store.GetRandomCafe(context.Background())
		if err != nil {
			t.Fatalf("GetRandomCafe() error = %v", err)
		}
		seen[cafe.ID] = true
	}
	if len(seen) < 2 {
		t.Error("expected more than one distinct cafe over 200 draws")
	}
}

func TestUpdateCafePrice(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	orig := addCafe(t, store, "A", "X")

	updated, err := store.UpdateCafePrice(ctx, orig.ID, types.String("£3.00"))
	if err != nil {
		t.Fatalf("UpdateCafePrice() error = %v", err)
	}
	if *updated.CoffeePrice != "£3.00" {
		t.Errorf("unexpected returned price %v", *updated.CoffeePrice)
	}

	stored, err := store.GetCafe(ctx, orig.ID)
	if err != nil {
		t.Fatal(err)
	}
	if *stored.CoffeePrice != "£3.00" {
		t.Errorf("price not persisted: %v", *stored.CoffeePrice)
	}
	if stored.Name != orig.Name || *stored.Location != *orig.Location || *stored.HasWifi != *orig.HasWifi {
		t.Errorf("other fields changed: %+v", stored)
	}

	if _, err = store.UpdateCafePrice(ctx, 999, types.String("£1")); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if _, err = store.UpdateCafePrice(ctx, orig.ID, nil); err != nil {
		t.Fatal(err)
	}
	stored, _ = store.GetCafe(ctx, orig.ID)
	if stored.CoffeePrice != nil {
		t.Errorf("expected null price, got %v", *stored.CoffeePrice)
	}
}

func TestDeleteCafe(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	a := addCafe(t, store, "A", "X")
	addCafe(t, store, "B", "Y")

	if err := store.DeleteCafe(ctx, a.ID); err != nil {
		t.Fatalf("DeleteCafe() error = %v", err)
	}
	if err := store.DeleteCafe(ctx, a.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}

	count, _ := store.CountCafes(ctx)
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}

func TestLoadData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "cafes.csv")
	content := "name,location,has_wifi,has_toilet,coffee_price\n" +
		"Science Gallery,London Bridge,true,false,£2.40\n" +
		"Bean,Peckham,1,,\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	n, err := store.LoadData(ctx, path)
	if err != nil {
		t.Fatalf("LoadData() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows, got %d", n)
	}

	cafes, _ := store.GetCafes(ctx)
	if *cafes[0].HasToilet || !*cafes[0].HasWifi {
		t.Errorf("unexpected flags %+v", cafes[0])
	}
	if cafes[1].HasToilet != nil || cafes[1].CoffeePrice != nil {
		t.Errorf("empty cells should be null: %+v", cafes[1])
	}

	n, err = store.LoadData(ctx, path)
	if err != nil || n != 0 {
		t.Errorf("second load should be skipped, got %d, %v", n, err)
	}
}

func TestReadCSVErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no name column", "location\nX\n"},
		{"bad bool", "name,has_wifi\nA,maybe\n"},
		{"empty name", "name,location\n,X\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := readCSV(strings.NewReader(tt.content), ','); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"cafes.db", "cafes.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
		{"file:cafes.db?cache=shared", "file:cafes.db?cache=shared&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"},
	}
	for _, tt := range tests {
		if got := sqliteDSN(tt.path); got != tt.want {
			t.Errorf("sqliteDSN(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestNewSQLiteStoreWithQueryString(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cafes.db")
	store, err := NewSQLiteStore("file:" + path + "?cache=shared")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	addCafe(t, store, "Shared", "X")

	var mode string
	if err = store.DB.Raw("PRAGMA journal_mode").Scan(&mode).Error; err != nil {
		t.Fatal(err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Errorf("expected WAL journal mode, got %q", mode)
	}
	if _, err = os.Stat(path); err != nil {
		t.Errorf("database not created at %s: %v", path, err)
	}
}
