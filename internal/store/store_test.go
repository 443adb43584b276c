package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Simplici0/campbill/internal/billing"
	"github.com/Simplici0/campbill/internal/db"
	"github.com/Simplici0/campbill/internal/migrations"
	"github.com/Simplici0/campbill/internal/pricing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "store-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return database
}

func TestUpsertRateAndList(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertRate(ctx, "X-ray", pricing.BaseRate{Salary: 1500, Reporting: 40}); err != nil {
		t.Fatalf("upsert X-ray: %v", err)
	}
	if err := s.UpsertRate(ctx, "CBC", pricing.BaseRate{FlatPrice: 180, HardCopyPrice: 25}); err != nil {
		t.Fatalf("upsert CBC: %v", err)
	}
	if err := s.UpsertRate(ctx, "X-ray", pricing.BaseRate{Salary: 1750.5, Reporting: 40}); err != nil {
		t.Fatalf("update X-ray: %v", err)
	}

	rows, err := s.ListRates(ctx)
	if err != nil {
		t.Fatalf("list rates: %v", err)
	}
	if len(rows) != 2 || rows[0].Service != "CBC" || rows[1].Service != "X-ray" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	rates, err := s.Rates(ctx)
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if rates["X-ray"].Salary != 1750.5 || rates["CBC"].HardCopyPrice != 25 {
		t.Fatalf("unexpected rates: %+v", rates)
	}
}

func TestUpsertRateReplacesPriceRanges(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	first := pricing.BaseRate{
		FlatPrice: 300,
		Tiers:     []pricing.PriceRange{{MaxCases: 500, Price: 180}, {MaxCases: 100, Price: 220}},
	}
	if err := s.UpsertRate(ctx, "CBC", first); err != nil {
		t.Fatalf("upsert CBC: %v", err)
	}

	rates, err := s.Rates(ctx)
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	want := []pricing.PriceRange{{MaxCases: 100, Price: 220}, {MaxCases: 500, Price: 180}}
	if !reflect.DeepEqual(rates["CBC"].Tiers, want) {
		t.Fatalf("tiers = %+v, want %+v", rates["CBC"].Tiers, want)
	}

	if err := s.UpsertRate(ctx, "CBC", pricing.BaseRate{FlatPrice: 310}); err != nil {
		t.Fatalf("update CBC: %v", err)
	}
	rates, err = s.Rates(ctx)
	if err != nil {
		t.Fatalf("rates: %v", err)
	}
	if rates["CBC"].Tiers != nil || rates["CBC"].FlatPrice != 310 {
		t.Fatalf("tiers were not replaced: %+v", rates["CBC"])
	}
}

func TestCoupons(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	if err := s.UpsertCoupon(ctx, billing.Coupon{Code: " camp10 ", DiscountPercentage: 10}); err != nil {
		t.Fatalf("upsert coupon: %v", err)
	}
	if err := s.UpsertCoupon(ctx, billing.Coupon{Code: "CAMP10", DiscountPercentage: 12.5}); err != nil {
		t.Fatalf("update coupon: %v", err)
	}

	got, err := s.GetCoupon(ctx, "Camp10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if got != (billing.Coupon{Code: "CAMP10", DiscountPercentage: 12.5}) {
		t.Fatalf("coupon = %+v", got)
	}

	list, err := s.ListCoupons(ctx)
	if err != nil {
		t.Fatalf("list coupons: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("coupons = %+v, want one", list)
	}

	_, err = s.GetCoupon(ctx, "NOPE")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, billing.ErrUnknownCoupon) {
		t.Fatalf("expected not-found coupon error, got %v", err)
	}

	if err := s.UpsertCoupon(ctx, billing.Coupon{Code: "BAD", DiscountPercentage: 120}); !errors.Is(err, billing.ErrInvalidAdjustment) {
		t.Fatalf("expected ErrInvalidAdjustment, got %v", err)
	}
}

func TestSaveAndGetRecord(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	summary := billing.Summarize(
		map[string]pricing.Breakdown{"Audiometry": {UnitPrice: 26.52}},
		map[string]float64{"Audiometry": 1.2},
		map[string]int{"Audiometry": 50},
	)
	camp := billing.CampMetadata{
		CompanyID:   "CL-7",
		CompanyName: "Acme Steel",
		Camps:       []billing.CampSite{{Location: "Gate 3", PinCode: "411001"}},
	}
	rec := billing.NewRecord("U4RAD-20261016-000", camp, summary.Adjust(10, 5), time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	rec.CouponCode = "CAMP5"

	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}

	got, err := s.GetRecord(ctx, rec.BillingNumber)
	if err != nil {
		t.Fatalf("get record: %v", err)
	}
	if !reflect.DeepEqual(got, rec) {
		t.Fatalf("record did not round trip:\n got %+v\nwant %+v", got, rec)
	}
}

func TestSaveRecordRejectsDuplicateNumber(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	rec := billing.NewRecord("U4RAD-20261016-001", billing.CampMetadata{}, billing.Summary{}, time.Now())
	if err := s.SaveRecord(ctx, rec); err != nil {
		t.Fatalf("save record: %v", err)
	}
	dup := billing.NewRecord("U4RAD-20261016-001", billing.CampMetadata{}, billing.Summary{}, time.Now())
	if err := s.SaveRecord(ctx, dup); err == nil {
		t.Fatalf("expected unique violation for duplicate billing number")
	}
}

func TestGetRecordNotFound(t *testing.T) {
	s := NewSQLite(newTestDB(t))

	if _, err := s.GetRecord(context.Background(), "U4RAD-20000101-000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListRecordsOrdersNewestFirstAndFilters(t *testing.T) {
	s := NewSQLite(newTestDB(t))
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 10, 0, 0, 0, time.UTC)
	for i, company := range []string{"Acme Steel", "Blue Mills", "Acme Foods"} {
		rec := billing.NewRecord(
			billing.FormatNumber("U4RAD", base, int64(i)),
			billing.CampMetadata{CompanyName: company},
			billing.Summary{GrandTotal: float64(100 * (i + 1))},
			base.Add(time.Duration(i)*24*time.Hour),
		)
		if err := s.SaveRecord(ctx, rec); err != nil {
			t.Fatalf("save record %d: %v", i, err)
		}
	}

	all, err := s.ListRecords(ctx, "")
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(all) != 3 || all[0].CompanyName != "Acme Foods" || all[2].CompanyName != "Acme Steel" {
		t.Fatalf("unexpected order: %+v", all)
	}
	if all[0].GrandTotal != 300 {
		t.Fatalf("unexpected total: %+v", all[0])
	}

	acme, err := s.ListRecords(ctx, "Acme")
	if err != nil {
		t.Fatalf("list filtered: %v", err)
	}
	if len(acme) != 2 {
		t.Fatalf("expected 2 Acme records, got %+v", acme)
	}
}

func TestSQLiteSequenceIsMonotonic(t *testing.T) {
	seq := NewSQLiteSequence(newTestDB(t), DefaultSequence)
	ctx := context.Background()

	for want := int64(0); want < 5; want++ {
		got, err := seq.Next(ctx)
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		if got != want {
			t.Fatalf("next = %d, want %d", got, want)
		}
	}
	if cur, err := seq.Current(ctx); err != nil || cur != 5 {
		t.Fatalf("current = %d, %v; want 5", cur, err)
	}
}

func TestSQLiteSequenceSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	first, err := db.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := migrations.Up(first); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := NewSQLiteSequence(first, DefaultSequence).Next(ctx); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	first.Close()

	second, err := db.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	got, err := NewSQLiteSequence(second, DefaultSequence).Next(ctx)
	if err != nil {
		t.Fatalf("next after reopen: %v", err)
	}
	if got != 3 {
		t.Fatalf("next after reopen = %d, want 3", got)
	}
}

func TestSQLiteSequenceConcurrentNext(t *testing.T) {
	seq := NewSQLiteSequence(newTestDB(t), DefaultSequence)

	const workers = 20
	var (
		mu   sync.Mutex
		seen = make(map[int64]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(context.Background())
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if seen[n] {
				t.Errorf("duplicate counter value %d", n)
			}
			seen[n] = true
		}()
	}
	wg.Wait()

	for i := int64(0); i < workers; i++ {
		if !seen[i] {
			t.Fatalf("missing counter value %d", i)
		}
	}
}

func TestSQLiteSequenceDrivesGenerator(t *testing.T) {
	gen := billing.NewGenerator("U4RAD", NewSQLiteSequence(newTestDB(t), DefaultSequence))
	gen.Now = func() time.Time { return time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC) }

	a, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, err := gen.Generate(context.Background())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if a != "U4RAD-20261016-000" || b != "U4RAD-20261016-001" {
		t.Fatalf("unexpected numbers %q %q", a, b)
	}
}
