package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/go-layercheck/internal/engine"
	"github.com/example/go-layercheck/internal/harness"
)

func sampleReport(status harness.Status) *harness.Report {
	return &harness.Report{
		Engine:  "local",
		Seed:    20190723,
		Dims:    []int64{7, 5, 3},
		Samples: 29,
		Variants: []harness.VariantResult{
			{Variant: "data-parallel", Layout: engine.DataParallel, Metric: "data-parallel output", Reference: 315.25, Observed: 315.2501, Status: status},
		},
	}
}

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db")),
	}
}

func TestStoreRunRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			t.Cleanup(func() {
				_ = CloseIfSupported(store)
			})

			run := NewRunRecord(sampleReport(harness.StatusOK), time.Unix(1700000000, 0))
			if run.Report.ID != run.ID {
				t.Fatalf("report id %q not stamped with run id %q", run.Report.ID, run.ID)
			}

			if err := store.SaveRun(ctx, run); err != nil {
				t.Fatalf("save run: %v", err)
			}

			loaded, ok, err := store.GetRun(ctx, run.ID)
			if err != nil {
				t.Fatalf("get run: %v", err)
			}
			if !ok {
				t.Fatalf("expected run %s", run.ID)
			}
			if loaded.ID != run.ID || !loaded.CreatedAt.Equal(run.CreatedAt) {
				t.Fatalf("unexpected run loaded: %+v", loaded)
			}
			if got := loaded.Report.Variants[0].Observed; got != 315.2501 {
				t.Fatalf("observed = %v; want 315.2501", got)
			}

			_, ok, err = store.GetRun(ctx, "missing")
			if err != nil || ok {
				t.Fatalf("missing run: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStoreListRunsNewestFirst(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			t.Cleanup(func() {
				_ = CloseIfSupported(store)
			})

			base := time.Unix(1700000000, 0)
			var ids []string
			for i, status := range []harness.Status{harness.StatusOK, harness.StatusMismatch, harness.StatusOK} {
				run := NewRunRecord(sampleReport(status), base.Add(time.Duration(i)*time.Minute))
				if err := store.SaveRun(ctx, run); err != nil {
					t.Fatalf("save run %d: %v", i, err)
				}
				ids = append(ids, run.ID)
			}

			all, err := store.ListRuns(ctx, 0)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != 3 {
				t.Fatalf("len = %d; want 3", len(all))
			}
			if all[0].ID != ids[2] || all[2].ID != ids[0] {
				t.Fatalf("unexpected order: %+v", all)
			}
			if !all[1].Failed || all[0].Failed {
				t.Fatalf("unexpected failed flags: %+v", all)
			}
			if all[0].Engine != "local" {
				t.Fatalf("engine = %q; want local", all[0].Engine)
			}

			limited, err := store.ListRuns(ctx, 2)
			if err != nil {
				t.Fatalf("list limited: %v", err)
			}
			if len(limited) != 2 {
				t.Fatalf("limited len = %d; want 2", len(limited))
			}
		})
	}
}

func TestStoreRejectsEmptyID(t *testing.T) {
	ctx := context.Background()

	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Init(ctx); err != nil {
				t.Fatalf("init: %v", err)
			}
			t.Cleanup(func() {
				_ = CloseIfSupported(store)
			})

			if err := store.SaveRun(ctx, RunRecord{SchemaVersion: CurrentSchemaVersion}); err == nil {
				t.Fatal("expected error for empty run id")
			}
		})
	}
}

func TestSQLiteStoreRequiresInit(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err := store.SaveRun(context.Background(), NewRunRecord(sampleReport(harness.StatusOK), time.Now())); err == nil {
		t.Fatal("expected error before init")
	}

	if err := NewSQLiteStore("").Init(context.Background()); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")

	first := NewSQLiteStore(path)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	run := NewRunRecord(sampleReport(harness.StatusOK), time.Now())
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	second := NewSQLiteStore(path)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("reinit: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if _, ok, err := second.GetRun(ctx, run.ID); err != nil || !ok {
		t.Fatalf("reopened store lost run: ok=%v err=%v", ok, err)
	}
}

func TestDecodeRunVersionMismatch(t *testing.T) {
	payload, err := EncodeRun(RunRecord{SchemaVersion: CurrentSchemaVersion + 1, ID: "x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := DecodeRun(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("err = %v; want ErrVersionMismatch", err)
	}
}

func TestDecodeRunRejectsMissingReport(t *testing.T) {
	payload, err := EncodeRun(RunRecord{SchemaVersion: CurrentSchemaVersion, ID: "x"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	if _, err := DecodeRun(payload); !errors.Is(err, ErrMissingReport) {
		t.Fatalf("err = %v; want ErrMissingReport", err)
	}
}

func TestEncodeRunNonFiniteMetrics(t *testing.T) {
	rep := sampleReport(harness.StatusMismatch)
	rep.Variants[0].Observed = math.NaN()
	rep.Variants[0].Upper = math.Inf(1)
	rep.Variants[0].Gradient = &engine.GradientReport{Checked: 1, Failed: 1, MaxError: math.Inf(-1)}

	payload, err := EncodeRun(NewRunRecord(rep, time.Unix(1700000000, 0)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	run, err := DecodeRun(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	v := run.Report.Variants[0]
	if !math.IsNaN(v.Observed) || !math.IsInf(v.Upper, 1) || !math.IsInf(v.Gradient.MaxError, -1) {
		t.Fatalf("non-finite values lost: %+v grad=%+v", v, v.Gradient)
	}

	if v.Reference != 315.25 {
		t.Fatalf("reference = %v; want 315.25", v.Reference)
	}
}

func TestNewStore(t *testing.T) {
	for _, kind := range []string{"", "memory"} {
		store, err := NewStore(kind, "")
		if err != nil {
			t.Fatalf("NewStore(%q): %v", kind, err)
		}
		if _, ok := store.(*MemoryStore); !ok {
			t.Fatalf("NewStore(%q) = %T; want *MemoryStore", kind, store)
		}
	}

	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatalf("NewStore(sqlite): %v", err)
	}
	if _, ok := store.(*SQLiteStore); !ok {
		t.Fatalf("NewStore(sqlite) = %T; want *SQLiteStore", store)
	}

	if _, err := NewStore("postgres", ""); err == nil {
		t.Fatal("expected error for unsupported backend")
	}

	if err := CloseIfSupported(NewMemoryStore()); err != nil {
		t.Fatalf("CloseIfSupported(memory): %v", err)
	}
}
