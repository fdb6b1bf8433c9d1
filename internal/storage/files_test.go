package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"rentsplit/internal/core"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	return s
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestFileStoreReadsLegacyDocuments(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	mustWrite(t, filepath.Join(s.Dir(), "server.json"), `{"state":"active","mates":[{"name":"Alice","rent":600},{"name":"Bob","rent":612.5}]}`)
	mustWrite(t, filepath.Join(s.Dir(), "ledger", "active.json"), `{
  "date": "2024-03",
  "list": [
    {"whoPaid": "Alice", "amount": 100, "portions": [50, 50], "date": "2024-03-04", "deleted": false},
    {"whoPaid": "Bob", "amount": 20, "portions": [10, 10], "date": "2024-03-05", "deleted": true}
  ],
  "totalRent": 9999
}`)

	st, err := s.LoadServer(ctx)
	if err != nil {
		t.Fatalf("LoadServer: %v", err)
	}
	if st.State != core.StateActive || st.Mates[1].Rent.Cents != 61250 {
		t.Fatalf("server = %+v", st)
	}

	l, err := s.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if l.Date != core.NewMonth(2024, time.March) || len(l.List) != 2 {
		t.Fatalf("ledger = %+v", l)
	}
	if l.List[0].ID != 1 || l.List[1].ID != 2 {
		t.Fatalf("legacy expenses should get positional ids: %+v", l.List)
	}
	if l.List[0].Amount.Cents != 10000 || !l.List[1].Deleted {
		t.Fatalf("expenses = %+v", l.List)
	}
}

func TestFileStoreSaveKeepsSchema(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	l := core.Ledger{
		Date: core.NewMonth(2024, time.April),
		List: []core.Expense{{ID: 1, WhoPaid: "Alice", Amount: core.Money{Cents: 1050}, Portions: []core.Money{{Cents: 525}, {Cents: 525}}, Date: core.NewDate(2024, 4, 1)}},
	}
	if err := s.SaveActive(ctx, l); err != nil {
		t.Fatalf("SaveActive: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(s.Dir(), "ledger", "active.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw["date"] != "2024-04" {
		t.Fatalf("date = %v", raw["date"])
	}
	if _, ok := raw["balancedRent"]; ok {
		t.Fatal("uncomputed ledger should not carry balancedRent")
	}
	exp := raw["list"].([]any)[0].(map[string]any)
	for _, key := range []string{"whoPaid", "amount", "portions", "date", "deleted"} {
		if _, ok := exp[key]; !ok {
			t.Fatalf("expense missing %q: %v", key, exp)
		}
	}
	if exp["amount"].(float64) != 10.5 || exp["date"] != "2024-04-01" {
		t.Fatalf("expense = %v", exp)
	}

	back, err := s.LoadActive(ctx)
	if err != nil {
		t.Fatalf("LoadActive: %v", err)
	}
	if !reflect.DeepEqual(back.List, l.List) {
		t.Fatalf("round trip list = %+v", back.List)
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Join(s.Dir(), "ledger"))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", e.Name())
		}
	}
}

func TestFileStoreArchive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	if err := s.ArchiveActive(ctx, "Mar 2024"); !core.IsNotFound(err) {
		t.Fatalf("archiving without active ledger: %v", err)
	}

	l := core.Ledger{Date: core.NewMonth(2024, time.March), List: []core.Expense{}}
	if err := s.SaveActive(ctx, l); err != nil {
		t.Fatalf("SaveActive: %v", err)
	}
	if err := s.ArchiveActive(ctx, "Mar 2024"); err != nil {
		t.Fatalf("ArchiveActive: %v", err)
	}
	mustWrite(t, filepath.Join(s.Dir(), "ledger", "archive", "notes.txt"), "ignored")

	names, err := s.ListArchives(ctx)
	if err != nil || !reflect.DeepEqual(names, []string{"Mar 2024"}) {
		t.Fatalf("ListArchives = %v, %v", names, err)
	}
	got, err := s.LoadArchive(ctx, "Mar 2024")
	if err != nil || got.Date != l.Date {
		t.Fatalf("LoadArchive = %+v, %v", got, err)
	}

	for _, bad := range []string{"Apr 2024", "../server", "..", "", ".hidden", `a\b`} {
		if _, err := s.LoadArchive(ctx, bad); !core.IsNotFound(err) {
			t.Errorf("LoadArchive(%q) = %v, want NotFoundError", bad, err)
		}
	}
}

func TestFileStoreTemplate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	blank, err := s.LoadTemplate(ctx)
	if err != nil || blank.List == nil || len(blank.List) != 0 {
		t.Fatalf("missing template should give blank ledger: %+v, %v", blank, err)
	}

	mustWrite(t, filepath.Join(s.Dir(), "ledger", "template.json"), `{"date":"yyyy-mm","list":[]}`)
	tpl, err := s.LoadTemplate(ctx)
	if err != nil || !tpl.Date.IsZero() {
		t.Fatalf("template = %+v, %v", tpl, err)
	}

	mustWrite(t, filepath.Join(s.Dir(), "ledger", "template.json"), `{"date":"placeholder","list":[],"baseRent":{}}`)
	if tpl, err := s.LoadTemplate(ctx); err != nil || !tpl.Date.IsZero() {
		t.Fatalf("placeholder template = %+v, %v", tpl, err)
	}

	mustWrite(t, filepath.Join(s.Dir(), "ledger", "template.json"), `{"date":`)
	if _, err := s.LoadTemplate(ctx); err == nil {
		t.Fatal("expected decode error for truncated template")
	}
}

func TestFileStoreActiveMonth(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	active := filepath.Join(s.Dir(), "ledger", "active.json")

	mustWrite(t, active, `{"date":"2024-3","list":[]}`)
	l, err := s.LoadActive(ctx)
	if err != nil || l.Date != core.NewMonth(2024, time.March) {
		t.Fatalf("unpadded month = %+v, %v", l, err)
	}

	// An unreadable month must not silently become the current one at rollover.
	mustWrite(t, active, `{"date":"March","list":[]}`)
	if _, err := s.LoadActive(ctx); err == nil {
		t.Fatal("expected decode error for a bad active ledger month")
	}
}

func TestFileStoreMissingServer(t *testing.T) {
	s := newStore(t)
	if _, err := s.LoadServer(context.Background()); !core.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
