package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonMunkholm/exchange/internal/exchange"
)

func TestMemoryInsertList(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	rec := exchange.Record{"code": "E1", "qty": 10.0}
	n, err := m.Insert(ctx, "equipment", []exchange.Record{rec, {"code": "E2"}})
	if err != nil || n != 2 {
		t.Fatalf("Insert() = %d, %v", n, err)
	}
	rec["code"] = "mutated"

	got, err := m.List(ctx, "equipment")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0]["code"] != "E1" || got[1]["code"] != "E2" {
		t.Errorf("List() = %v", got)
	}

	other, _ := m.List(ctx, "translations")
	if len(other) != 0 {
		t.Errorf("entities should be isolated, got %v", other)
	}
}

func TestMemoryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewMemory().Insert(ctx, "x", []exchange.Record{{}}); !errors.Is(err, context.Canceled) {
		t.Errorf("Insert() error = %v", err)
	}
}

type failingStore struct{ err error }

func (f failingStore) Insert(context.Context, string, []exchange.Record) (int, error) {
	return 0, f.err
}

func (f failingStore) List(context.Context, string) ([]exchange.Record, error) {
	return nil, f.err
}

func TestHandler(t *testing.T) {
	t.Run("stores records", func(t *testing.T) {
		m := NewMemory()
		h := Handler(m, "equipment")
		if err := h(context.Background(), []exchange.Record{{"code": "E1"}}); err != nil {
			t.Fatalf("handler error = %v", err)
		}
		got, _ := m.List(context.Background(), "equipment")
		if len(got) != 1 {
			t.Errorf("stored %d records, want 1", len(got))
		}
	})

	t.Run("wraps store failure", func(t *testing.T) {
		errDown := errors.New("connection refused")
		h := Handler(failingStore{err: errDown}, "equipment")
		err := h(context.Background(), []exchange.Record{{"code": "E1"}})
		if !errors.Is(err, errDown) {
			t.Errorf("handler error = %v", err)
		}
	})
}

func TestPayloadEncoding(t *testing.T) {
	rec := exchange.Record{
		"tag":       "EQ-1",
		"cost":      1234.5,
		"critical":  true,
		"installed": time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC),
		"serviced":  time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC),
		"notes":     nil,
	}

	raw, err := encodePayload(rec)
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	got, err := decodePayload(raw)
	if err != nil {
		t.Fatalf("decodePayload() error = %v", err)
	}

	tests := []struct {
		key  string
		want any
	}{
		{key: "tag", want: "EQ-1"},
		{key: "cost", want: 1234.5},
		{key: "critical", want: true},
		{key: "installed", want: "2020-02-29"},
		{key: "notes", want: nil},
	}
	for _, tt := range tests {
		if got[tt.key] != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.key, got[tt.key], tt.want)
		}
	}

	serviced, err := exchange.ParseDate(exchange.FormatValue(got["serviced"]))
	if err != nil || !serviced.Equal(time.Date(2024, 1, 2, 8, 30, 0, 0, time.UTC)) {
		t.Errorf("serviced = %v (%v)", got["serviced"], err)
	}
}
