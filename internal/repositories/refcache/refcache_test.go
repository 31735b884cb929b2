package refcache

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/catalix/pim-api/internal/domain"
)

type stubReference struct {
	entries map[int64]domain.Unit
	finds   int
	findAll int
}

func (s *stubReference) Find(_ context.Context, id int64) (domain.Unit, error) {
	s.finds++
	unit, ok := s.entries[id]
	if !ok {
		return domain.Unit{}, errors.New("not found")
	}
	return unit, nil
}

func (s *stubReference) FindAll(context.Context) ([]domain.Unit, error) {
	s.findAll++
	units := make([]domain.Unit, 0, len(s.entries))
	for _, unit := range s.entries {
		units = append(units, unit)
	}
	return units, nil
}

type stubCurrencies struct {
	byCode map[string]domain.Currency
	calls  int
}

func (s *stubCurrencies) Find(context.Context, int64) (domain.Currency, error) {
	return domain.Currency{}, errors.New("not found")
}

func (s *stubCurrencies) FindAll(context.Context) ([]domain.Currency, error) {
	return nil, nil
}

func (s *stubCurrencies) FindByCode(_ context.Context, code string) (domain.Currency, error) {
	s.calls++
	currency, ok := s.byCode[code]
	if !ok {
		return domain.Currency{}, errors.New("not found")
	}
	return currency, nil
}

func TestCachedReferenceFind(t *testing.T) {
	inner := &stubReference{entries: map[int64]domain.Unit{
		1: {ID: 1, Names: map[string]string{"en": "piece"}},
	}}
	cached, err := NewCachedReference[domain.Unit]("units", inner, time.Minute)
	if err != nil {
		t.Fatalf("NewCachedReference: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		unit, err := cached.Find(ctx, 1)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if unit.ID != 1 {
			t.Fatalf("unexpected unit %#v", unit)
		}
	}
	if inner.finds != 1 {
		t.Fatalf("expected 1 backing call, got %d", inner.finds)
	}

	t.Run("misses are not cached", func(t *testing.T) {
		if _, err := cached.Find(ctx, 99); err == nil {
			t.Fatal("expected error")
		}
		if _, err := cached.Find(ctx, 99); err == nil {
			t.Fatal("expected error")
		}
		if inner.finds != 3 {
			t.Fatalf("expected 3 backing calls, got %d", inner.finds)
		}
	})

	t.Run("invalidate drops entries", func(t *testing.T) {
		cached.Invalidate()
		if _, err := cached.Find(ctx, 1); err != nil {
			t.Fatalf("Find: %v", err)
		}
		if inner.finds != 4 {
			t.Fatalf("expected reload after invalidate, got %d calls", inner.finds)
		}
	})
}

func TestCachedReferenceFindAll(t *testing.T) {
	inner := &stubReference{entries: map[int64]domain.Unit{
		1: {ID: 1},
		2: {ID: 2},
	}}
	cached, err := NewCachedReference[domain.Unit]("units", inner, time.Minute)
	if err != nil {
		t.Fatalf("NewCachedReference: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		units, err := cached.FindAll(ctx)
		if err != nil {
			t.Fatalf("FindAll: %v", err)
		}
		if len(units) != 2 {
			t.Fatalf("expected 2 units, got %d", len(units))
		}
	}
	if inner.findAll != 1 {
		t.Fatalf("expected 1 backing call, got %d", inner.findAll)
	}
}

func TestCachedCurrenciesFindByCode(t *testing.T) {
	inner := &stubCurrencies{byCode: map[string]domain.Currency{
		"EUR": {ID: 1, Code: "EUR", Symbol: "€"},
	}}
	cached, err := NewCachedCurrencies(inner, time.Minute)
	if err != nil {
		t.Fatalf("NewCachedCurrencies: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		currency, err := cached.FindByCode(ctx, "EUR")
		if err != nil {
			t.Fatalf("FindByCode: %v", err)
		}
		if currency.Code != "EUR" {
			t.Fatalf("unexpected currency %#v", currency)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 backing call, got %d", inner.calls)
	}
}

func TestNewCachedReferenceValidation(t *testing.T) {
	if _, err := NewCachedReference[domain.Unit]("", &stubReference{}, time.Minute); err == nil {
		t.Fatal("expected error for empty name")
	}
	if _, err := NewCachedReference[domain.Unit]("units", nil, time.Minute); err == nil {
		t.Fatal("expected error for nil inner repository")
	}
}
