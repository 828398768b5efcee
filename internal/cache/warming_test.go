package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

type mockScatterRenderer struct {
	mu    sync.Mutex
	years []int
	fail  map[int]bool
}

func (m *mockScatterRenderer) ScatterJSON(ctx context.Context, year int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.years = append(m.years, year)
	if m.fail[year] {
		return nil, errors.New("render failed")
	}
	return []byte("{}"), nil
}

func TestYears(t *testing.T) {
	got := Years(2018, 2021)
	if len(got) != 4 || got[0] != 2018 || got[3] != 2021 {
		t.Errorf("Years(2018, 2021) = %v", got)
	}
	if Years(2021, 2018) != nil {
		t.Error("Years() with reversed bounds should be nil")
	}
}

func TestWarmer_Warm_Success(t *testing.T) {
	r := &mockScatterRenderer{}
	w := NewWarmer(r, nil)

	if err := w.Warm(context.Background(), Years(2000, 2009)); err != nil {
		t.Fatalf("Warm() error = %v, want nil", err)
	}
	if len(r.years) != 10 {
		t.Errorf("rendered %d years, want 10", len(r.years))
	}
}

func TestWarmer_Warm_Empty(t *testing.T) {
	w := NewWarmer(&mockScatterRenderer{}, nil)
	if err := w.Warm(context.Background(), nil); err != nil {
		t.Fatalf("Warm(nil) error = %v, want nil", err)
	}
}

func TestWarmer_Warm_RendererError(t *testing.T) {
	r := &mockScatterRenderer{fail: map[int]bool{2001: true}}
	w := NewWarmer(r, nil)

	err := w.Warm(context.Background(), []int{2000, 2001})
	if err == nil {
		t.Fatal("Warm() error = nil, want non-nil")
	}
	if !strings.Contains(err.Error(), "warm 2001") {
		t.Errorf("Warm() error = %q, want failing year named", err)
	}
}
