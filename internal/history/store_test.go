package history

import (
	"path/filepath"
	"testing"
	"time"

	"smartpot/internal/logger"
	"smartpot/internal/models"
)

func testStore(t *testing.T) (*Store, Storage) {
	t.Helper()
	storage := NewMemoryStorage()
	return NewStore(storage, logger.Get(logger.ErrorLevel)), storage
}

func TestStore_AppendAssignsSequentialIndices(t *testing.T) {
	s, _ := testStore(t)
	base := time.Date(2026, 3, 1, 9, 5, 7, 0, time.UTC)

	for i, temp := range []float64{20.04, 54.55, 91.26} {
		p := s.Append(temp, base.Add(time.Duration(i)*time.Second))
		if p.Index != i {
			t.Fatalf("point %d: expected index %d, got %d", i, i, p.Index)
		}
	}

	points := s.Points()
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Index != i {
			t.Fatalf("indices must be exactly 0..len-1, got %d at %d", p.Index, i)
		}
	}
	if points[0].Temp != 20.0 || points[1].Temp != 54.6 || points[2].Temp != 91.3 {
		t.Fatalf("temps must round to 1 decimal, got %v %v %v",
			points[0].Temp, points[1].Temp, points[2].Temp)
	}
	if points[0].DisplayTime != "9:05:07" {
		t.Fatalf("unexpected display time %q", points[0].DisplayTime)
	}
	if points[0].Time != "2026-03-01T09:05:07Z" {
		t.Fatalf("unexpected ISO time %q", points[0].Time)
	}
}

func TestStore_HistoryRoundTripsThroughStorage(t *testing.T) {
	storage := NewMemoryStorage()
	log := logger.Get(logger.ErrorLevel)

	s := NewStore(storage, log)
	base := time.Now()
	for i := 0; i < 4; i++ {
		s.Append(float64(20+i), base.Add(time.Duration(i)*time.Second))
	}

	restored := NewStore(storage, log)
	want := s.Points()
	got := restored.Points()
	if len(got) != len(want) {
		t.Fatalf("expected %d restored points, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("point %d differs after restore: %v vs %v", i, got[i], want[i])
		}
	}
}

func TestStore_CorruptCacheLoadsAsEmpty(t *testing.T) {
	storage := NewMemoryStorage()
	storage.Set(HistoryKey, "[{broken json")

	s := NewStore(storage, logger.Get(logger.ErrorLevel))
	if s.Len() != 0 {
		t.Fatalf("corrupt cache must load as empty history")
	}
}

func TestStore_StatsDegradeToLiveTemperature(t *testing.T) {
	s, _ := testStore(t)
	s.SetLive(37.25)

	if got := s.MaxTemperature(); got != 37.25 {
		t.Fatalf("expected live max %v, got %v", 37.25, got)
	}
	if got := s.AvgTemp(); got != "37.2" {
		t.Fatalf("expected live avg \"37.2\", got %q", got)
	}
}

func TestStore_MaxAndAvgOverHistory(t *testing.T) {
	s, _ := testStore(t)
	now := time.Now()
	for _, temp := range []float64{20, 30, 100, 50} {
		s.Append(temp, now)
	}

	if got := s.MaxTemperature(); got != 100 {
		t.Fatalf("expected max 100, got %v", got)
	}
	if got := s.AvgTemp(); got != "50.0" {
		t.Fatalf("expected avg \"50.0\", got %q", got)
	}
}

func TestStore_ResetClearsHistoryAndCache(t *testing.T) {
	s, storage := testStore(t)
	s.Append(50, time.Now())
	s.Reset()

	if s.Len() != 0 {
		t.Fatalf("expected empty history after reset")
	}
	if _, ok := storage.Get(HistoryKey); ok {
		t.Fatalf("expected history cache cleared")
	}
}

func TestStore_StreamHandlerTracksConnectivity(t *testing.T) {
	s, _ := testStore(t)
	h := s.StreamHandler()

	h.OnConnected()
	connected, errMsg := s.Connected()
	if !connected || errMsg != "" {
		t.Fatalf("expected connected with no error, got %v %q", connected, errMsg)
	}

	h.OnReading(models.Reading{Temperature: 91.17})
	if s.Len() != 1 {
		t.Fatalf("expected reading appended")
	}
	if got := s.Points()[0].Temp; got != 91.2 {
		t.Fatalf("expected rounded temp 91.2, got %v", got)
	}

	h.OnError("broker unreachable")
	connected, errMsg = s.Connected()
	if connected || errMsg != "broker unreachable" {
		t.Fatalf("expected disconnected with message, got %v %q", connected, errMsg)
	}
	if s.Len() != 1 {
		t.Fatalf("history must be retained through errors")
	}

	s.MarkDisconnected()
	if connected, errMsg = s.Connected(); connected || errMsg == "" {
		t.Fatalf("expected generic connectivity error")
	}
}

func TestFileStorage_RoundTripAndCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	s := NewFileStorage(path)
	s.Set("k", "v")

	reloaded := NewFileStorage(path)
	if v, ok := reloaded.Get("k"); !ok || v != "v" {
		t.Fatalf("expected restored value, got %q (%v)", v, ok)
	}

	reloaded.Delete("k")
	again := NewFileStorage(path)
	if _, ok := again.Get("k"); ok {
		t.Fatalf("expected deleted key to stay deleted across reload")
	}
}
