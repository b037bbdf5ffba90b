package tracker

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"pku-kitchen/internal/core/phe"
)

func TestDailyTracker(t *testing.T) {
	t.Run("Given two meals When added Then the total accumulates", func(t *testing.T) {
		tr := NewDailyTracker()

		if got := tr.AddMeal(MealEntry{MealType: "Breakfast", Ingredients: []string{"apple"}, PheMg: 120}); got != 120 {
			t.Errorf("expected 120, got %v", got)
		}
		if got := tr.AddMeal(MealEntry{Ingredients: []string{"rice"}, PheMg: 200}); got != 320 {
			t.Errorf("expected 320, got %v", got)
		}

		snap := tr.Snapshot()
		if snap.MealsCount != 2 || snap.TotalPheMg != 320 {
			t.Errorf("unexpected snapshot: %+v", snap)
		}
		if snap.Meals[1].MealType != DefaultMealType {
			t.Errorf("expected default meal type, got %s", snap.Meals[1].MealType)
		}
		if snap.Meals[0].ID == "" || snap.Meals[0].RecordedAt.IsZero() {
			t.Errorf("expected id and timestamp to be set: %+v", snap.Meals[0])
		}
		if snap.Band != phe.BandWithin || snap.LimitExceeded {
			t.Errorf("expected within range, got %s exceeded=%v", snap.Band, snap.LimitExceeded)
		}
	})

	t.Run("Given a total above 500 When snapshotting Then the limit is flagged", func(t *testing.T) {
		tr := NewDailyTracker()
		tr.AddMeal(MealEntry{PheMg: 300})
		tr.AddMeal(MealEntry{PheMg: 250})

		snap := tr.Snapshot()
		if !snap.LimitExceeded || snap.Band != phe.BandAbove {
			t.Errorf("expected limit exceeded, got %+v", snap)
		}
	})

	t.Run("Given recorded meals When reset Then total and log are cleared", func(t *testing.T) {
		tr := NewDailyTracker()
		tr.AddMeal(MealEntry{PheMg: 80})

		if got := tr.Reset(); got != 0 {
			t.Errorf("expected 0, got %v", got)
		}
		snap := tr.Snapshot()
		if snap.TotalPheMg != 0 || len(snap.Meals) != 0 {
			t.Errorf("expected empty day, got %+v", snap)
		}
	})

	t.Run("Given a snapshot When the caller mutates it Then the tracker is unaffected", func(t *testing.T) {
		tr := NewDailyTracker()
		ingredients := []string{"banana"}
		tr.AddMeal(MealEntry{Ingredients: ingredients, PheMg: 10})
		ingredients[0] = "cheese"

		snap := tr.Snapshot()
		snap.Meals[0].MealType = "changed"
		if again := tr.Snapshot(); again.Meals[0].MealType == "changed" || again.Meals[0].Ingredients[0] != "banana" {
			t.Errorf("tracker state leaked: %+v", again.Meals[0])
		}
	})

	t.Run("Given a fixed clock When adding Then the timestamp comes from it", func(t *testing.T) {
		tr := NewDailyTracker()
		fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
		tr.now = func() time.Time { return fixed }

		tr.AddMeal(MealEntry{PheMg: 1})
		if got := tr.Snapshot().Meals[0].RecordedAt; !got.Equal(fixed) {
			t.Errorf("expected %v, got %v", fixed, got)
		}
	})
}

func TestDailyTracker_ConcurrentAdds(t *testing.T) {
	tr := NewDailyTracker()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.AddMeal(MealEntry{PheMg: 2})
		}()
	}
	wg.Wait()

	if tr.Total() != 100 || tr.Snapshot().MealsCount != 50 {
		t.Errorf("expected 100 mg over 50 meals, got %v / %d", tr.Total(), tr.Snapshot().MealsCount)
	}
}

func TestDailyTracker_RecordMealSnapshot(t *testing.T) {
	tr := NewDailyTracker()
	snapshots := make([]Snapshot, 40)

	var wg sync.WaitGroup
	for i := range snapshots {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snapshots[i] = tr.RecordMeal(MealEntry{MealType: fmt.Sprintf("meal-%d", i), PheMg: 5})
		}()
	}
	wg.Wait()

	seen := make(map[int]bool)
	for i, s := range snapshots {
		if s.TotalPheMg != float64(s.MealsCount)*5 {
			t.Errorf("meal %d: total %v does not match %d meals", i, s.TotalPheMg, s.MealsCount)
		}
		if last := s.Meals[len(s.Meals)-1]; last.MealType != fmt.Sprintf("meal-%d", i) {
			t.Errorf("meal %d: snapshot ends with %s, another meal slipped in", i, last.MealType)
		}
		if seen[s.MealsCount] {
			t.Errorf("meal count %d returned twice", s.MealsCount)
		}
		seen[s.MealsCount] = true
	}
}
