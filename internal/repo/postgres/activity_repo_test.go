package postgres

import (
	"testing"
	"time"

	"github.com/ivankudzin/jobswipe/internal/domain/model"
)

func TestActivityRowDefaults(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	row := activityRow(model.ActivityEvent{Name: "app_open"}, func() time.Time { return fixed })

	if row[0] != nil {
		t.Fatalf("anonymous event should have NULL user, got %v", row[0])
	}
	if string(row[2].([]byte)) != "{}" {
		t.Fatalf("empty payload should become {}, got %s", row[2])
	}
	if !row[3].(time.Time).Equal(fixed) {
		t.Fatalf("missing time should default to now, got %v", row[3])
	}
}

func TestActivityRepoWithoutPool(t *testing.T) {
	repo := NewActivityRepo(nil)
	if err := repo.InsertBatch(t.Context(), []model.ActivityEvent{{Name: "x"}}); err != nil {
		t.Fatalf("insert without pool: %v", err)
	}
	if n, err := repo.PruneBefore(t.Context(), time.Now()); err != nil || n != 0 {
		t.Fatalf("prune without pool: n=%d err=%v", n, err)
	}
}
