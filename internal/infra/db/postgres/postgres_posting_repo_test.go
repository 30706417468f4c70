//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"

	"jobsieve/internal/domain"
	"jobsieve/internal/domain/model"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestPostingRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}

	ctx := context.Background()
	repo := NewPostingRepo(testPool)

	t.Run("upsert creates then merges by URL", func(t *testing.T) {
		cleanup(t)

		p := model.NewPosting("Senior Engineer", "https://example.com/jobs/42", nil)
		id1, isNew, err := repo.Upsert(ctx, nil, p)
		if err != nil {
			t.Fatalf("first upsert: %v", err)
		}
		if !isNew {
			t.Error("first upsert should report isNew")
		}

		// Re-discovery with extra fields merges into the same row.
		again := model.NewPosting("Senior Engineer", "https://example.com/jobs/42", nil)
		again.Salary.Min = i64Ptr(90000)
		id2, isNew, err := repo.Upsert(ctx, nil, again)
		if err != nil {
			t.Fatalf("second upsert: %v", err)
		}
		if isNew {
			t.Error("second upsert should not report isNew")
		}
		if id1 != id2 {
			t.Errorf("expected same row, got %s and %s", id1, id2)
		}

		got, err := repo.FindByID(ctx, nil, id1)
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		if got.Salary.Min == nil || *got.Salary.Min != 90000 {
			t.Errorf("salary min not merged: %+v", got.Salary)
		}
	})

	t.Run("merge never replaces non-null with null", func(t *testing.T) {
		cleanup(t)

		p := model.NewPosting("Backend Dev", "https://example.com/jobs/7", nil)
		p.Description = strPtr("A long description of the role.")
		p.Salary.Min = i64Ptr(50000)
		id, _, err := repo.Upsert(ctx, nil, p)
		if err != nil {
			t.Fatal(err)
		}

		// Same URL again, now without description but with a max salary.
		bare := model.NewPosting("Backend Dev", "https://example.com/jobs/7", nil)
		bare.Salary.Max = i64Ptr(80000)
		if _, _, err := repo.Upsert(ctx, nil, bare); err != nil {
			t.Fatal(err)
		}

		got, err := repo.FindByID(ctx, nil, id)
		if err != nil {
			t.Fatal(err)
		}
		if got.Description == nil || *got.Description != "A long description of the role." {
			t.Error("description was downgraded by null merge")
		}
		if got.Salary.Min == nil || *got.Salary.Min != 50000 {
			t.Error("salary min lost")
		}
		if got.Salary.Max == nil || *got.Salary.Max != 80000 {
			t.Error("salary max not merged")
		}
	})

	t.Run("state transitions are forward-only", func(t *testing.T) {
		cleanup(t)

		p := model.NewPosting("QA", "https://example.com/jobs/9", nil)
		id, _, _ := repo.Upsert(ctx, nil, p)

		if err := repo.SetState(ctx, nil, id, model.ProcessingStateCompleted); err != nil {
			t.Fatal(err)
		}
		// A redelivered task must not drag it back to processing.
		if err := repo.SetState(ctx, nil, id, model.ProcessingStateProcessing); err != nil {
			t.Fatal(err)
		}
		got, _ := repo.FindByID(ctx, nil, id)
		if got.State != model.ProcessingStateCompleted {
			t.Errorf("state regressed to %s", got.State)
		}
	})

	t.Run("embedding listing respects the model tag", func(t *testing.T) {
		cleanup(t)

		a := model.NewPosting("A", "https://example.com/jobs/a", nil)
		b := model.NewPosting("B", "https://example.com/jobs/b", nil)
		aID, _, _ := repo.Upsert(ctx, nil, a)
		bID, _, _ := repo.Upsert(ctx, nil, b)

		if err := repo.SetEmbedding(ctx, nil, aID, []float32{1, 0}, "model-x"); err != nil {
			t.Fatal(err)
		}
		if err := repo.SetEmbedding(ctx, nil, bID, []float32{0, 1}, "model-y"); err != nil {
			t.Fatal(err)
		}

		embedded, err := repo.ListEmbedded(ctx, nil, "model-x", true)
		if err != nil {
			t.Fatal(err)
		}
		if len(embedded) != 1 || embedded[0].ID != aID {
			t.Errorf("expected only model-x posting, got %d rows", len(embedded))
		}

		// b's vector is under another tag, so it needs recomputation.
		missing, err := repo.ListWithoutEmbedding(ctx, nil, "model-x", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(missing) != 1 || missing[0].ID != bID {
			t.Errorf("expected stale-tag posting in missing set, got %d rows", len(missing))
		}
	})

	t.Run("blacklist flag toggles", func(t *testing.T) {
		cleanup(t)

		p := model.NewPosting("X", "https://example.com/jobs/x", nil)
		id, _, _ := repo.Upsert(ctx, nil, p)
		if err := repo.SetBlacklisted(ctx, nil, id, true); err != nil {
			t.Fatal(err)
		}
		got, err := repo.FindByID(ctx, nil, id)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Blacklisted {
			t.Error("expected posting blacklisted")
		}
		if err := repo.SetBlacklisted(ctx, nil, id, false); err != nil {
			t.Fatal(err)
		}
		got, _ = repo.FindByID(ctx, nil, id)
		if got.Blacklisted {
			t.Error("expected blacklist flag cleared")
		}
	})

	t.Run("delete missing posting reports not found", func(t *testing.T) {
		cleanup(t)
		err := repo.Delete(ctx, nil, "00000000-0000-0000-0000-000000000000")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
