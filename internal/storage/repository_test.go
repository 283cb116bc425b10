package storage

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"sakelog/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func createBeverage(t *testing.T, repo *SQLiteRepository, name string, abv *float64, categoryID int64) int64 {
	t.Helper()
	id, err := repo.CreateBeverage(context.Background(), core.CreateBeverageRequest{
		Name:           name,
		AlcoholContent: abv,
		CategoryID:     categoryID,
	})
	if err != nil {
		t.Fatalf("CreateBeverage(%q) failed: %v", name, err)
	}
	return id
}

func ptr(f float64) *float64 { return &f }

func TestSeededCategories(t *testing.T) {
	repo := newTestRepo(t)

	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(cats) != 9 {
		t.Fatalf("expected 9 seeded categories, got %d", len(cats))
	}
	if cats[0].Name != "Beer" {
		t.Errorf("expected Beer first, got %q", cats[0].Name)
	}
	for i := 1; i < len(cats); i++ {
		if cats[i].DisplayOrder < cats[i-1].DisplayOrder {
			t.Errorf("categories out of order at %d: %d after %d",
				i, cats[i].DisplayOrder, cats[i-1].DisplayOrder)
		}
	}
}

func TestCreateAndListBeverages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createBeverage(t, repo, "Pale Lager", ptr(5.0), 1)
	createBeverage(t, repo, "Amber Ale", ptr(5.5), 1)
	createBeverage(t, repo, "Junmai", ptr(15.0), 7)

	all, err := repo.ListBeverages(ctx)
	if err != nil {
		t.Fatalf("ListBeverages failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 beverages, got %d", len(all))
	}
	if all[0].Name != "Amber Ale" {
		t.Errorf("expected name ordering, got %q first", all[0].Name)
	}
	if all[0].CategoryName != "Beer" {
		t.Errorf("expected joined category name Beer, got %q", all[0].CategoryName)
	}

	beer, err := repo.ListBeveragesByCategory(ctx, 1)
	if err != nil {
		t.Fatalf("ListBeveragesByCategory failed: %v", err)
	}
	if len(beer) != 2 {
		t.Fatalf("expected 2 beers, got %d", len(beer))
	}
}

func TestCreateBeverageUnknownCategory(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreateBeverage(context.Background(), core.CreateBeverageRequest{
		Name:       "Orphan",
		CategoryID: 999,
	})
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}
}

func TestDeleteCategoryInUse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	createBeverage(t, repo, "Stout", ptr(4.5), 1)

	if err := repo.DeleteCategory(ctx, 1); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}

	// Category 9 has no beverages and can go.
	if err := repo.DeleteCategory(ctx, 9); err != nil {
		t.Fatalf("DeleteCategory(9) failed: %v", err)
	}
	if err := repo.DeleteCategory(ctx, 9); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound on second delete, got %v", err)
	}
}

func TestDeleteBeverageInUse(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bevID := createBeverage(t, repo, "Lager", ptr(5.0), 1)
	_, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-01",
		Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 350}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if err := repo.DeleteBeverage(ctx, bevID); !errors.Is(err, ErrBeverageInUse) {
		t.Fatalf("expected ErrBeverageInUse, got %v", err)
	}

	free := createBeverage(t, repo, "Untouched", nil, 1)
	if err := repo.DeleteBeverage(ctx, free); err != nil {
		t.Fatalf("DeleteBeverage failed: %v", err)
	}
}

func TestCreatePostSnapshotsBeverage(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bevID := createBeverage(t, repo, "Original Name", ptr(5.0), 1)
	comment := "after work"
	postID, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-15",
		Comment:   &comment,
		Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 500}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	// Editing the catalog must not rewrite the logged snapshot.
	if err := repo.UpdateBeverage(ctx, bevID, core.CreateBeverageRequest{
		Name:           "Renamed",
		AlcoholContent: ptr(9.0),
		CategoryID:     1,
	}); err != nil {
		t.Fatalf("UpdateBeverage failed: %v", err)
	}

	post, err := repo.GetPost(ctx, postID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if len(post.Beverages) != 1 {
		t.Fatalf("expected 1 amount, got %d", len(post.Beverages))
	}
	ba := post.Beverages[0]
	if ba.BeverageName != "Original Name" {
		t.Errorf("snapshot name changed: %q", ba.BeverageName)
	}
	if ba.AlcoholContent == nil || *ba.AlcoholContent != 5.0 {
		t.Errorf("snapshot alcohol content changed: %v", ba.AlcoholContent)
	}
	if post.Comment == nil || *post.Comment != "after work" {
		t.Errorf("comment lost: %v", post.Comment)
	}
}

func TestCreatePostUnknownBeverage(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.CreatePost(context.Background(), core.CreatePostRequest{
		Date:      "2024-06-15",
		Beverages: []core.BeverageAmountInput{{BeverageID: 42, Amount: 500}},
	})
	if !errors.Is(err, ErrBeverageNotFound) {
		t.Fatalf("expected ErrBeverageNotFound, got %v", err)
	}

	posts, err := repo.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts) != 0 {
		t.Fatalf("failed create left %d posts behind", len(posts))
	}
}

func TestUpdatePostReplacesAmounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	beer := createBeverage(t, repo, "Beer A", ptr(5.0), 1)
	sake := createBeverage(t, repo, "Sake B", ptr(15.0), 7)

	postID, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-15",
		Beverages: []core.BeverageAmountInput{{BeverageID: beer, Amount: 500}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if err := repo.MarkSynced(ctx, postID); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}

	err = repo.UpdatePost(ctx, postID, core.CreatePostRequest{
		Date:      "2024-06-16",
		Beverages: []core.BeverageAmountInput{{BeverageID: sake, Amount: 180}},
	})
	if err != nil {
		t.Fatalf("UpdatePost failed: %v", err)
	}

	post, err := repo.GetPost(ctx, postID)
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if post.Date != "2024-06-16" {
		t.Errorf("date not updated: %q", post.Date)
	}
	if len(post.Beverages) != 1 || post.Beverages[0].BeverageID != sake {
		t.Fatalf("amounts not replaced: %+v", post.Beverages)
	}

	v, err := repo.PostVersion(ctx, postID)
	if err != nil {
		t.Fatalf("PostVersion failed: %v", err)
	}
	if v != 2 {
		t.Errorf("expected version 2 after update, got %d", v)
	}

	pending, err := repo.GetPendingSyncPosts(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPosts failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != postID {
		t.Fatalf("update did not re-queue post for sync: %+v", pending)
	}
}

func TestDeletePostRemovesAmounts(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bevID := createBeverage(t, repo, "Lager", ptr(5.0), 1)
	postID, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-15",
		Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 350}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	if err := repo.DeletePost(ctx, postID); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}
	if _, err := repo.GetPost(ctx, postID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound, got %v", err)
	}
	// The beverage is deletable again once the snapshot rows are gone.
	if err := repo.DeleteBeverage(ctx, bevID); err != nil {
		t.Fatalf("DeleteBeverage after post delete failed: %v", err)
	}

	if err := repo.DeletePost(ctx, postID); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("expected ErrPostNotFound on second delete, got %v", err)
	}
}

func TestListPostsNewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bevID := createBeverage(t, repo, "Lager", ptr(5.0), 1)
	for _, date := range []string{"2024-06-01", "2024-06-20", "2024-06-10"} {
		if _, err := repo.CreatePost(ctx, core.CreatePostRequest{
			Date:      date,
			Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 100}},
		}); err != nil {
			t.Fatalf("CreatePost(%s) failed: %v", date, err)
		}
	}

	posts, err := repo.ListPosts(ctx)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	want := []string{"2024-06-20", "2024-06-10", "2024-06-01"}
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, p := range posts {
		if p.Date != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], p.Date)
		}
	}
}

func TestMonthlyAlcoholIntake(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	beer := createBeverage(t, repo, "Lager", ptr(5.0), 1)
	soda := createBeverage(t, repo, "Soda Water", nil, 9)

	// 500ml at 5% -> 20g of pure alcohol.
	mustCreate := func(date string, inputs ...core.BeverageAmountInput) {
		t.Helper()
		if _, err := repo.CreatePost(ctx, core.CreatePostRequest{Date: date, Beverages: inputs}); err != nil {
			t.Fatalf("CreatePost(%s) failed: %v", date, err)
		}
	}
	mustCreate("2024-06-01", core.BeverageAmountInput{BeverageID: beer, Amount: 500})
	mustCreate("2024-06-01", core.BeverageAmountInput{BeverageID: beer, Amount: 500})
	mustCreate("2024-06-15", core.BeverageAmountInput{BeverageID: soda, Amount: 500})
	mustCreate("2024-07-01", core.BeverageAmountInput{BeverageID: beer, Amount: 500})

	got, err := repo.MonthlyAlcoholIntake(ctx, 2024, 6)
	if err != nil {
		t.Fatalf("MonthlyAlcoholIntake failed: %v", err)
	}
	if math.Abs(got.TotalIntake-40.0) > 1e-9 {
		t.Errorf("expected total 40.0, got %v", got.TotalIntake)
	}
	if got.DrinkingDays != 2 {
		t.Errorf("expected 2 drinking days, got %d", got.DrinkingDays)
	}
	if math.Abs(got.AveragePerDay-40.0/30.0) > 1e-9 {
		t.Errorf("expected average %v, got %v", 40.0/30.0, got.AveragePerDay)
	}

	empty, err := repo.MonthlyAlcoholIntake(ctx, 2024, 5)
	if err != nil {
		t.Fatalf("MonthlyAlcoholIntake(empty month) failed: %v", err)
	}
	if empty.TotalIntake != 0 || empty.DrinkingDays != 0 || empty.AveragePerDay != 0 {
		t.Errorf("expected zero aggregate for empty month, got %+v", empty)
	}
}

func TestSyncLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bevID := createBeverage(t, repo, "Lager", ptr(5.0), 1)
	first, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-01",
		Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 100}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	second, err := repo.CreatePost(ctx, core.CreatePostRequest{
		Date:      "2024-06-02",
		Beverages: []core.BeverageAmountInput{{BeverageID: bevID, Amount: 100}},
	})
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}

	pending, err := repo.GetPendingSyncPosts(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPosts failed: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first {
		t.Fatalf("expected both posts pending oldest first, got %+v", pending)
	}

	if err := repo.MarkSynced(ctx, first); err != nil {
		t.Fatalf("MarkSynced failed: %v", err)
	}
	if err := repo.MarkSyncError(ctx, second); err != nil {
		t.Fatalf("MarkSyncError failed: %v", err)
	}

	pending, err = repo.GetPendingSyncPosts(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncPosts failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending posts, got %+v", pending)
	}
}
