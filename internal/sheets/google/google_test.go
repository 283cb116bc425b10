package google

import (
	"math"
	"testing"

	"sakelog/internal/core"
)

func ptr(f float64) *float64 { return &f }

func TestPostRows(t *testing.T) {
	comment := "after work"
	post := core.PostWithBeverages{
		ID:      7,
		Date:    "2024-06-15",
		Comment: &comment,
		Beverages: []core.BeverageAmount{
			{BeverageID: 1, BeverageName: "Lager", Amount: 500, AlcoholContent: ptr(5.0)},
			{BeverageID: 2, BeverageName: "Soda Water", Amount: 350},
		},
	}

	rows := postRows(post, 3)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	first := rows[0]
	if first[0] != "2024-06-15" || first[1] != "Lager" {
		t.Errorf("unexpected first row: %v", first)
	}
	if grams, ok := first[4].(float64); !ok || math.Abs(grams-20.0) > 1e-9 {
		t.Errorf("expected 20g of alcohol, got %v", first[4])
	}
	if first[5] != "after work" || first[6] != int64(7) || first[7] != int64(3) {
		t.Errorf("unexpected trailing columns: %v", first)
	}

	second := rows[1]
	if second[3] != 0.0 || second[4] != 0.0 {
		t.Errorf("non-alcoholic row should carry zero ABV and grams: %v", second)
	}
}

func TestPostRowsEmpty(t *testing.T) {
	rows := postRows(core.PostWithBeverages{ID: 1, Date: "2024-06-15"}, 1)
	if len(rows) != 0 {
		t.Fatalf("expected no rows for a post without amounts, got %d", len(rows))
	}
}
