package authoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"sakelog/internal/core"
)

// fakePostWriter records the last request and returns a configurable error.
type fakePostWriter struct {
	created []core.CreatePostRequest
	updated map[int64]core.CreatePostRequest
	err     error
}

func newFakePostWriter() *fakePostWriter {
	return &fakePostWriter{updated: make(map[int64]core.CreatePostRequest)}
}

func (f *fakePostWriter) CreatePost(ctx context.Context, req core.CreatePostRequest) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, req)
	return int64(len(f.created)), nil
}

func (f *fakePostWriter) UpdatePost(ctx context.Context, id int64, req core.CreatePostRequest) error {
	if f.err != nil {
		return f.err
	}
	f.updated[id] = req
	return nil
}

func (f *fakePostWriter) DeletePost(ctx context.Context, id int64) error { return f.err }

func abv(v float64) *float64 { return &v }

func TestNewDraftDefaults(t *testing.T) {
	today := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	d := New(today)
	if d.State() != StateEmpty {
		t.Fatalf("expected StateEmpty, got %v", d.State())
	}
	if d.Date != "2024-03-15" {
		t.Fatalf("expected today's date, got %q", d.Date)
	}
	if len(d.Entries) != 0 || d.Comment != "" {
		t.Fatalf("expected empty fields")
	}
}

func TestSubmitValidationShortCircuit(t *testing.T) {
	gw := newFakePostWriter()
	beer := core.Beverage{ID: 1, Name: "Lager", AlcoholContent: abv(5), CategoryID: 1}

	cases := []struct {
		name  string
		setup func(d *Draft)
		want  error
	}{
		{
			"malformed date",
			func(d *Draft) {
				d.SetDate("2024-1-1")
				d.Add(beer, 500)
			},
			core.ErrInvalidDate,
		},
		{
			"no beverage selected",
			func(d *Draft) { d.SetDate("2024-01-01") },
			core.ErrNoBeverages,
		},
		{
			"only zero amounts",
			func(d *Draft) {
				d.SetDate("2024-01-01")
				d.Add(beer, 0)
			},
			core.ErrNoAmount,
		},
	}
	for _, tc := range cases {
		d := New(time.Now())
		tc.setup(d)
		err := d.Submit(context.Background(), gw)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if d.State() != StateFailed {
			t.Fatalf("%s: expected StateFailed, got %v", tc.name, d.State())
		}
		if len(gw.created) != 0 {
			t.Fatalf("%s: gateway must not be called on validation failure", tc.name)
		}
	}
}

func TestSubmitDropsZeroAmounts(t *testing.T) {
	gw := newFakePostWriter()
	d := New(time.Now())
	d.SetDate("2024-01-01")
	d.Add(core.Beverage{ID: 1, Name: "Lager", AlcoholContent: abv(5)}, 100)
	d.Add(core.Beverage{ID: 2, Name: "Stout", AlcoholContent: abv(7)}, 0)

	if err := d.Submit(context.Background(), gw); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(gw.created) != 1 {
		t.Fatalf("expected one create, got %d", len(gw.created))
	}
	sent := gw.created[0].Beverages
	if len(sent) != 1 || sent[0].BeverageID != 1 || sent[0].Amount != 100 {
		t.Fatalf("zero-amount entry must be dropped from payload: %+v", sent)
	}
}

func TestSubmitCreateResetsFields(t *testing.T) {
	gw := newFakePostWriter()
	d := New(time.Now())
	d.SetDate("2024-01-01")
	d.SetComment("after work")
	d.Add(core.Beverage{ID: 1, Name: "Lager"}, 500)

	if err := d.Submit(context.Background(), gw); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d.State() != StateSuccess {
		t.Fatalf("expected StateSuccess, got %v", d.State())
	}
	if d.Comment != "" || len(d.Entries) != 0 {
		t.Fatalf("create success must reset fields: comment=%q entries=%d", d.Comment, len(d.Entries))
	}
	if d.Date != time.Now().Format(core.DateLayout) {
		t.Fatalf("date should reset to today, got %q", d.Date)
	}
}

func TestSubmitUpdateKeepsFields(t *testing.T) {
	gw := newFakePostWriter()
	comment := "home"
	post := core.PostWithBeverages{
		ID:   7,
		Date: "2024-02-10",
		Comment: &comment,
		Beverages: []core.BeverageAmount{
			{BeverageID: 3, BeverageName: "Cider", Amount: 330, AlcoholContent: abv(4.5)},
		},
	}
	d := Edit(post, nil)
	d.SetAmount(3, 500)

	if err := d.Submit(context.Background(), gw); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if d.State() != StateSuccess {
		t.Fatalf("expected StateSuccess, got %v", d.State())
	}
	if d.Date != "2024-02-10" || d.Comment != "home" || len(d.Entries) != 1 {
		t.Fatalf("update success must keep fields as submitted")
	}
	if got := gw.updated[7]; len(got.Beverages) != 1 || got.Beverages[0].Amount != 500 {
		t.Fatalf("unexpected update payload: %+v", got)
	}
}

func TestEditReconstructsDeletedBeverage(t *testing.T) {
	post := core.PostWithBeverages{
		ID:   1,
		Date: "2024-02-10",
		Beverages: []core.BeverageAmount{
			{BeverageID: 42, BeverageName: "Old Ale", Amount: 330, AlcoholContent: abv(6)},
		},
	}
	d := Edit(post, []core.Beverage{{ID: 1, Name: "Lager", CategoryID: 1}})
	if len(d.Entries) != 1 {
		t.Fatalf("expected one entry")
	}
	standIn := d.Entries[0].Beverage
	if standIn.ID != 42 || standIn.Name != "Old Ale" || standIn.AlcoholContent == nil || *standIn.AlcoholContent != 6 {
		t.Fatalf("stand-in beverage missing snapshot data: %+v", standIn)
	}
	if standIn.CategoryID != 0 {
		t.Fatalf("stand-in category must be unknown, got %d", standIn.CategoryID)
	}
}

func TestSubmitGatewayFailureKeepsFields(t *testing.T) {
	gw := newFakePostWriter()
	gw.err = errors.New("gateway down")
	d := New(time.Now())
	d.SetDate("2024-01-01")
	d.Add(core.Beverage{ID: 1, Name: "Lager"}, 500)

	err := d.Submit(context.Background(), gw)
	if err == nil || err.Error() != "gateway down" {
		t.Fatalf("expected gateway error surfaced, got %v", err)
	}
	if d.State() != StateFailed {
		t.Fatalf("expected StateFailed, got %v", d.State())
	}
	if len(d.Entries) != 1 || d.Date != "2024-01-01" {
		t.Fatalf("failure must leave fields intact")
	}

	// Correcting input re-enters Editing.
	d.SetComment("retry")
	if d.State() != StateEditing {
		t.Fatalf("expected StateEditing after correction, got %v", d.State())
	}
}
