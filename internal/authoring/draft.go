// Package authoring implements the post-authoring flow: a draft moves
// through Empty -> Editing -> Validating -> Submitting -> Success or
// Failed, with Editing re-entered from Failed once the user corrects the
// input. The date-based flow with edit support is the canonical one.
package authoring

import (
	"context"
	"errors"
	"time"

	"sakelog/internal/core"
	"sakelog/internal/gateway"
)

type State int

const (
	StateEmpty State = iota
	StateEditing
	StateValidating
	StateSubmitting
	StateSuccess
	StateFailed
)

var (
	// Fallbacks for gateway failures that carry no message of their own,
	// keyed to the operation.
	ErrCreateFailed = errors.New("failed to create post")
	ErrUpdateFailed = errors.New("failed to update post")
)

// Entry pairs a beverage reference with the amount being logged.
type Entry struct {
	Beverage core.Beverage
	Amount   float64
}

// Draft is the in-progress state of one post being authored. It holds no
// durable state; every draft is owned by a single view.
type Draft struct {
	state  State
	editID int64 // 0 for a new post
	err    error

	Date    string
	Comment string
	Entries []Entry
}

// New returns an empty draft for a new post, dated today.
func New(today time.Time) *Draft {
	return &Draft{state: StateEmpty, Date: today.Format(core.DateLayout)}
}

// Edit returns a draft pre-filled from an existing post. Each beverage
// snapshot is mapped back to the live beverage where resolvable; a deleted
// beverage is reconstructed as a minimal stand-in carrying the snapshotted
// name and alcohol content so the post stays editable.
func Edit(post core.PostWithBeverages, live []core.Beverage) *Draft {
	byID := make(map[int64]core.Beverage, len(live))
	for _, b := range live {
		byID[b.ID] = b
	}

	d := &Draft{state: StateEditing, editID: post.ID, Date: post.Date}
	if post.Comment != nil {
		d.Comment = *post.Comment
	}
	for _, ba := range post.Beverages {
		b, ok := byID[ba.BeverageID]
		if !ok {
			b = core.Beverage{
				ID:             ba.BeverageID,
				Name:           ba.BeverageName,
				AlcoholContent: ba.AlcoholContent,
			}
		}
		d.Entries = append(d.Entries, Entry{Beverage: b, Amount: ba.Amount})
	}
	return d
}

func (d *Draft) State() State { return d.state }

// Err returns the validation or gateway error from the last failed submit.
func (d *Draft) Err() error { return d.err }

// IsEdit reports whether the draft targets an existing post.
func (d *Draft) IsEdit() bool { return d.editID != 0 }

// editing moves the draft into Editing from Empty, Failed or Success.
func (d *Draft) editing() {
	d.state = StateEditing
	d.err = nil
}

func (d *Draft) SetDate(date string) {
	d.editing()
	d.Date = date
}

func (d *Draft) SetComment(comment string) {
	d.editing()
	d.Comment = comment
}

func (d *Draft) Add(b core.Beverage, amount float64) {
	d.editing()
	d.Entries = append(d.Entries, Entry{Beverage: b, Amount: amount})
}

func (d *Draft) SetAmount(beverageID int64, amount float64) {
	d.editing()
	for i := range d.Entries {
		if d.Entries[i].Beverage.ID == beverageID {
			d.Entries[i].Amount = amount
			return
		}
	}
}

func (d *Draft) Remove(beverageID int64) {
	d.editing()
	for i := range d.Entries {
		if d.Entries[i].Beverage.ID == beverageID {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return
		}
	}
}

// Request projects the draft into the wire request: surviving entries
// reduced to {beverage_id, amount}, zero amounts dropped, date trimmed,
// blank comment omitted.
func (d *Draft) Request() core.CreatePostRequest {
	req := core.CreatePostRequest{Date: d.Date}
	if d.Comment != "" {
		c := d.Comment
		req.Comment = &c
	}
	for _, e := range d.Entries {
		req.Beverages = append(req.Beverages, core.BeverageAmountInput{
			BeverageID: e.Beverage.ID,
			Amount:     e.Amount,
		})
	}
	return req.Normalize()
}

// Submit validates the draft and sends it through the gateway. Validation
// errors fail before any gateway call. On a successful create the draft
// resets to new-post defaults; on a successful update the fields stay as
// submitted. Any failure leaves the fields intact for correction.
func (d *Draft) Submit(ctx context.Context, gw gateway.PostWriter) error {
	d.state = StateValidating
	req := core.CreatePostRequest{Date: d.Date}
	for _, e := range d.Entries {
		req.Beverages = append(req.Beverages, core.BeverageAmountInput{
			BeverageID: e.Beverage.ID,
			Amount:     e.Amount,
		})
	}
	if err := req.Validate(); err != nil {
		d.state = StateFailed
		d.err = err
		return err
	}

	d.state = StateSubmitting
	payload := d.Request()

	var err error
	if d.IsEdit() {
		err = gw.UpdatePost(ctx, d.editID, payload)
	} else {
		_, err = gw.CreatePost(ctx, payload)
	}
	if err != nil {
		if err.Error() == "" {
			if d.IsEdit() {
				err = ErrUpdateFailed
			} else {
				err = ErrCreateFailed
			}
		}
		d.state = StateFailed
		d.err = err
		return err
	}

	if d.IsEdit() {
		d.state = StateSuccess
		d.err = nil
		return nil
	}

	// New post: clear everything back to defaults.
	*d = *New(time.Now())
	d.state = StateSuccess
	return nil
}
