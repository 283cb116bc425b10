package core

import (
	"errors"
	"regexp"
	"strings"
	"time"
)

type (
	// Category is a named, ordered grouping of beverages.
	Category struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		DisplayOrder int64  `json:"display_order"`
		CreatedAt    string `json:"created_at,omitempty"`
		UpdatedAt    string `json:"updated_at,omitempty"`
	}

	// Beverage is a catalog entry for a specific drink product.
	// AlcoholContent is nil for non-alcoholic or unknown-ABV entries.
	Beverage struct {
		ID             int64    `json:"id"`
		Name           string   `json:"name"`
		AlcoholContent *float64 `json:"alcohol_content,omitempty"`
		CategoryID     int64    `json:"category_id"`
		CategoryName   string   `json:"category_name,omitempty"`
		CreatedAt      string   `json:"created_at,omitempty"`
		UpdatedAt      string   `json:"updated_at,omitempty"`
	}

	// BeverageAmount is an immutable snapshot of a beverage reference,
	// consumed volume in ml, and the ABV at the time of logging. It does
	// not re-resolve if the beverage is later edited or deleted.
	BeverageAmount struct {
		BeverageID     int64    `json:"beverage_id"`
		BeverageName   string   `json:"beverage_name"`
		Amount         float64  `json:"amount"`
		AlcoholContent *float64 `json:"alcohol_content,omitempty"`
	}

	// PostWithBeverages is a dated log entry with its beverage snapshots,
	// insertion order preserved.
	PostWithBeverages struct {
		ID        int64            `json:"id"`
		Date      string           `json:"date"`
		Comment   *string          `json:"comment,omitempty"`
		CreatedAt string           `json:"created_at"`
		UpdatedAt string           `json:"updated_at"`
		Beverages []BeverageAmount `json:"beverages"`
	}

	// BeverageAmountInput is the wire projection of one consumed beverage.
	BeverageAmountInput struct {
		BeverageID int64   `json:"beverage_id"`
		Amount     float64 `json:"amount"`
	}

	// CreatePostRequest creates a post, or fully replaces one on update.
	CreatePostRequest struct {
		Date      string                `json:"date"`
		Comment   *string               `json:"comment,omitempty"`
		Beverages []BeverageAmountInput `json:"beverages"`
	}

	CreateCategoryRequest struct {
		Name         string `json:"name"`
		DisplayOrder *int64 `json:"display_order,omitempty"`
	}

	CreateBeverageRequest struct {
		Name           string   `json:"name"`
		AlcoholContent *float64 `json:"alcohol_content,omitempty"`
		CategoryID     int64    `json:"category_id"`
	}

	// MonthlyAlcoholIntake is the aggregated view for one calendar month.
	MonthlyAlcoholIntake struct {
		TotalIntake   float64 `json:"total_intake"`
		AveragePerDay float64 `json:"average_per_day"`
		DrinkingDays  int64   `json:"drinking_days"`
	}
)

var (
	ErrInvalidDate           = errors.New("date must be in YYYY-MM-DD format")
	ErrNoBeverages           = errors.New("select at least one beverage")
	ErrNoAmount              = errors.New("enter amount drunk")
	ErrNegativeAmount        = errors.New("amount cannot be negative")
	ErrEmptyName             = errors.New("name cannot be empty")
	ErrInvalidAlcoholContent = errors.New("alcohol content must be between 0 and 100")
)

// DateLayout is the calendar-date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidateDate checks the zero-padded YYYY-MM-DD contract and calendar
// validity ("2024-1-1" and "2024-02-31" both fail).
func ValidateDate(date string) error {
	if !datePattern.MatchString(date) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Validate applies the post-authoring rules, short-circuiting on the first
// failure so each rule surfaces its own distinct error.
func (r CreatePostRequest) Validate() error {
	if err := ValidateDate(strings.TrimSpace(r.Date)); err != nil {
		return err
	}
	if len(r.Beverages) == 0 {
		return ErrNoBeverages
	}
	positive := 0
	for _, b := range r.Beverages {
		if b.Amount < 0 {
			return ErrNegativeAmount
		}
		if b.Amount > 0 {
			positive++
		}
	}
	if positive == 0 {
		return ErrNoAmount
	}
	return nil
}

// Normalize returns the request as it is sent to the gateway: date trimmed,
// blank comment dropped, zero-amount entries silently removed.
func (r CreatePostRequest) Normalize() CreatePostRequest {
	out := CreatePostRequest{Date: strings.TrimSpace(r.Date)}
	if r.Comment != nil {
		if c := strings.TrimSpace(*r.Comment); c != "" {
			out.Comment = &c
		}
	}
	for _, b := range r.Beverages {
		if b.Amount > 0 {
			out.Beverages = append(out.Beverages, b)
		}
	}
	return out
}

func (r CreateBeverageRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if r.AlcoholContent != nil && (*r.AlcoholContent < 0 || *r.AlcoholContent > 100) {
		return ErrInvalidAlcoholContent
	}
	return nil
}

func (r CreateCategoryRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
