// Package gateway defines the capability contracts between the domain and
// the data backend. The ports mandate no transport: the SQLite repository
// implements all of them, and tests substitute fakes. Every call may fail
// with an opaque error; nothing here retries.
package gateway

import (
	"context"

	"sakelog/internal/core"
)

type (
	CategoryReader interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, req core.CreateCategoryRequest) (int64, error)
		DeleteCategory(ctx context.Context, id int64) error
	}

	BeverageReader interface {
		ListBeverages(ctx context.Context) ([]core.Beverage, error)
		ListBeveragesByCategory(ctx context.Context, categoryID int64) ([]core.Beverage, error)
	}

	BeverageWriter interface {
		CreateBeverage(ctx context.Context, req core.CreateBeverageRequest) (int64, error)
		UpdateBeverage(ctx context.Context, id int64, req core.CreateBeverageRequest) error
		DeleteBeverage(ctx context.Context, id int64) error
	}

	PostReader interface {
		ListPosts(ctx context.Context) ([]core.PostWithBeverages, error)
		GetPost(ctx context.Context, id int64) (core.PostWithBeverages, error)
	}

	// PostWriter carries the whole-list-replacement contract: an update
	// replaces the post's beverage amounts, never patches them.
	PostWriter interface {
		CreatePost(ctx context.Context, req core.CreatePostRequest) (int64, error)
		UpdatePost(ctx context.Context, id int64, req core.CreatePostRequest) error
		DeletePost(ctx context.Context, id int64) error
	}

	IntakeReader interface {
		MonthlyAlcoholIntake(ctx context.Context, year, month int) (core.MonthlyAlcoholIntake, error)
	}

	// Store aggregates the read-side and catalog-write ports the HTTP
	// surface consumes directly. Post writes go through the service layer
	// so they can publish sync messages.
	Store interface {
		CategoryReader
		CategoryWriter
		BeverageReader
		BeverageWriter
		PostReader
		IntakeReader
	}
)
