package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sakelog/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrBeverageNotFound = errors.New("beverage not found")
	ErrPostNotFound     = errors.New("post not found")
	ErrCategoryInUse    = errors.New("category is in use and cannot be deleted")
	ErrBeverageInUse    = errors.New("beverage is referenced by posts and cannot be deleted")
)

// Sync states for the export pipeline.
const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

// SQLiteRepository implements every gateway port on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListCategories implements gateway.CategoryReader.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, display_order, created_at, updated_at
		FROM categories
		ORDER BY display_order, name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.DisplayOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateCategory implements gateway.CategoryWriter.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, req core.CreateCategoryRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	var order int64
	if req.DisplayOrder != nil {
		order = *req.DisplayOrder
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (name, display_order) VALUES (?, ?)`,
		trimmed(req.Name), order)
	if err != nil {
		return 0, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("category insert id: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", id, "name", req.Name)
	return id, nil
}

// DeleteCategory refuses to remove a category that beverages still reference.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM beverages WHERE category_id = ?`, id).Scan(&count)
	if err != nil {
		return fmt.Errorf("count category usage: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d beverages", ErrCategoryInUse, count)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *SQLiteRepository) categoryExists(ctx context.Context, id int64) error {
	var one int64
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM categories WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	return nil
}

const beverageColumns = `
	b.id, b.name, b.alcohol_content, b.category_id, c.name,
	b.created_at, b.updated_at`

func scanBeverage(rows *sql.Rows) (core.Beverage, error) {
	var b core.Beverage
	var content sql.NullFloat64
	if err := rows.Scan(&b.ID, &b.Name, &content, &b.CategoryID, &b.CategoryName,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return b, err
	}
	if content.Valid {
		b.AlcoholContent = &content.Float64
	}
	return b, nil
}

// ListBeverages implements gateway.BeverageReader.
func (r *SQLiteRepository) ListBeverages(ctx context.Context) ([]core.Beverage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+beverageColumns+`
		FROM beverages b
		INNER JOIN categories c ON b.category_id = c.id
		ORDER BY b.name`)
	if err != nil {
		return nil, fmt.Errorf("list beverages: %w", err)
	}
	defer rows.Close()

	var out []core.Beverage
	for rows.Next() {
		b, err := scanBeverage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beverage: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListBeveragesByCategory implements gateway.BeverageReader.
func (r *SQLiteRepository) ListBeveragesByCategory(ctx context.Context, categoryID int64) ([]core.Beverage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+beverageColumns+`
		FROM beverages b
		INNER JOIN categories c ON b.category_id = c.id
		WHERE b.category_id = ?
		ORDER BY b.name`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("list beverages by category: %w", err)
	}
	defer rows.Close()

	var out []core.Beverage
	for rows.Next() {
		b, err := scanBeverage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan beverage: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// CreateBeverage implements gateway.BeverageWriter.
func (r *SQLiteRepository) CreateBeverage(ctx context.Context, req core.CreateBeverageRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	if err := r.categoryExists(ctx, req.CategoryID); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO beverages (name, alcohol_content, category_id) VALUES (?, ?, ?)`,
		trimmed(req.Name), nullFloat(req.AlcoholContent), req.CategoryID)
	if err != nil {
		return 0, fmt.Errorf("create beverage: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("beverage insert id: %w", err)
	}
	slog.InfoContext(ctx, "Beverage created", "id", id, "name", req.Name, "category_id", req.CategoryID)
	return id, nil
}

// UpdateBeverage implements gateway.BeverageWriter.
func (r *SQLiteRepository) UpdateBeverage(ctx context.Context, id int64, req core.CreateBeverageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := r.categoryExists(ctx, req.CategoryID); err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE beverages
		SET name = ?, alcohol_content = ?, category_id = ?, updated_at = datetime('now', 'localtime')
		WHERE id = ?`,
		trimmed(req.Name), nullFloat(req.AlcoholContent), req.CategoryID, id)
	if err != nil {
		return fmt.Errorf("update beverage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBeverageNotFound
	}
	return nil
}

// DeleteBeverage refuses to remove a beverage still referenced by posts.
func (r *SQLiteRepository) DeleteBeverage(ctx context.Context, id int64) error {
	var usage int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM post_beverages WHERE beverage_id = ?`, id).Scan(&usage)
	if err != nil {
		return fmt.Errorf("count beverage usage: %w", err)
	}
	if usage > 0 {
		return fmt.Errorf("%w: %d posts", ErrBeverageInUse, usage)
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM beverages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete beverage: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBeverageNotFound
	}
	return nil
}

// ListPosts implements gateway.PostReader. Posts come newest first, each
// with its snapshot amounts in insertion order.
func (r *SQLiteRepository) ListPosts(ctx context.Context) ([]core.PostWithBeverages, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, date, comment, created_at, updated_at
		FROM posts
		ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []core.PostWithBeverages
	for rows.Next() {
		var p core.PostWithBeverages
		var comment sql.NullString
		if err := rows.Scan(&p.ID, &p.Date, &comment, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		if comment.Valid {
			p.Comment = &comment.String
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range posts {
		amounts, err := r.postAmounts(ctx, posts[i].ID)
		if err != nil {
			return nil, err
		}
		posts[i].Beverages = amounts
	}
	return posts, nil
}

// GetPost implements gateway.PostReader.
func (r *SQLiteRepository) GetPost(ctx context.Context, id int64) (core.PostWithBeverages, error) {
	var p core.PostWithBeverages
	var comment sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, date, comment, created_at, updated_at FROM posts WHERE id = ?`, id).
		Scan(&p.ID, &p.Date, &comment, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, ErrPostNotFound
	}
	if err != nil {
		return p, fmt.Errorf("get post: %w", err)
	}
	if comment.Valid {
		p.Comment = &comment.String
	}

	p.Beverages, err = r.postAmounts(ctx, id)
	return p, err
}

func (r *SQLiteRepository) postAmounts(ctx context.Context, postID int64) ([]core.BeverageAmount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT beverage_id, beverage_name, amount, alcohol_content
		FROM post_beverages
		WHERE post_id = ?
		ORDER BY id`, postID)
	if err != nil {
		return nil, fmt.Errorf("list post amounts: %w", err)
	}
	defer rows.Close()

	var out []core.BeverageAmount
	for rows.Next() {
		var ba core.BeverageAmount
		var content sql.NullFloat64
		if err := rows.Scan(&ba.BeverageID, &ba.BeverageName, &ba.Amount, &content); err != nil {
			return nil, fmt.Errorf("scan post amount: %w", err)
		}
		if content.Valid {
			ba.AlcoholContent = &content.Float64
		}
		out = append(out, ba)
	}
	return out, rows.Err()
}

// CreatePost implements gateway.PostWriter. The post row and its amounts
// are written in one transaction; each amount freezes the beverage's name
// and alcohol content as they are right now.
func (r *SQLiteRepository) CreatePost(ctx context.Context, req core.CreatePostRequest) (int64, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}
	req = req.Normalize()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin create post: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO posts (date, comment) VALUES (?, ?)`,
		req.Date, nullString(req.Comment))
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	postID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post insert id: %w", err)
	}

	if err := r.insertAmounts(ctx, tx, postID, req.Beverages); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit create post: %w", err)
	}
	slog.InfoContext(ctx, "Post created", "id", postID, "date", req.Date, "beverages", len(req.Beverages))
	return postID, nil
}

// UpdatePost replaces the prior amounts list wholesale and re-queues the
// post for export.
func (r *SQLiteRepository) UpdatePost(ctx context.Context, id int64, req core.CreatePostRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	req = req.Normalize()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update post: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE posts
		SET date = ?, comment = ?, version = version + 1, sync_status = ?,
			updated_at = datetime('now', 'localtime')
		WHERE id = ?`,
		req.Date, nullString(req.Comment), SyncPending, id)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_beverages WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("clear post amounts: %w", err)
	}
	if err := r.insertAmounts(ctx, tx, id, req.Beverages); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update post: %w", err)
	}
	slog.InfoContext(ctx, "Post updated", "id", id, "date", req.Date, "beverages", len(req.Beverages))
	return nil
}

// DeletePost implements gateway.PostWriter.
func (r *SQLiteRepository) DeletePost(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete post: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_beverages WHERE post_id = ?`, id); err != nil {
		return fmt.Errorf("delete post amounts: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPostNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete post: %w", err)
	}
	slog.InfoContext(ctx, "Post deleted", "id", id)
	return nil
}

func (r *SQLiteRepository) insertAmounts(ctx context.Context, tx *sql.Tx, postID int64, inputs []core.BeverageAmountInput) error {
	for _, in := range inputs {
		var name string
		var content sql.NullFloat64
		err := tx.QueryRowContext(ctx,
			`SELECT name, alcohol_content FROM beverages WHERE id = ?`, in.BeverageID).
			Scan(&name, &content)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: id %d", ErrBeverageNotFound, in.BeverageID)
		}
		if err != nil {
			return fmt.Errorf("resolve beverage %d: %w", in.BeverageID, err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO post_beverages (post_id, beverage_id, beverage_name, amount, alcohol_content)
			VALUES (?, ?, ?, ?, ?)`,
			postID, in.BeverageID, name, in.Amount, content); err != nil {
			return fmt.Errorf("insert post amount: %w", err)
		}
	}
	return nil
}

// MonthlyAlcoholIntake implements gateway.IntakeReader. Drinking days are
// distinct post dates in the month; the daily average divides by the
// month's length, days without posts included.
func (r *SQLiteRepository) MonthlyAlcoholIntake(ctx context.Context, year, month int) (core.MonthlyAlcoholIntake, error) {
	var out core.MonthlyAlcoholIntake
	if month < 1 || month > 12 {
		return out, fmt.Errorf("invalid month %d", month)
	}

	start := fmt.Sprintf("%04d-%02d-01", year, month)
	var end string
	if month == 12 {
		end = fmt.Sprintf("%04d-01-01", year+1)
	} else {
		end = fmt.Sprintf("%04d-%02d-01", year, month+1)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT p.date, pb.amount, pb.alcohol_content
		FROM posts p
		LEFT JOIN post_beverages pb ON pb.post_id = p.id
		WHERE p.date >= ? AND p.date < ?`, start, end)
	if err != nil {
		return out, fmt.Errorf("query monthly intake: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]struct{})
	for rows.Next() {
		var date string
		var amount, content sql.NullFloat64
		if err := rows.Scan(&date, &amount, &content); err != nil {
			return out, fmt.Errorf("scan monthly intake row: %w", err)
		}
		dates[date] = struct{}{}
		if amount.Valid && content.Valid && content.Float64 > 0 {
			ba := core.BeverageAmount{Amount: amount.Float64, AlcoholContent: &content.Float64}
			out.TotalIntake += core.CalculateIntake([]core.BeverageAmount{ba})
		}
	}
	if err := rows.Err(); err != nil {
		return out, err
	}

	out.DrinkingDays = int64(len(dates))
	out.AveragePerDay = out.TotalIntake / float64(core.DaysInMonth(year, month))
	return out, nil
}

// PendingSyncPost is the minimal row the export worker needs.
type PendingSyncPost struct {
	ID        int64
	Version   int64
	CreatedAt string
}

// GetPendingSyncPosts returns posts not yet exported, oldest first.
func (r *SQLiteRepository) GetPendingSyncPosts(ctx context.Context, limit int) ([]PendingSyncPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, version, created_at
		FROM posts
		WHERE sync_status = ?
		ORDER BY id
		LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync posts: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncPost
	for rows.Next() {
		var p PendingSyncPost
		if err := rows.Scan(&p.ID, &p.Version, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending sync post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced marks a post as successfully exported.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE posts SET sync_status = ?, synced_at = datetime('now', 'localtime') WHERE id = ?`,
		SyncDone, id); err != nil {
		return fmt.Errorf("mark post synced: %w", err)
	}
	slog.InfoContext(ctx, "Post marked as synced", "id", id)
	return nil
}

// MarkSyncError marks a post as having export errors.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE posts SET sync_status = ? WHERE id = ?`, SyncError, id); err != nil {
		return fmt.Errorf("mark post sync error: %w", err)
	}
	slog.WarnContext(ctx, "Post marked with sync error", "id", id)
	return nil
}

// PostVersion returns the current version counter of a post.
func (r *SQLiteRepository) PostVersion(ctx context.Context, id int64) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM posts WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("post version: %w", err)
	}
	return v, nil
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
