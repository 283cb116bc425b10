package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sakelog/internal/amqp"
	"sakelog/internal/metrics"
	"sakelog/internal/sheets"
	"sakelog/internal/storage"
)

// SyncWorker copies posts from SQLite into the backup spreadsheet.
type SyncWorker struct {
	storage   *storage.SQLiteRepository
	sheets    sheets.PostAppender
	batchSize int
}

func NewSyncWorker(storage *storage.SQLiteRepository, sheets sheets.PostAppender, batchSize int) *SyncWorker {
	return &SyncWorker{
		storage:   storage,
		sheets:    sheets,
		batchSize: batchSize,
	}
}

// HandleMessage dispatches one queue message to the right handler.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	switch msg.Type {
	case amqp.TypePostSync:
		return w.HandleSyncMessage(ctx, msg)
	case amqp.TypePostDelete:
		return w.HandleDeleteMessage(ctx, msg)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// HandleSyncMessage exports a single post to the spreadsheet.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"id", msg.ID,
		"version", msg.Version)

	err := w.exportPost(ctx, msg.ID, msg.Version)
	if errors.Is(err, storage.ErrPostNotFound) {
		// Deleted between publish and consume; nothing to export.
		slog.WarnContext(ctx, "Post no longer exists, skipping", "id", msg.ID)
		return nil
	}
	return err
}

// HandleDeleteMessage logs a delete notification. The spreadsheet is an
// append-only history, rows of deleted posts stay.
func (w *SyncWorker) HandleDeleteMessage(ctx context.Context, msg *amqp.SyncMessage) error {
	slog.InfoContext(ctx, "Post deleted, keeping exported rows",
		"id", msg.ID,
		"timestamp", msg.Timestamp)
	return nil
}

// ProcessPendingPosts exports any posts that haven't been synced yet.
// This is a backup mechanism in case AMQP messages are lost.
func (w *SyncWorker) ProcessPendingPosts(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncPosts(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending posts: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending posts", "count", len(pending))

	for _, p := range pending {
		if err := w.exportPost(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync post", "id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupSyncCheck exports any pending posts at worker startup. This is
// useful to recover from missed AMQP messages or worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	// Get a larger batch for startup check
	pending, err := w.storage.GetPendingSyncPosts(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending posts for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending posts found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending posts on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		if err := w.exportPost(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync post during startup",
				"id", p.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", successCount,
		"errors", errorCount)

	return nil
}

func (w *SyncWorker) exportPost(ctx context.Context, id, version int64) error {
	post, err := w.storage.GetPost(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		metrics.RecordExport("error")
		return fmt.Errorf("get post: %w", err)
	}

	if err := w.sheets.AppendPost(ctx, post, version); err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		metrics.RecordExport("error")
		return fmt.Errorf("append to sheets: %w", err)
	}
	metrics.RecordExport("ok")

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
		// Don't return error here - the sync actually worked
	}

	slog.InfoContext(ctx, "Successfully synced post",
		"id", id,
		"version", version,
		"date", post.Date)

	return nil
}
