package services

import (
	"context"
	"fmt"
	"log/slog"

	"sakelog/internal/amqp"
	"sakelog/internal/core"
	"sakelog/internal/storage"
)

// PostService orchestrates post writes across SQLite and AMQP. Reads go
// straight to storage; writes land locally first and then enqueue an
// export message, so a dead broker never loses a log entry.
type PostService struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewPostService(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *PostService {
	return &PostService{
		storage:    storage,
		amqpClient: amqpClient,
	}
}

// CreatePost saves a post locally and publishes a sync message.
func (s *PostService) CreatePost(ctx context.Context, req core.CreatePostRequest) (int64, error) {
	id, err := s.storage.CreatePost(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("save post: %w", err)
	}

	// Publish async sync message (non-blocking, version 1 for new post)
	if err := s.publishSyncMessage(ctx, id, 1); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "error", err)
		// Don't fail the request - post is saved locally
	}

	return id, nil
}

// UpdatePost replaces a post locally and re-queues it for export.
func (s *PostService) UpdatePost(ctx context.Context, id int64, req core.CreatePostRequest) error {
	if err := s.storage.UpdatePost(ctx, id, req); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	version, err := s.storage.PostVersion(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read post version", "id", id, "error", err)
		version = 0
	}

	if err := s.publishSyncMessage(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}

	return nil
}

// DeletePost removes a post locally and publishes a delete message.
func (s *PostService) DeletePost(ctx context.Context, id int64) error {
	if err := s.storage.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	if err := s.publishDeleteMessage(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message",
			"id", id, "error", err)
		// Don't fail the request - post is deleted locally
	}

	return nil
}

func (s *PostService) publishSyncMessage(ctx context.Context, id, version int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping sync message")
		return nil
	}

	return s.amqpClient.PublishPostSync(ctx, id, version)
}

func (s *PostService) publishDeleteMessage(ctx context.Context, id int64) error {
	if s.amqpClient == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping delete message")
		return nil
	}

	return s.amqpClient.PublishPostDelete(ctx, id)
}

// Close closes both storage and AMQP connections.
func (s *PostService) Close() error {
	var errs []error

	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.amqpClient != nil {
		if err := s.amqpClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close post service: %v", errs)
	}

	return nil
}
