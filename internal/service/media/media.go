// Package media moves user-sent images from the messaging platform into GridFS.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"Panikkar/entity"
	"Panikkar/internal/lib/sl"
)

const (
	platformWhatsApp   = "whatsapp"
	PurposeWorkerPhoto = "worker_photo"
)

// Downloader fetches inbound media by its platform id.
type Downloader interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// FileStore is the GridFS side of the repository.
type FileStore interface {
	UploadFile(filename string, reader io.Reader, meta entity.FileMetadata) (primitive.ObjectID, int64, error)
	DownloadFile(fileID primitive.ObjectID) (string, entity.FileMetadata, io.ReadCloser, error)
	DeleteFile(fileID primitive.ObjectID) error
}

type Service struct {
	downloader Downloader
	files      FileStore
	log        *slog.Logger
}

func NewService(downloader Downloader, files FileStore, log *slog.Logger) *Service {
	return &Service{
		downloader: downloader,
		files:      files,
		log:        log.With(sl.Module("media")),
	}
}

// Store downloads a worker photo and returns its GridFS file id.
func (s *Service) Store(ctx context.Context, phone, mediaID, mimeType string) (string, error) {
	data, detected, err := s.downloader.DownloadMedia(ctx, mediaID)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	if mimeType == "" {
		mimeType = detected
	}
	filename := uuid.NewString() + extension(mimeType)
	if len(data) > entity.MaxFileSize {
		return "", entity.FileTooLargeError(filename, int64(len(data)))
	}

	meta := entity.FileMetadata{
		MIMEType: mimeType,
		Platform: platformWhatsApp,
		Phone:    phone,
		Purpose:  PurposeWorkerPhoto,
	}
	fileID, size, err := s.files.UploadFile(filename, bytes.NewReader(data), meta)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	s.log.Debug("media stored",
		slog.String("phone", phone),
		slog.String("file_id", fileID.Hex()),
		slog.Int64("size", size),
	)
	return fileID.Hex(), nil
}

// Delete removes a stored file.
func (s *Service) Delete(_ context.Context, fileID string) error {
	id, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return fmt.Errorf("invalid file id %q: %w", fileID, err)
	}
	if err := s.files.DeleteFile(id); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// Open streams a stored file. The caller closes the reader.
func (s *Service) Open(fileID string) (string, string, io.ReadCloser, error) {
	id, err := primitive.ObjectIDFromHex(fileID)
	if err != nil {
		return "", "", nil, fmt.Errorf("invalid file id %q: %w", fileID, err)
	}
	name, meta, reader, err := s.files.DownloadFile(id)
	if err != nil {
		return "", "", nil, err
	}
	return name, meta.MIMEType, reader, nil
}

func extension(mimeType string) string {
	switch strings.ToLower(strings.TrimSpace(strings.Split(mimeType, ";")[0])) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	return ""
}
