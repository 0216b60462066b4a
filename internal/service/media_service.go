package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const (
	mediaKeyPrefix       = "modules/"
	DefaultMaxUploadSize = 50 << 20
	sniffLength          = 512
)

// safeExtension matches a short lowercase alphanumeric extension
var safeExtension = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// MediaService validates uploads and stores them in object storage.
type MediaService struct {
	mediaRepo repository.MediaRepository
	maxSize   int64
	audit     *AuditService
}

// NewMediaService creates the upload service; maxSize is in bytes.
func NewMediaService(mediaRepo repository.MediaRepository, maxSize int64, audit *AuditService) *MediaService {
	if maxSize <= 0 {
		maxSize = DefaultMaxUploadSize
	}
	return &MediaService{mediaRepo: mediaRepo, maxSize: maxSize, audit: audit}
}

// MaxSize is the largest accepted upload in bytes.
func (s *MediaService) MaxSize() int64 {
	return s.maxSize
}

// Upload sniffs the content type, rejects anything that is not image,
// video, audio or PDF, and stores the file under modules/<uuid><ext>.
func (s *MediaService) Upload(ctx context.Context, actor Actor, filename, declaredType string, size int64, r io.Reader) (*repository.MediaObject, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: file is empty", apperrors.ErrValidation)
	}
	if size > s.maxSize {
		return nil, fmt.Errorf("%w: file exceeds %d MB", ErrFileTooLarge, s.maxSize>>20)
	}

	// Sniff the first bytes, then replay them in front of the rest
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]

	contentType := detectContentType(head, declaredType)
	if !IsAllowedMediaType(contentType) {
		log.Printf("[MediaService] rejected upload %q of type %s from user ID=%d", filename, contentType, actor.UserID)
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMedia, contentType)
	}

	// Random key; the client's file name only contributes a safe extension
	key := mediaKeyPrefix + uuid.NewString() + mediaExtension(filename, contentType)
	obj, err := s.mediaRepo.Put(ctx, key, io.MultiReader(bytes.NewReader(head), r), size, contentType)
	if err != nil {
		log.Printf("[MediaService] failed to store %s: %v", key, err)
		return nil, err
	}

	s.audit.Record(actor, entity.AuditUploadMedia, entity.EntityMedia, nil,
		map[string]interface{}{"key": obj.Key, "content_type": contentType, "size": size})
	return obj, nil
}

// RemoveByURL deletes an uploaded object by its public URL. URLs that point
// elsewhere, or outside the upload prefix, are left alone.
func (s *MediaService) RemoveByURL(ctx context.Context, url string) error {
	key, ok := s.mediaRepo.KeyFromURL(strings.TrimSpace(url))
	if !ok || !strings.HasPrefix(key, mediaKeyPrefix) || strings.Contains(key, "..") {
		return nil
	}
	if err := s.mediaRepo.Remove(ctx, key); err != nil {
		return err
	}
	log.Printf("[MediaService] removed %s", key)
	return nil
}

// IsAllowedMediaType reports whether contentType may be attached to a module.
func IsAllowedMediaType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case strings.HasPrefix(mediaType, "image/"),
		strings.HasPrefix(mediaType, "video/"),
		strings.HasPrefix(mediaType, "audio/"),
		mediaType == "application/pdf":
		return true
	}
	return false
}

// detectContentType trusts sniffed bytes and falls back to the declared type
// only when sniffing is inconclusive.
func detectContentType(head []byte, declared string) string {
	sniffed := http.DetectContentType(head)
	if sniffed != "application/octet-stream" {
		return sniffed
	}
	if declared != "" {
		return declared
	}
	return sniffed
}

// mediaExtension keeps a short lowercase extension from filename, or derives
// one from contentType.
func mediaExtension(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if safeExtension.MatchString(ext) {
		return ext
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
