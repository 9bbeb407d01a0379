package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kivabase/kivabase-backend/internal/apperr"
	"github.com/kivabase/kivabase-backend/internal/buckets/domain"
	"github.com/kivabase/kivabase-backend/internal/buckets/repository"
)

type Service struct {
	repo *repository.Repo
}

func New(repo *repository.Repo) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateBucket(ctx context.Context, projectID, name string, public bool) (*domain.Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrBucketName
	}

	if _, err := s.repo.GetBucketByName(ctx, projectID, name); err == nil {
		return nil, domain.ErrBucketExists
	} else if !errors.Is(err, domain.ErrBucketNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "check bucket name", err)
	}

	b := &domain.Bucket{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Public:    public,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateBucket(ctx, b); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create bucket", err)
	}
	return b, nil
}

func (s *Service) ListBuckets(ctx context.Context, projectID string) ([]domain.Bucket, error) {
	out, err := s.repo.ListBuckets(ctx, projectID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list buckets", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteBucket cascades deletion of the bucket's files before removing
// the bucket record.
func (s *Service) DeleteBucket(ctx context.Context, projectID, name string) error {
	b, err := s.repo.GetBucketByName(ctx, projectID, name)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteBucket(ctx, b); err != nil {
		return apperr.Wrap(apperr.Internal, "delete bucket", err)
	}
	return nil
}

func (s *Service) ListFiles(ctx context.Context, projectID, bucketName string) ([]domain.File, error) {
	b, err := s.repo.GetBucketByName(ctx, projectID, bucketName)
	if err != nil {
		return nil, err
	}
	out, err := s.repo.ListFiles(ctx, b.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list files", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Service) AddFile(ctx context.Context, projectID, bucketName, name, path string, size int64, mimeType string) (*domain.File, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrFileName
	}

	b, err := s.repo.GetBucketByName(ctx, projectID, bucketName)
	if err != nil {
		return nil, err
	}

	f := &domain.File{
		ID:        uuid.NewString(),
		BucketID:  b.ID,
		Name:      strings.TrimSpace(name),
		Path:      path,
		Size:      size,
		MimeType:  mimeType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateFile(ctx, f); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create file", err)
	}
	return f, nil
}

func (s *Service) DeleteFile(ctx context.Context, projectID, bucketName, fileID string) error {
	b, err := s.repo.GetBucketByName(ctx, projectID, bucketName)
	if err != nil {
		return err
	}
	f, err := s.repo.GetFile(ctx, b.ID, fileID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteFile(ctx, f); err != nil {
		return apperr.Wrap(apperr.Internal, "delete file", err)
	}
	return nil
}

// PurgeProject implements the tenant cascade for buckets and files.
func (s *Service) PurgeProject(ctx context.Context, projectID string) error {
	return s.repo.PurgeProject(ctx, projectID)
}
