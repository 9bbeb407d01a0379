package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kivabase/kivabase-backend/internal/buckets/domain"
	"github.com/kivabase/kivabase-backend/internal/storage"
)

// Repo persists bucket and file metadata blobs, with membership sets
// per project (buckets) and per bucket (files), plus a bucket name
// index.
type Repo struct {
	store storage.Store
}

func NewRepo(store storage.Store) *Repo {
	return &Repo{store: store}
}

func (r *Repo) bucketKey(projectID, bucketID string) string {
	return "bucket:" + projectID + ":" + bucketID
}

func (r *Repo) bucketsSetKey(projectID string) string {
	return "project:" + projectID + ":buckets"
}

func (r *Repo) bucketNameKey(projectID, name string) string {
	return "bucketname:" + projectID + ":" + name
}

func (r *Repo) fileKey(bucketID, fileID string) string {
	return "file:" + bucketID + ":" + fileID
}

func (r *Repo) filesSetKey(bucketID string) string {
	return "bucket:" + bucketID + ":files"
}

func (r *Repo) CreateBucket(ctx context.Context, b *domain.Bucket) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal bucket: %w", err)
	}

	if err := r.store.Put(ctx, r.bucketKey(b.ProjectID, b.ID), data); err != nil {
		return fmt.Errorf("store bucket: %w", err)
	}
	if err := r.store.SetAdd(ctx, r.bucketsSetKey(b.ProjectID), b.ID); err != nil {
		return fmt.Errorf("index bucket: %w", err)
	}
	if err := r.store.Put(ctx, r.bucketNameKey(b.ProjectID, b.Name), []byte(b.ID)); err != nil {
		return fmt.Errorf("index bucket name: %w", err)
	}
	return nil
}

func (r *Repo) GetBucket(ctx context.Context, projectID, bucketID string) (*domain.Bucket, error) {
	data, err := r.store.Get(ctx, r.bucketKey(projectID, bucketID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrBucketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bucket: %w", err)
	}

	var b domain.Bucket
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("unmarshal bucket: %w", err)
	}
	return &b, nil
}

func (r *Repo) GetBucketByName(ctx context.Context, projectID, name string) (*domain.Bucket, error) {
	data, err := r.store.Get(ctx, r.bucketNameKey(projectID, name))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrBucketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve bucket name: %w", err)
	}
	return r.GetBucket(ctx, projectID, string(data))
}

func (r *Repo) ListBuckets(ctx context.Context, projectID string) ([]domain.Bucket, error) {
	ids, err := r.store.SetMembers(ctx, r.bucketsSetKey(projectID))
	if err != nil {
		return nil, fmt.Errorf("list bucket ids: %w", err)
	}

	out := make([]domain.Bucket, 0, len(ids))
	for _, id := range ids {
		b, err := r.GetBucket(ctx, projectID, id)
		if errors.Is(err, domain.ErrBucketNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

// DeleteBucket removes the bucket and all its files: files first, so a
// re-run after interruption still finds the bucket record.
func (r *Repo) DeleteBucket(ctx context.Context, b *domain.Bucket) error {
	if err := r.PurgeFiles(ctx, b.ID); err != nil {
		return err
	}
	if err := r.store.Delete(ctx, r.bucketNameKey(b.ProjectID, b.Name)); err != nil {
		return fmt.Errorf("unindex bucket name: %w", err)
	}
	if err := r.store.SetRemove(ctx, r.bucketsSetKey(b.ProjectID), b.ID); err != nil {
		return fmt.Errorf("unindex bucket: %w", err)
	}
	if err := r.store.Delete(ctx, r.bucketKey(b.ProjectID, b.ID)); err != nil {
		return fmt.Errorf("delete bucket: %w", err)
	}
	return nil
}

func (r *Repo) CreateFile(ctx context.Context, f *domain.File) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal file: %w", err)
	}

	if err := r.store.Put(ctx, r.fileKey(f.BucketID, f.ID), data); err != nil {
		return fmt.Errorf("store file: %w", err)
	}
	if err := r.store.SetAdd(ctx, r.filesSetKey(f.BucketID), f.ID); err != nil {
		return fmt.Errorf("index file: %w", err)
	}
	return nil
}

func (r *Repo) GetFile(ctx context.Context, bucketID, fileID string) (*domain.File, error) {
	data, err := r.store.Get(ctx, r.fileKey(bucketID, fileID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, domain.ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	var f domain.File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal file: %w", err)
	}
	return &f, nil
}

func (r *Repo) ListFiles(ctx context.Context, bucketID string) ([]domain.File, error) {
	ids, err := r.store.SetMembers(ctx, r.filesSetKey(bucketID))
	if err != nil {
		return nil, fmt.Errorf("list file ids: %w", err)
	}

	out := make([]domain.File, 0, len(ids))
	for _, id := range ids {
		f, err := r.GetFile(ctx, bucketID, id)
		if errors.Is(err, domain.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func (r *Repo) DeleteFile(ctx context.Context, f *domain.File) error {
	if err := r.store.SetRemove(ctx, r.filesSetKey(f.BucketID), f.ID); err != nil {
		return fmt.Errorf("unindex file: %w", err)
	}
	if err := r.store.Delete(ctx, r.fileKey(f.BucketID, f.ID)); err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// PurgeFiles removes every file in the bucket. Safe to re-run.
func (r *Repo) PurgeFiles(ctx context.Context, bucketID string) error {
	ids, err := r.store.SetMembers(ctx, r.filesSetKey(bucketID))
	if err != nil {
		return fmt.Errorf("purge files: %w", err)
	}
	for _, id := range ids {
		if err := r.store.Delete(ctx, r.fileKey(bucketID, id)); err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
		if err := r.store.SetRemove(ctx, r.filesSetKey(bucketID), id); err != nil {
			return fmt.Errorf("unindex file: %w", err)
		}
	}
	return r.store.Delete(ctx, r.filesSetKey(bucketID))
}

// PurgeProject removes every bucket (and its files) in the project.
func (r *Repo) PurgeProject(ctx context.Context, projectID string) error {
	ids, err := r.store.SetMembers(ctx, r.bucketsSetKey(projectID))
	if err != nil {
		return fmt.Errorf("purge buckets: %w", err)
	}

	for _, id := range ids {
		b, err := r.GetBucket(ctx, projectID, id)
		if errors.Is(err, domain.ErrBucketNotFound) {
			_ = r.store.SetRemove(ctx, r.bucketsSetKey(projectID), id)
			continue
		}
		if err != nil {
			return err
		}
		if err := r.DeleteBucket(ctx, b); err != nil {
			return err
		}
	}

	return r.store.Delete(ctx, r.bucketsSetKey(projectID))
}
