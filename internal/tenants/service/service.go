package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kivabase/kivabase-backend/internal/apperr"
	"github.com/kivabase/kivabase-backend/internal/keyring"
	"github.com/kivabase/kivabase-backend/internal/tenants/domain"
	"github.com/kivabase/kivabase-backend/internal/tenants/repository"
)

// Purger removes every entity a feature owns inside a project. Each
// implementation must be idempotent so an interrupted cascade can be
// re-run.
type Purger interface {
	PurgeProject(ctx context.Context, projectID string) error
}

// Service owns the project lifecycle. Deletion cascades through the
// registered purgers in order (tables, auth users, buckets) before the
// project record itself is removed, so the record stays the single
// source of truth for project existence until the very end.
type Service struct {
	repo      *repository.Repo
	publicURL string
	purgers   []Purger
}

func New(repo *repository.Repo, publicURL string, purgers ...Purger) *Service {
	return &Service{repo: repo, publicURL: publicURL, purgers: purgers}
}

// RegisterPurgers appends feature cascades after construction. The
// table engine resolves projects through this service, so it cannot be
// passed to New.
func (s *Service) RegisterPurgers(purgers ...Purger) {
	s.purgers = append(s.purgers, purgers...)
}

func (s *Service) Create(ctx context.Context, accountID, name string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}

	anonKey, serviceKey := keyring.IssueProjectKeys()
	id := uuid.NewString()

	p := &domain.Project{
		ID:         id,
		AccountID:  accountID,
		Name:       name,
		URL:        fmt.Sprintf("%s/api/projects/%s", s.publicURL, id),
		Status:     domain.StatusActive,
		AnonKey:    anonKey,
		ServiceKey: serviceKey,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create project", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, accountID string) ([]domain.Project, error) {
	out, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list projects", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Get resolves a project by id regardless of owner. The access gate
// uses it to attach the project to client-scoped calls.
func (s *Service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.repo.Get(ctx, projectID)
}

// Exists reports whether the project record is present. Child
// operations consult this on every call instead of caching.
func (s *Service) Exists(ctx context.Context, projectID string) (bool, error) {
	_, err := s.repo.Get(ctx, projectID)
	if errors.Is(err, domain.ErrProjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the project owned by accountID and cascades through
// all child entities. Purgers run before the project record is
// deleted; a concurrent reader either still resolves the project or
// gets not-found once the record is gone.
func (s *Service) Delete(ctx context.Context, accountID, projectID string) error {
	p, err := s.repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	if p.AccountID != accountID {
		// Not owned by the caller; indistinguishable from absent.
		return domain.ErrProjectNotFound
	}

	for _, purger := range s.purgers {
		if err := purger.PurgeProject(ctx, projectID); err != nil {
			return apperr.Wrap(apperr.Internal, "cascade delete", err)
		}
	}

	if err := s.repo.Delete(ctx, p); err != nil {
		return apperr.Wrap(apperr.Internal, "delete project", err)
	}

	log.Printf("[tenants] deleted project id=%s account=%s", projectID, accountID)
	return nil
}
