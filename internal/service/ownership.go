package service

import (
	"errors"
	"fmt"

	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

type ownedResource interface {
	IsOwnedBy(educatorID uint) bool
}

// educatorIDFor returns the educator profile ID of an educator actor.
func educatorIDFor(educatorRepo repository.EducatorRepository, actor Actor) (uint, error) {
	educator, err := educatorRepo.GetByUserID(actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return 0, fmt.Errorf("%w: educator profile missing", apperrors.ErrForbidden)
		}
		return 0, err
	}
	return educator.ID, nil
}

// authorizeWrite lets admins through and restricts educators to their own content.
func authorizeWrite(educatorRepo repository.EducatorRepository, actor Actor, resource ownedResource) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.IsEducator():
		educatorID, err := educatorIDFor(educatorRepo, actor)
		if err != nil {
			return err
		}
		if !resource.IsOwnedBy(educatorID) {
			return fmt.Errorf("%w: you can only modify your own content", apperrors.ErrForbidden)
		}
		return nil
	default:
		return apperrors.ErrForbidden
	}
}

// ownerFor returns the owner recorded on new content. Educators own what
// they create; admin-created content has no owner.
func ownerFor(educatorRepo repository.EducatorRepository, actor Actor) (*uint, error) {
	switch {
	case actor.IsEducator():
		educatorID, err := educatorIDFor(educatorRepo, actor)
		if err != nil {
			return nil, err
		}
		return &educatorID, nil
	case actor.IsAdmin():
		return nil, nil
	default:
		return nil, apperrors.ErrForbidden
	}
}
