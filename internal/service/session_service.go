package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/yourusername/lms-api/internal/domain/repository"
	apperrors "github.com/yourusername/lms-api/internal/pkg/errors"
)

const lastActivityKeyPrefix = "session:last_activity:"

// TokenRevoker revokes every session of a user.
type TokenRevoker interface {
	RevokeAllUserTokens(ctx context.Context, userID uint) error
}

// SessionService tracks per-user last activity and enforces the idle timeout.
type SessionService struct {
	cache       repository.CacheRepository
	revoker     TokenRevoker
	idleTimeout time.Duration
	retention   time.Duration
	now         func() time.Time
}

// NewSessionService creates the idle tracker. retention bounds how long an
// activity record outlives the last request and should cover the refresh
// token lifetime.
func NewSessionService(cache repository.CacheRepository, revoker TokenRevoker, idleTimeout, retention time.Duration) *SessionService {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if retention < idleTimeout {
		retention = idleTimeout * 2
	}
	return &SessionService{
		cache:       cache,
		revoker:     revoker,
		idleTimeout: idleTimeout,
		retention:   retention,
		now:         time.Now,
	}
}

// lastActivityKey is the cache key holding a user's last request time.
func lastActivityKey(userID uint) string {
	return fmt.Sprintf("%s%d", lastActivityKeyPrefix, userID)
}

// Touch stores now as the user's last activity.
func (s *SessionService) Touch(userID uint) {
	// Unix seconds
	ts := strconv.FormatInt(s.now().Unix(), 10)
	if err := s.cache.Set(lastActivityKey(userID), ts, s.retention); err != nil {
		log.Printf("[SessionService] failed to store activity for user ID=%d: %v", userID, err)
	}
}

// Clear drops the user's activity record.
func (s *SessionService) Clear(userID uint) {
	if err := s.cache.Delete(lastActivityKey(userID)); err != nil {
		log.Printf("[SessionService] failed to clear activity for user ID=%d: %v", userID, err)
	}
}

// Enforce refreshes the user's activity or, when the idle gap exceeds the
// timeout, revokes the user's tokens and returns ErrSessionIdleTimeout.
// Cache failures let the request through.
func (s *SessionService) Enforce(ctx context.Context, userID uint) error {
	raw, err := s.cache.Get(lastActivityKey(userID))
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[SessionService] failed to read activity for user ID=%d: %v", userID, err)
			return nil
		}
		// First request since login or since the record expired
		s.Touch(userID)
		return nil
	}

	last, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil {
		log.Printf("[SessionService] malformed activity record for user ID=%d: %q", userID, raw)
		s.Touch(userID)
		return nil
	}

	// Idle too long: end every session
	if s.now().Sub(time.Unix(last, 0)) > s.idleTimeout {
		log.Printf("[SessionService] user ID=%d idle for more than %v, logging out", userID, s.idleTimeout)
		if s.revoker != nil {
			if err := s.revoker.RevokeAllUserTokens(ctx, userID); err != nil {
				log.Printf("[SessionService] failed to revoke tokens of idle user ID=%d: %v", userID, err)
			}
		}
		s.Clear(userID)
		return ErrSessionIdleTimeout
	}

	s.Touch(userID)
	return nil
}
