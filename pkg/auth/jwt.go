package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/lms-api/internal/domain/entity"
	"github.com/yourusername/lms-api/internal/domain/repository"
	"github.com/yourusername/lms-api/internal/pubsub"
)

const (
	tokenIssuer   = "lms-api"
	tokenAudience = "lms-user"

	// UsagePasswordReset marks tokens issued after a verified OTP.
	UsagePasswordReset = "password_reset"

	invalidationChannel = "jwt_invalidation_events"
)

// Token parsing errors
var (
	ErrTokenMalformed   = errors.New("token is malformed")
	ErrTokenExpired     = errors.New("token is expired")
	ErrTokenInvalid     = errors.New("invalid token")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrTokenUsage       = errors.New("invalid token usage")
)

// JWTCustomClaims carries the user identity plus the CSRF secret of the session
type JWTCustomClaims struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	CSRFSecret string `json:"csrf_secret,omitempty"`
	// Usage is empty for access tokens and names the purpose of special-purpose tokens
	Usage string `json:"usage,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and verifies HMAC tokens and tracks per-user invalidation
type JWTService struct {
	secret        []byte
	accessExpiry  time.Duration
	purposeExpiry time.Duration
	// in-memory mirror of invalid_tokens
	invalidatedUsers map[uint]time.Time
	mu               sync.RWMutex
	invalidTokenRepo repository.InvalidTokenRepository
	cleanupInterval  time.Duration
	appCtx           context.Context
	pubsub           pubsub.Provider
}

// invalidationEvent is broadcast to the other instances.
type invalidationEvent struct {
	UserID uint `json:"user_id"`
	// unix nanoseconds
	InvalidationTime int64 `json:"invalidation_time"`
}

// NewJWTService creates the service, loads invalidations from the database and
// starts the periodic cleanup routine bound to appCtx.
func NewJWTService(
	secret string,
	accessExpiry time.Duration,
	purposeExpiry time.Duration,
	invalidTokenRepo repository.InvalidTokenRepository,
	cleanupInterval time.Duration,
	appCtx context.Context,
) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required for JWTService")
	}
	if invalidTokenRepo == nil {
		return nil, fmt.Errorf("InvalidTokenRepository is required for JWTService")
	}
	if appCtx == nil {
		return nil, fmt.Errorf("appCtx is required for JWTService")
	}
	// Defaults
	if accessExpiry <= 0 {
		accessExpiry = 30 * time.Minute
	}
	if purposeExpiry <= 0 {
		purposeExpiry = 15 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	service := &JWTService{
		secret:           []byte(secret),
		accessExpiry:     accessExpiry,
		purposeExpiry:    purposeExpiry,
		invalidatedUsers: make(map[uint]time.Time),
		invalidTokenRepo: invalidTokenRepo,
		cleanupInterval:  cleanupInterval,
		appCtx:           appCtx,
		pubsub:           pubsub.NoOp{},
	}

	// Warm the cache from the database
	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	service.loadInvalidatedTokensFromDB(startupCtx)

	go service.runCleanupRoutine()

	return service, nil
}

// AccessExpiry returns the lifetime of access tokens.
func (s *JWTService) AccessExpiry() time.Duration {
	return s.accessExpiry
}

// loadInvalidatedTokensFromDB fills the in-memory cache. Errors are logged only.
func (s *JWTService) loadInvalidatedTokensFromDB(ctx context.Context) {
	tokens, err := s.invalidTokenRepo.GetAllInvalidTokens(ctx)
	if err != nil {
		log.Printf("[JWT] error loading invalidated tokens from DB: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		s.invalidatedUsers[token.UserID] = token.InvalidationTime
	}
	log.Printf("[JWT] loaded %d invalidated users from database", len(tokens))
}

// GenerateToken issues an access token for user bound to csrfSecret.
func (s *JWTService) GenerateToken(user *entity.User, csrfSecret string) (string, error) {
	if csrfSecret == "" {
		return "", errors.New("CSRF secret cannot be empty for access tokens")
	}

	now := time.Now()
	claims := &JWTCustomClaims{
		UserID:     user.ID,
		Email:      user.Email,
		Role:       user.Role,
		CSRFSecret: csrfSecret,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", user.ID),
			Audience:  jwt.ClaimStrings{tokenAudience},
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] failed to sign access token for user ID=%d: %v", user.ID, err)
		return "", err
	}
	return tokenString, nil
}

// GeneratePurposeToken issues a short-lived token that only ParsePurposeToken accepts.
func (s *JWTService) GeneratePurposeToken(userID uint, email, usage string) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		UserID: userID,
		Email:  email,
		Usage:  usage,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.purposeExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", userID),
			Audience:  jwt.ClaimStrings{tokenAudience + ":" + usage},
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken verifies an access token and checks user invalidation.
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Usage != "" {
		return nil, ErrTokenUsage
	}
	if s.isInvalidated(claims) {
		log.Printf("[JWT] token of user ID=%d issued at %v has been invalidated", claims.UserID, claims.IssuedAt.Time)
		return nil, ErrTokenInvalidated
	}
	return claims, nil
}

// ParsePurposeToken verifies a special-purpose token issued for usage.
func (s *JWTService) ParsePurposeToken(tokenString, usage string) (*JWTCustomClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Usage != usage {
		return nil, ErrTokenUsage
	}
	if s.isInvalidated(claims) {
		return nil, ErrTokenInvalidated
	}
	return claims, nil
}

// parse verifies the signature and standard claims and maps jwt errors to ours.
func (s *JWTService) parse(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Only HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, ErrTokenMalformed
			case ve.Errors&jwt.ValidationErrorExpired != 0:
				return nil, ErrTokenExpired
			}
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// isInvalidated reports whether the token was issued no later than the user's invalidation time.
func (s *JWTService) isInvalidated(claims *JWTCustomClaims) bool {
	if claims.UserID == 0 || claims.IssuedAt == nil {
		return false
	}
	s.mu.RLock()
	invalidationTime, exists := s.invalidatedUsers[claims.UserID]
	s.mu.RUnlock()
	return exists && !claims.IssuedAt.Time.After(invalidationTime)
}

// InvalidateTokensForUser makes every token issued to the user so far unusable.
func (s *JWTService) InvalidateTokensForUser(ctx context.Context, userID uint) error {
	now := time.Now()

	// Local cache first, then the database and the other instances
	s.mu.Lock()
	s.invalidatedUsers[userID] = now
	s.mu.Unlock()

	if err := s.invalidTokenRepo.AddInvalidToken(ctx, userID, now); err != nil {
		log.Printf("[JWT] failed to persist invalidation for user ID=%d: %v", userID, err)
		return err
	}

	s.publishInvalidation(userID, now)
	log.Printf("[JWT] tokens invalidated for user ID=%d at %v", userID, now)
	return nil
}

// SyncInvalidations shares invalidations with the other API instances through
// provider and applies theirs locally until appCtx is done.
func (s *JWTService) SyncInvalidations(provider pubsub.Provider) error {
	if provider == nil {
		return errors.New("pubsub provider cannot be nil")
	}
	msgCh, err := provider.Subscribe(s.appCtx, invalidationChannel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to invalidation events: %w", err)
	}

	s.mu.Lock()
	s.pubsub = provider
	s.mu.Unlock()

	go s.listenForInvalidationEvents(msgCh)
	return nil
}

// publishInvalidation is best effort; the database stays authoritative.
func (s *JWTService) publishInvalidation(userID uint, at time.Time) {
	s.mu.RLock()
	provider := s.pubsub
	s.mu.RUnlock()

	payload, err := json.Marshal(invalidationEvent{UserID: userID, InvalidationTime: at.UnixNano()})
	if err != nil {
		log.Printf("[JWT] failed to marshal invalidation event for user ID=%d: %v", userID, err)
		return
	}
	if err := provider.Publish(invalidationChannel, payload); err != nil {
		log.Printf("[JWT] failed to publish invalidation event for user ID=%d: %v", userID, err)
	}
}

// listenForInvalidationEvents applies remote invalidations until msgCh closes.
func (s *JWTService) listenForInvalidationEvents(msgCh <-chan []byte) {
	for payload := range msgCh {
		var event invalidationEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("[JWT] failed to unmarshal invalidation event: %v", err)
			continue
		}
		if event.UserID == 0 {
			continue
		}
		at := time.Unix(0, event.InvalidationTime)

		// Keep the latest time
		s.mu.Lock()
		if current, ok := s.invalidatedUsers[event.UserID]; !ok || at.After(current) {
			s.invalidatedUsers[event.UserID] = at
		}
		s.mu.Unlock()
	}
	log.Printf("[JWT] invalidation event listener stopped")
}

// CleanupInvalidatedUsers drops invalidation records older than any live token.
func (s *JWTService) CleanupInvalidatedUsers(ctx context.Context, maxTokenLifetime time.Duration) error {
	cutoffTime := time.Now().Add(-maxTokenLifetime)

	if err := s.invalidTokenRepo.CleanupOldInvalidTokens(ctx, cutoffTime); err != nil {
		log.Printf("[JWTService] error cleaning up invalid tokens in DB: %v", err)
	}

	// Then the cache
	s.mu.Lock()
	defer s.mu.Unlock()
	cleaned := 0
	for userID, invalidationTime := range s.invalidatedUsers {
		if invalidationTime.Before(cutoffTime) {
			delete(s.invalidatedUsers, userID)
			cleaned++
		}
	}
	log.Printf("[JWTService] cleaned up %d stale entries from invalidation cache", cleaned)
	return nil
}

// runCleanupRoutine calls CleanupInvalidatedUsers every cleanupInterval until appCtx is done.
func (s *JWTService) runCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.cleanupInterval/2)
			if err := s.CleanupInvalidatedUsers(ctx, 2*s.accessExpiry); err != nil {
				log.Printf("[JWTService] error during periodic cleanup: %v", err)
			}
			cancel()
		case <-s.appCtx.Done():
			log.Printf("[JWTService] cleanup routine stopped")
			return
		}
	}
}
