package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roamplan/roamplan/internal/core/events"
	"golang.org/x/crypto/bcrypt"
)

// Repository defines the data access methods for guest identities.
type Repository interface {
	Create(g *Guest, secretHash string) error
	GetByID(id string) (*Guest, string, error)
	UpdateLastSeen(id string, at time.Time) error
	Clear(id string, at time.Time) error
}

// TokenGenerator issues and verifies session tokens.
type TokenGenerator interface {
	GenerateSessionToken(guestID string) (string, error)
	ParseSessionToken(token string) (string, error)
}

// JWTTokenGenerator signs session tokens with an HMAC secret.
type JWTTokenGenerator struct {
	Secret     []byte
	SessionTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret:     []byte(secret),
		SessionTTL: ttl,
	}
}

func (g *JWTTokenGenerator) GenerateSessionToken(guestID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   guestID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.SessionTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.Secret)
}

func (g *JWTTokenGenerator) ParseSessionToken(tokenStr string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.Secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid session token")
	}

	return claims.Subject, nil
}

// Service is the injected identity provider: get-or-create, persist, clear.
type Service struct {
	repo       Repository
	tokens     TokenGenerator
	bus        *events.EventBus
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo Repository, tokens TokenGenerator, bus *events.EventBus, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		tokens:     tokens,
		bus:        bus,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// GetOrCreate resumes the identity named in the DTO when its secret matches,
// and mints a brand new one otherwise.
func (s *Service) GetOrCreate(dto SessionDTO) (SessionResult, error) {
	if err := dto.Validate(); err != nil {
		return SessionResult{}, err
	}

	if dto.GuestID != "" {
		result, err := s.resume(dto.GuestID, dto.Secret)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrGuestNotFound) && !errors.Is(err, ErrGuestCleared) {
			return SessionResult{}, err
		}
		// fall through to a fresh identity when the old one is gone
		s.logger.Info("stale guest identity, creating a new one", "guest_id", dto.GuestID)
	}

	return s.create(dto.DisplayName)
}

func (s *Service) resume(guestID, secret string) (SessionResult, error) {
	guest, secretHash, err := s.repo.GetByID(guestID)
	if err != nil {
		return SessionResult{}, ErrGuestNotFound
	}
	if guest.IsCleared() {
		return SessionResult{}, ErrGuestCleared
	}

	if err := bcrypt.CompareHashAndPassword([]byte(secretHash), []byte(secret)); err != nil {
		s.logger.Warn("guest secret mismatch", "guest_id", guestID)
		return SessionResult{}, ErrBadSecret
	}

	now := time.Now()
	if err := s.repo.UpdateLastSeen(guestID, now); err != nil {
		s.logger.Warn("failed to update last seen", "guest_id", guestID, "error", err)
	}
	guest.LastSeenAt = now

	token, err := s.tokens.GenerateSessionToken(guestID)
	if err != nil {
		return SessionResult{}, err
	}

	return SessionResult{Guest: guest, Token: token}, nil
}

func (s *Service) create(displayName string) (SessionResult, error) {
	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return SessionResult{}, err
	}
	secret := hex.EncodeToString(secretBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), s.bcryptCost)
	if err != nil {
		return SessionResult{}, err
	}

	now := time.Now()
	guest := &Guest{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		CreatedAt:   now,
		LastSeenAt:  now,
	}

	if err := s.repo.Create(guest, string(hash)); err != nil {
		s.logger.Error("failed to create guest identity", "error", err)
		return SessionResult{}, err
	}

	token, err := s.tokens.GenerateSessionToken(guest.ID)
	if err != nil {
		return SessionResult{}, err
	}

	s.publish(events.NewGuestEvent(events.GuestSessionStarted, guest.ID))
	s.logger.Info("guest identity created", "guest_id", guest.ID)

	return SessionResult{Guest: guest, Secret: secret, Token: token}, nil
}

// Clear retires the identity. Its trips stay in storage but can no longer be
// reached through a session.
func (s *Service) Clear(guestID string) error {
	guest, _, err := s.repo.GetByID(guestID)
	if err != nil {
		return ErrGuestNotFound
	}
	if guest.IsCleared() {
		return nil
	}

	if err := s.repo.Clear(guestID, time.Now()); err != nil {
		s.logger.Error("failed to clear guest identity", "guest_id", guestID, "error", err)
		return err
	}

	s.publish(events.NewGuestEvent(events.GuestIdentityCleared, guestID))
	s.logger.Info("guest identity cleared", "guest_id", guestID)
	return nil
}

// Authenticate validates a session token and returns the guest it names.
func (s *Service) Authenticate(token string) (string, error) {
	guestID, err := s.tokens.ParseSessionToken(token)
	if err != nil {
		return "", err
	}

	guest, _, err := s.repo.GetByID(guestID)
	if err != nil {
		return "", ErrGuestNotFound
	}
	if guest.IsCleared() {
		return "", ErrGuestCleared
	}

	return guestID, nil
}

func (s *Service) publish(event events.BaseEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(context.Background(), event); err != nil {
		s.logger.Warn("failed to publish identity event", "error", err)
	}
}
