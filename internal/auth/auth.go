// Package auth issues and validates player and admin tokens.
//
// Players are guests: registration takes a nickname and returns a signed
// token, no password. The authoring and control surfaces require an admin
// token obtained with the operator passphrase.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"quizslot/internal/config"
	"quizslot/internal/domain"
	"quizslot/internal/events"
)

var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNicknameRequired   = errors.New("nickname is required")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotAdmin           = errors.New("admin privileges required")
)

const maxNicknameLen = 32

// Service provides authentication functionality
type Service struct {
	db        *sql.DB
	config    *config.AuthConfig
	events    *events.Service
	adminHash []byte
}

// New creates a new auth service. The operator passphrase is hashed once at
// startup so the plaintext never sits in memory longer than necessary.
func New(db *sql.DB, cfg *config.AuthConfig, eventSvc *events.Service) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassphrase), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin passphrase: %w", err)
	}

	return &Service{
		db:        db,
		config:    cfg,
		events:    eventSvc,
		adminHash: hash,
	}, nil
}

// RegisterRequest contains guest registration data
type RegisterRequest struct {
	Nickname string `json:"nickname"`
}

// RegisterResponse contains the new player and their token
type RegisterResponse struct {
	Player *domain.Player `json:"player"`
	Token  string         `json:"token"`
}

// Register creates a guest player and issues a token.
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*RegisterResponse, error) {
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return nil, ErrNicknameRequired
	}
	if len(nickname) > maxNicknameLen {
		nickname = nickname[:maxNicknameLen]
	}

	now := time.Now().UTC()
	player := &domain.Player{
		ID:        uuid.New().String(),
		Nickname:  nickname,
		CreatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, nickname, created_at)
		VALUES ($1, $2, $3)
	`, player.ID, player.Nickname, player.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create player: %w", err)
	}

	token, err := s.signToken(player.ID, player.Nickname, false)
	if err != nil {
		return nil, err
	}

	s.events.Log(ctx, events.EventPlayerRegistered, domain.SeverityInfo,
		fmt.Sprintf("Player registered: %s", player.Nickname),
		map[string]string{"player_id": player.ID},
		events.WithPlayer(player.ID))

	return &RegisterResponse{Player: player, Token: token}, nil
}

// AdminLogin exchanges the operator passphrase for an admin token.
func (s *Service) AdminLogin(ctx context.Context, passphrase string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminHash, []byte(passphrase)); err != nil {
		return "", ErrInvalidCredentials
	}
	return s.signToken("admin", "admin", true)
}

func (s *Service) signToken(subject, nickname string, admin bool) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      subject,
		"nickname": nickname,
		"admin":    admin,
		"exp":      now.Add(s.config.TokenExpiry).Unix(),
		"iat":      now.Unix(),
	})

	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Claims carries the validated identity of a request.
type Claims struct {
	PlayerID string
	Nickname string
	Admin    bool
}

// ValidateToken parses and verifies a token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}
	nickname, _ := claims["nickname"].(string)
	admin, _ := claims["admin"].(bool)

	return &Claims{PlayerID: sub, Nickname: nickname, Admin: admin}, nil
}

// RequireAdmin validates a token and rejects non-admin identities.
func (s *Service) RequireAdmin(tokenString string) (*Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if !claims.Admin {
		return nil, ErrNotAdmin
	}
	return claims, nil
}

// GetPlayer retrieves a player by ID
func (s *Service) GetPlayer(ctx context.Context, playerID string) (*domain.Player, error) {
	var player domain.Player
	err := s.db.QueryRowContext(ctx, `
		SELECT id, nickname, created_at FROM players WHERE id = $1
	`, playerID).Scan(&player.ID, &player.Nickname, &player.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}
	return &player, nil
}
