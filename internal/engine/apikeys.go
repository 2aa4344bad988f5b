package engine

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"resourcemap/internal/domain"
	"resourcemap/internal/repo"
)

const apiKeyPrefix = "rmk_"

// CreateAPIKey mints a key for actorID. The plaintext secret is returned
// once and never stored.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (string, domain.APIKey, error) {
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return "", domain.APIKey{}, inputErrorf(nil, "actor id required")
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", domain.APIKey{}, fmt.Errorf("generate key: %w", err)
	}
	secret := apiKeyPrefix + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        "key-" + uuid.NewString(),
		ActorID:   actorID,
		Name:      strings.TrimSpace(name),
		KeyHash:   repo.HashAPIKey(secret),
		CreatedAt: e.timestamp(),
	}
	if err := e.Repo.InsertAPIKey(ctx, nil, key); err != nil {
		return "", domain.APIKey{}, err
	}
	e.logger().Info("api key created", "id", key.ID, "actor", actorID)
	return secret, key, nil
}

// AuthenticateAPIKey returns the key matching secret, or repo.ErrNotFound.
func (e Engine) AuthenticateAPIKey(ctx context.Context, secret string) (domain.APIKey, error) {
	if strings.TrimSpace(secret) == "" {
		return domain.APIKey{}, repo.ErrNotFound
	}
	return e.Repo.GetAPIKeyByHash(ctx, repo.HashAPIKey(secret))
}
