// Package auth implements the Auth Verifier (C7): a dual-path bearer
// token verifier modeled on the teacher's HMAC/RS256 TokenIssuer pattern,
// here specialized to an internally-signed API key plus an externally
// verified OAuth-style bearer token. See spec.md §4.7.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quoth-dev/quoth-mcp/internal/apperr"
	"github.com/quoth-dev/quoth-mcp/internal/model"
	"github.com/quoth-dev/quoth-mcp/internal/providers"
)

const audienceMCPServer = "mcp-server"

// timestampTolerance is the clock-skew allowance for signed payload
// timestamps (§4.7: "±300 seconds").
const timestampTolerance = 300 * time.Second

// Record is the normalized outcome of a successful verification.
type Record struct {
	ProjectID uuid.UUID
	UserID    uuid.UUID
	Role      model.Role
}

// apiKeyClaims are the claims of an internally-signed API key.
type apiKeyClaims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Role   model.Role `json:"role"`
}

// Verifier tries the internal signed-key path, then the external identity
// provider path, rejecting with Unauthenticated if neither accepts.
type Verifier struct {
	jwtSecret []byte
	appURL    string
	identity  providers.IdentityProvider // may be nil if no external provider configured
}

// New constructs a Verifier. identity may be nil, disabling the external
// OAuth-style verification path.
func New(jwtSecret, appURL string, identity providers.IdentityProvider) *Verifier {
	return &Verifier{jwtSecret: []byte(jwtSecret), appURL: appURL, identity: identity}
}

// IssueAPIKey signs a new internal API key for (projectID, userID, role),
// used by the project-provisioning path and by tests.
func (v *Verifier) IssueAPIKey(projectID, userID uuid.UUID, role model.Role, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := apiKeyClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.appURL,
			Audience:  jwt.ClaimStrings{audienceMCPServer},
			Subject:   projectID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
		Role:   role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.jwtSecret)
}

// Verify tries the internal signed-key verifier first, then the external
// identity provider, returning Unauthenticated if both fail.
func (v *Verifier) Verify(ctx context.Context, token string) (*Record, error) {
	if rec, err := v.verifyAPIKey(token); err == nil {
		return rec, nil
	}

	if v.identity != nil {
		if rec, err := v.verifyExternal(ctx, token); err == nil {
			return rec, nil
		}
	}

	return nil, apperr.New(apperr.Unauthenticated, "token rejected by every configured verifier")
}

func (v *Verifier) verifyAPIKey(tokenStr string) (*Record, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		&apiKeyClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return v.jwtSecret, nil
		},
		jwt.WithIssuer(v.appURL),
		jwt.WithAudience(audienceMCPServer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(timestampTolerance),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*apiKeyClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("invalid api key claims")
	}

	projectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid project claim: %w", err)
	}
	if !validRole(claims.Role) {
		return nil, fmt.Errorf("invalid role claim %q", claims.Role)
	}

	return &Record{ProjectID: projectID, UserID: claims.UserID, Role: claims.Role}, nil
}

// verifyExternal calls the external identity provider and reads project
// and role from the signed claim inside the token itself — never solely
// from the provider's user record, because the claim is the source of
// truth for the project binding (§4.7).
func (v *Verifier) verifyExternal(ctx context.Context, tokenStr string) (*Record, error) {
	user, err := v.identity.VerifyToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}

	projectRaw, ok := user.Claims["project_id"].(string)
	if !ok || projectRaw == "" {
		return nil, fmt.Errorf("external token missing project_id claim")
	}
	projectID, err := uuid.Parse(projectRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid project_id claim: %w", err)
	}

	roleRaw, _ := user.Claims["role"].(string)
	role := model.Role(roleRaw)
	if !validRole(role) {
		return nil, fmt.Errorf("invalid or missing role claim %q", roleRaw)
	}

	userID, err := uuid.Parse(user.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid external user id: %w", err)
	}

	return &Record{ProjectID: projectID, UserID: userID, Role: role}, nil
}

func validRole(r model.Role) bool {
	switch r {
	case model.RoleAdmin, model.RoleEditor, model.RoleViewer:
		return true
	default:
		return false
	}
}

// CanWrite reports whether role may perform write or propose operations
// (§4.7 role authority: viewer is read-only).
func CanWrite(role model.Role) bool {
	return role == model.RoleAdmin || role == model.RoleEditor
}

// CanApprove reports whether role may approve or reject proposals, or
// create/delete projects (§4.7: admin only).
func CanApprove(role model.Role) bool {
	return role == model.RoleAdmin
}
