package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pusat-bantuan/helpcenter-auth/internal/models"
	appErrors "github.com/pusat-bantuan/helpcenter-auth/pkg/errors"
)

const opaqueTokenBytes = 32

// dummyHash is a valid cost-12 bcrypt digest used to equalise the latency of
// the unknown-email login path with the wrong-password path.
const dummyHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Codec implements the cryptographic primitives of the credential core:
// signed access tokens, opaque refresh/reset tokens, storage digests and
// password hashing. It holds no state beyond its configuration.
type Codec struct {
	secret     []byte
	accessTTL  time.Duration
	issuer     string
	bcryptCost int
}

// NewCodec constructs a codec. A bcrypt cost below the minimum falls back
// to 12, the cost the stored hashes were produced with.
func NewCodec(secret string, accessTTL time.Duration, issuer string, bcryptCost int) *Codec {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = 12
	}
	return &Codec{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		issuer:     issuer,
		bcryptCost: bcryptCost,
	}
}

// AccessTokenTTL reports the configured access token lifetime.
func (c *Codec) AccessTokenTTL() time.Duration {
	return c.accessTTL
}

// SignAccessToken produces a signed HS256 token embedding the subject id,
// email and role, expiring after the configured lifetime.
func (c *Codec) SignAccessToken(user *models.User) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(c.accessTTL)
	claims := &models.AccessClaims{
		UserID:   user.ID,
		Role:     user.Role,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyAccessToken parses and validates an access token. Malformed
// payloads, bad signatures and expired lifetimes are distinct causes
// internally but all surface as UNAUTHORIZED.
func (c *Codec) VerifyAccessToken(raw string) (*models.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(raw, &models.AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.AccessClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// NewOpaqueToken generates a 256-bit random value used for refresh and
// reset tokens. The value is unrelated to any signed structure.
func (c *Codec) NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash returns the hex-encoded SHA-256 digest of an opaque token. Used for
// storage and comparison only; raw tokens are never persisted.
func (c *Codec) Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashPassword hashes a plaintext password with bcrypt at the configured cost.
func (c *Codec) HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), c.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash.
func (c *Codec) CheckPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// DummyPasswordCheck burns one bcrypt comparison against a fixed hash so
// the unknown-email branch of login costs the same as a real mismatch.
func (c *Codec) DummyPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(plain))
}
