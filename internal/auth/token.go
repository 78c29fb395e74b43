package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/guest-services/internal/domain"
)

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttlMinutes int) *TokenManager {
	if ttlMinutes <= 0 {
		ttlMinutes = 60
	}
	return &TokenManager{secret: []byte(secret), ttl: time.Duration(ttlMinutes) * time.Minute}
}

// Claims describes JWT payload. The subject is the guest id for guests and
// the staff user id for staff.
type Claims struct {
	Kind        domain.PrincipalKind `json:"kind"`
	HotelID     string               `json:"hotelId,omitempty"`
	StayID      string               `json:"stayId,omitempty"`
	Role        domain.StaffRole     `json:"role,omitempty"`
	Departments []string             `json:"departments,omitempty"`
	Name        string               `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts claims to the workflow's principal.
func (c *Claims) Principal() (domain.Principal, error) {
	switch c.Kind {
	case domain.PrincipalGuest:
		if c.Subject == "" || c.HotelID == "" || c.StayID == "" {
			return domain.Principal{}, errors.New("guest token missing stay scope")
		}
		p := domain.GuestPrincipal(c.Subject, c.HotelID, c.StayID)
		p.Name = c.Name
		return p, nil
	case domain.PrincipalStaff:
		if c.Subject == "" || c.HotelID == "" {
			return domain.Principal{}, errors.New("staff token missing hotel scope")
		}
		role := c.Role
		if role == "" {
			role = domain.StaffRoleStaff
		}
		p := domain.StaffPrincipal(c.Subject, c.HotelID, role, domain.NormalizeDepartments(c.Departments)...)
		p.Name = c.Name
		return p, nil
	case domain.PrincipalPlatformAdmin:
		p := domain.Principal{Kind: domain.PrincipalPlatformAdmin, StaffUserID: c.Subject, Name: c.Name}
		if c.HotelID != "" {
			hotelID := c.HotelID
			p.HotelID = &hotelID
		}
		return p, nil
	}
	return domain.Principal{}, errors.New("unknown principal kind")
}

// GenerateToken builds and signs a JWT for the principal.
func (tm *TokenManager) GenerateToken(principal domain.Principal) (string, time.Time, error) {
	subject := principal.StaffUserID
	if principal.IsGuest() {
		subject = principal.GuestID
	}
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Kind:        principal.Kind,
		HotelID:     principal.HotelIDValue(),
		StayID:      principal.StayIDValue(),
		Role:        principal.Role,
		Departments: principal.Departments,
		Name:        principal.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
