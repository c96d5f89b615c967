// Package auth issues and verifies the signed tokens carried by the links
// that requesters and reviewers receive by e-mail.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/cimillas/hut-booking/internal/domain"
)

type Role string

const (
	RoleRequester Role = "requester"
	RoleReviewer  Role = "reviewer"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrNoSecret     = errors.New("token secret is empty")
)

// Principal is the identity a token grants. Reviewer is set only for the
// reviewer role; BookingID optionally scopes a requester link to one booking.
type Principal struct {
	Role      Role
	Email     string
	Reviewer  domain.Reviewer
	BookingID string
}

// CanAccess reports whether p may act on the booking with the given id.
func (p Principal) CanAccess(bookingID string) bool {
	return p.BookingID == "" || p.BookingID == bookingID
}

type claims struct {
	Role      Role   `json:"role"`
	Email     string `json:"email"`
	Reviewer  string `json:"reviewer,omitempty"`
	BookingID string `json:"booking_id,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 tokens. Tokens carry no expiry: links in
// old e-mails keep working.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrNoSecret
	}
	return &Issuer{secret: []byte(secret), now: time.Now}, nil
}

func (i *Issuer) Issue(p Principal) (string, error) {
	if err := validate(p); err != nil {
		return "", err
	}
	c := claims{
		Role:      p.Role,
		Email:     strings.ToLower(strings.TrimSpace(p.Email)),
		BookingID: p.BookingID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(i.now()),
		},
	}
	if p.Role == RoleReviewer {
		c.Reviewer = p.Reviewer.String()
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (i *Issuer) Parse(token string) (Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := Principal{Role: c.Role, Email: c.Email, BookingID: c.BookingID}
	if c.Role == RoleReviewer {
		r, err := domain.ParseReviewer(c.Reviewer)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		p.Reviewer = r
	}
	if err := validate(p); err != nil {
		return Principal{}, err
	}
	return p, nil
}

func validate(p Principal) error {
	switch p.Role {
	case RoleRequester:
		if strings.TrimSpace(p.Email) == "" {
			return fmt.Errorf("%w: requester token without email", ErrInvalidToken)
		}
	case RoleReviewer:
		if !p.Reviewer.Valid() {
			return fmt.Errorf("%w: reviewer token without reviewer", ErrInvalidToken)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", ErrInvalidToken, p.Role)
	}
	return nil
}
