package auth

import (
	"bytes"
	"crypto/hmac"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// BearerPrefix is the scheme tag carried in front of every issued token.
const BearerPrefix = "Bearer "

// DefaultTokenDuration is the validity window, in seconds, used when none is given.
const DefaultTokenDuration int64 = 86400

const (
	segmentSeparator = "."
	segmentCount     = 5
)

var (
	ErrMalformedToken   = errors.New("malformed token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("expired token")
	ErrDecode           = errors.New("undecodable token segment")
)

// Header is the fixed metadata segment of a token.
type Header struct {
	Alg  string `json:"alg"`
	Type string `json:"type"`
}

var tokenHeader = Header{Alg: "HS256", Type: "JWT"}

// Claims is the payload carried by a token.
type Claims map[string]any

// Subject returns the subject id claim, or "" when absent.
func (c Claims) Subject() string {
	id, _ := c["id"].(string)
	return id
}

// Verified is the result of a successful verification.
type Verified struct {
	Claims    Claims
	IssuedAt  time.Time
	ExpiresAt time.Time
	Valid     bool
}

// segmentCodec and segmentParser provide the base64url (unpadded) segment encoding.
var (
	segmentCodec  jwt.Token
	segmentParser = jwt.NewParser(jwt.WithPaddingAllowed())
)

// Encode serializes value to JSON and returns it as an unpadded base64url segment.
func Encode(value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode segment: %w", err)
	}
	return segmentCodec.EncodeSegment(raw), nil
}

// Decode reverses Encode into out. Padded and unpadded input are both accepted.
// Numbers landing in untyped values decode as json.Number, so integer claims
// keep their exact value.
func Decode(segment string, out any) error {
	raw, err := segmentParser.DecodeSegment(segment)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after value", ErrDecode)
	}
	return nil
}

// Sign computes the HMAC-SHA256 signature of the four encoded fields keyed by secret.
func Sign(encodedHeader, encodedPayload, encodedDuration, encodedIssuedAt, secret string) (string, error) {
	input := strings.Join([]string{encodedHeader, encodedPayload, encodedDuration, encodedIssuedAt}, segmentSeparator)
	digest, err := jwt.SigningMethodHS256.Sign(input, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return segmentCodec.EncodeSegment(digest), nil
}

// signedToken holds the wire segments. The first four are the signed material;
// Issue and Verify both sign through (signedToken).sign so the list and order
// cannot drift between them.
type signedToken struct {
	header    string
	payload   string
	duration  string
	issuedAt  string
	signature string
}

func (t signedToken) sign(secret string) (string, error) {
	return Sign(t.header, t.payload, t.duration, t.issuedAt, secret)
}

func (t signedToken) String() string {
	return strings.Join([]string{t.header, t.payload, t.duration, t.issuedAt, t.signature}, segmentSeparator)
}

func parseSignedToken(raw string) (signedToken, error) {
	parts := strings.Split(raw, segmentSeparator)
	if len(parts) != segmentCount {
		return signedToken{}, fmt.Errorf("%w: expected %d segments, got %d", ErrMalformedToken, segmentCount, len(parts))
	}
	return signedToken{
		header:    parts[0],
		payload:   parts[1],
		duration:  parts[2],
		issuedAt:  parts[3],
		signature: parts[4],
	}, nil
}

// TokenManager issues and verifies signed session tokens. The signing secret is
// supplied per call; the manager itself only holds the default duration and clock.
type TokenManager struct {
	duration int64
	now      func() time.Time
}

// NewTokenManager builds a manager with the given default duration in seconds.
func NewTokenManager(durationSeconds int64) *TokenManager {
	if durationSeconds <= 0 {
		durationSeconds = DefaultTokenDuration
	}
	return &TokenManager{duration: durationSeconds, now: time.Now}
}

// WithClock replaces the wall clock, used by tests to move time.
func (tm *TokenManager) WithClock(now func() time.Time) *TokenManager {
	tm.now = now
	return tm
}

// Duration returns the default validity window in seconds.
func (tm *TokenManager) Duration() int64 {
	return tm.duration
}

// Issue builds a token for claims signed with secret. A non-positive duration
// uses the manager default. The returned string carries the Bearer prefix.
func (tm *TokenManager) Issue(claims Claims, secret string, duration int64) (string, time.Time, error) {
	if duration <= 0 {
		duration = tm.duration
	}
	issuedAt := tm.now().UTC()

	var (
		tok signedToken
		err error
	)
	if tok.header, err = Encode(tokenHeader); err != nil {
		return "", time.Time{}, err
	}
	if tok.payload, err = Encode(claims); err != nil {
		return "", time.Time{}, err
	}
	if tok.duration, err = Encode(duration); err != nil {
		return "", time.Time{}, err
	}
	if tok.issuedAt, err = Encode(issuedAt); err != nil {
		return "", time.Time{}, err
	}
	if tok.signature, err = tok.sign(secret); err != nil {
		return "", time.Time{}, err
	}

	expiresAt := issuedAt.Add(time.Duration(duration) * time.Second)
	return BearerPrefix + tok.String(), expiresAt, nil
}

// Verify checks the signature against secret, then the duration window, and
// returns the decoded claims. The Bearer prefix is optional and stripped at
// most once. Numeric claims come back as json.Number.
func (tm *TokenManager) Verify(token, secret string) (*Verified, error) {
	tok, err := parseSignedToken(strings.TrimPrefix(token, BearerPrefix))
	if err != nil {
		return nil, err
	}

	expected, err := tok.sign(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !hmac.Equal([]byte(expected), []byte(tok.signature)) {
		return nil, ErrInvalidSignature
	}

	var issuedAt time.Time
	if err := Decode(tok.issuedAt, &issuedAt); err != nil {
		return nil, err
	}
	var duration float64
	if err := Decode(tok.duration, &duration); err != nil {
		return nil, err
	}

	elapsed := tm.now().Sub(issuedAt).Seconds()
	if elapsed > duration {
		return nil, ErrExpiredToken
	}

	var claims Claims
	if err := Decode(tok.payload, &claims); err != nil {
		return nil, err
	}

	return &Verified{
		Claims:    claims,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(time.Duration(duration * float64(time.Second))),
		Valid:     true,
	}, nil
}
