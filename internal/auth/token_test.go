package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(duration int64) (*TokenManager, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 6, 8, 30, 0, 0, time.UTC)}
	return NewTokenManager(duration).WithClock(clock.Now), clock
}

func TestEncodeDecode(t *testing.T) {
	t.Run("url safe and unpadded", func(t *testing.T) {
		enc, err := Encode("??>~~~")
		require.NoError(t, err)
		assert.NotContains(t, enc, "+")
		assert.NotContains(t, enc, "/")
		assert.NotContains(t, enc, "=")

		var out string
		require.NoError(t, Decode(enc, &out))
		assert.Equal(t, "??>~~~", out)
	})

	t.Run("map round trip", func(t *testing.T) {
		in := map[string]any{"id": "u1", "email": "jane@example.com", "full_name": "Jane Doe"}
		enc, err := Encode(in)
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, Decode(enc, &out))
		assert.Equal(t, in, out)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := Encode(map[string]any{"b": 1, "a": 2})
		require.NoError(t, err)
		b, err := Encode(map[string]any{"a": 2, "b": 1})
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("padded input accepted", func(t *testing.T) {
		padded := base64.URLEncoding.EncodeToString([]byte(`"ab"`))
		require.True(t, strings.HasSuffix(padded, "="))

		var out string
		require.NoError(t, Decode(padded, &out))
		assert.Equal(t, "ab", out)
	})

	t.Run("invalid base64", func(t *testing.T) {
		var out any
		assert.ErrorIs(t, Decode("%%%", &out), ErrDecode)
	})

	t.Run("trailing data", func(t *testing.T) {
		var out map[string]any
		seg := base64.RawURLEncoding.EncodeToString([]byte(`{"id":"u1"}{}`))
		assert.ErrorIs(t, Decode(seg, &out), ErrDecode)
	})

	t.Run("invalid json", func(t *testing.T) {
		var out any
		seg := base64.RawURLEncoding.EncodeToString([]byte("{not json"))
		assert.ErrorIs(t, Decode(seg, &out), ErrDecode)
	})
}

func TestSign(t *testing.T) {
	a, err := Sign("h", "p", "d", "t", "secret")
	require.NoError(t, err)
	b, err := Sign("h", "p", "d", "t", "secret")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// 256-bit digest is 43 unpadded base64 characters.
	assert.Len(t, a, 43)

	other, err := Sign("h", "p", "d", "t2", "secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestIssueFormat(t *testing.T) {
	tm, clock := newTestManager(0)
	assert.Equal(t, DefaultTokenDuration, tm.Duration())

	token, expiresAt, err := tm.Issue(Claims{"id": "u1"}, "secretA", 0)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(token, BearerPrefix))
	assert.Len(t, strings.Split(strings.TrimPrefix(token, BearerPrefix), "."), 5)
	assert.Equal(t, clock.Now().Add(24*time.Hour), expiresAt)

	parts := strings.Split(strings.TrimPrefix(token, BearerPrefix), ".")
	var header Header
	require.NoError(t, Decode(parts[0], &header))
	assert.Equal(t, Header{Alg: "HS256", Type: "JWT"}, header)

	var duration int64
	require.NoError(t, Decode(parts[2], &duration))
	assert.Equal(t, DefaultTokenDuration, duration)
}

func TestVerifyRoundTrip(t *testing.T) {
	tm, _ := newTestManager(3600)
	payloads := []Claims{
		{"id": "u1"},
		{"id": "u2", "email": "a@b.co", "full_name": "Ann Bee", "username": "annb"},
		{},
	}
	for _, p := range payloads {
		token, _, err := tm.Issue(p, "s3cr3t", 0)
		require.NoError(t, err)

		verified, err := tm.Verify(token, "s3cr3t")
		require.NoError(t, err)
		assert.True(t, verified.Valid)
		assert.Equal(t, p, verified.Claims)
	}
}

func TestVerifyWithoutPrefix(t *testing.T) {
	tm, _ := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1"}, "secretA", 0)
	require.NoError(t, err)

	verified, err := tm.Verify(strings.TrimPrefix(token, BearerPrefix), "secretA")
	require.NoError(t, err)
	assert.Equal(t, "u1", verified.Claims.Subject())

	_, err = tm.Verify(BearerPrefix+token, "secretA")
	assert.ErrorIs(t, err, ErrInvalidSignature, "only one prefix is stripped")
}

func TestVerifyKeepsNumericClaimsExact(t *testing.T) {
	tm, _ := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1", "org": 9007199254740993}, "secretA", 0)
	require.NoError(t, err)

	verified, err := tm.Verify(token, "secretA")
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), verified.Claims["org"])
}

func TestVerifyDetectsTampering(t *testing.T) {
	tm, _ := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1"}, "secretA", 0)
	require.NoError(t, err)

	raw := strings.TrimPrefix(token, BearerPrefix)
	sigStart := strings.LastIndex(raw, ".") + 1
	for i := sigStart; i < len(raw); i++ {
		flipped := []byte(raw)
		if flipped[i] == 'A' {
			flipped[i] = 'B'
		} else {
			flipped[i] = 'A'
		}
		_, err := tm.Verify(string(flipped), "secretA")
		assert.ErrorIs(t, err, ErrInvalidSignature, "position %d", i)
	}
}

func TestVerifyDetectsPayloadSwap(t *testing.T) {
	tm, _ := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1", "role": "member"}, "secretA", 0)
	require.NoError(t, err)

	forged, err := Encode(Claims{"id": "u1", "role": "admin"})
	require.NoError(t, err)
	parts := strings.Split(strings.TrimPrefix(token, BearerPrefix), ".")
	parts[1] = forged

	_, err = tm.Verify(strings.Join(parts, "."), "secretA")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyExpiry(t *testing.T) {
	tm, clock := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1"}, "secretA", 1)
	require.NoError(t, err)

	_, err = tm.Verify(token, "secretA")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = tm.Verify(token, "secretA")
	require.NoError(t, err, "elapsed equal to duration is still valid")

	clock.Advance(500 * time.Millisecond)
	_, err = tm.Verify(token, "secretA")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifySecretBinding(t *testing.T) {
	tm, _ := newTestManager(60)
	token, _, err := tm.Issue(Claims{"id": "u1"}, "secret-one", 0)
	require.NoError(t, err)

	_, err = tm.Verify(token, "secret-two")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerifyMalformed(t *testing.T) {
	tm, _ := newTestManager(60)
	for _, raw := range []string{"", "abc", "a.b.c.d", "Bearer a.b.c", "a.b.c.d.e.f"} {
		_, err := tm.Verify(raw, "secret")
		assert.ErrorIs(t, err, ErrMalformedToken, "token %q", raw)
	}
}

func TestVerifyUndecodableSignedSegment(t *testing.T) {
	tm, _ := newTestManager(60)

	header, err := Encode(tokenHeader)
	require.NoError(t, err)
	payload, err := Encode(Claims{"id": "u1"})
	require.NoError(t, err)
	duration, err := Encode(int64(60))
	require.NoError(t, err)
	issuedAt, err := Encode("yesterday")
	require.NoError(t, err)

	tok := signedToken{header: header, payload: payload, duration: duration, issuedAt: issuedAt}
	tok.signature, err = tok.sign("secretA")
	require.NoError(t, err)

	_, err = tm.Verify(tok.String(), "secretA")
	assert.ErrorIs(t, err, ErrDecode)
}

func TestTokenLifecycleScenario(t *testing.T) {
	tm, clock := newTestManager(DefaultTokenDuration)

	token, _, err := tm.Issue(Claims{"id": "u1", "role": "member"}, "secretA", 60)
	require.NoError(t, err)

	verified, err := tm.Verify(token, "secretA")
	require.NoError(t, err)
	assert.True(t, verified.Valid)
	assert.Equal(t, Claims{"id": "u1", "role": "member"}, verified.Claims)

	_, err = tm.Verify(token, "secretB")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	clock.Advance(61 * time.Second)
	_, err = tm.Verify(token, "secretA")
	assert.ErrorIs(t, err, ErrExpiredToken)
}
