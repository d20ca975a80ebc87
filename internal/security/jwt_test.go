package security_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/tazhibayda/posts-service/internal/security"
)

func TestHS256_RoundTrip(t *testing.T) {
	tok, err := security.MakeAccess("s3cret", "u1", "u@example.com", time.Minute)
	require.NoError(t, err)

	c, err := security.HMACVerifier{Secret: "s3cret"}.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "u1", c.UID)
	require.Equal(t, "u1", c.Subject)
	require.Equal(t, "u@example.com", c.Email)
}

func TestHS256_Rejects(t *testing.T) {
	tok, err := security.MakeAccess("s3cret", "u1", "u@example.com", time.Minute)
	require.NoError(t, err)

	_, err = security.ParseAccess("other", tok)
	require.Error(t, err, "wrong secret")

	expired, err := security.MakeAccess("s3cret", "u1", "u@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = security.ParseAccess("s3cret", expired)
	require.Error(t, err, "expired token")

	_, err = security.HMACVerifier{}.Verify(context.Background(), tok)
	require.Error(t, err, "empty secret")
}

func jwksServer(t *testing.T, kid string, pub *rsa.PublicKey, hits *int32) *httptest.Server {
	t.Helper()
	doc := map[string]any{"keys": []map[string]string{{
		"kty": "RSA", "kid": kid, "use": "sig", "alg": "RS256",
		"n": base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		"e": base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signRS256(t *testing.T, k *rsa.PrivateKey, kid, uid string) string {
	t.Helper()
	c := security.Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, c)
	tok.Header["kid"] = kid
	s, err := tok.SignedString(k)
	require.NoError(t, err)
	return s
}

func TestRS256_JWKSVerifyAndCache(t *testing.T) {
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var hits int32
	srv := jwksServer(t, "kidA", &k.PublicKey, &hits)
	f := security.NewFetcher(srv.URL, time.Minute)

	for i := 0; i < 3; i++ {
		c, err := f.Verify(context.Background(), signRS256(t, k, "kidA", "u1"))
		require.NoError(t, err)
		require.Equal(t, "u1", c.UID)
	}
	require.EqualValues(t, 1, atomic.LoadInt32(&hits), "key set must be cached")

	_, err = f.Verify(context.Background(), signRS256(t, k, "kidB", "u1"))
	require.Error(t, err, "unknown kid")

	hs, err := security.MakeAccess("s3cret", "u1", "", time.Minute)
	require.NoError(t, err)
	_, err = f.Verify(context.Background(), hs)
	require.Error(t, err, "HS256 must not pass the RS256 verifier")
}

func TestPassword(t *testing.T) {
	h, err := security.HashPassword("StrongP@ss1")
	require.NoError(t, err)
	require.True(t, security.CheckPassword(h, "StrongP@ss1"))
	require.False(t, security.CheckPassword(h, "nope"))
}
