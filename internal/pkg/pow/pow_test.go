package pow

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solve(t *testing.T, nonce string, difficulty int) string {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		counter := strconv.Itoa(i)
		if Satisfies(nonce, counter, difficulty) {
			return counter
		}
	}
	t.Fatal("no proof found")
	return ""
}

func TestProofRoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewPoWManager(ctx, 2)
	nonce := m.GenerateNonce()

	token, err := m.ValidateProof(nonce, solve(t, nonce, 2))
	require.NoError(t, err)

	_, err = m.ValidateProof(nonce, "0")
	assert.ErrorIs(t, err, ErrNonceInvalid, "nonce is single use")

	r := httptest.NewRequest(http.MethodPost, "/api/register", nil)
	r.Header.Set(TokenHeaderKey, token)
	assert.True(t, m.ConsumeProofToken(r))
	assert.False(t, m.ConsumeProofToken(r), "token is single use")
}

func TestValidateProofRejectsWeakProof(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewPoWManager(ctx, 3)
	nonce := m.GenerateNonce()

	for i := 0; ; i++ {
		counter := strconv.Itoa(i)
		if !Satisfies(nonce, counter, 3) {
			_, err := m.ValidateProof(nonce, counter)
			assert.ErrorIs(t, err, ErrProofInsufficient)
			return
		}
	}
}

func TestDisabledGateAlwaysPasses(t *testing.T) {
	m := NewPoWManager(context.Background(), 0)

	assert.False(t, m.Enabled())
	assert.True(t, m.ConsumeProofToken(httptest.NewRequest(http.MethodPost, "/", nil)))
}
