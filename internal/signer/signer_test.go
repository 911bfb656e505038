package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t testing.TB) *Signer {
	key, _ := crypto.GenerateKey()
	keyHex := hexutil.Encode(crypto.FromECDSA(key))

	signer, err := NewSigner(keyHex)
	require.NoError(t, err)
	return signer
}

func TestSigner_SignRequest(t *testing.T) {
	signer := newTestSigner(t)
	body := []byte(`{"name":"ruwaifa","currency":"0x01"}`)

	sig, err := signer.SignRequest("POST", "/v1/registrations", 1_760_000_000, body)
	require.NoError(t, err)
	assert.Equal(t, 132, len(sig)) // 0x + 65 bytes * 2 = 132

	digest := RequestDigest("post", "/v1/registrations", 1_760_000_000, body)
	addr, err := RecoverAddress(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), addr)
}

func TestRecoverAddress_BindsRequest(t *testing.T) {
	signer := newTestSigner(t)
	sig, err := signer.SignRequest("POST", "/v1/admin/pause", 100, nil)
	require.NoError(t, err)

	for _, digest := range []struct {
		name   string
		method string
		path   string
		ts     int64
		body   []byte
	}{
		{"path", "POST", "/v1/admin/unpause", 100, nil},
		{"timestamp", "POST", "/v1/admin/pause", 101, nil},
		{"body", "POST", "/v1/admin/pause", 100, []byte("{}")},
	} {
		addr, err := RecoverAddress(RequestDigest(digest.method, digest.path, digest.ts, digest.body), sig)
		if err == nil {
			assert.NotEqual(t, signer.Address(), addr, digest.name)
		}
	}
}

func TestRecoverAddress_Malformed(t *testing.T) {
	digest := RequestDigest("GET", "/", 0, nil)
	_, err := RecoverAddress(digest, "not-hex")
	assert.Error(t, err)
	_, err = RecoverAddress(digest, "0x1234")
	assert.Error(t, err)
}

func TestNewSigner_RequiresKey(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
	_, err = NewSigner("0xzz")
	assert.Error(t, err)
}

func BenchmarkSignRequest(b *testing.B) {
	signer := newTestSigner(b)
	body := []byte(`{"name":"ruwaifa"}`)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = signer.SignRequest("POST", "/v1/registrations", int64(i), body)
	}
}
