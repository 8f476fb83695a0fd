package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestKeys() generates n private keys and their ordered public key list
func newTestKeys(t *testing.T, n int) (keys []PrivateKeyI, publicKeys [][]byte) {
	for i := 0; i < n; i++ {
		k, err := NewBLSPrivateKey()
		require.NoError(t, err)
		keys = append(keys, k)
		publicKeys = append(publicKeys, k.PublicKey().Bytes())
	}
	return
}

func TestBLSKey(t *testing.T) {
	keys, _ := newTestKeys(t, 1)
	k := keys[0]
	require.Len(t, k.Bytes(), BLS12381PrivKeySize)
	pub := k.PublicKey()
	require.Len(t, pub.Bytes(), BLS12381PubKeySize)
	sig := k.Sign([]byte("msg"))
	require.Len(t, sig, BLS12381SignatureSize)
	require.True(t, pub.VerifyBytes([]byte("msg"), sig))
	require.False(t, pub.VerifyBytes([]byte("other"), sig))
	// round trip the key material
	k2, err := NewBLSPrivateKeyFromBytes(k.Bytes())
	require.NoError(t, err)
	require.Equal(t, k.Bytes(), k2.Bytes())
	pub2, err := NewBLSPublicKeyFromBytes(pub.Bytes())
	require.NoError(t, err)
	require.True(t, pub.Equals(pub2))
	require.Equal(t, pub.String(), pub2.String())
	// wrong length is rejected before decoding
	_, err = NewBLSPublicKeyFromBytes(pub.Bytes()[:BLS12381PubKeySize-1])
	require.Error(t, err)
}

func TestAggregateKey(t *testing.T) {
	msg := []byte("commitment hash")
	keys, publicKeys := newTestKeys(t, 3)
	aggregate, err := NewAggregateKey(publicKeys, nil)
	require.NoError(t, err)
	require.NoError(t, aggregate.AddSigner(0, keys[0].Sign(msg)))
	require.NoError(t, aggregate.AddSigner(2, keys[2].Sign(msg)))
	require.Error(t, aggregate.AddSigner(3, keys[2].Sign(msg)))
	for i, expected := range []bool{true, false, true} {
		require.Equal(t, expected, aggregate.Signed(i))
	}
	sig, err := aggregate.AggregateSignatures()
	require.NoError(t, err)
	require.Len(t, sig, BLS12381SignatureSize)
	require.True(t, aggregate.VerifyBytes(msg, sig))
	tests := []struct {
		name     string
		detail   string
		signers  []byte
		expected bool
	}{
		{
			name:     "same selection",
			detail:   "a key built from the bitmap alone accepts the signature",
			signers:  aggregate.Bitmap(),
			expected: true,
		},
		{
			name:     "other selection",
			detail:   "a different bitmap over the same keys rejects it",
			signers:  []byte{0b011},
			expected: false,
		},
		{
			name:     "empty selection",
			detail:   "an empty bitmap never verifies",
			signers:  []byte{0},
			expected: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			verifier, e := NewAggregateKey(publicKeys, test.signers)
			require.NoError(t, e)
			require.Equal(t, test.expected, verifier.VerifyBytes(msg, sig), test.detail)
		})
	}
	// a bitmap of the wrong length is rejected
	_, err = NewAggregateKey(publicKeys, []byte{1, 0})
	require.Error(t, err)
}
