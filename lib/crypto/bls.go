package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/drand/kyber"
	bls12381 "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
	"github.com/drand/kyber/sign"
	"github.com/drand/kyber/sign/bdn"
	"github.com/drand/kyber/util/random"
)

/*
	BLS12-381 keys as used by quorum members: public keys are compressed G1 points and signatures are
	compressed G2 points. The member signatures of a commitment aggregate into a single G2 point that
	is checked against the keys selected by the signers bitmap.
*/

const (
	BLS12381PrivKeySize   = 32
	BLS12381PubKeySize    = 48
	BLS12381SignatureSize = 96
)

var errSignerIndex = errors.New("signer index out of range")

// PrivateKeyI signs on behalf of a single member
type PrivateKeyI interface {
	Bytes() []byte
	Sign(msg []byte) []byte
	PublicKey() PublicKeyI
}

// PublicKeyI verifies the signatures of a single member or of the whole quorum
type PublicKeyI interface {
	Bytes() []byte
	VerifyBytes(msg, sig []byte) bool
	Equals(PublicKeyI) bool
	String() string
}

var (
	_ PrivateKeyI = &BLSPrivateKey{}
	_ PublicKeyI  = &BLSPublicKey{}
)

func suite() pairing.Suite    { return bls12381.NewBLS12381Suite() }
func scheme() *bdn.Scheme     { return bdn.NewSchemeOnG2(suite()) }
func newG1Point() kyber.Point { return suite().G1().Point() }

// BLSPrivateKey is a scalar of the BLS12-381 field
type BLSPrivateKey struct {
	scalar kyber.Scalar
}

// NewBLSPrivateKey() generates a random key
func NewBLSPrivateKey() (PrivateKeyI, error) {
	scalar, _ := scheme().NewKeyPair(random.New())
	return &BLSPrivateKey{scalar: scalar}, nil
}

// NewBLSPrivateKeyFromBytes() decodes a 32 byte scalar
func NewBLSPrivateKeyFromBytes(bz []byte) (PrivateKeyI, error) {
	scalar := suite().G1().Scalar()
	if err := scalar.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return &BLSPrivateKey{scalar: scalar}, nil
}

func (k *BLSPrivateKey) Bytes() []byte {
	bz, _ := k.scalar.MarshalBinary()
	return bz
}

// Sign() returns the 96 byte signature of msg
func (k *BLSPrivateKey) Sign(msg []byte) []byte {
	sig, _ := scheme().Sign(k.scalar, msg)
	return sig
}

// PublicKey() multiplies the G1 generator by the scalar
func (k *BLSPrivateKey) PublicKey() PublicKeyI {
	return &BLSPublicKey{point: newG1Point().Mul(k.scalar, nil)}
}

// BLSPublicKey is a G1 point
type BLSPublicKey struct {
	point kyber.Point
}

// NewBLSPublicKeyFromBytes() decodes a 48 byte compressed G1 point, rejecting other lengths
func NewBLSPublicKeyFromBytes(bz []byte) (PublicKeyI, error) {
	point, err := decodePoint(bz)
	if err != nil {
		return nil, err
	}
	return &BLSPublicKey{point: point}, nil
}

func decodePoint(bz []byte) (kyber.Point, error) {
	if len(bz) != BLS12381PubKeySize {
		return nil, fmt.Errorf("bls public key must be %d bytes, got %d", BLS12381PubKeySize, len(bz))
	}
	point := newG1Point()
	if err := point.UnmarshalBinary(bz); err != nil {
		return nil, err
	}
	return point, nil
}

func (k *BLSPublicKey) Bytes() []byte {
	bz, _ := k.point.MarshalBinary()
	return bz
}

func (k *BLSPublicKey) String() string { return hex.EncodeToString(k.Bytes()) }

// VerifyBytes() checks an individual signature
func (k *BLSPublicKey) VerifyBytes(msg, sig []byte) bool {
	return scheme().Verify(k.point, msg, sig) == nil
}

func (k *BLSPublicKey) Equals(other PublicKeyI) bool {
	return other != nil && bytes.Equal(k.Bytes(), other.Bytes())
}

// AggregateKey is the ordered public key list of a quorum with a bitmap selecting the signing members
// It collects member signatures for aggregation and verifies aggregated signatures against the selection
type AggregateKey struct {
	mask       *sign.Mask
	signatures [][]byte
}

// NewAggregateKey() builds the key over the member public keys
// A nil signers bitmap selects nobody; otherwise it must hold exactly one bit per member rounded up to bytes
func NewAggregateKey(publicKeys [][]byte, signers []byte) (*AggregateKey, error) {
	points := make([]kyber.Point, len(publicKeys))
	for i, bz := range publicKeys {
		point, err := decodePoint(bz)
		if err != nil {
			return nil, fmt.Errorf("member %d: %w", i, err)
		}
		points[i] = point
	}
	mask, err := sign.NewMask(suite(), points, nil)
	if err != nil {
		return nil, err
	}
	if signers != nil {
		if err = mask.SetMask(signers); err != nil {
			return nil, err
		}
	}
	return &AggregateKey{mask: mask, signatures: make([][]byte, len(points))}, nil
}

// AddSigner() records the signature of the member at index and selects it
func (a *AggregateKey) AddSigner(index int, signature []byte) error {
	if index < 0 || index >= len(a.signatures) {
		return errSignerIndex
	}
	a.signatures[index] = signature
	return a.mask.SetBit(index, true)
}

// Signed() reports whether the member at index is selected
func (a *AggregateKey) Signed(index int) bool {
	if index < 0 || index >= len(a.signatures) {
		return false
	}
	return a.mask.Mask()[index/8]&(1<<(index%8)) != 0
}

// Bitmap() is the selection, one bit per member with the lowest bit first
func (a *AggregateKey) Bitmap() []byte { return a.mask.Mask() }

// AggregateSignatures() combines the recorded signatures into one 96 byte signature
func (a *AggregateKey) AggregateSignatures() ([]byte, error) {
	var recorded [][]byte
	for _, sig := range a.signatures {
		if len(sig) != 0 {
			recorded = append(recorded, sig)
		}
	}
	sig, err := scheme().AggregateSignatures(recorded, a.mask)
	if err != nil {
		return nil, err
	}
	return sig.MarshalBinary()
}

// VerifyBytes() checks an aggregated signature against the selected members, an empty selection never verifies
func (a *AggregateKey) VerifyBytes(msg, sig []byte) bool {
	if a.mask.CountEnabled() == 0 {
		return false
	}
	key, err := scheme().AggregatePublicKeys(a.mask)
	if err != nil {
		return false
	}
	return scheme().Verify(key, msg, sig) == nil
}
