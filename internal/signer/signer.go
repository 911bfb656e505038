package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer proves a caller identity by personal-signing request digests.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	// 1. Parse Private Key
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}

	// 2. Derive Address
	publicKeyECDSA, ok := key.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("error casting public key to ECDSA")
	}

	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(*publicKeyECDSA),
	}, nil
}

func (s *Signer) Address() common.Address {
	return s.address
}

// RequestDigest binds a signature to one request:
// keccak256(method "\n" path "\n" timestamp "\n" keccak256(body)).
func RequestDigest(method, path string, timestamp int64, body []byte) common.Hash {
	bodyHash := crypto.Keccak256(body)
	return crypto.Keccak256Hash(
		[]byte(strings.ToUpper(method)), []byte("\n"),
		[]byte(path), []byte("\n"),
		[]byte(strconv.FormatInt(timestamp, 10)), []byte("\n"),
		bodyHash,
	)
}

// SignRequest returns the 0x-prefixed 65-byte personal signature of the request digest.
func (s *Signer) SignRequest(method, path string, timestamp int64, body []byte) (string, error) {
	return s.SignDigest(RequestDigest(method, path, timestamp, body))
}

// SignDigest signs the EIP-191 text hash of digest. V is 27/28.
func (s *Signer) SignDigest(digest common.Hash) (string, error) {
	signature, err := crypto.Sign(accounts.TextHash(digest.Bytes()), s.key)
	if err != nil {
		return "", err
	}
	if signature[64] < 27 {
		signature[64] += 27
	}
	return hexutil.Encode(signature), nil
}

// RecoverAddress returns the address that personal-signed digest. V may be 0/1 or 27/28.
func RecoverAddress(digest common.Hash, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature encoding")
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length %d", len(sig))
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(digest.Bytes()), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
