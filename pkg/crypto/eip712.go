package crypto

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712Domain is the domain separator for EIP-712 typed data, preventing
// signature replay across chains or deployments.
type EIP712Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// FragmentEIP712 is a fragment submission as typed data a wallet signs
// before it is handed to an Upstream collaborator. Price and Fee carry the
// numerator/denominator pair of the book's types.Rational directly, so the
// signed digest matches exactly what pkg/book/fragment.Fragment will use.
type FragmentEIP712 struct {
	Pair        string
	Side        uint8
	Input       *big.Int
	PriceNum    *big.Int
	PriceDenom  *big.Int
	FeeNum      *big.Int
	FeeDenom    *big.Int
	Nonce       *big.Int
	Deadline    *big.Int
	Owner       common.Address
}

// EIP712Signer hashes and signs FragmentEIP712 submissions under a fixed
// domain.
type EIP712Signer struct {
	domain EIP712Domain
}

func NewEIP712Signer(domain EIP712Domain) *EIP712Signer {
	return &EIP712Signer{domain: domain}
}

// DefaultDomain returns the domain used by the demo harness's off-chain
// signing (zero VerifyingContract: no on-chain verifier in this setup).
func DefaultDomain() EIP712Domain {
	return EIP712Domain{
		Name:              "TLB",
		Version:           "1",
		ChainID:           big.NewInt(1337),
		VerifyingContract: common.Address{},
	}
}

func (e *EIP712Signer) fragmentTypedData(f *FragmentEIP712) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Fragment": []apitypes.Type{
				{Name: "pair", Type: "string"},
				{Name: "side", Type: "uint8"},
				{Name: "input", Type: "uint256"},
				{Name: "priceNum", Type: "uint256"},
				{Name: "priceDenom", Type: "uint256"},
				{Name: "feeNum", Type: "uint256"},
				{Name: "feeDenom", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
				{Name: "owner", Type: "address"},
			},
		},
		PrimaryType: "Fragment",
		Domain: apitypes.TypedDataDomain{
			Name:              e.domain.Name,
			Version:           e.domain.Version,
			ChainId:           (*math.HexOrDecimal256)(e.domain.ChainID),
			VerifyingContract: e.domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"pair":       f.Pair,
			"side":       fmt.Sprintf("%d", f.Side),
			"input":      f.Input.String(),
			"priceNum":   f.PriceNum.String(),
			"priceDenom": f.PriceDenom.String(),
			"feeNum":     f.FeeNum.String(),
			"feeDenom":   f.FeeDenom.String(),
			"nonce":      f.Nonce.String(),
			"deadline":   f.Deadline.String(),
			"owner":      f.Owner.Hex(),
		},
	}
}

// HashFragment returns the EIP-712 digest for a fragment submission.
func (e *EIP712Signer) HashFragment(f *FragmentEIP712) ([]byte, error) {
	typedData := e.fragmentTypedData(f)

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}
	typedDataHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash message: %w", err)
	}

	rawData := []byte(fmt.Sprintf("\x19\x01%s%s", string(domainSeparator), string(typedDataHash)))
	digest := crypto.Keccak256Hash(rawData)
	return digest.Bytes(), nil
}

// SignFragment signs a fragment submission and returns the 65-byte signature.
func (e *EIP712Signer) SignFragment(signer *Signer, f *FragmentEIP712) ([]byte, error) {
	hash, err := e.HashFragment(f)
	if err != nil {
		return nil, fmt.Errorf("failed to hash fragment: %w", err)
	}
	return signer.Sign(hash)
}

// VerifyFragmentSignature reports whether signature was produced by f.Owner
// over this exact fragment submission.
func (e *EIP712Signer) VerifyFragmentSignature(f *FragmentEIP712, signature []byte) (bool, error) {
	hash, err := e.HashFragment(f)
	if err != nil {
		return false, fmt.Errorf("failed to hash fragment: %w", err)
	}
	recoveredAddr, err := RecoverAddress(hash, signature)
	if err != nil {
		return false, fmt.Errorf("failed to recover address: %w", err)
	}
	return recoveredAddr == f.Owner, nil
}

// RecoverFragmentSigner recovers the address that signed a fragment
// submission, without prior knowledge of the claimed owner.
func (e *EIP712Signer) RecoverFragmentSigner(f *FragmentEIP712, signature []byte) (common.Address, error) {
	hash, err := e.HashFragment(f)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash fragment: %w", err)
	}
	return RecoverAddress(hash, signature)
}

// FragmentToJSON renders a fragment submission as the eth_signTypedData_v4
// payload a wallet expects.
func (e *EIP712Signer) FragmentToJSON(f *FragmentEIP712) (string, error) {
	typedData := map[string]interface{}{
		"types": map[string]interface{}{
			"EIP712Domain": []map[string]string{
				{"name": "name", "type": "string"},
				{"name": "version", "type": "string"},
				{"name": "chainId", "type": "uint256"},
				{"name": "verifyingContract", "type": "address"},
			},
			"Fragment": []map[string]string{
				{"name": "pair", "type": "string"},
				{"name": "side", "type": "uint8"},
				{"name": "input", "type": "uint256"},
				{"name": "priceNum", "type": "uint256"},
				{"name": "priceDenom", "type": "uint256"},
				{"name": "feeNum", "type": "uint256"},
				{"name": "feeDenom", "type": "uint256"},
				{"name": "nonce", "type": "uint256"},
				{"name": "deadline", "type": "uint256"},
				{"name": "owner", "type": "address"},
			},
		},
		"primaryType": "Fragment",
		"domain": map[string]interface{}{
			"name":              e.domain.Name,
			"version":           e.domain.Version,
			"chainId":           e.domain.ChainID.String(),
			"verifyingContract": e.domain.VerifyingContract.Hex(),
		},
		"message": map[string]interface{}{
			"pair":       f.Pair,
			"side":       f.Side,
			"input":      f.Input.String(),
			"priceNum":   f.PriceNum.String(),
			"priceDenom": f.PriceDenom.String(),
			"feeNum":     f.FeeNum.String(),
			"feeDenom":   f.FeeDenom.String(),
			"nonce":      f.Nonce.String(),
			"deadline":   f.Deadline.String(),
			"owner":      f.Owner.Hex(),
		},
	}

	jsonBytes, err := json.MarshalIndent(typedData, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(jsonBytes), nil
}

// SideToUint8 converts a book side name to its EIP-712 wire value.
func SideToUint8(side string) uint8 {
	switch strings.ToLower(side) {
	case "bid":
		return 1
	case "ask":
		return 2
	default:
		return 0
	}
}

// Uint8ToSide converts an EIP-712 wire value back to a book side name.
func Uint8ToSide(side uint8) string {
	switch side {
	case 1:
		return "bid"
	case 2:
		return "ask"
	default:
		return "unknown"
	}
}
