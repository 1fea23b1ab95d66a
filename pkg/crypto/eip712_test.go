package crypto

import (
	"math/big"
	"testing"
)

func sampleFragment(owner [20]byte) *FragmentEIP712 {
	return &FragmentEIP712{
		Pair:       "ADA/USDC",
		Side:       SideToUint8("bid"),
		Input:      big.NewInt(500),
		PriceNum:   big.NewInt(37),
		PriceDenom: big.NewInt(100),
		FeeNum:     big.NewInt(1),
		FeeDenom:   big.NewInt(1000),
		Nonce:      big.NewInt(1),
		Deadline:   big.NewInt(0),
		Owner:      owner,
	}
}

func TestSignAndVerifyFragment(t *testing.T) {
	signer, err := GenerateKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	e := NewEIP712Signer(DefaultDomain())
	frag := sampleFragment(signer.Address())

	sig, err := e.SignFragment(signer, frag)
	if err != nil {
		t.Fatalf("failed to sign fragment: %v", err)
	}

	valid, err := e.VerifyFragmentSignature(frag, sig)
	if err != nil {
		t.Fatalf("failed to verify fragment: %v", err)
	}
	if !valid {
		t.Error("fragment signature did not verify against its own owner")
	}

	recovered, err := e.RecoverFragmentSigner(frag, sig)
	if err != nil {
		t.Fatalf("failed to recover signer: %v", err)
	}
	if recovered != signer.Address() {
		t.Errorf("recovered signer = %s, want %s", recovered.Hex(), signer.Address().Hex())
	}
}

func TestVerifyFragmentSignatureRejectsTamperedFragment(t *testing.T) {
	signer, _ := GenerateKey()
	e := NewEIP712Signer(DefaultDomain())
	frag := sampleFragment(signer.Address())

	sig, err := e.SignFragment(signer, frag)
	if err != nil {
		t.Fatalf("failed to sign fragment: %v", err)
	}

	frag.Input = big.NewInt(501)
	valid, err := e.VerifyFragmentSignature(frag, sig)
	if err != nil {
		t.Fatalf("failed to verify fragment: %v", err)
	}
	if valid {
		t.Error("signature verified against a tampered fragment")
	}
}

func TestSideRoundTrip(t *testing.T) {
	if SideToUint8("ask") != 2 || Uint8ToSide(2) != "ask" {
		t.Error("ask side did not round-trip")
	}
	if SideToUint8("bid") != 1 || Uint8ToSide(1) != "bid" {
		t.Error("bid side did not round-trip")
	}
}
