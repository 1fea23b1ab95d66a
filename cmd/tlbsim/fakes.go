package main

import (
	"context"
	"math/big"
	"math/rand"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/flowmatic/tlb/pkg/book/fragment"
	"github.com/flowmatic/tlb/pkg/book/recipe"
	"github.com/flowmatic/tlb/pkg/crypto"
	"github.com/flowmatic/tlb/pkg/executor"
	"github.com/flowmatic/tlb/pkg/types"
)

// syntheticUpstream is a rate-limited generator of alternating Bid/Ask
// fragments crossing at a fixed price, standing in for a real Upstream
// collaborator so the demo harness has something to match against.
// Paced with golang.org/x/time/rate's token-bucket limiter rather than a
// bare time.Sleep.
type syntheticUpstream struct {
	pair    types.PairId
	limiter *rate.Limiter
	toggle  bool
	rng     *rand.Rand
	signer  *crypto.Signer
	eip712  *crypto.EIP712Signer
	nonce   uint64
}

func newSyntheticUpstream(pair types.PairId, eventsPerSecond float64) *syntheticUpstream {
	signer, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	return &syntheticUpstream{
		pair:    pair,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), 1),
		rng:     rand.New(rand.NewSource(1)),
		signer:  signer,
		eip712:  crypto.NewEIP712Signer(crypto.DefaultDomain()),
	}
}

// Poll yields at most one new fragment per call, once the limiter allows it;
// an empty, nil-error batch otherwise - Upstream.Poll is documented as
// non-blocking, so this never waits on the limiter.
func (u *syntheticUpstream) Poll(ctx context.Context) ([]executor.PairUpdate, error) {
	if !u.limiter.Allow() {
		return nil, nil
	}

	side := types.Ask
	if u.toggle {
		side = types.Bid
	}
	u.toggle = !u.toggle

	sourceID := types.HashEntity([]byte(uuid.NewString()))
	input := uint64(100 + u.rng.Intn(900))
	price := types.NewRational(37, 100)
	fee := types.NewRational(1, 1000)
	frag := fragment.Fragment{
		Source: sourceID,
		Pair:   u.pair,
		Side:   side,
		Input:  input,
		Price:  price,
		Fee:    fee,
	}

	u.nonce++
	typed := &crypto.FragmentEIP712{
		Pair:       u.pair.String(),
		Side:       crypto.SideToUint8(side.String()),
		Input:      big.NewInt(int64(input)),
		PriceNum:   big.NewInt(price.Num),
		PriceDenom: big.NewInt(price.Denom),
		FeeNum:     big.NewInt(fee.Num),
		FeeDenom:   big.NewInt(fee.Denom),
		Nonce:      big.NewInt(int64(u.nonce)),
		Deadline:   big.NewInt(0),
		Owner:      u.signer.Address(),
	}
	sig, err := u.eip712.SignFragment(u.signer, typed)
	if err != nil {
		return nil, err
	}

	version := types.HashEntity(append(sourceID[:], byte(side)))
	bearer := signedBearer{Owner: u.signer.Address().Hex(), Signature: sig, Nonce: int64(u.nonce), Deadline: 0}
	bundled := recipe.Bundled{Entity: recipe.BakeFragment(frag, version), Bearer: bearer}

	update := executor.PairUpdate{
		Pair: u.pair,
		Update: executor.StateUpdate{
			Tag:  executor.Confirmed,
			Kind: executor.Transition,
			Ior:  executor.IorRight(bundled),
		},
	}
	return []executor.PairUpdate{update}, nil
}

// signedBearer is the EIP-712 bearer attached to every fragment the
// synthetic upstream submits: enough for noopInterpreter to recover the
// signer and re-verify the signature against the fragment it was issued
// for, the way a real on-chain integration would before building a
// transaction around it.
type signedBearer struct {
	Owner     string
	Signature []byte
	Nonce     int64
	Deadline  int64
}

// noopInterpreter and alwaysSucceedsNetwork stand in for the real Interpreter/
// Prover/Network an on-chain integration would supply - the demo
// harness only needs to exercise the executor's control flow end to end, not
// build a real transaction.
type noopInterpreter struct{}

func (noopInterpreter) Run(lr recipe.LinkedRecipe) (executor.TxCandidate, []executor.Effect) {
	verifier := crypto.NewEIP712Signer(crypto.DefaultDomain())
	effects := make([]executor.Effect, 0, len(lr.Instructions))
	for _, li := range lr.Instructions {
		var entity recipe.BakedEntity
		switch li.Instruction.Kind {
		case recipe.FillInstruction:
			target := li.Instruction.Fill.Target
			if !fragmentBearerValid(verifier, target, li.Bearer) {
				continue
			}
			entity = recipe.BakeFragment(target, types.HashEntity([]byte(target.Source.String()+"-fill")))
		case recipe.SwapInstruction:
			entity = recipe.BakePool(li.Instruction.Swap.Target, types.HashEntity([]byte(li.Instruction.Swap.Target.Source.String()+"-swap")))
		}
		effects = append(effects, executor.Effect{StableId: entity.Source(), Entity: entity, Bearer: li.Bearer})
	}
	return txSummary{Pair: lr.Pair, Instructions: len(lr.Instructions)}, effects
}

// fragmentBearerValid re-derives the EIP-712 digest the upstream signed for
// target and checks bearer's signature against it. Instructions without a
// signedBearer (e.g. pool-side swaps, which never carry one) pass through.
func fragmentBearerValid(verifier *crypto.EIP712Signer, target fragment.Fragment, bearer any) bool {
	sb, ok := bearer.(signedBearer)
	if !ok {
		return true
	}
	typed := &crypto.FragmentEIP712{
		Pair:       target.Pair.String(),
		Side:       crypto.SideToUint8(target.Side.String()),
		Input:      big.NewInt(int64(target.Input)),
		PriceNum:   big.NewInt(target.Price.Num),
		PriceDenom: big.NewInt(target.Price.Denom),
		FeeNum:     big.NewInt(target.Fee.Num),
		FeeDenom:   big.NewInt(target.Fee.Denom),
		Nonce:      big.NewInt(sb.Nonce),
		Deadline:   big.NewInt(sb.Deadline),
		Owner:      common.HexToAddress(sb.Owner),
	}
	valid, err := verifier.VerifyFragmentSignature(typed, sb.Signature)
	return err == nil && valid
}

type noopProver struct{}

func (noopProver) Prove(tc executor.TxCandidate) executor.Tx { return tc }

// alwaysSucceedsNetwork reports success on every submission, after relaying
// the candidate onto broadcast for the websocket stream.
type alwaysSucceedsNetwork struct {
	broadcast chan<- executor.Tx
}

func (n *alwaysSucceedsNetwork) Submit(tx executor.Tx) <-chan error {
	ch := make(chan error, 1)
	select {
	case n.broadcast <- tx:
	default:
	}
	ch <- nil
	return ch
}

// txSummary is the demo harness's TxCandidate/Tx payload: just enough to
// show on the websocket stream.
type txSummary struct {
	Pair         types.PairId `json:"pair"`
	Instructions int          `json:"instructions"`
}
