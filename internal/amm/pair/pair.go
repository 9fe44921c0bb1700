package pair

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"swapforge/internal/shared/utils"
)

// minimumLiquidity is the share amount permanently locked at the zero
// address by the first mint.
var minimumLiquidity = uint256.NewInt(1000)

// reserveState is the reserve snapshot, replaced atomically as a whole
// on every sync so a reader never observes a torn combination of
// reserves, timestamp, and accumulators. Fields are immutable once
// stored.
type reserveState struct {
	reserveA         *uint256.Int
	reserveB         *uint256.Int
	timestamp        uint32
	priceACumulative *uint256.Int
	priceBCumulative *uint256.Int
}

// Pair is a constant product market holding reserves of two assets.
// Liquidity providers mint shares against deposits, redeem them for a
// proportional slice of the reserves, and traders swap one asset for
// the other under the fee-adjusted invariant
//
//	(balanceA*1000 - 3*amountAIn) * (balanceB*1000 - 3*amountBIn) >= reserveA*reserveB*1000^2
//
// Mutating operations are strictly sequential per pair: each acquires
// the reentrancy latch at entry and a re-entering call fails
// immediately. Reserves are bounded to 112 bits; the sync timestamp
// wraps at 32 bits by design.
type Pair struct {
	address   common.Address
	creator   common.Address
	feeSource FeeSource
	sink      Sink
	clock     func() uint32

	assetA Asset
	assetB Asset

	latch    atomic.Bool
	reserves atomic.Pointer[reserveState]
	kLast    atomic.Pointer[uint256.Int]
	shares   *shareLedger
}

// New creates an uninitialized pair. Only the creator identity may
// initialize it with its two assets.
func New(address, creator common.Address, feeSource FeeSource, sink Sink) *Pair {
	if sink == nil {
		sink = NopSink{}
	}
	p := &Pair{
		address:   address,
		creator:   creator,
		feeSource: feeSource,
		sink:      sink,
		clock:     defaultClock,
		shares:    newShareLedger(),
	}
	p.reserves.Store(&reserveState{
		reserveA:         uint256.NewInt(0),
		reserveB:         uint256.NewInt(0),
		priceACumulative: uint256.NewInt(0),
		priceBCumulative: uint256.NewInt(0),
	})
	p.kLast.Store(uint256.NewInt(0))
	return p
}

func defaultClock() uint32 {
	return uint32(time.Now().Unix())
}

// Initialize records the pair's two assets, exactly once.
func (p *Pair) Initialize(caller common.Address, assetA, assetB Asset) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if caller != p.creator {
		return ErrForbiddenCaller
	}
	if p.assetA != nil || p.assetB != nil {
		return ErrAlreadyInitialized
	}
	p.assetA = assetA
	p.assetB = assetB
	return nil
}

func (p *Pair) Address() common.Address { return p.address }

func (p *Pair) AssetA() Asset { return p.assetA }

func (p *Pair) AssetB() Asset { return p.assetB }

// Reserves returns the current reserve snapshot.
func (p *Pair) Reserves() (reserveA, reserveB *uint256.Int, timestamp uint32) {
	s := p.reserves.Load()
	return s.reserveA.Clone(), s.reserveB.Clone(), s.timestamp
}

// PriceCumulatives returns the UQ112.112 price accumulators and the
// timestamp they were last advanced to. Consumers derive time-weighted
// average prices from deltas of two samples; the sums wrap modulo 2^256.
func (p *Pair) PriceCumulatives() (priceA, priceB *uint256.Int, timestamp uint32) {
	s := p.reserves.Load()
	return s.priceACumulative.Clone(), s.priceBCumulative.Clone(), s.timestamp
}

// PackedReserves returns the snapshot as a single 256-bit word in the
// [timestamp | reserveB | reserveA] layout.
func (p *Pair) PackedReserves() *uint256.Int {
	s := p.reserves.Load()
	word := new(uint256.Int)
	utils.PackReserves(s.reserveA, s.reserveB, s.timestamp, word)
	return word
}

// KLast returns the reserve product recorded at the last liquidity
// event while the protocol fee was enabled, zero otherwise.
func (p *Pair) KLast() *uint256.Int {
	return p.kLast.Load().Clone()
}

func (p *Pair) TotalShares() *uint256.Int {
	return p.shares.TotalSupply()
}

func (p *Pair) ShareBalanceOf(holder common.Address) *uint256.Int {
	return p.shares.BalanceOf(holder)
}

// TransferShares moves liquidity shares between holders. Burning
// requires the caller to move shares into the pair's own custody first.
// The zero address holds the permanently locked minimum liquidity and
// cannot be a transfer source.
func (p *Pair) TransferShares(from, to common.Address, amount *uint256.Int) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()

	if from == (common.Address{}) {
		return ErrForbiddenCaller
	}
	return p.shares.transfer(from, to, amount)
}

// Mint issues liquidity shares to the recipient for the balance excess
// deposited since the last sync. The caller transfers both deposit
// amounts to the pair's address beforehand. The first mint permanently
// locks the minimum liquidity at the zero address.
func (p *Pair) Mint(to common.Address) (*uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, err
	}
	defer p.unlock()
	if err := p.requireInitialized(); err != nil {
		return nil, err
	}

	state := p.reserves.Load()
	balanceA := p.assetA.BalanceOf(p.address)
	balanceB := p.assetB.BalanceOf(p.address)
	if balanceA.Gt(utils.Mask112) || balanceB.Gt(utils.Mask112) {
		return nil, ErrOverflow
	}

	var amountA, amountB uint256.Int
	if _, underflow := amountA.SubOverflow(balanceA, state.reserveA); underflow {
		return nil, ErrOverflow
	}
	if _, underflow := amountB.SubOverflow(balanceB, state.reserveB); underflow {
		return nil, ErrOverflow
	}

	plan := p.planFee(state.reserveA, state.reserveB)
	supply := p.shares.TotalSupply()
	supply.Add(supply, plan.mintAmount)
	first := supply.IsZero()

	liquidity := new(uint256.Int)
	if first {
		var product uint256.Int
		product.Mul(&amountA, &amountB)
		utils.Isqrt(&product, liquidity)
		if !liquidity.Gt(minimumLiquidity) {
			return nil, ErrInsufficientLiquidityMinted
		}
		liquidity.Sub(liquidity, minimumLiquidity)
	} else {
		var byA, byB uint256.Int
		byA.Mul(&amountA, supply)
		byA.Div(&byA, state.reserveA)
		byB.Mul(&amountB, supply)
		byB.Div(&byB, state.reserveB)
		liquidity.Set(utils.MinUint256(&byA, &byB))
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientLiquidityMinted
	}

	p.applyFee(plan)
	if first {
		p.shares.mint(common.Address{}, minimumLiquidity)
	}
	p.shares.mint(to, liquidity)
	if err := p.syncTo(balanceA, balanceB, state.reserveA, state.reserveB); err != nil {
		return nil, err
	}
	if plan.enabled {
		p.recordInvariant()
	}

	p.sink.LiquidityMinted(MintEvent{
		Pair:    p.address,
		To:      to,
		AmountA: amountA.Clone(),
		AmountB: amountB.Clone(),
		Shares:  liquidity.Clone(),
	})
	return liquidity, nil
}

// Burn redeems the liquidity shares held in the pair's own custody for
// a proportional slice of both held balances and transfers the amounts
// to the recipient. Redemption is computed over held balances rather
// than recorded reserves, so donated surplus is distributed pro rata.
func (p *Pair) Burn(to common.Address) (amountA, amountB *uint256.Int, err error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()
	if err := p.requireInitialized(); err != nil {
		return nil, nil, err
	}

	state := p.reserves.Load()
	balanceA := p.assetA.BalanceOf(p.address)
	balanceB := p.assetB.BalanceOf(p.address)
	shares := p.shares.BalanceOf(p.address)

	plan := p.planFee(state.reserveA, state.reserveB)
	supply := p.shares.TotalSupply()
	supply.Add(supply, plan.mintAmount)

	amountA = new(uint256.Int).Mul(shares, balanceA)
	amountA.Div(amountA, supply)
	amountB = new(uint256.Int).Mul(shares, balanceB)
	amountB.Div(amountB, supply)
	if amountA.IsZero() || amountB.IsZero() {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := p.safeTransfer(p.assetA, to, amountA); err != nil {
		return nil, nil, err
	}
	if err := p.safeTransfer(p.assetB, to, amountB); err != nil {
		return nil, nil, err
	}

	balanceA = p.assetA.BalanceOf(p.address)
	balanceB = p.assetB.BalanceOf(p.address)
	if balanceA.Gt(utils.Mask112) || balanceB.Gt(utils.Mask112) {
		return nil, nil, ErrOverflow
	}

	p.applyFee(plan)
	if err := p.shares.burn(p.address, shares); err != nil {
		return nil, nil, err
	}
	if err := p.syncTo(balanceA, balanceB, state.reserveA, state.reserveB); err != nil {
		return nil, nil, err
	}
	if plan.enabled {
		p.recordInvariant()
	}

	p.sink.LiquidityBurned(BurnEvent{
		Pair:    p.address,
		To:      to,
		AmountA: amountA.Clone(),
		AmountB: amountB.Clone(),
		Shares:  shares.Clone(),
	})
	return amountA, amountB, nil
}

// Swap transfers the requested output amounts to the recipient, then
// verifies the fee-adjusted invariant against the balances observed
// afterwards. When data is non-empty the borrower callback runs between
// the transfers and the re-check, enabling flash borrowing: the
// borrower may use the outputs freely as long as sufficient input is
// returned before the callback finishes. Implied inputs are whatever
// balance excess remains above the post-output reserves.
func (p *Pair) Swap(amountAOut, amountBOut *uint256.Int, to common.Address, borrower Borrower, data []byte) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()
	if err := p.requireInitialized(); err != nil {
		return err
	}

	if amountAOut.IsZero() && amountBOut.IsZero() {
		return ErrNoOutputRequested
	}
	state := p.reserves.Load()
	if !amountAOut.Lt(state.reserveA) || !amountBOut.Lt(state.reserveB) {
		return ErrInsufficientLiquidity
	}
	if to == p.assetA.Address() || to == p.assetB.Address() {
		return ErrInvalidRecipient
	}
	if len(data) > 0 && borrower == nil {
		return ErrInvalidRecipient
	}

	if !amountAOut.IsZero() {
		if err := p.safeTransfer(p.assetA, to, amountAOut); err != nil {
			return err
		}
	}
	if !amountBOut.IsZero() {
		if err := p.safeTransfer(p.assetB, to, amountBOut); err != nil {
			return err
		}
	}
	if len(data) > 0 {
		if err := borrower.OnFlashSwap(to, amountAOut.Clone(), amountBOut.Clone(), data); err != nil {
			return fmt.Errorf("flash swap callback: %w", err)
		}
	}

	balanceA := p.assetA.BalanceOf(p.address)
	balanceB := p.assetB.BalanceOf(p.address)
	if balanceA.Gt(utils.Mask112) || balanceB.Gt(utils.Mask112) {
		return ErrOverflow
	}

	amountAIn := impliedInput(balanceA, state.reserveA, amountAOut)
	amountBIn := impliedInput(balanceB, state.reserveB, amountBOut)
	if amountAIn.IsZero() && amountBIn.IsZero() {
		return ErrNoInputProvided
	}

	var adjustedA, adjustedB, t uint256.Int
	adjustedA.Mul(balanceA, utils.FeeBasisPoints1000)
	t.Mul(amountAIn, utils.FeeBasisPoints3)
	adjustedA.Sub(&adjustedA, &t)
	adjustedB.Mul(balanceB, utils.FeeBasisPoints1000)
	t.Mul(amountBIn, utils.FeeBasisPoints3)
	adjustedB.Sub(&adjustedB, &t)

	var left, right uint256.Int
	left.Mul(&adjustedA, &adjustedB)
	right.Mul(state.reserveA, state.reserveB)
	t.Mul(utils.FeeBasisPoints1000, utils.FeeBasisPoints1000)
	right.Mul(&right, &t)
	if left.Lt(&right) {
		return ErrInvariantViolation
	}

	if err := p.syncTo(balanceA, balanceB, state.reserveA, state.reserveB); err != nil {
		return err
	}

	p.sink.Swapped(SwapEvent{
		Pair:       p.address,
		AmountAIn:  amountAIn,
		AmountBIn:  amountBIn,
		AmountAOut: amountAOut.Clone(),
		AmountBOut: amountBOut.Clone(),
		To:         to,
	})
	return nil
}

// Skim transfers the balance excess over the recorded reserves of both
// assets to the recipient, without touching the reserves.
func (p *Pair) Skim(to common.Address) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()
	if err := p.requireInitialized(); err != nil {
		return err
	}

	state := p.reserves.Load()
	var excessA, excessB uint256.Int
	if _, underflow := excessA.SubOverflow(p.assetA.BalanceOf(p.address), state.reserveA); underflow {
		return ErrOverflow
	}
	if _, underflow := excessB.SubOverflow(p.assetB.BalanceOf(p.address), state.reserveB); underflow {
		return ErrOverflow
	}

	if !excessA.IsZero() {
		if err := p.safeTransfer(p.assetA, to, &excessA); err != nil {
			return err
		}
	}
	if !excessB.IsZero() {
		if err := p.safeTransfer(p.assetB, to, &excessB); err != nil {
			return err
		}
	}
	return nil
}

// Sync collapses the held balances into the reserve snapshot.
func (p *Pair) Sync() error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()
	if err := p.requireInitialized(); err != nil {
		return err
	}

	state := p.reserves.Load()
	return p.syncTo(p.assetA.BalanceOf(p.address), p.assetB.BalanceOf(p.address), state.reserveA, state.reserveB)
}

// syncTo overwrites the reserve snapshot with the given balances,
// advancing the price accumulators over the time elapsed since the last
// sync. The prior reserves are the ones captured before any transfers
// in the calling operation. Every reserve mutation passes through here,
// exactly once per operation, with the latch held.
func (p *Pair) syncTo(balanceA, balanceB, priorReserveA, priorReserveB *uint256.Int) error {
	if balanceA.Gt(utils.Mask112) || balanceB.Gt(utils.Mask112) {
		return ErrOverflow
	}

	prior := p.reserves.Load()
	now := p.clock()
	elapsed := now - prior.timestamp // uint32 wraparound is the intended modulo arithmetic

	priceA := prior.priceACumulative
	priceB := prior.priceBCumulative
	if elapsed > 0 && !priorReserveA.IsZero() && !priorReserveB.IsZero() {
		e := uint256.NewInt(uint64(elapsed))
		var ratio, delta uint256.Int

		encodeUQ112(priorReserveB, &ratio)
		uqdiv(&ratio, priorReserveA, &ratio)
		delta.Mul(&ratio, e) // accumulators wrap mod 2^256
		priceA = new(uint256.Int).Add(priceA, &delta)

		encodeUQ112(priorReserveA, &ratio)
		uqdiv(&ratio, priorReserveB, &ratio)
		delta.Mul(&ratio, e)
		priceB = new(uint256.Int).Add(priceB, &delta)
	}

	next := &reserveState{
		reserveA:         balanceA.Clone(),
		reserveB:         balanceB.Clone(),
		timestamp:        now,
		priceACumulative: priceA,
		priceBCumulative: priceB,
	}
	p.reserves.Store(next)

	p.sink.PairSynced(SyncEvent{
		Pair:     p.address,
		ReserveA: next.reserveA.Clone(),
		ReserveB: next.reserveB.Clone(),
	})
	return nil
}

// feePlan is the protocol fee action computed against the pre-operation
// reserves, applied only once the surrounding operation is sure to
// succeed.
type feePlan struct {
	enabled    bool
	recipient  common.Address
	mintAmount *uint256.Int
	clearLast  bool
}

// planFee computes the share dilution owed to the fee recipient for the
// invariant growth since the last liquidity event:
//
//	totalSupply * (rootK - rootKLast) / (5*rootK + rootKLast)
//
// which is approximately one sixth of the trading fee accrued.
func (p *Pair) planFee(priorReserveA, priorReserveB *uint256.Int) feePlan {
	plan := feePlan{mintAmount: uint256.NewInt(0)}
	if p.feeSource != nil {
		plan.recipient = p.feeSource.FeeTo()
	}
	plan.enabled = plan.recipient != (common.Address{})

	kLast := p.kLast.Load()
	if !plan.enabled {
		plan.clearLast = !kLast.IsZero()
		return plan
	}
	if kLast.IsZero() {
		return plan
	}

	var k, rootK, rootKLast uint256.Int
	k.Mul(priorReserveA, priorReserveB)
	utils.Isqrt(&k, &rootK)
	utils.Isqrt(kLast, &rootKLast)
	if !rootK.Gt(&rootKLast) {
		return plan
	}

	var numerator, denominator uint256.Int
	numerator.Sub(&rootK, &rootKLast)
	numerator.Mul(&numerator, p.shares.TotalSupply())
	denominator.Mul(&rootK, uint256.NewInt(5))
	denominator.Add(&denominator, &rootKLast)
	plan.mintAmount.Div(&numerator, &denominator)
	return plan
}

func (p *Pair) applyFee(plan feePlan) {
	if plan.clearLast {
		p.kLast.Store(uint256.NewInt(0))
	}
	if plan.enabled && !plan.mintAmount.IsZero() {
		p.shares.mint(plan.recipient, plan.mintAmount)
	}
}

// recordInvariant captures the post-sync reserve product for the next
// fee accrual.
func (p *Pair) recordInvariant() {
	state := p.reserves.Load()
	p.kLast.Store(new(uint256.Int).Mul(state.reserveA, state.reserveB))
}

func (p *Pair) safeTransfer(asset Asset, to common.Address, amount *uint256.Int) error {
	return SafeTransfer(asset, p.address, to, amount)
}

// SafeTransfer moves amount between holders under the tolerant decoding
// rule: the transfer failed unless the asset reports no error and
// returns either no data or a 32-byte word equal to one.
func SafeTransfer(asset Asset, from, to common.Address, amount *uint256.Int) error {
	data, err := asset.Transfer(from, to, amount)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssetTransferFailed, err)
	}
	if len(data) == 0 {
		return nil
	}
	if len(data) != 32 {
		return fmt.Errorf("%w: malformed return data", ErrAssetTransferFailed)
	}
	if !new(uint256.Int).SetBytes(data).Eq(uint256.NewInt(1)) {
		return fmt.Errorf("%w: asset returned false", ErrAssetTransferFailed)
	}
	return nil
}

// impliedInput computes max(0, balance - (reserve - out)).
func impliedInput(balance, reserve, out *uint256.Int) *uint256.Int {
	prior := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(prior) {
		return prior.Sub(balance, prior)
	}
	return uint256.NewInt(0)
}

func (p *Pair) lock() error {
	if !p.latch.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	return nil
}

func (p *Pair) unlock() {
	p.latch.Store(false)
}

func (p *Pair) requireInitialized() error {
	if p.assetA == nil || p.assetB == nil {
		return ErrNotInitialized
	}
	return nil
}
