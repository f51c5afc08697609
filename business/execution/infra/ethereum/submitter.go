// Package ethereum submits flashloan transactions and observes their finality.
package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	arbDomain "github.com/fd1az/flasharb/business/arbitrage/domain"
	"github.com/fd1az/flasharb/business/execution/app"
	"github.com/fd1az/flasharb/business/execution/domain"
	"github.com/fd1az/flasharb/internal/apperror"
	"github.com/fd1az/flasharb/internal/asset"
	"github.com/fd1az/flasharb/internal/chainclient"
	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/logger"
)

var _ app.Submitter = (*Submitter)(nil)

const (
	executorABIJSON = `[{"name":"executeArbitrage","type":"function","stateMutability":"nonpayable","inputs":[{"name":"providerId","type":"bytes32"},{"name":"asset","type":"address"},{"name":"amount","type":"uint256"},{"name":"pools","type":"address[]"},{"name":"minOut","type":"uint256"}],"outputs":[]}]`
	erc20ABIJSON    = `[{"name":"balanceOf","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}]`

	receiptPollInterval = 2 * time.Second
	rpcCallTimeout      = 10 * time.Second

	// Entries for transactions that never resolve are dropped after
	// this long; any legitimate confirmation window is far shorter.
	preBalanceTTL = 30 * time.Minute
)

// Submitter signs and broadcasts flashloan transactions through the
// per-chain executor contracts.
type Submitter struct {
	chains      *chainclient.Registry
	execCfg     *config.ExecutionConfig
	key         *ecdsa.PrivateKey
	signer      common.Address
	executorABI abi.ABI
	erc20ABI    abi.ABI
	logger      logger.LoggerInterface

	mu          sync.Mutex
	preBalances map[common.Hash]preBalance
}

type preBalance struct {
	balance *big.Int
	at      time.Time
}

// NewSubmitter creates a Submitter for the configured wallet.
func NewSubmitter(chains *chainclient.Registry, execCfg *config.ExecutionConfig, log logger.LoggerInterface) (*Submitter, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(execCfg.WalletPrivateKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithCause(err),
			apperror.WithContext("invalid wallet private key"),
		)
	}

	executorABI, err := abi.JSON(strings.NewReader(executorABIJSON))
	if err != nil {
		return nil, err
	}
	erc20ABI, err := abi.JSON(strings.NewReader(erc20ABIJSON))
	if err != nil {
		return nil, err
	}

	return &Submitter{
		chains:      chains,
		execCfg:     execCfg,
		key:         key,
		signer:      crypto.PubkeyToAddress(key.PublicKey),
		executorABI: executorABI,
		erc20ABI:    erc20ABI,
		logger:      log,
		preBalances: make(map[common.Hash]preBalance),
	}, nil
}

// Signer returns the wallet address transactions are sent from.
func (s *Submitter) Signer() common.Address { return s.signer }

// Submit builds, signs and broadcasts the flashloan transaction. No
// cost is incurred on any failure here; nothing reached the chain.
func (s *Submitter) Submit(ctx context.Context, plan *arbDomain.SimulationResult, provider domain.Provider) (app.SubmissionHandle, error) {
	chainID := plan.Opportunity.ChainID()

	client, err := s.chains.Get(chainID)
	if err != nil {
		return app.SubmissionHandle{}, err
	}
	executor, ok := s.execCfg.ExecutorContract(chainID)
	if !ok {
		return app.SubmissionHandle{}, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext(fmt.Sprintf("no executor contract configured for chain %d", chainID)),
		)
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return app.SubmissionHandle{}, err
	}
	gasPrice, err := func() (*big.Int, error) {
		callCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
		defer cancel()
		return client.Eth.SuggestGasPrice(callCtx)
	}()
	if err != nil {
		return app.SubmissionHandle{}, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("gas price query failed on chain %d", chainID)),
		)
	}
	if limit := client.MaxGasPriceWei(); limit.Sign() > 0 && gasPrice.Cmp(limit) > 0 {
		return app.SubmissionHandle{}, apperror.New(apperror.CodeGasPriceTooHigh,
			apperror.WithContext(fmt.Sprintf("gas price %s wei exceeds limit %s wei on chain %d", gasPrice, limit, chainID)),
		)
	}

	base := plan.Opportunity.Route.Base()
	calldata, err := s.buildCalldata(plan, provider, base)
	if err != nil {
		return app.SubmissionHandle{}, err
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return app.SubmissionHandle{}, err
	}
	nonce, err := func() (uint64, error) {
		callCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
		defer cancel()
		return client.Eth.PendingNonceAt(callCtx, s.signer)
	}()
	if err != nil {
		return app.SubmissionHandle{}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err),
			apperror.WithContext("nonce query failed"),
		)
	}

	balanceBefore, err := s.tokenBalance(ctx, client, base, s.signer)
	if err != nil {
		return app.SubmissionHandle{}, err
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &executor,
		Gas:      plan.GasEstimate,
		GasPrice: gasPrice,
		Data:     calldata,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), s.key)
	if err != nil {
		return app.SubmissionHandle{}, err
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return app.SubmissionHandle{}, err
	}
	sendCtx, cancelSend := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancelSend()
	if err := client.Eth.SendTransaction(sendCtx, signed); err != nil {
		return app.SubmissionHandle{}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("broadcast failed on chain %d", chainID)),
		)
	}

	handle := app.SubmissionHandle{TxHash: signed.Hash(), ChainID: chainID}
	s.mu.Lock()
	s.evictStaleLocked(time.Now())
	s.preBalances[handle.TxHash] = preBalance{balance: balanceBefore, at: time.Now()}
	s.mu.Unlock()

	return handle, nil
}

// evictStaleLocked drops balance entries for transactions that never
// resolved. Caller holds s.mu.
func (s *Submitter) evictStaleLocked(now time.Time) {
	for hash, entry := range s.preBalances {
		if now.Sub(entry.at) > preBalanceTTL {
			delete(s.preBalances, hash)
		}
	}
}

// buildCalldata encodes the executor call. minOut covers the borrow
// plus the flashloan fee; the contract reverts the whole unit when the
// swaps cannot repay.
func (s *Submitter) buildCalldata(plan *arbDomain.SimulationResult, provider domain.Provider, base *asset.Asset) ([]byte, error) {
	var providerID [32]byte
	copy(providerID[:], provider.ID)

	amount := toRaw(base, plan.TradeSize)
	minOut := toRaw(base, plan.TradeSize.Add(plan.FlashloanFee))

	pools := make([]common.Address, 0, plan.Opportunity.Route.Len())
	for _, hop := range plan.Opportunity.Route.Hops() {
		pools = append(pools, hop.Pool.ID().Address)
	}

	return s.executorABI.Pack("executeArbitrage", providerID, base.Address(), amount, pools, minOut)
}

// Await polls for the receipt until finality or ctx expiry.
func (s *Submitter) Await(ctx context.Context, handle app.SubmissionHandle, plan *arbDomain.SimulationResult) (app.Outcome, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		outcome, found, err := s.Check(ctx, handle, plan)
		if err == nil && found {
			return outcome, nil
		}
		if err != nil && ctx.Err() != nil {
			return app.Outcome{}, ctx.Err()
		}

		select {
		case <-ctx.Done():
			return app.Outcome{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Check queries the receipt once. found is false while the transaction
// is still pending.
func (s *Submitter) Check(ctx context.Context, handle app.SubmissionHandle, plan *arbDomain.SimulationResult) (app.Outcome, bool, error) {
	client, err := s.chains.Get(handle.ChainID)
	if err != nil {
		return app.Outcome{}, false, err
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return app.Outcome{}, false, err
	}
	receiptCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	receipt, err := client.Eth.TransactionReceipt(receiptCtx, handle.TxHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return app.Outcome{}, false, nil
		}
		return app.Outcome{}, false, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("receipt query failed for "+handle.TxHash.Hex()),
		)
	}

	outcome := app.Outcome{
		Reverted:   receipt.Status != types.ReceiptStatusSuccessful,
		GasUsed:    receipt.GasUsed,
		ResolvedAt: time.Now(),
	}

	if !outcome.Reverted {
		base := plan.Opportunity.Route.Base()
		postBalance, err := s.tokenBalance(ctx, client, base, s.signer)
		if err != nil {
			s.logger.Warn(ctx, "could not read post-trade balance, realized profit unknown",
				"tx_hash", handle.TxHash.Hex(),
				"error", err,
			)
		} else {
			s.mu.Lock()
			pre, ok := s.preBalances[handle.TxHash]
			s.mu.Unlock()
			if ok {
				delta := new(big.Int).Sub(postBalance, pre.balance)
				outcome.RealizedBase = fromRaw(base, delta)
			}
		}
	}

	s.mu.Lock()
	delete(s.preBalances, handle.TxHash)
	s.mu.Unlock()

	return outcome, true, nil
}

func (s *Submitter) tokenBalance(ctx context.Context, client *chainclient.Client, token *asset.Asset, holder common.Address) (*big.Int, error) {
	calldata, err := s.erc20ABI.Pack("balanceOf", holder)
	if err != nil {
		return nil, err
	}

	if err := client.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	tokenAddr := token.Address()
	callCtx, cancel := context.WithTimeout(ctx, rpcCallTimeout)
	defer cancel()
	raw, err := client.Eth.CallContract(callCtx, ethereum.CallMsg{To: &tokenAddr, Data: calldata}, nil)
	if err != nil {
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("balanceOf call failed for "+token.Symbol()),
		)
	}

	out, err := s.erc20ABI.Unpack("balanceOf", raw)
	if err != nil || len(out) != 1 {
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("malformed balanceOf response"),
		)
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, apperror.New(apperror.CodeRPCCallFailed,
			apperror.WithContext("unexpected balanceOf type"),
		)
	}
	return balance, nil
}

func toRaw(a *asset.Asset, d decimal.Decimal) *big.Int {
	return d.Shift(int32(a.Decimals())).Truncate(0).BigInt()
}

func fromRaw(a *asset.Asset, raw *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(raw, -int32(a.Decimals()))
}
