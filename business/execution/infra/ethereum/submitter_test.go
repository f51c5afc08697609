package ethereum

import (
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/flasharb/internal/config"
	"github.com/fd1az/flasharb/internal/logger"
)

// Well-known hardhat development key, never used on a live network.
const testWalletKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testSubmitter(t *testing.T) *Submitter {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "test", nil)
	sub, err := NewSubmitter(nil, &config.ExecutionConfig{WalletPrivateKey: testWalletKey}, log)
	if err != nil {
		t.Fatalf("creating submitter: %v", err)
	}
	return sub
}

func TestSubmitter_EvictsStalePreBalances(t *testing.T) {
	sub := testSubmitter(t)

	now := time.Now()
	stale := common.HexToHash("0x01")
	fresh := common.HexToHash("0x02")

	sub.mu.Lock()
	sub.preBalances[stale] = preBalance{balance: big.NewInt(100), at: now.Add(-preBalanceTTL - time.Minute)}
	sub.preBalances[fresh] = preBalance{balance: big.NewInt(200), at: now.Add(-time.Minute)}
	sub.evictStaleLocked(now)
	sub.mu.Unlock()

	sub.mu.Lock()
	defer sub.mu.Unlock()
	if _, ok := sub.preBalances[stale]; ok {
		t.Error("entry older than the TTL should have been dropped")
	}
	pre, ok := sub.preBalances[fresh]
	if !ok {
		t.Fatal("recent entry should survive eviction")
	}
	if pre.balance.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("surviving entry balance = %s, want 200", pre.balance)
	}
}
