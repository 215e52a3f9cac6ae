package pool

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/metrics"
)

// StateProvider exposes the pool contract state the pre-validator consumes.
type StateProvider interface {
	Scope(ctx context.Context) (*big.Int, error)
	MaxTreeDepth(ctx context.Context) (uint32, error)
	CurrentRoot(ctx context.Context) (*big.Int, error)
	CurrentRootIndex(ctx context.Context) (uint32, error)
	RootAt(ctx context.Context, index uint32) (*big.Int, error)
	RootHistorySize(ctx context.Context) (uint32, error)
	IsNullifierSpent(ctx context.Context, nullifierHash *big.Int) (bool, error)
}

// ASPRegistry exposes the association-set provider's registry, which tracks
// a single latest approved root per pool scope.
type ASPRegistry interface {
	LatestApprovedRoot(ctx context.Context) (*big.Int, error)
}

const poolABIJSON = `[
	{"type":"function","name":"SCOPE","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"MAX_TREE_DEPTH","stateMutability":"view","inputs":[],"outputs":[{"type":"uint32"}]},
	{"type":"function","name":"currentRoot","stateMutability":"view","inputs":[],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"currentRootIndex","stateMutability":"view","inputs":[],"outputs":[{"type":"uint32"}]},
	{"type":"function","name":"ROOT_HISTORY_SIZE","stateMutability":"view","inputs":[],"outputs":[{"type":"uint32"}]},
	{"type":"function","name":"roots","stateMutability":"view","inputs":[{"type":"uint256"}],"outputs":[{"type":"uint256"}]},
	{"type":"function","name":"nullifierHashes","stateMutability":"view","inputs":[{"type":"uint256"}],"outputs":[{"type":"bool"}]}
]`

const aspRegistryABIJSON = `[
	{"type":"function","name":"latestRoot","stateMutability":"view","inputs":[{"name":"scope","type":"uint256"}],"outputs":[{"type":"uint256"}]}
]`

// ChainProvider reads pool and ASP registry state over JSON-RPC.
type ChainProvider struct {
	client     *ethclient.Client
	poolAddr   common.Address
	aspAddr    common.Address
	poolABI    abi.ABI
	aspABI     abi.ABI
	scopeCache *big.Int
	depthCache uint32
}

func NewChainProvider(client *ethclient.Client, poolAddr, aspAddr common.Address) (*ChainProvider, error) {
	poolParsed, err := abi.JSON(strings.NewReader(poolABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse pool ABI: %w", err)
	}
	aspParsed, err := abi.JSON(strings.NewReader(aspRegistryABIJSON))
	if err != nil {
		return nil, fmt.Errorf("parse ASP registry ABI: %w", err)
	}
	return &ChainProvider{
		client:   client,
		poolAddr: poolAddr,
		aspAddr:  aspAddr,
		poolABI:  poolParsed,
		aspABI:   aspParsed,
	}, nil
}

func (p *ChainProvider) callPool(ctx context.Context, out interface{}, method string, args ...interface{}) error {
	data, err := p.poolABI.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &p.poolAddr, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	results, err := p.poolABI.Unpack(method, raw)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return assign(out, results[0])
}

// assign copies an unpacked ABI value into the typed destination.
func assign(out interface{}, v interface{}) error {
	switch dst := out.(type) {
	case **big.Int:
		val, ok := v.(*big.Int)
		if !ok {
			return fmt.Errorf("unexpected result type %T", v)
		}
		*dst = val
	case *uint32:
		val, ok := v.(uint32)
		if !ok {
			return fmt.Errorf("unexpected result type %T", v)
		}
		*dst = val
	case *bool:
		val, ok := v.(bool)
		if !ok {
			return fmt.Errorf("unexpected result type %T", v)
		}
		*dst = val
	default:
		return fmt.Errorf("unsupported destination type %T", out)
	}
	return nil
}

// Scope returns the pool's scope constant. Cached after the first read; the
// value is immutable on chain.
func (p *ChainProvider) Scope(ctx context.Context) (*big.Int, error) {
	if p.scopeCache != nil {
		return p.scopeCache, nil
	}
	var scope *big.Int
	if err := p.callPool(ctx, &scope, "SCOPE"); err != nil {
		return nil, err
	}
	p.scopeCache = scope
	return scope, nil
}

// MaxTreeDepth returns the pool's maximum merkle tree depth. Cached after
// the first read.
func (p *ChainProvider) MaxTreeDepth(ctx context.Context) (uint32, error) {
	if p.depthCache != 0 {
		return p.depthCache, nil
	}
	var depth uint32
	if err := p.callPool(ctx, &depth, "MAX_TREE_DEPTH"); err != nil {
		return 0, err
	}
	p.depthCache = depth
	return depth, nil
}

func (p *ChainProvider) CurrentRoot(ctx context.Context) (*big.Int, error) {
	var root *big.Int
	if err := p.callPool(ctx, &root, "currentRoot"); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *ChainProvider) CurrentRootIndex(ctx context.Context) (uint32, error) {
	var idx uint32
	if err := p.callPool(ctx, &idx, "currentRootIndex"); err != nil {
		return 0, err
	}
	return idx, nil
}

func (p *ChainProvider) RootHistorySize(ctx context.Context) (uint32, error) {
	var size uint32
	if err := p.callPool(ctx, &size, "ROOT_HISTORY_SIZE"); err != nil {
		return 0, err
	}
	return size, nil
}

func (p *ChainProvider) RootAt(ctx context.Context, index uint32) (*big.Int, error) {
	var root *big.Int
	if err := p.callPool(ctx, &root, "roots", new(big.Int).SetUint64(uint64(index))); err != nil {
		return nil, err
	}
	return root, nil
}

func (p *ChainProvider) IsNullifierSpent(ctx context.Context, nullifierHash *big.Int) (bool, error) {
	var spent bool
	if err := p.callPool(ctx, &spent, "nullifierHashes", nullifierHash); err != nil {
		return false, err
	}
	return spent, nil
}

// LatestApprovedRoot reads the ASP registry's latest root for the pool scope.
func (p *ChainProvider) LatestApprovedRoot(ctx context.Context) (*big.Int, error) {
	scope, err := p.Scope(ctx)
	if err != nil {
		return nil, err
	}
	data, err := p.aspABI.Pack("latestRoot", scope)
	if err != nil {
		return nil, fmt.Errorf("pack latestRoot: %w", err)
	}
	raw, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &p.aspAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call latestRoot: %w", err)
	}
	results, err := p.aspABI.Unpack("latestRoot", raw)
	if err != nil {
		return nil, fmt.Errorf("unpack latestRoot: %w", err)
	}
	root, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected latestRoot result type %T", results[0])
	}
	return root, nil
}

// HydrateHistory fills the root-history ring from the on-chain ring, oldest
// first, so backward lookups see the same window the contract would. Slot
// indices wrap modulo the on-chain ring size; when that ring is larger than
// the local one, only the newest entries that fit are fetched.
func HydrateHistory(ctx context.Context, src StateProvider, history *RootHistory) error {
	size, err := src.RootHistorySize(ctx)
	if err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	newest, err := src.CurrentRootIndex(ctx)
	if err != nil {
		return err
	}
	count := int(size)
	if count > history.Capacity() {
		count = history.Capacity()
	}
	for i := count - 1; i >= 0; i-- {
		idx := (int(newest) - i + int(size)) % int(size)
		root, err := src.RootAt(ctx, uint32(idx))
		if err != nil {
			return err
		}
		history.Push(root)
	}
	metrics.RootHistorySize.Set(float64(history.Len()))
	return nil
}

func (p *ChainProvider) Hydrate(ctx context.Context, history *RootHistory) error {
	if err := HydrateHistory(ctx, p, history); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"roots": history.Len(),
		"pool":  p.poolAddr.Hex(),
	}).Info("Hydrated root history from chain")
	return nil
}
