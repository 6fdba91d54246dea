package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"vaultrisk/native/vaults"
	"vaultrisk/observability/metrics"
)

const wordSize = 32

// DefaultTimeout bounds each eth_call when no timeout is configured.
const DefaultTimeout = 5 * time.Second

var (
	// ErrInvalidIlk is returned for ilk names that do not fit a bytes32.
	ErrInvalidIlk = errors.New("vaultd chain: invalid ilk name")
	// ErrShortResponse is returned when a getter returns fewer words than expected.
	ErrShortResponse = errors.New("vaultd chain: short response")
	// ErrCallFailed wraps transport and execution errors from the node.
	ErrCallFailed = errors.New("vaultd chain: call failed")
)

var (
	selVatIlks  = selector("ilks(bytes32)")
	selVatUrns  = selector("urns(bytes32,address)")
	selSpotIlks = selVatIlks
	selSpotPar  = selector("par()")
	selJugIlks  = selVatIlks
	selPotChi   = selector("chi()")
	selPotDsr   = selector("dsr()")
	selPotRho   = selector("rho()")
)

// Caller is the subset of the Ethereum RPC used by the reader.
type Caller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contracts holds the addresses of the accounting contracts.
type Contracts struct {
	Vat  common.Address
	Spot common.Address
	Jug  common.Address
	Pot  common.Address
}

// ParseContracts converts hex addresses into Contracts.
func ParseContracts(vat, spot, jug, pot string) (Contracts, error) {
	out := Contracts{}
	for _, entry := range []struct {
		name string
		hex  string
		dst  *common.Address
	}{{"vat", vat, &out.Vat}, {"spot", spot, &out.Spot}, {"jug", jug, &out.Jug}, {"pot", pot, &out.Pot}} {
		if !common.IsHexAddress(entry.hex) {
			return Contracts{}, fmt.Errorf("vaultd chain: invalid %s address %q", entry.name, entry.hex)
		}
		*entry.dst = common.HexToAddress(entry.hex)
	}
	return out, nil
}

// Savings is the raw Pot state.
type Savings struct {
	Chi *big.Int // RAY
	Dsr *big.Int // RAY
	Rho uint64
}

// DialClient initialises an RPC client for the provided endpoint.
func DialClient(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("vaultd chain: rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// Reader fetches raw ilk, urn and savings values with eth_call.
type Reader struct {
	caller    Caller
	contracts Contracts
	timeout   time.Duration
	metrics   *metrics.VaultMetrics
}

// Option customises a Reader.
type Option func(*Reader)

// WithTimeout bounds every read.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Reader) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMetrics records every read on m.
func WithMetrics(m *metrics.VaultMetrics) Option {
	return func(r *Reader) { r.metrics = m }
}

// NewReader constructs a reader over caller.
func NewReader(caller Caller, contracts Contracts, opts ...Option) *Reader {
	r := &Reader{caller: caller, contracts: contracts, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// IlkID encodes an ilk name such as "ETH-A" as a right-padded bytes32.
func IlkID(name string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || len(trimmed) > len(id) {
		return id, fmt.Errorf("%w: %q", ErrInvalidIlk, name)
	}
	copy(id[:], trimmed)
	return id, nil
}

// Ilk reads Vat, Spot and Jug state for the named collateral type.
func (r *Reader) Ilk(ctx context.Context, name string) (vaults.RiskParams, error) {
	if err := r.ready(); err != nil {
		return vaults.RiskParams{}, err
	}
	id, err := IlkID(name)
	if err != nil {
		return vaults.RiskParams{}, err
	}

	// Vat.ilks -> (Art, rate, spot, line, dust)
	vat, err := r.call(ctx, "vat.ilks", r.contracts.Vat, selVatIlks, 5, id[:])
	if err != nil {
		return vaults.RiskParams{}, err
	}
	// Spot.ilks -> (pip, mat)
	spot, err := r.call(ctx, "spot.ilks", r.contracts.Spot, selSpotIlks, 2, id[:])
	if err != nil {
		return vaults.RiskParams{}, err
	}
	par, err := r.call(ctx, "spot.par", r.contracts.Spot, selSpotPar, 1)
	if err != nil {
		return vaults.RiskParams{}, err
	}
	// Jug.ilks -> (duty, rho)
	jug, err := r.call(ctx, "jug.ilks", r.contracts.Jug, selJugIlks, 2, id[:])
	if err != nil {
		return vaults.RiskParams{}, err
	}

	return vaults.RiskParams{
		IlkArt: vat[0],
		Rate:   vat[1],
		Spot:   vat[2],
		Line:   vat[3],
		Dust:   vat[4],
		Mat:    spot[1],
		Par:    par[0],
		Duty:   jug[0],
	}, nil
}

// Urn reads the Vat position of urn in the named ilk.
func (r *Reader) Urn(ctx context.Context, name string, urn common.Address) (vaults.PositionRaw, error) {
	if err := r.ready(); err != nil {
		return vaults.PositionRaw{}, err
	}
	id, err := IlkID(name)
	if err != nil {
		return vaults.PositionRaw{}, err
	}
	words, err := r.call(ctx, "vat.urns", r.contracts.Vat, selVatUrns, 2, id[:], common.LeftPadBytes(urn.Bytes(), wordSize))
	if err != nil {
		return vaults.PositionRaw{}, err
	}
	return vaults.PositionRaw{Ink: words[0], Art: words[1]}, nil
}

// Savings reads chi, dsr and rho from the Pot.
func (r *Reader) Savings(ctx context.Context) (Savings, error) {
	if err := r.ready(); err != nil {
		return Savings{}, err
	}
	chi, err := r.call(ctx, "pot.chi", r.contracts.Pot, selPotChi, 1)
	if err != nil {
		return Savings{}, err
	}
	dsr, err := r.call(ctx, "pot.dsr", r.contracts.Pot, selPotDsr, 1)
	if err != nil {
		return Savings{}, err
	}
	rho, err := r.call(ctx, "pot.rho", r.contracts.Pot, selPotRho, 1)
	if err != nil {
		return Savings{}, err
	}
	if !rho[0].IsUint64() {
		return Savings{}, fmt.Errorf("%w: rho out of range", ErrShortResponse)
	}
	return Savings{Chi: chi[0], Dsr: dsr[0], Rho: rho[0].Uint64()}, nil
}

func (r *Reader) ready() error {
	if r == nil || r.caller == nil {
		return fmt.Errorf("%w: reader not initialised", ErrCallFailed)
	}
	return nil
}

func (r *Reader) call(ctx context.Context, name string, to common.Address, sel []byte, words int, args ...[]byte) ([]*big.Int, error) {
	data := make([]byte, 0, len(sel)+len(args)*wordSize)
	data = append(data, sel...)
	for _, arg := range args {
		data = append(data, arg...)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrCallFailed, name, err)
		r.metrics.RecordChainRead(name, err)
		return nil, err
	}
	decoded, err := decodeWords(out, words)
	if err != nil {
		err = fmt.Errorf("%s: %w", name, err)
	}
	r.metrics.RecordChainRead(name, err)
	return decoded, err
}

func decodeWords(out []byte, words int) ([]*big.Int, error) {
	if len(out) < words*wordSize {
		return nil, fmt.Errorf("%w: got %d bytes want %d", ErrShortResponse, len(out), words*wordSize)
	}
	values := make([]*big.Int, words)
	for i := range values {
		word := new(uint256.Int).SetBytes32(out[i*wordSize : (i+1)*wordSize])
		values[i] = word.ToBig()
	}
	return values, nil
}

func selector(signature string) []byte {
	return gethcrypto.Keccak256([]byte(signature))[:4]
}
