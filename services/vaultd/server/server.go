package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"

	fp "vaultrisk/native/fixedpoint"
	"vaultrisk/native/vaults"
	"vaultrisk/observability/metrics"
	"vaultrisk/services/vaultd/chain"
)

// ErrChainDisabled is returned by chain routes when no RPC node is configured.
var ErrChainDisabled = errors.New("chain reads not configured")

// ChainReader is the subset of chain.Reader used by the server.
type ChainReader interface {
	Ilk(ctx context.Context, name string) (vaults.RiskParams, error)
	Urn(ctx context.Context, name string, urn common.Address) (vaults.PositionRaw, error)
	Savings(ctx context.Context) (chain.Savings, error)
}

// Server exposes the risk engine over JSON.
type Server struct {
	calc    *vaults.Calculator
	chain   ChainReader
	metrics *metrics.VaultMetrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option customises a Server.
type Option func(*Server)

// WithChain enables the chain-backed routes.
func WithChain(reader ChainReader) Option {
	return func(s *Server) { s.chain = reader }
}

// WithMetrics records evaluations on m.
func WithMetrics(m *metrics.VaultMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used for chi accrual.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a server. A nil calculator uses the default constants.
func New(calc *vaults.Calculator, opts ...Option) *Server {
	if calc == nil {
		calc = vaults.Default()
	}
	s := &Server{calc: calc, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the API routes on r.
func (s *Server) Register(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Post("/vaults/info", s.handleVaultInfo)
		r.Post("/vaults/simulate", s.handleSimulate)
		r.Post("/collateral/risk", s.handleCollateralRisk)
		r.Post("/rates/annual", s.handleAnnualRates)
		r.Post("/rates/rewards", s.handleRewards)
		r.Post("/savings/balance", s.handleSavings)
		r.Post("/convert", s.handleConvert)
		r.Get("/ilks/{ilk}", s.handleIlk)
		r.Get("/ilks/{ilk}/urns/{urn}", s.handleUrn)
		r.Get("/savings", s.handleChainSavings)
	})
}

func (s *Server) observe(operation string, start time.Time) {
	s.metrics.ObserveEvaluation(operation, time.Since(start))
}

func (s *Server) handleVaultInfo(w http.ResponseWriter, r *http.Request) {
	var req VaultInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	info := s.calc.CalculateVaultInfo(req.input())
	s.observe("vault_info", start)
	s.metrics.RecordRiskLevel(info.RiskLevel.String())
	writeJSON(w, http.StatusOK, info.Display())
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	sim := s.calc.SimulateVault(req.input())
	s.observe("simulate", start)
	s.metrics.RecordRiskLevel(sim.Target.RiskLevel.String())
	for _, verr := range sim.Errors {
		s.metrics.RecordValidationFailure(verr.Code)
	}
	writeJSON(w, http.StatusOK, sim.Display())
}

func (s *Server) handleCollateralRisk(w http.ResponseWriter, r *http.Request) {
	var req IlkRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	risk := s.calc.CalculateCollateralRiskParams(req.params())
	s.observe("collateral_risk", start)
	writeJSON(w, http.StatusOK, risk.Display())
}

func (s *Server) handleAnnualRates(w http.ResponseWriter, r *http.Request) {
	var req AnnualRatesRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Duty == nil && req.Dsr == nil {
		s.writeError(w, r, fmt.Errorf("%w: duty or dsr required", errBadRequest))
		return
	}
	start := time.Now()
	var resp AnnualRatesResponse
	if req.Duty != nil {
		resp.StabilityFee = vaults.WadAmount(s.calc.AnnualStabilityFee(req.Duty.Int()))
	}
	if req.Dsr != nil {
		resp.SavingsRate = vaults.WadAmount(s.calc.AnnualDaiSavingsRate(req.Dsr.Int()))
	}
	s.observe("annual_rates", start)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRewards(w http.ResponseWriter, r *http.Request) {
	var req RewardsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	rate := s.calc.GetRewardsRate(req.RatePerSecond.Int(), req.TotalSupplied.Int())
	s.observe("rewards_rate", start)
	writeJSON(w, http.StatusOK, RewardsResponse{Rate: vaults.WadAmount(rate)})
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	var req SavingsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Chi == nil {
		s.writeError(w, r, fmt.Errorf("%w: chi required", errBadRequest))
		return
	}
	start := time.Now()
	chi := req.Chi.Int()
	if req.Dsr != nil && req.Rho != nil {
		now := uint64(s.now().Unix())
		if req.Now != nil {
			now = *req.Now
		}
		chi = vaults.UpdatedChi(chi, req.Dsr.Int(), *req.Rho, now)
	}
	balance := vaults.DsrBalance(req.Pie.Int(), chi)
	s.observe("savings_balance", start)
	writeJSON(w, http.StatusOK, SavingsResponse{
		Balance: vaults.WadAmount(balance),
		Chi:     vaults.NewAmount(chi, fp.RayPrecision),
		Shares:  vaults.WadAmount(vaults.CalculateSharesFromAssets(balance, chi)),
	})
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	from := strings.ToUpper(strings.TrimSpace(req.From))
	if from == "" || req.Amount == nil {
		s.writeError(w, r, fmt.Errorf("%w: from and amount required", errBadRequest))
		return
	}
	start := time.Now()
	out := s.calc.CalculateConversion(vaults.Token{Symbol: from}, req.Amount.Int())
	s.observe("convert", start)
	writeJSON(w, http.StatusOK, ConvertResponse{From: from, Amount: out.String()})
}

func (s *Server) handleIlk(w http.ResponseWriter, r *http.Request) {
	if s.chain == nil {
		s.writeError(w, r, ErrChainDisabled)
		return
	}
	name := chi.URLParam(r, "ilk")
	ilk, err := s.chain.Ilk(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	risk := s.calc.CalculateCollateralRiskParams(ilk)
	s.observe("collateral_risk", start)
	s.metrics.SetDebtCeilingUtilization(name, risk.DebtCeilingUtilization)
	writeJSON(w, http.StatusOK, risk.Display())
}

func (s *Server) handleUrn(w http.ResponseWriter, r *http.Request) {
	if s.chain == nil {
		s.writeError(w, r, ErrChainDisabled)
		return
	}
	name := chi.URLParam(r, "ilk")
	rawUrn := chi.URLParam(r, "urn")
	if !common.IsHexAddress(rawUrn) {
		s.writeError(w, r, fmt.Errorf("%w: invalid urn address %q", errBadRequest, rawUrn))
		return
	}
	var marketPrice *big.Int
	if raw := r.URL.Query().Get("marketPrice"); raw != "" {
		value, err := ParseUint256(raw)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("%w: marketPrice: %v", errBadRequest, err))
			return
		}
		marketPrice = value
	}

	ilk, err := s.chain.Ilk(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	pos, err := s.chain.Urn(r.Context(), name, common.HexToAddress(rawUrn))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	info := s.calc.CalculatePositionInfo(ilk, pos, marketPrice)
	s.observe("vault_info", start)
	s.metrics.RecordRiskLevel(info.RiskLevel.String())
	writeJSON(w, http.StatusOK, info.Display())
}

// SavingsState reports the live savings accumulator.
type SavingsState struct {
	Chi         *vaults.Amount `json:"chi"`
	AccruedChi  *vaults.Amount `json:"accruedChi"`
	Rho         uint64         `json:"rho"`
	SavingsRate *vaults.Amount `json:"savingsRate"`
}

func (s *Server) handleChainSavings(w http.ResponseWriter, r *http.Request) {
	if s.chain == nil {
		s.writeError(w, r, ErrChainDisabled)
		return
	}
	state, err := s.chain.Savings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	start := time.Now()
	accrued := vaults.UpdatedChi(state.Chi, state.Dsr, state.Rho, uint64(s.now().Unix()))
	resp := SavingsState{
		Chi:         vaults.NewAmount(state.Chi, fp.RayPrecision),
		AccruedChi:  vaults.NewAmount(accrued, fp.RayPrecision),
		Rho:         state.Rho,
		SavingsRate: vaults.WadAmount(s.calc.AnnualDaiSavingsRate(state.Dsr)),
	}
	s.observe("savings_state", start)
	writeJSON(w, http.StatusOK, resp)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, chain.ErrInvalidIlk):
		return http.StatusBadRequest
	case errors.Is(err, ErrChainDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, chain.ErrCallFailed), errors.Is(err, chain.ErrShortResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	message := strings.TrimSpace(err.Error())
	if status == http.StatusBadRequest {
		message = strings.TrimPrefix(message, errBadRequest.Error()+": ")
	}
	if message == "" {
		message = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("write response", "error", err)
	}
}
