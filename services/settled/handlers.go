package settled

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	coreerrors "drippy/core/errors"
	"drippy/core/engine"
	"drippy/core/payout"
	"drippy/core/types"
	"drippy/gateway/middleware"
	"drippy/native/accrual"
	"drippy/native/common"
	"drippy/native/fees"
)

// ModulePayout pauses the payout processor rather than an engine module.
const ModulePayout = "payout"

func (s *Server) handleOperation(w http.ResponseWriter, r *http.Request) {
	var op engine.Operation
	if err := decodeBody(w, r, &op); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	// The ledger clock is authoritative for cooldown and daily windows.
	op.Now = 0
	outcome, err := s.engine.Apply(r.Context(), op)
	if err != nil {
		s.logger.Info("operation not applied",
			"kind", op.Kind.String(),
			"status", string(outcome.Status),
			"reason", outcome.Reason,
			"subject", middleware.Subject(r.Context()))
	}
	writeJSON(w, statusFor(err), newOutcomeView(outcome))
}

type planRequest struct {
	Amount    uint64          `json:"amount,string"`
	SellSide  bool            `json:"sellSide"`
	Actor     types.AccountID `json:"actor"`
	Reference string          `json:"reference"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	dist, err := s.engine.Distributor().Plan(r.Context(), fees.DistributeInput{
		Amount:     req.Amount,
		IsSellSide: req.SellSide,
		Actor:      req.Actor,
		Now:        s.engine.Now(),
		Reference:  req.Reference,
	})
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newDistributionView(&dist, s.engine.MinAmount()))
}

type accountView struct {
	Account    string    `json:"account"`
	Hex        string    `json:"hex"`
	Found      bool      `json:"found"`
	State      stateView `json:"state"`
	Multiplier uint32    `json:"effectiveMultiplier"`
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountParam(w, r)
	if !ok {
		return
	}
	state, found, err := s.engine.Account(id)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accountView{
		Account:    id.String(),
		Hex:        id.Hex(),
		Found:      found,
		State:      newStateView(state),
		Multiplier: state.EffectiveMultiplier(),
	})
}

type quoteView struct {
	Account       string    `json:"account"`
	Payout        string    `json:"payout"`
	Boosted       string    `json:"boosted"`
	ReserveFunded string    `json:"reserveFunded"`
	Multiplier    uint32    `json:"multiplier"`
	State         stateView `json:"state"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, ok := accountParam(w, r)
	if !ok {
		return
	}
	quote, err := s.engine.Preview(id)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteView{
		Account:       id.String(),
		Payout:        formatAmount(quote.Payout),
		Boosted:       formatAmount(quote.Boosted),
		ReserveFunded: formatAmount(quote.ReserveFunded()),
		Multiplier:    quote.Multiplier,
		State:         newStateView(quote.State),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats()
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type statusView struct {
	Paused    []string `json:"paused"`
	MinAmount string   `json:"minAmount"`
	Payout    any      `json:"payout"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusView{
		Paused:    s.pauses.Paused(),
		MinAmount: formatAmount(s.engine.MinAmount()),
		Payout:    s.processor.Status(),
	})
}

func (s *Server) handleReceipts(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	rows, err := s.journal.Receipts(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type holderView struct {
	Account string `json:"account"`
	Units   string `json:"units"`
}

func (s *Server) handleGetHolders(w http.ResponseWriter, r *http.Request) {
	holders, err := s.journal.Holders(r.Context(), chi.URLParam(r, "pool"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	out := make([]holderView, 0, len(holders))
	for _, holder := range holders {
		out = append(out, holderView{Account: holder.Account.String(), Units: formatAmount(holder.Units)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePutHolders(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	if !s.holderPool(pool) {
		writeError(w, http.StatusNotFound, "unknown_pool", "pool does not fan out to holders")
		return
	}
	var req []holderView
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	holders := make([]fees.Holder, 0, len(req))
	for _, entry := range req {
		id, err := types.ParseAccountID(entry.Account)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account", err.Error())
			return
		}
		units, err := strconv.ParseUint(strings.TrimSpace(entry.Units), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_units", err.Error())
			return
		}
		holders = append(holders, fees.Holder{Account: id, Units: units})
	}
	if err := s.journal.ReplaceHolders(r.Context(), pool, holders); err != nil {
		writeError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	s.logger.Info("holder snapshot replaced", "pool", pool, "holders", len(holders), "subject", middleware.Subject(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) holderPool(id string) bool {
	for _, pool := range s.engine.Distributor().Config().Pools {
		if pool.ID == id && pool.Holders {
			return true
		}
	}
	return false
}

func (s *Server) handlePause(paused bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		module := strings.ToLower(chi.URLParam(r, "module"))
		switch module {
		case ModulePayout:
			if paused {
				s.processor.Pause()
			} else {
				s.processor.Resume()
			}
		case common.ModuleClaim, common.ModuleDistribute, common.ModuleAdmin:
			s.pauses.Set(module, paused)
		default:
			writeError(w, http.StatusNotFound, "unknown_module", "unknown module "+module)
			return
		}
		s.logger.Warn("pause toggled", "module", module, "paused", paused, "subject", middleware.Subject(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	open := r.URL.Query().Get("open") != "false"
	rows, err := s.journal.Alerts(r.Context(), open)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", err.Error())
		return
	}
	if err := s.journal.ResolveAlert(r.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "unknown_alert", "alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "journal_unavailable", err.Error())
		return
	}
	s.logger.Info("alert resolved", "id", id.String(), "subject", middleware.Subject(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

func accountParam(w http.ResponseWriter, r *http.Request) (types.AccountID, bool) {
	id, err := types.ParseAccountID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_account", err.Error())
		return types.AccountID{}, false
	}
	return id, true
}

type stateView struct {
	Accrued         string `json:"accrued"`
	LastClaimTime   uint64 `json:"lastClaimTime"`
	ClaimCount      uint32 `json:"claimCount"`
	BoostMultiplier uint32 `json:"boostMultiplier"`
	DailyClaimed    string `json:"dailyClaimed"`
	DailyResetDay   uint32 `json:"dailyResetDay"`
}

func newStateView(state accrual.State) stateView {
	return stateView{
		Accrued:         formatAmount(state.Accrued),
		LastClaimTime:   state.LastClaimTime,
		ClaimCount:      state.ClaimCount,
		BoostMultiplier: state.BoostMultiplier,
		DailyClaimed:    formatAmount(state.DailyClaimed),
		DailyResetDay:   state.DailyResetDay(),
	}
}

type receiptView struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	TxHash    string `json:"txHash,omitempty"`
}

func newReceiptViews(receipts []payout.Receipt) []receiptView {
	if len(receipts) == 0 {
		return nil
	}
	out := make([]receiptView, 0, len(receipts))
	for _, receipt := range receipts {
		out = append(out, receiptView{
			ID:        receipt.ID,
			Recipient: receipt.Recipient.String(),
			Asset:     receipt.Asset.String(),
			Amount:    formatAmount(receipt.Amount),
			TxHash:    receipt.TxHash,
		})
	}
	return out
}

type shareView struct {
	Pool      string `json:"pool"`
	WeightBps uint32 `json:"weightBps"`
	Account   string `json:"account"`
	Holders   bool   `json:"holders,omitempty"`
	Amount    string `json:"amount"`
}

type instructionView struct {
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Reserve   string `json:"reserveFunded,omitempty"`
	Purpose   string `json:"purpose"`
}

type distributionView struct {
	Gross        string            `json:"gross"`
	TaxRateBps   uint32            `json:"taxRateBps"`
	Penalty      bool              `json:"penalty"`
	Tax          string            `json:"tax"`
	Net          string            `json:"net"`
	BelowTrigger bool              `json:"belowTrigger,omitempty"`
	Shares       []shareView       `json:"shares"`
	Instructions []instructionView `json:"instructions"`
}

func newDistributionView(dist *fees.Distribution, minAmount uint64) *distributionView {
	if dist == nil {
		return nil
	}
	view := &distributionView{
		Gross:        formatAmount(dist.Tax.Net + dist.Tax.Tax),
		TaxRateBps:   dist.Tax.RateBps,
		Penalty:      dist.Tax.Penalty,
		Tax:          formatAmount(dist.Tax.Tax),
		Net:          formatAmount(dist.Tax.Net),
		BelowTrigger: dist.Tax.Net+dist.Tax.Tax < minAmount,
	}
	for _, share := range dist.Plan.Shares {
		view.Shares = append(view.Shares, shareView{
			Pool:      share.PoolID,
			WeightBps: share.WeightBps,
			Account:   share.Account.String(),
			Holders:   share.Holders,
			Amount:    formatAmount(share.Amount),
		})
	}
	for _, ins := range dist.Instructions {
		view.Instructions = append(view.Instructions, instructionView{
			Recipient: ins.Recipient.String(),
			Asset:     ins.Asset.String(),
			Amount:    formatAmount(ins.Amount),
			Reserve:   optionalAmount(ins.ReserveFunded),
			Purpose:   string(ins.Purpose),
		})
	}
	return view
}

type outcomeView struct {
	Kind         string            `json:"kind"`
	Status       engine.Status     `json:"status"`
	Reason       string            `json:"reason,omitempty"`
	Payout       string            `json:"payout,omitempty"`
	Emitted      string            `json:"emitted,omitempty"`
	State        *stateView        `json:"state,omitempty"`
	Distribution *distributionView `json:"distribution,omitempty"`
	Receipts     []receiptView     `json:"receipts,omitempty"`
}

func newOutcomeView(outcome engine.Outcome) outcomeView {
	view := outcomeView{
		Kind:         outcome.Kind.String(),
		Status:       outcome.Status,
		Reason:       outcome.Reason,
		Payout:       optionalAmount(outcome.Payout),
		Emitted:      optionalAmount(outcome.Emitted),
		Distribution: newDistributionView(outcome.Distribution, 0),
		Receipts:     newReceiptViews(outcome.Receipts),
	}
	if outcome.State != nil {
		state := newStateView(*outcome.State)
		view.State = &state
	}
	return view
}

func formatAmount(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func optionalAmount(v uint64) string {
	if v == 0 {
		return ""
	}
	return formatAmount(v)
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) int {
	switch coreerrors.Class(err) {
	case nil:
		if err != nil {
			return http.StatusInternalServerError
		}
		return http.StatusOK
	case coreerrors.ErrUnauthorized:
		return http.StatusForbidden
	case coreerrors.ErrInvalidInput:
		return http.StatusBadRequest
	case coreerrors.ErrGuardRejected:
		return http.StatusConflict
	case coreerrors.ErrEmissionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
