package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"coffee-machine/internal/machine"
	"coffee-machine/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultSalesDays = 7
	maxSalesDays     = 365
)

func (s *Server) handleMenu(w http.ResponseWriter, _ *http.Request) {
	drinks := s.coordinator.Menu().ListDrinks()
	resp := menuResponse{Drinks: make([]drinkResponse, 0, len(drinks))}
	for _, d := range drinks {
		resp.Drinks = append(resp.Drinks, newDrinkResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.View(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.internalError(w, "failed to load session", err)
		return
	}
	writeJSON(w, http.StatusOK, newResourcesResponse(st))
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	tendered := decimal.Zero
	if req.Payment != "" {
		p, err := decimal.NewFromString(req.Payment.String())
		if err != nil || p.IsNegative() {
			writeFailure(w, http.StatusBadRequest, "invalid_request", "Invalid payment")
			return
		}
		tendered = p
	}

	ctx := r.Context()
	id := sessionID(ctx)

	var receipt machine.Receipt
	_, err := s.sessions.Update(ctx, id, func(st machine.State) (machine.State, error) {
		next, rc, err := s.coordinator.Order(ctx, st, machine.OrderRequest{
			Drink:    req.DrinkName,
			Tendered: tendered,
			Time:     req.Time,
		})
		receipt = rc
		return next, err
	})

	var rej *machine.Rejection
	switch {
	case errors.As(err, &rej):
		status := http.StatusBadRequest
		if rej.Code == machine.CodeDrinkNotFound {
			status = http.StatusNotFound
		}
		writeFailure(w, status, string(rej.Code), rej.Message)
		return
	case err != nil:
		s.internalError(w, "failed to process order", err)
		return
	}

	s.recordSale(r, machine.NewSale(id, receipt, s.now()))

	writeJSON(w, http.StatusOK, orderResponse{
		Success:   true,
		Message:   "Here is your " + receipt.Transaction.Drink + " ☕! Enjoy!",
		Change:    receipt.Change.InexactFloat64(),
		Resources: receipt.Inventory,
		Profit:    receipt.Profit.InexactFloat64(),
	})
}

// recordSale hands a sale to every recorder. The customer already has the
// drink, so failures are only logged.
func (s *Server) recordSale(r *http.Request, sale machine.Sale) {
	for _, rec := range s.recorders {
		if err := rec.RecordSale(r.Context(), sale); err != nil {
			s.logger.Error("failed to record sale",
				zap.String("sale_id", sale.ID),
				zap.Error(err),
			)
		}
	}
}

func (s *Server) handleRefill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := s.sessions.Update(ctx, sessionID(ctx), func(st machine.State) (machine.State, error) {
		return s.coordinator.Refill(ctx, st)
	})

	var rej *machine.Rejection
	switch {
	case errors.As(err, &rej):
		writeFailure(w, http.StatusBadRequest, string(rej.Code), rej.Message)
		return
	case err != nil:
		s.internalError(w, "failed to refill", err)
		return
	}

	writeJSON(w, http.StatusOK, refillResponse{
		Success:   true,
		Message:   "Resources refilled! ✨",
		Resources: st.Inventory,
	})
}

func (s *Server) handlePower(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	st, err := s.sessions.Update(ctx, sessionID(ctx), func(st machine.State) (machine.State, error) {
		return s.coordinator.TogglePower(ctx, st), nil
	})
	if err != nil {
		s.internalError(w, "failed to toggle power", err)
		return
	}

	label := "OFF"
	if st.PoweredOn {
		label = "ON"
	}
	writeJSON(w, http.StatusOK, powerResponse{
		Success: true,
		IsOn:    st.PoweredOn,
		Message: "Machine turned " + label,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.View(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.internalError(w, "failed to load session", err)
		return
	}

	rep := s.coordinator.Report(st)
	writeJSON(w, http.StatusOK, reportResponse{
		Water:       rep.Inventory.Water,
		Milk:        rep.Inventory.Milk,
		Coffee:      rep.Inventory.Coffee,
		Profit:      rep.Profit.InexactFloat64(),
		TotalOrders: rep.TotalOrders,
	})
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	days := defaultSalesDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxSalesDays {
			writeFailure(w, http.StatusBadRequest, "invalid_request", "days must be between 1 and 365")
			return
		}
		days = n
	}

	daily, err := s.sales.GetDailySales(r.Context(), days)
	if err != nil {
		s.internalError(w, "failed to load sales", err)
		return
	}
	byDrink, err := s.sales.GetSalesByDrink(r.Context())
	if err != nil {
		s.internalError(w, "failed to load sales by drink", err)
		return
	}
	if byDrink == nil {
		byDrink = []metrics.DrinkSales{}
	}
	resp := salesResponse{Days: days, Sales: make([]dailySalesResponse, 0, len(daily)), ByDrink: byDrink}
	for _, d := range daily {
		resp.Sales = append(resp.Sales, dailySalesResponse{
			Date:    d.Date,
			Orders:  d.Orders,
			Revenue: d.Revenue.InexactFloat64(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) internalError(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	writeInternalError(w)
}
