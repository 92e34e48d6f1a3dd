package server

import (
	"encoding/json"
	"net/http"

	"coffee-machine/internal/inventory"
	"coffee-machine/internal/ledger"
	"coffee-machine/internal/machine"
	"coffee-machine/internal/menu"
	"coffee-machine/internal/metrics"
)

// Money goes over the wire as JSON numbers.

type drinkResponse struct {
	Name        string         `json:"name"`
	Cost        float64        `json:"cost"`
	Ingredients map[string]int `json:"ingredients"`
}

type menuResponse struct {
	Drinks []drinkResponse `json:"drinks"`
}

type transactionResponse struct {
	ID    string  `json:"id"`
	Drink string  `json:"drink"`
	Cost  float64 `json:"cost"`
	Time  string  `json:"time"`
}

type resourcesResponse struct {
	Resources    inventory.Inventory   `json:"resources"`
	Profit       float64               `json:"profit"`
	IsOn         bool                  `json:"is_on"`
	Transactions []transactionResponse `json:"transactions"`
}

type orderRequest struct {
	DrinkName string      `json:"drink_name"`
	Payment   json.Number `json:"payment"`
	Time      string      `json:"time"`
}

type orderResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Change    float64             `json:"change"`
	Resources inventory.Inventory `json:"resources"`
	Profit    float64             `json:"profit"`
}

type refillResponse struct {
	Success   bool                `json:"success"`
	Message   string              `json:"message"`
	Resources inventory.Inventory `json:"resources"`
}

type powerResponse struct {
	Success bool   `json:"success"`
	IsOn    bool   `json:"is_on"`
	Message string `json:"message"`
}

type reportResponse struct {
	Water       int     `json:"water"`
	Milk        int     `json:"milk"`
	Coffee      int     `json:"coffee"`
	Profit      float64 `json:"profit"`
	TotalOrders int     `json:"total_orders"`
}

type dailySalesResponse struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type salesResponse struct {
	Days    int                  `json:"days"`
	Sales   []dailySalesResponse `json:"sales"`
	ByDrink []metrics.DrinkSales `json:"by_drink"`
}

type failureResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func newDrinkResponse(d menu.Drink) drinkResponse {
	ingredients := make(map[string]int, len(d.Ingredients()))
	for _, ing := range d.Ingredients() {
		ingredients[string(ing.Resource)] = ing.Quantity
	}
	return drinkResponse{
		Name:        d.Name(),
		Cost:        d.Cost().InexactFloat64(),
		Ingredients: ingredients,
	}
}

func newTransactions(history []ledger.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(history))
	for _, tx := range history {
		out = append(out, transactionResponse{
			ID:    tx.ID,
			Drink: tx.Drink,
			Cost:  tx.Cost.InexactFloat64(),
			Time:  tx.Time,
		})
	}
	return out
}

func newResourcesResponse(st machine.State) resourcesResponse {
	return resourcesResponse{
		Resources:    st.Inventory,
		Profit:       st.Ledger.Profit.InexactFloat64(),
		IsOn:         st.PoweredOn,
		Transactions: newTransactions(st.Ledger.History),
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeFailure(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, failureResponse{Success: false, Message: message, Reason: reason})
}

func writeInternalError(w http.ResponseWriter) {
	writeFailure(w, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
}
