package server

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"coffee-machine/internal/inventory"

	"go.uber.org/zap"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("$%.2f", v) },
	"percent": func(level, max int) int {
		if max == 0 {
			return 0
		}
		return level * 100 / max
	},
}).ParseFS(templatesFS, "templates/index.html"))

type indexPage struct {
	Drinks  []drinkResponse
	Machine resourcesResponse
	Max     inventory.Inventory
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st, err := s.sessions.View(r.Context(), sessionID(r.Context()))
	if err != nil {
		s.internalError(w, "failed to load session", err)
		return
	}

	page := indexPage{
		Machine: newResourcesResponse(st),
		Max:     inventory.Full(),
	}
	for _, d := range s.coordinator.Menu().ListDrinks() {
		page.Drinks = append(page.Drinks, newDrinkResponse(d))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, page); err != nil {
		s.logger.Error("failed to render index", zap.Error(err))
	}
}
