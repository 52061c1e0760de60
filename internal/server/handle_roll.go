package server

import (
	"net/http"
	"strings"

	"github.com/woodwose/tablemuse/internal/dice"
)

func handleRoll() http.HandlerFunc {
	var roller dice.Roller

	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Expression string `json:"expression"`
		}
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Expression) == "" {
			writeError(w, http.StatusBadRequest, "expression is required")
			return
		}
		result, err := roller.Roll(req.Expression)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}
