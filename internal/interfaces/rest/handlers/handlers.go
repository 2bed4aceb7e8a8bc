// Package handlers serves the ledger's HTTP API on top of the application services.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application"
	"github.com/DanielPopoola/cashfree-payment-ledger/internal/application/services"
)

type Handlers struct {
	orders         *services.OrderService
	reconciliation *services.ReconciliationService
	verification   *services.VerificationService
	settlement     *services.SettlementService
	query          *services.QueryService
	recharges      *services.RechargeExecutionService
	logger         *slog.Logger
}

func NewHandlers(
	orders *services.OrderService,
	reconciliation *services.ReconciliationService,
	verification *services.VerificationService,
	settlement *services.SettlementService,
	query *services.QueryService,
	recharges *services.RechargeExecutionService,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		orders:         orders,
		reconciliation: reconciliation,
		verification:   verification,
		settlement:     settlement,
		query:          query,
		recharges:      recharges,
		logger:         logger,
	}
}

// pathID binds the {id} path segment.
func pathID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		return "", application.NewValidationError("Invalid id parameter", err)
	}
	return id, nil
}

// queryParam binds an optional form-style query parameter. Absent
// parameters come back empty.
func queryParam(r *http.Request, name string) (string, error) {
	var value *string
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &value); err != nil {
		return "", application.NewValidationError("Invalid query parameter "+name, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}
