package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/semanticallynull/bikeledger/internal/middleware"
)

const (
	reasonCustomer    = "customer cannot rent"
	reasonUnavailable = "bicycle not available"
	reasonCritical    = "bicycle has open critical issues"
)

type rentableResponse struct {
	BicycleID  string   `json:"bicycleId"`
	Customer   string   `json:"customer"`
	Rentable   bool     `json:"rentable"`
	HourlyRate uint64   `json:"hourlyRate,omitempty"`
	Reasons    []string `json:"reasons,omitempty"`
}

// rentableHandler combines the three ledgers' answers for the caller and a
// bicycle. It changes nothing.
func (a *API) rentableHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	call, ok := a.call(c)
	if !ok {
		return
	}
	id := c.Param("id")

	ctx, span := otel.Tracer("api").Start(c, "rentable")
	defer span.End()

	if _, err := a.br.GetBicycle(id); err != nil {
		a.fail(c, err)
		return
	}

	resp := rentableResponse{BicycleID: id, Customer: call.Caller}
	if !a.cl.CanRentBike(call.Caller) {
		resp.Reasons = append(resp.Reasons, reasonCustomer)
	}
	if !a.br.IsBicycleAvailable(id) {
		resp.Reasons = append(resp.Reasons, reasonUnavailable)
	}
	if a.ml.HasCriticalIssues(id) {
		resp.Reasons = append(resp.Reasons, reasonCritical)
	}
	resp.Rentable = len(resp.Reasons) == 0
	span.SetAttributes(attribute.Bool("bikeledger.rentable", resp.Rentable))

	if !resp.Rentable {
		logger.InfoContext(ctx, "bicycle not rentable", "bicycle", id, "reasons", resp.Reasons)
		c.JSON(http.StatusPreconditionFailed, resp)
		return
	}

	if rate, err := a.br.BicycleHourlyRate(id); err == nil {
		resp.HourlyRate = rate
	}
	c.JSON(http.StatusOK, resp)
}
