package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeledger/bike"
	"github.com/semanticallynull/bikeledger/station"
)

type registerBicycleRequest struct {
	ID         string  `json:"id" binding:"required"`
	StationID  string  `json:"stationId" binding:"required"`
	Owner      string  `json:"owner"`
	Type       string  `json:"type"`
	Model      string  `json:"model"`
	Lat        float64 `json:"latitude"`
	Lng        float64 `json:"longitude"`
	HourlyRate uint64  `json:"hourlyRate"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type locationRequest struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

type statisticsRequest struct {
	Rides    uint64 `json:"rides"`
	Distance uint64 `json:"distance"`
	Earnings uint64 `json:"earnings"`
}

func (a *API) registerBicycleHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req registerBicycleRequest
	if !bind(c, &req) {
		return
	}

	attrs := bike.Attributes{
		Owner:      req.Owner,
		Type:       req.Type,
		Model:      req.Model,
		Location:   station.Location{Lat: req.Lat, Lng: req.Lng},
		HourlyRate: req.HourlyRate,
	}
	b, err := a.br.RegisterBicycle(c, call, req.ID, attrs, req.StationID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (a *API) bicycleHandler(c *gin.Context) {
	b, err := a.br.GetBicycle(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (a *API) bicycleAvailableHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"available": a.br.IsBicycleAvailable(c.Param("id"))})
}

func (a *API) bicycleRateHandler(c *gin.Context) {
	rate, err := a.br.BicycleHourlyRate(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hourlyRate": rate})
}

func (a *API) bicycleStatusHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}

	st, err := a.br.UpdateBicycleStatus(c, call, c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (a *API) bicycleLocationHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req locationRequest
	if !bind(c, &req) {
		return
	}

	loc := station.Location{Lat: req.Lat, Lng: req.Lng}
	if err := a.br.UpdateBicycleLocation(c, call, c.Param("id"), loc); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"location": loc})
}

func (a *API) bicycleServicedHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}

	at, err := a.br.UpdateBicycleMaintenance(c, call, c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lastMaintenanceDate": at})
}

func (a *API) bicycleStatisticsHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req statisticsRequest
	if !bind(c, &req) {
		return
	}

	totals, err := a.br.UpdateBicycleStatistics(c, call, c.Param("id"), req.Rides, req.Distance, req.Earnings)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}

// removeBicycleHandler takes the station the bicycle is docked at from the
// stationId query parameter.
func (a *API) removeBicycleHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	stationID := c.Query("stationId")
	if stationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "stationId is required"})
		return
	}

	if err := a.br.RemoveBicycle(c, call, c.Param("id"), stationID); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
