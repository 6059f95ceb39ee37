package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeledger/station"
)

type registerStationRequest struct {
	ID       string  `json:"id" binding:"required"`
	Name     string  `json:"name"`
	Lat      float64 `json:"latitude"`
	Lng      float64 `json:"longitude"`
	Capacity uint32  `json:"capacity"`
}

type stationResponse struct {
	station.Station
	Full bool `json:"full"`
}

func toStationResponse(s station.Station) stationResponse {
	return stationResponse{Station: s, Full: s.Full()}
}

func (a *API) registerStationHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req registerStationRequest
	if !bind(c, &req) {
		return
	}

	loc := station.Location{Lat: req.Lat, Lng: req.Lng}
	st, err := a.br.RegisterStation(c, call, req.ID, req.Name, loc, req.Capacity)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toStationResponse(st))
}

func (a *API) stationHandler(c *gin.Context) {
	st, err := a.br.GetStation(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toStationResponse(st))
}
