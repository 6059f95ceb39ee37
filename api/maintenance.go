package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeledger/maintenance"
)

type intervalsRequest struct {
	Rides    uint64 `json:"intervalRides"`
	Distance uint64 `json:"intervalDistance"`
	Days     uint64 `json:"intervalDays"`
}

func (r intervalsRequest) intervals() maintenance.Intervals {
	return maintenance.Intervals{Rides: r.Rides, Distance: r.Distance, Days: r.Days}
}

type recordRequest struct {
	RecordID        string   `json:"recordId" binding:"required"`
	Type            string   `json:"type"`
	PartsReplaced   []string `json:"partsReplaced"`
	Notes           string   `json:"notes"`
	Cost            uint64   `json:"cost"`
	DurationMinutes uint64   `json:"durationMinutes"`
}

type issueRequest struct {
	IssueID     string `json:"issueId" binding:"required"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Severity    string `json:"severity" binding:"required"`
}

type resolveRequest struct {
	Notes string `json:"notes"`
}

type usageRequest struct {
	Rides    uint64 `json:"rides"`
	Distance uint64 `json:"distance"`
}

func (a *API) initializeScheduleHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req intervalsRequest
	if !bind(c, &req) {
		return
	}

	sc, err := a.ml.InitializeSchedule(c, call, c.Param("id"), req.intervals())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, sc)
}

func (a *API) updateScheduleHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req intervalsRequest
	if !bind(c, &req) {
		return
	}

	sc, err := a.ml.UpdateSchedule(c, call, c.Param("id"), req.intervals())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (a *API) scheduleStatusHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}

	st, err := a.ml.UpdateStatus(c, call, c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (a *API) recordMaintenanceHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req recordRequest
	if !bind(c, &req) {
		return
	}

	rec, err := a.ml.RecordMaintenance(c, call, maintenance.RecordInput{
		BicycleID:       c.Param("id"),
		RecordID:        req.RecordID,
		Type:            req.Type,
		PartsReplaced:   req.PartsReplaced,
		Notes:           req.Notes,
		Cost:            req.Cost,
		DurationMinutes: req.DurationMinutes,
	})
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (a *API) reportIssueHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req issueRequest
	if !bind(c, &req) {
		return
	}

	is, err := a.ml.ReportIssue(c, call, c.Param("id"), req.IssueID, req.Type, req.Description, req.Severity)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, is)
}

func (a *API) issueStatusHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req statusRequest
	if !bind(c, &req) {
		return
	}

	st, err := a.ml.UpdateIssueStatus(c, call, c.Param("id"), req.Status)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (a *API) resolveIssueHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req resolveRequest
	if !bind(c, &req) {
		return
	}

	is, err := a.ml.ResolveIssue(c, call, c.Param("id"), req.Notes)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, is)
}

func (a *API) flagOverdueHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}

	if err := a.ml.FlagOverdue(c, call, c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": maintenance.Overdue})
}

func (a *API) usageHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req usageRequest
	if !bind(c, &req) {
		return
	}

	st, err := a.ml.UpdateDueToUsage(c, call, c.Param("id"), req.Rides, req.Distance)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st})
}

func (a *API) scheduleHandler(c *gin.Context) {
	sc, err := a.ml.GetSchedule(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (a *API) recordHandler(c *gin.Context) {
	rec, err := a.ml.GetRecord(c.Param("id"), c.Param("recordId"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *API) issueHandler(c *gin.Context) {
	is, err := a.ml.GetIssue(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, is)
}

func (a *API) maintenanceHistoryHandler(c *gin.Context) {
	ids, err := a.ml.MaintenanceHistory(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"maintenanceRecords": ids})
}

func (a *API) issueHistoryHandler(c *gin.Context) {
	ids, err := a.ml.IssueHistory(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issueRecords": ids})
}

func (a *API) maintenanceDueHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"due": a.ml.IsMaintenanceDue(c.Param("id"))})
}

func (a *API) maintenanceStatsHandler(c *gin.Context) {
	st, err := a.ml.Stats(c.Param("id"), a.clock.Now())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (a *API) criticalIssuesHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"hasCriticalIssues": a.ml.HasCriticalIssues(c.Param("id"))})
}
