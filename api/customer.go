package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/bikeledger/customer"
	"github.com/semanticallynull/bikeledger/internal/middleware"
)

// profileRequest carries contact details in clear. They are hashed before
// they reach the ledger.
type profileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func (r profileRequest) empty() bool {
	return r.Username == "" && r.Email == "" && r.Phone == ""
}

func (r profileRequest) profile() customer.Profile {
	p := customer.Profile{Username: r.Username}
	if r.Email != "" {
		p.EmailHash = customer.Hash(r.Email)
	}
	if r.Phone != "" {
		p.PhoneHash = customer.Hash(r.Phone)
	}
	return p
}

type activeRequest struct {
	Active bool `json:"active"`
}

type paymentMethodRequest struct {
	Provider       string `json:"provider" binding:"required"`
	Token          string `json:"token" binding:"required"`
	BillingAddress string `json:"billingAddress"`
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

type levelRequest struct {
	Level uint64 `json:"level"`
}

type documentRequest struct {
	Type         string `json:"type" binding:"required"`
	DocumentHash string `json:"documentHash" binding:"required"`
}

type verdictRequest struct {
	Status       string `json:"status" binding:"required"`
	ExpiryBlocks uint64 `json:"expiryBlocks"`
}

type ridingStatsRequest struct {
	Rides   uint64 `json:"rides"`
	Minutes uint64 `json:"minutes"`
	Spent   uint64 `json:"spent"`
}

type scoreRequest struct {
	Score uint64 `json:"score"`
}

// registerUserHandler registers the caller. With an empty body the profile
// is taken from the identity provider.
func (a *API) registerUserHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	call, ok := a.call(c)
	if !ok {
		return
	}
	var req profileRequest
	if c.Request.ContentLength != 0 && !bind(c, &req) {
		return
	}

	p := req.profile()
	if req.empty() && a.profiles != nil {
		info, err := a.profiles.GetUserInfo(c, middleware.BearerToken(c))
		if err != nil {
			logger.WarnContext(c, "failed to fetch user info", "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"code": "PROFILE_UNAVAILABLE", "message": "could not load profile"})
			return
		}
		p = info.Profile()
	}

	u, err := a.cl.RegisterUser(c, call, p)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (a *API) updateProfileHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req profileRequest
	if !bind(c, &req) {
		return
	}

	u, err := a.cl.UpdateProfile(c, call, req.profile())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) setActiveHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req activeRequest
	if !bind(c, &req) {
		return
	}

	u, err := a.cl.SetActive(c, call, req.Active)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isActive": u.IsActive})
}

// addPaymentMethodHandler checks the token with the provider first. Only
// hashes of the token and billing address are stored.
func (a *API) addPaymentMethodHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req paymentMethodRequest
	if !bind(c, &req) {
		return
	}

	if err := a.payments.Verify(c, req.Provider, req.Token); err != nil {
		a.fail(c, err)
		return
	}

	pm, err := a.cl.AddPaymentMethod(c, call, req.Provider, customer.Hash(req.Token), customer.Hash(req.BillingAddress))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pm)
}

func (a *API) removePaymentMethodHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}

	if err := a.cl.RemovePaymentMethod(c, call); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) depositHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}

	balance, err := a.cl.AddDeposit(c, call, req.Amount)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depositBalance": balance})
}

func (a *API) withdrawHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}

	balance, err := a.cl.WithdrawDeposit(c, call, req.Amount)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depositBalance": balance})
}

func (a *API) chargeHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req amountRequest
	if !bind(c, &req) {
		return
	}

	balance, err := a.cl.ChargeUser(c, call, c.Param("id"), req.Amount)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depositBalance": balance})
}

func (a *API) submitDocumentHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req documentRequest
	if !bind(c, &req) {
		return
	}

	d, err := a.cl.SubmitDocument(c, call, req.Type, req.DocumentHash)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (a *API) verifyDocumentHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req verdictRequest
	if !bind(c, &req) {
		return
	}

	d, err := a.cl.VerifyDocument(c, call, c.Param("id"), c.Param("type"), req.Status, req.ExpiryBlocks)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (a *API) updateVerificationLevelHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req levelRequest
	if !bind(c, &req) {
		return
	}

	lvl, err := a.cl.UpdateVerificationLevel(c, call, c.Param("id"), req.Level)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verificationLevel": lvl})
}

func (a *API) ridingStatsHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req ridingStatsRequest
	if !bind(c, &req) {
		return
	}

	u, err := a.cl.UpdateRidingStats(c, call, c.Param("id"), req.Rides, req.Minutes, req.Spent)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) reputationHandler(c *gin.Context) {
	call, ok := a.call(c)
	if !ok {
		return
	}
	var req scoreRequest
	if !bind(c, &req) {
		return
	}

	score, err := a.cl.UpdateReputation(c, call, c.Param("id"), req.Score)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reputationScore": score})
}

func (a *API) userHandler(c *gin.Context) {
	u, err := a.cl.GetUser(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) paymentMethodHandler(c *gin.Context) {
	id := c.Param("id")
	resp := gin.H{"hasValidPaymentMethod": a.cl.HasValidPaymentMethod(id)}
	if pm, err := a.cl.GetPaymentMethod(id); err == nil {
		resp["paymentMethod"] = pm
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) verificationLevelHandler(c *gin.Context) {
	lvl, err := a.cl.VerificationLevel(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verificationLevel": lvl})
}

func (a *API) balanceHandler(c *gin.Context) {
	balance, err := a.cl.DepositBalance(c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"depositBalance": balance})
}

func (a *API) documentHandler(c *gin.Context) {
	id, docType := c.Param("id"), c.Param("type")
	status, err := a.cl.DocumentStatus(id, docType)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"verificationStatus": status,
		"expired":            a.cl.IsDocumentExpired(id, docType, a.clock.Now()),
	})
}

func (a *API) canRentHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"canRentBike": a.cl.CanRentBike(c.Param("id"))})
}
