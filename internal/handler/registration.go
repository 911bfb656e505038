package handler

import (
	"net/http"

	"github.com/GoPolymarket/namegate/internal/middleware"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/gin-gonic/gin"
)

type RegistrationHandler struct {
	reg *service.Registrar
}

func NewRegistrationHandler(reg *service.Registrar) *RegistrationHandler {
	return &RegistrationHandler{reg: reg}
}

// Register sells a name for a settlement currency.
func (h *RegistrationHandler) Register(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing caller context"})
		return
	}

	var req model.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	currency, err := parseAddress("currency", req.Currency)
	if err != nil {
		c.Error(err)
		return
	}
	agent, err := parseOptionalAddress("agent", req.Agent)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAccessContext(c, "name", req.Name)
	middleware.AddAccessContext(c, "currency", currency.Hex())

	receipt, err := h.reg.RegisterWithSettlement(c.Request.Context(), caller, req.Name, currency, agent)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// RegisterWithReserve sells a name for reserve-unit tokens.
func (h *RegistrationHandler) RegisterWithReserve(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing caller context"})
		return
	}

	var req model.ReserveRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	agent, err := parseOptionalAddress("agent", req.Agent)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAccessContext(c, "name", req.Name)

	receipt, err := h.reg.RegisterWithReserve(c.Request.Context(), caller, req.Name, agent)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

// Quote prices a name in a settlement currency without registering it.
func (h *RegistrationHandler) Quote(c *gin.Context) {
	currency, err := parseAddress("currency", c.Query("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	quote, err := h.reg.QuotePrice(c.Request.Context(), c.Param("name"), currency)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// QuoteReserve prices a name in reserve-unit tokens.
func (h *RegistrationHandler) QuoteReserve(c *gin.Context) {
	quote, err := h.reg.QuoteReservePrice(c.Request.Context(), c.Param("name"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, quote)
}
