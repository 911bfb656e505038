package handler

import (
	"context"
	"math/big"
	"net/http"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/middleware"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// AdminHandler exposes operator-only ledger configuration. Routes sit behind
// CallerMiddleware and AdminMiddleware; the registrar checks the caller again.
type AdminHandler struct {
	reg *service.Registrar
}

func NewAdminHandler(reg *service.Registrar) *AdminHandler {
	return &AdminHandler{reg: reg}
}

func (h *AdminHandler) caller(c *gin.Context) common.Address {
	caller, _ := middleware.CallerFrom(c)
	return caller
}

func (h *AdminHandler) AddFeed(c *gin.Context) {
	var req model.FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	currency, err := parseAddress("currency", req.Currency)
	if err != nil {
		c.Error(err)
		return
	}
	h.writeFeed(c, currency, req, h.reg.AddFeed, http.StatusCreated)
}

func (h *AdminHandler) UpdateFeed(c *gin.Context) {
	var req model.FeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	currency, err := parseAddress("currency", c.Param("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	h.writeFeed(c, currency, req, h.reg.UpdateFeed, http.StatusOK)
}

type feedWriter func(ctx context.Context, caller, currency, oracle common.Address, decimals uint8) error

func (h *AdminHandler) writeFeed(c *gin.Context, currency common.Address, req model.FeedRequest, write feedWriter, status int) {
	oracle, err := parseAddress("oracle", req.Oracle)
	if err != nil {
		c.Error(err)
		return
	}
	if err := write(c.Request.Context(), h.caller(c), currency, oracle, req.Decimals); err != nil {
		c.Error(err)
		return
	}
	feed, err := h.reg.Feed(currency)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(status, toFeedView(feed))
}

func (h *AdminHandler) RemoveFeed(c *gin.Context) {
	currency, err := parseAddress("currency", c.Param("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	paid, err := h.reg.RemoveFeed(c.Request.Context(), h.caller(c), currency)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.payout(currency, paid.Value, paid.Decimals))
}

func (h *AdminHandler) ForwardCollected(c *gin.Context) {
	currency, err := parseAddress("currency", c.Param("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	paid, err := h.reg.ForwardCollected(c.Request.Context(), h.caller(c), currency)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.payout(currency, paid.Value, paid.Decimals))
}

func (h *AdminHandler) ForwardCollectedReserve(c *gin.Context) {
	paid, err := h.reg.ForwardCollectedReserve(c.Request.Context(), h.caller(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.payout(h.reg.ReserveToken(), paid, h.reg.ReserveDecimals()))
}

func (h *AdminHandler) AddAgent(c *gin.Context) {
	var req model.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	agent, err := parseAddress("agent", req.Agent)
	if err != nil {
		c.Error(err)
		return
	}
	rate, err := parseRate(req.Rate)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.reg.AddAgent(c.Request.Context(), h.caller(c), agent, rate); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, model.AgentView{Agent: agent.Hex(), Rate: rate, Active: true})
}

func (h *AdminHandler) UpdateAgent(c *gin.Context) {
	var req model.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	agent, err := parseAddress("agent", c.Param("agent"))
	if err != nil {
		c.Error(err)
		return
	}
	rate, err := parseRate(req.Rate)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.reg.UpdateAgentRate(c.Request.Context(), h.caller(c), agent, rate); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.AgentView{Agent: agent.Hex(), Rate: rate, Active: true})
}

func (h *AdminHandler) RemoveAgent(c *gin.Context) {
	agent, err := parseAddress("agent", c.Param("agent"))
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.reg.RemoveAgent(c.Request.Context(), h.caller(c), agent); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.AgentView{Agent: agent.Hex()})
}

func (h *AdminHandler) DepositReserve(c *gin.Context) {
	amount, ok := h.bindAmount(c)
	if !ok {
		return
	}
	if err := h.reg.DepositReserve(c.Request.Context(), h.caller(c), amount.Value); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reserveView(h.reg))
}

func (h *AdminHandler) WithdrawReserve(c *gin.Context) {
	paid, err := h.reg.WithdrawReserve(c.Request.Context(), h.caller(c))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, h.payout(h.reg.ReserveToken(), paid, h.reg.ReserveDecimals()))
}

func (h *AdminHandler) ApproveRegistry(c *gin.Context) {
	amount, ok := h.bindAmount(c)
	if !ok {
		return
	}
	if err := h.reg.ApproveRegistry(c.Request.Context(), h.caller(c), amount.Value); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, reserveView(h.reg))
}

func (h *AdminHandler) SetReservePrice(c *gin.Context) {
	var req model.PriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	price, err := parseAmount("price", req.Price, ledger.PriceDecimals)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.reg.SetReservePrice(c.Request.Context(), h.caller(c), price.Value); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reserve_price": price})
}

func (h *AdminHandler) SetRegistry(c *gin.Context) {
	var req model.RegistryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return
	}
	registry, err := parseAddress("registry", req.Registry)
	if err != nil {
		c.Error(err)
		return
	}
	if err := h.reg.SetRegistry(c.Request.Context(), h.caller(c), registry); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"registry": registry.Hex()})
}

func (h *AdminHandler) Pause(c *gin.Context) {
	if err := h.reg.Pause(c.Request.Context(), h.caller(c)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": true})
}

func (h *AdminHandler) Unpause(c *gin.Context) {
	if err := h.reg.Unpause(c.Request.Context(), h.caller(c)); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": false})
}

// Snapshot dumps the whole ledger in raw integer units.
func (h *AdminHandler) Snapshot(c *gin.Context) {
	c.JSON(http.StatusOK, h.reg.Snapshot())
}

func (h *AdminHandler) bindAmount(c *gin.Context) (fixedpoint.Amount, bool) {
	var req model.AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(bindError(err))
		return fixedpoint.Amount{}, false
	}
	amount, err := parseAmount("amount", req.Amount, h.reg.ReserveDecimals())
	if err != nil {
		c.Error(err)
		return fixedpoint.Amount{}, false
	}
	return amount, true
}

func (h *AdminHandler) payout(token common.Address, amount *big.Int, decimals uint8) model.Payout {
	return model.Payout{
		Token:  token.Hex(),
		To:     h.reg.Operator().Hex(),
		Amount: fixedpoint.New(amount, decimals),
	}
}
