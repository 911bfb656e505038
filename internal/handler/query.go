package handler

import (
	"net/http"

	"github.com/GoPolymarket/namegate/internal/ledger"
	"github.com/GoPolymarket/namegate/internal/model"
	"github.com/GoPolymarket/namegate/internal/pkg/fixedpoint"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

type QueryHandler struct {
	reg *service.Registrar
}

func NewQueryHandler(reg *service.Registrar) *QueryHandler {
	return &QueryHandler{reg: reg}
}

func (h *QueryHandler) Status(c *gin.Context) {
	snap := h.reg.Snapshot()
	c.JSON(http.StatusOK, model.StatusView{
		Paused:       snap.Paused,
		Operator:     h.reg.Operator().Hex(),
		Registry:     snap.Registry.Hex(),
		ReserveToken: h.reg.ReserveToken().Hex(),
		ReservePrice: fixedpoint.New(snap.ReservePrice, ledger.PriceDecimals),
		Feeds:        len(snap.Feeds),
	})
}

func (h *QueryHandler) ListFeeds(c *gin.Context) {
	feeds := h.reg.Snapshot().Feeds
	out := make([]model.FeedView, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, toFeedView(f))
	}
	c.JSON(http.StatusOK, out)
}

func (h *QueryHandler) GetFeed(c *gin.Context) {
	currency, err := parseAddress("currency", c.Param("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	feed, err := h.reg.Feed(currency)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toFeedView(feed))
}

func (h *QueryHandler) GetAgent(c *gin.Context) {
	agent, err := parseAddress("agent", c.Param("agent"))
	if err != nil {
		c.Error(err)
		return
	}
	rate := h.reg.AgentRate(agent)
	c.JSON(http.StatusOK, model.AgentView{Agent: agent.Hex(), Rate: rate, Active: rate > 0})
}

func (h *QueryHandler) GetCommission(c *gin.Context) {
	agent, err := parseAddress("agent", c.Param("agent"))
	if err != nil {
		c.Error(err)
		return
	}
	currency, err := parseAddress("currency", c.Param("currency"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.CommissionView{
		Agent:    agent.Hex(),
		Currency: currency.Hex(),
		Earned:   fixedpoint.New(h.reg.EarnedCommission(agent, currency), h.currencyDecimals(currency)),
	})
}

// currencyDecimals resolves the scale an amount in currency is kept at.
func (h *QueryHandler) currencyDecimals(currency common.Address) uint8 {
	if currency == h.reg.ReserveToken() {
		return h.reg.ReserveDecimals()
	}
	if feed, err := h.reg.Feed(currency); err == nil {
		return feed.Decimals
	}
	return 0
}

func (h *QueryHandler) Reserve(c *gin.Context) {
	c.JSON(http.StatusOK, reserveView(h.reg))
}

func reserveView(reg *service.Registrar) model.ReserveView {
	deposited, approved, collected := reg.ReserveBalances()
	dec := reg.ReserveDecimals()
	return model.ReserveView{
		Token:            reg.ReserveToken().Hex(),
		Deposited:        fixedpoint.New(deposited, dec),
		Approved:         fixedpoint.New(approved, dec),
		CollectedReserve: fixedpoint.New(collected, dec),
	}
}

func toFeedView(f ledger.Feed) model.FeedView {
	return model.FeedView{
		Currency:  f.Currency.Hex(),
		Oracle:    f.Oracle.Hex(),
		Decimals:  f.Decimals,
		Collected: fixedpoint.New(f.Collected, f.Decimals),
	}
}
