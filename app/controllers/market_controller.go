package controllers

import (
	"net/http"

	"github.com/kgyan/makola/app/services"
	"github.com/kgyan/makola/pkg/response"
)

type MarketController struct {
	markets *services.MarketService
}

func NewMarketController() *MarketController {
	return &MarketController{markets: services.NewMarketService()}
}

func (c *MarketController) Index(w http.ResponseWriter, r *http.Request) {
	markets, err := c.markets.List()
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, markets)
}

func (c *MarketController) Show(w http.ResponseWriter, r *http.Request) {
	market, vendors, err := c.markets.Find(paramUint(r, "id"))
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Success(w, map[string]interface{}{
		"market":  market,
		"vendors": vendors,
	})
}
