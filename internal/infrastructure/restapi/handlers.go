package restapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"token_portfolio/internal/app/port"
	"token_portfolio/internal/domain/entity"
	"token_portfolio/internal/pkg/utils"
)

// APIResponse is the envelope of every API response.
type APIResponse struct {
	Data          any    `json:"data,omitempty"`
	Error         string `json:"error,omitempty"`
	StatusMessage string `json:"status_message"`
}

// AddTokensRequest is the body of POST /watchlist.
type AddTokensRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// AddTokensResponse reports what AddByIDs added, plus the resulting portfolio.
type AddTokensResponse struct {
	Added     []entity.Token        `json:"added"`
	Portfolio entity.PortfolioState `json:"portfolio"`
}

// HoldingsRequest carries holdings as the user typed them.
type HoldingsRequest struct {
	Holdings string `json:"holdings"`
}

// ConnectWalletRequest is the body of POST /wallet.
type ConnectWalletRequest struct {
	Address string `json:"address" binding:"required"`
}

// StatusResponse combines wallet, persistence and refresh health.
type StatusResponse struct {
	Wallet         entity.WalletStatus `json:"wallet"`
	RefreshState   entity.RefreshState `json:"refresh_state"`
	RefreshMessage string              `json:"refresh_message,omitempty"`
	LastUpdated    *time.Time          `json:"last_updated,omitempty"`
}

// PortfolioHandler serves the portfolio API.
type PortfolioHandler struct {
	portfolio port.PortfolioService
	refresh   port.RefreshService
	search    port.TokenSearchService
	wallet    port.WalletService
	logger    port.Logger
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(
	portfolio port.PortfolioService,
	refresh port.RefreshService,
	search port.TokenSearchService,
	wallet port.WalletService,
	l port.Logger,
) *PortfolioHandler {
	return &PortfolioHandler{
		portfolio: portfolio,
		refresh:   refresh,
		search:    search,
		wallet:    wallet,
		logger:    l,
	}
}

func ok(c *gin.Context, data any, message string) {
	c.JSON(http.StatusOK, APIResponse{Data: data, StatusMessage: message})
}

func fail(c *gin.Context, status int, err error, message string) {
	_ = c.Error(err)
	c.JSON(status, APIResponse{Error: err.Error(), StatusMessage: message})
}

// upstreamStatus maps service errors to HTTP status codes.
func upstreamStatus(err error) int {
	var fetchErr *entity.FetchError
	var inputErr *entity.InputError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// GetPortfolio returns the full portfolio snapshot.
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	ok(c, h.portfolio.Snapshot(), "Portfolio retrieved successfully.")
}

// GetAllocation returns each token's share of the portfolio.
func (h *PortfolioHandler) GetAllocation(c *gin.Context) {
	ok(c, h.portfolio.Allocation(), "Allocation retrieved successfully.")
}

// GetWatchlist returns one page of the watchlist.
func (h *PortfolioHandler) GetWatchlist(c *gin.Context) {
	page := h.portfolio.Page(queryInt(c, "page", 1), queryInt(c, "perPage", 0))
	ok(c, page, "Watchlist page retrieved successfully.")
}

// AddTokens adds tokens by id after looking up their market data.
func (h *PortfolioHandler) AddTokens(c *gin.Context) {
	var req AddTokensRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err, "Request body must contain a list of token ids.")
		return
	}
	added, err := h.search.AddByIDs(c.Request.Context(), req.IDs)
	if err != nil {
		fail(c, upstreamStatus(err), err, "Failed to load market data for the requested tokens.")
		return
	}
	message := "Tokens added to watchlist."
	if len(added) == 0 {
		message = "No new tokens were added."
	}
	ok(c, AddTokensResponse{Added: added, Portfolio: h.portfolio.Snapshot()}, message)
}

// RemoveToken removes a token from the watchlist. Unknown ids are a no-op.
func (h *PortfolioHandler) RemoveToken(c *gin.Context) {
	h.portfolio.RemoveToken(c.Param("id"))
	ok(c, h.portfolio.Snapshot(), "Token removed from watchlist.")
}

// UpdateHoldings sets holdings from free text. Unparseable input counts as 0.
func (h *PortfolioHandler) UpdateHoldings(c *gin.Context) {
	id := c.Param("id")
	var req HoldingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err, "Request body must contain holdings.")
		return
	}
	if !contains(h.portfolio.WatchlistIDs(), id) {
		c.JSON(http.StatusNotFound, APIResponse{Error: "token not in watchlist", StatusMessage: "Token " + id + " is not tracked."})
		return
	}

	message := "Holdings updated."
	holdings, err := utils.ParseHoldings(req.Holdings)
	if err != nil {
		h.logger.Warn("Invalid holdings input, using 0", "id", id, "error", err)
		message = "Holdings input was not a valid amount and was set to 0."
	}
	h.portfolio.UpdateHoldings(id, holdings)
	ok(c, h.portfolio.Snapshot(), message)
}

// Refresh runs a price refresh and returns the resulting portfolio.
func (h *PortfolioHandler) Refresh(c *gin.Context) {
	if err := h.refresh.Refresh(c.Request.Context()); err != nil {
		status := upstreamStatus(err)
		_ = c.Error(err)
		c.JSON(status, APIResponse{Data: h.portfolio.Snapshot(), Error: err.Error(), StatusMessage: "Price refresh failed."})
		return
	}
	ok(c, h.portfolio.Snapshot(), "Prices refreshed.")
}

// GetTrending returns market data for the trending tokens.
func (h *PortfolioHandler) GetTrending(c *gin.Context) {
	tokens, err := h.search.Trending(c.Request.Context())
	if err != nil {
		fail(c, upstreamStatus(err), err, "Failed to load trending tokens.")
		return
	}
	ok(c, tokens, "Trending tokens retrieved successfully.")
}

// SearchTokens searches tokens by free text in the q parameter.
func (h *PortfolioHandler) SearchTokens(c *gin.Context) {
	tokens, err := h.search.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		fail(c, upstreamStatus(err), err, "Search failed.")
		return
	}
	ok(c, tokens, "Search completed.")
}

// GetHistory returns the price history of a token.
func (h *PortfolioHandler) GetHistory(c *gin.Context) {
	points, err := h.search.History(c.Request.Context(), c.Param("id"), queryInt(c, "days", 0))
	if err != nil {
		fail(c, upstreamStatus(err), err, "Failed to load price history.")
		return
	}
	ok(c, points, "Price history retrieved successfully.")
}

// GetStatus reports wallet, persistence and refresh health.
func (h *PortfolioHandler) GetStatus(c *gin.Context) {
	state, message := h.refresh.State()
	resp := StatusResponse{
		Wallet:         h.wallet.Status(),
		RefreshState:   state,
		RefreshMessage: message,
	}
	if ts := h.portfolio.Snapshot().LastUpdated; !ts.IsZero() {
		resp.LastUpdated = &ts
	}
	ok(c, resp, resp.Wallet.Message)
}

// ConnectWallet remembers a wallet address.
func (h *PortfolioHandler) ConnectWallet(c *gin.Context) {
	var req ConnectWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err, "Request body must contain an address.")
		return
	}
	status, err := h.wallet.Connect(req.Address)
	if err != nil {
		fail(c, upstreamStatus(err), err, "Invalid wallet address.")
		return
	}
	ok(c, status, status.Message)
}

// DisconnectWallet forgets the wallet address.
func (h *PortfolioHandler) DisconnectWallet(c *gin.Context) {
	status := h.wallet.Disconnect()
	ok(c, status, status.Message)
}

func contains(items []string, target string) bool {
	for _, it := range items {
		if it == target {
			return true
		}
	}
	return false
}
