package links

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/rlinks/pkg/rlinks/auth"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
)

// Handler handles link-related requests
type Handler struct {
	svc    *Service
	tokens *auth.TokenService
}

// NewHandler creates a new links handler
func NewHandler(svc *Service, tokens *auth.TokenService) *Handler {
	return &Handler{svc: svc, tokens: tokens}
}

// ShortenRequest represents the request to shorten a URL
type ShortenRequest struct {
	URL string `json:"url"`
}

// ListRequestBody represents a page request
type ListRequestBody struct {
	Mode   string `json:"mode"`
	Cursor Cursor `json:"cursor" swaggertype:"integer"`
	Mine   bool   `json:"mine"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID             uint   `json:"id"`
	URL            string `json:"url"`
	ShortKey       string `json:"shortKey"`
	ShortKeyLength int    `json:"shortKeyLength"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	Image          string `json:"image"`
	Count          int64  `json:"count"`
	Visits         int64  `json:"visits"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// PageResponse represents one page of links
type PageResponse struct {
	Links   []LinkResponse `json:"links"`
	HasNext bool           `json:"hasNext"`
	Cursor  int            `json:"cursor"`
}

func linkToResponse(link models.Link) LinkResponse {
	return LinkResponse{
		ID:             link.ID,
		URL:            link.URL,
		ShortKey:       link.ShortKey,
		ShortKeyLength: len(link.ShortKey),
		Title:          link.Title,
		Description:    link.Description,
		Image:          link.Image,
		Count:          link.Count,
		Visits:         link.Visits,
		CreatedAt:      link.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      link.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// Shorten returns the short link for a URL
// @Summary Shorten a URL
// @Description Returns the existing link for the URL with its count incremented, or creates one. Anonymous links belong to the public user.
// @Tags links
// @Accept json
// @Produce json
// @Param request body ShortenRequest true "URL to shorten"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} map[string]string "Invalid URL!"
// @Failure 401 {object} map[string]string "Unauthorized access."
// @Security BearerAuth
// @Router /links/shorten [post]
func (h *Handler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.WriteError(c, errx.Msg("links.Handler.Shorten", errx.Invalid, err, MessageInvalidURL))
		return
	}

	link, err := h.svc.Transform(c.Request.Context(), req.URL, auth.GetOwner(c))
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkToResponse(link))
}

// List returns a page of links
// @Summary List links
// @Description Page through links by recency ("id"), reuse count ("count") or visits ("visits"), most first. Echo the returned cursor to get the next page.
// @Tags links
// @Accept json
// @Produce json
// @Param request body ListRequestBody true "Page request"
// @Success 200 {object} PageResponse
// @Failure 400 {object} map[string]string "Invalid pagination parameters."
// @Failure 401 {object} map[string]string "Unauthorized access."
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) List(c *gin.Context) {
	var req ListRequestBody
	// an empty body is the first recency page
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.WriteError(c, errx.Msg("links.Handler.List", errx.Invalid, err, MessageInvalidPagination))
			return
		}
	}

	page, err := h.svc.List(c.Request.Context(), ListRequest{
		Mode:   req.Mode,
		Cursor: int(req.Cursor),
		Mine:   req.Mine,
	}, auth.GetOwner(c))
	if err != nil {
		httpx.WriteError(c, err)
		return
	}

	responses := make([]LinkResponse, len(page.Links))
	for i, link := range page.Links {
		responses[i] = linkToResponse(link)
	}

	c.JSON(http.StatusOK, PageResponse{
		Links:   responses,
		HasNext: page.HasNext,
		Cursor:  page.Cursor,
	})
}

// Delete deletes a link
// @Summary Delete a link
// @Description Delete one of your own links. Any refusal is reported as Unauthorized access.
// @Tags links
// @Produce json
// @Param linkId path int true "Link ID"
// @Success 200 {object} map[string]string "Link deleted"
// @Failure 401 {object} map[string]string "Unauthorized access."
// @Security BearerAuth
// @Router /links/{linkId} [delete]
func (h *Handler) Delete(c *gin.Context) {
	const op = "links.Handler.Delete"

	linkID, err := strconv.ParseUint(c.Param("linkId"), 10, 64)
	if err != nil || linkID == 0 {
		httpx.WriteError(c, errx.E(op, errx.Unauthorized, errors.New("bad link id")))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), uint(linkID), auth.GetOwner(c)); err != nil {
		httpx.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Link deleted"})
}

// RegisterRoutes registers link routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	optional := auth.OptionalAuth(h.tokens)

	rg.POST("/links/shorten", optional, h.Shorten)
	rg.POST("/shorten", optional, h.Shorten)
	rg.POST("/links", optional, h.List)
	rg.DELETE("/links/:linkId", auth.RequireAuth(h.tokens), h.Delete)
}
