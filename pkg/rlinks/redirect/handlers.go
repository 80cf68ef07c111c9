package redirect

import (
	"context"
	_ "embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/mikepea/rlinks/pkg/rlinks/errx"
	"github.com/mikepea/rlinks/pkg/rlinks/httpx"
	"github.com/mikepea/rlinks/pkg/rlinks/models"
)

//go:embed notfound.html
var notFoundPage string

var notFoundTemplate = template.Must(template.New("notfound").Parse(notFoundPage))

// Visitor records a visit and returns the link behind a short key.
type Visitor interface {
	Visit(ctx context.Context, shortKey string) (models.Link, error)
}

// Handler handles redirect requests
type Handler struct {
	links Visitor
}

// NewHandler creates a new redirect handler
func NewHandler(links Visitor) *Handler {
	return &Handler{links: links}
}

// Redirect handles short URL redirects
// @Summary Follow a short link
// @Description Redirects to the stored URL and counts the visit. Unknown keys get an HTML page.
// @Tags redirect
// @Produce html
// @Param shortKey path string true "Short key"
// @Success 302 "Redirect to the stored URL"
// @Failure 404 {string} string "HTML page"
// @Router /{shortKey} [get]
func (h *Handler) Redirect(c *gin.Context) {
	shortKey := c.Param("shortKey")

	// counted before redirecting so a burst of visits is never lost
	link, err := h.links.Visit(c.Request.Context(), shortKey)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			c.Render(http.StatusNotFound, render.HTML{
				Template: notFoundTemplate,
				Data:     gin.H{"ShortKey": shortKey},
			})
			return
		}
		httpx.WriteError(c, err)
		return
	}

	c.Redirect(http.StatusFound, link.URL)
}

// RegisterRoutes registers redirect routes on the root router
// This should be called AFTER all other routes to avoid conflicts
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/:shortKey", h.Redirect)
}
