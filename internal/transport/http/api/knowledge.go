package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YassineZAIBI/virtual-ppo-ppm/internal/domain"
)

// UploadFile ingests a multipart file upload.
// POST /knowledge/upload
func (h *Handler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "No file provided"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read file"})
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Failed to read file"})
	}

	doc, err := h.service.IngestFile(c.Request().Context(), fh.Filename, content)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// ScrapeURL ingests the main content of a web page.
// POST /knowledge/scrape
func (h *Handler) ScrapeURL(c echo.Context) error {
	var req domain.ScrapeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	doc, err := h.service.ScrapeURL(c.Request().Context(), req.URL)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}
