package handlers

import (
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/rolestore/internal/config"
)

// InfoHandler handles server info requests
type InfoHandler struct {
	cfg *config.Config
}

// NewInfoHandler creates a new InfoHandler
func NewInfoHandler(cfg *config.Config) *InfoHandler {
	return &InfoHandler{cfg: cfg}
}

// InfoResponse represents the server info response
type InfoResponse struct {
	Version        string `json:"version"`
	GoVersion      string `json:"go_version"`
	OS             string `json:"os"`
	Arch           string `json:"arch"`
	DatabaseDriver string `json:"database_driver"`
	RBACEnabled    bool   `json:"rbac_enabled"`
}

// GetInfo godoc
// @Summary Get server information
// @Description Returns the build version, runtime platform and storage backend
// @Tags system
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /info [get]
func (h *InfoHandler) GetInfo(c *gin.Context) {
	c.JSON(http.StatusOK, InfoResponse{
		Version:        Version,
		GoVersion:      runtime.Version(),
		OS:             runtime.GOOS,
		Arch:           runtime.GOARCH,
		DatabaseDriver: h.cfg.Database.Driver,
		RBACEnabled:    h.cfg.RBAC.Enabled,
	})
}
