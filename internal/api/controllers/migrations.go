// Package controllers holds the bundled API controllers.
package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/loykin/dolphin/internal/api"
	"github.com/loykin/dolphin/pkg/status"
)

// MigrationsController reports the migration ledger of the configured database.
type MigrationsController struct {
	lister status.Lister
}

// NewMigrationsController creates a controller reading from l.
func NewMigrationsController(l status.Lister) *MigrationsController {
	return &MigrationsController{lister: l}
}

// Register mounts GET /migrations and GET /migrations/:name.
func (m *MigrationsController) Register(r gin.IRouter) {
	r.GET("/migrations", m.list)
	r.GET("/migrations/:name", m.get)
}

func (m *MigrationsController) list(c *gin.Context) {
	info, err := status.FromEngine(c.Request.Context(), m.lister)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (m *MigrationsController) get(c *gin.Context) {
	info, err := status.FromEngine(c.Request.Context(), m.lister)
	if err != nil {
		_ = c.Error(err)
		return
	}
	name := c.Param("name")
	item, ok := info.Find(name)
	if !ok {
		api.AbortWithError(c, http.StatusNotFound, fmt.Sprintf("Migration '%s' not found", name))
		return
	}
	c.JSON(http.StatusOK, item)
}
