package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/usecase"
)

type IStatusHandler interface {
	Healthz(c *gin.Context)
	Platforms(c *gin.Context)
	TriggerPass(c *gin.Context)
}

type StatusHandler struct {
	registry  usecase.IAdapterRegistry
	scheduler usecase.IPublishScheduler
}

func NewStatusHandler(registry usecase.IAdapterRegistry, scheduler usecase.IPublishScheduler) IStatusHandler {
	return &StatusHandler{registry: registry, scheduler: scheduler}
}

// Healthz returns OK for health checks
func (h *StatusHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Platforms lists the platform names the registry can dispatch to.
func (h *StatusHandler) Platforms(c *gin.Context) {
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: h.registry.Platforms()})
}

// TriggerPass runs one scheduler pass immediately instead of waiting for
// the next poll tick.
func (h *StatusHandler) TriggerPass(c *gin.Context) {
	if err := h.scheduler.Pass(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Pass completed"})
}
