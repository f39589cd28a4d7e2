package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/usecase"
)

type IRuleHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Activate(c *gin.Context)
	Deactivate(c *gin.Context)
	Attempts(c *gin.Context)
}

type RuleHandler struct {
	ruleUsecase usecase.IRuleUsecase
}

func NewRuleHandler(ruleUsecase usecase.IRuleUsecase) IRuleHandler {
	return &RuleHandler{ruleUsecase: ruleUsecase}
}

func (ruleHandler *RuleHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rules, err := ruleHandler.ruleUsecase.List(c.Request.Context(), limit, offset)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("list rules failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: rules})
}

func (ruleHandler *RuleHandler) Get(c *gin.Context) {
	rule, err := ruleHandler.ruleUsecase.GetByID(c.Request.Context(), c.Param("ruleId"))
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: rule})
}

func (ruleHandler *RuleHandler) Activate(c *gin.Context) {
	if err := ruleHandler.ruleUsecase.Activate(c.Request.Context(), c.Param("ruleId")); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			respondRepoErr(c, err)
			return
		}
		c.JSON(http.StatusUnprocessableEntity, dto.Res{ResponseCode: "422", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Activated"})
}

func (ruleHandler *RuleHandler) Deactivate(c *gin.Context) {
	if err := ruleHandler.ruleUsecase.Deactivate(c.Request.Context(), c.Param("ruleId")); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Deactivated"})
}

func (ruleHandler *RuleHandler) Attempts(c *gin.Context) {
	attempts, err := ruleHandler.ruleUsecase.Attempts(c.Request.Context(), c.Param("ruleId"))
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: attempts})
}
