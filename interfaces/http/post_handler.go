package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"socialhub/domain/dto"
	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
	"socialhub/infrastructure/persistence"
	"socialhub/usecase"
)

const (
	ErrorUnmarshal = "Error while unmarshal"
)

type IPostHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Cancel(c *gin.Context)
	Retry(c *gin.Context)
	Attempts(c *gin.Context)
}

type PostHandler struct {
	postUsecase usecase.IPostUsecase
}

func NewPostHandler(postUsecase usecase.IPostUsecase) IPostHandler {
	return &PostHandler{postUsecase: postUsecase}
}

func (postHandler *PostHandler) Create(c *gin.Context) {
	var req dto.ReqCreatePost

	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error())})
		return
	}

	post, err := postHandler.postUsecase.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusCreated, dto.Res{ResponseCode: "201", ResponseMessage: "Created", Data: post})
}

func (postHandler *PostHandler) List(c *gin.Context) {
	status := model.PostStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	posts, err := postHandler.postUsecase.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("list posts failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: posts})
}

func (postHandler *PostHandler) Get(c *gin.Context) {
	post, err := postHandler.postUsecase.GetByID(c.Request.Context(), c.Param("postId"))
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: post})
}

func (postHandler *PostHandler) Cancel(c *gin.Context) {
	if err := postHandler.postUsecase.Cancel(c.Request.Context(), c.Param("postId")); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Cancelled"})
}

func (postHandler *PostHandler) Retry(c *gin.Context) {
	var req dto.ReqRetryPost
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
			c.JSON(http.StatusBadRequest, dto.Res{ResponseCode: "400", ResponseMessage: fmt.Sprintf("%s %v", ErrorUnmarshal, err.Error())})
			return
		}
	}
	if err := postHandler.postUsecase.Retry(c.Request.Context(), c.Param("postId"), req.ScheduledTime); err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "Rescheduled"})
}

func (postHandler *PostHandler) Attempts(c *gin.Context) {
	attempts, err := postHandler.postUsecase.Attempts(c.Request.Context(), c.Param("postId"))
	if err != nil {
		respondRepoErr(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.Res{ResponseCode: "200", ResponseMessage: "OK", Data: attempts})
}

// respondRepoErr maps the persistence sentinels onto HTTP statuses.
func respondRepoErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.Res{ResponseCode: "404", ResponseMessage: "Not found"})
	case errors.Is(err, persistence.ErrConflict):
		c.JSON(http.StatusConflict, dto.Res{ResponseCode: "409", ResponseMessage: err.Error()})
	default:
		logger.GetLogger().WithField("error", err).Error("request failed")
		c.JSON(http.StatusInternalServerError, dto.Res{ResponseCode: "500", ResponseMessage: err.Error()})
	}
}
