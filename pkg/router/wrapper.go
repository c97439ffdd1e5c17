package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lootbox-lab/backend/pkg/errorx"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req Request
		var err error
		switch method {
		case http.MethodGet:
			err = ctx.BindQuery(&req)
		default:
			err = ctx.BindJSON(&req)
		}
		if err != nil {
			ctx.JSON(http.StatusOK, newErrorResponse(
				errorx.New(errorx.BadRequest, "Cannot bind the request")))
			return
		}

		requestCtx := router.requestContext(ctx)
		resp, err := handler(requestCtx, &req)
		if err != nil {
			xcontext.Logger(requestCtx).Debugf("Request %s failed: %v", ctx.FullPath(), err)
			ctx.JSON(http.StatusOK, newErrorResponse(err))
			return
		}

		ctx.JSON(http.StatusOK, newResponse(resp))
	}
}
