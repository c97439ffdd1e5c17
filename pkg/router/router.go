package router

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lootbox-lab/backend/pkg/xcontext"
)

type HandlerFunc[Request, Response any] func(ctx context.Context, req *Request) (*Response, error)
type MiddlewareFunc func(ctx context.Context, r *http.Request) error

// Router dispatches requests to typed handlers. Every handler receives a
// context derived from the base one, so configs, logger and database
// handles installed at startup are visible everywhere downstream.
type Router struct {
	Inner gin.IRouter

	baseCtx context.Context
}

func New(ctx context.Context) *Router {
	return &Router{
		Inner:   gin.New(),
		baseCtx: ctx,
	}
}

func GET[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.GET(pattern, wrapHandler(r, http.MethodGet, handler))
}

func POST[Request, Response any](r *Router, pattern string, handler HandlerFunc[Request, Response]) {
	r.Inner.POST(pattern, wrapHandler(r, http.MethodPost, handler))
}

func (r *Router) Use(middleware MiddlewareFunc) {
	r.Inner.Use(func(ctx *gin.Context) {
		err := middleware(r.requestContext(ctx), ctx.Request)
		if err != nil {
			ctx.JSON(http.StatusOK, newErrorResponse(err))
			ctx.Abort()
		}
	})
}

func (r *Router) Group(pattern string) *Router {
	return &Router{
		Inner:   r.Inner.Group(pattern),
		baseCtx: r.baseCtx,
	}
}

func (r *Router) Handler() http.Handler {
	return r.Inner.(*gin.Engine)
}

func (r *Router) requestContext(ctx *gin.Context) context.Context {
	return xcontext.Merge(ctx.Request.Context(), r.baseCtx)
}
