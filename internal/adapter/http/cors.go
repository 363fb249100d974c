package httpadapter

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	corsAllowMethods = "GET,POST,OPTIONS"
	corsAllowHeaders = "Content-Type,Authorization,X-Request-ID"
)

// corsPolicy lets a browser dashboard on another local port drive the
// control API. An empty origin allows any.
type corsPolicy struct {
	origin string
}

func (p corsPolicy) apply(ctx *app.RequestContext) {
	origin := p.origin
	if origin == "" {
		origin = "*"
	}
	h := &ctx.Response.Header
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", corsAllowMethods)
	h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
	h.Set("Access-Control-Max-Age", "300")
	if origin != "*" {
		h.Set("Vary", "Origin")
	}
}

func (p corsPolicy) middleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		p.apply(ctx)
		if string(ctx.Method()) == consts.MethodOptions {
			ctx.AbortWithStatus(consts.StatusNoContent)
			return
		}
		ctx.Next(c)
	}
}
