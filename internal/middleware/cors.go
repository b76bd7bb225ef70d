package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	corsAllowMethods  = "GET, POST, OPTIONS"
	corsAllowHeaders  = "Origin, Content-Type, Accept, Authorization, " + RequestIDHeader
	corsExposeHeaders = "Content-Length, " + RequestIDHeader + ", X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset"
)

// CORSMiddleware allowed 为空时放行所有来源
func CORSMiddleware(allowed ...string) app.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins[o] = struct{}{}
		}
	}

	return func(ctx context.Context, c *app.RequestContext) {
		origin := string(c.Request.Header.Peek("Origin"))
		preflight := string(c.Method()) == consts.MethodOptions

		if origin != "" {
			c.Header("Vary", "Origin")
			if _, ok := origins[origin]; len(origins) > 0 && !ok {
				// 不在白名单内：不写 CORS 头，浏览器自行拦截
				if preflight {
					c.AbortWithStatus(consts.StatusForbidden)
					return
				}
				c.Next(ctx)
				return
			}
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if preflight {
			c.Header("Access-Control-Allow-Methods", corsAllowMethods)
			c.Header("Access-Control-Allow-Headers", corsAllowHeaders)
			c.Header("Access-Control-Max-Age", "86400")
			c.AbortWithStatus(consts.StatusNoContent)
			return
		}

		c.Header("Access-Control-Expose-Headers", corsExposeHeaders)
		c.Next(ctx)
	}
}
