package middleware

import (
	"net/http"

	"zapcommerce/internal/auth"
	"zapcommerce/internal/tenant"
	"zapcommerce/pkg/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// MerchantResolver binds the authenticated identity into the request
// context used by the repository scopes. System admins get the admin
// bypass; merchant users get their own merchant id and nothing else.
// A token carrying no merchant and no admin role still passes through,
// but every scoped query it triggers matches zero rows.
//
// Admin tokens may impersonate a merchant with the X-Merchant-ID header,
// which narrows the session instead of widening it.
func MerchantResolver() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := c.Get("claims").(*auth.TokenClaims)
			if !ok {
				return next(c)
			}

			ctx := c.Request().Context()

			if claims.IsSystemAdmin() {
				if header := c.Request().Header.Get("X-Merchant-ID"); header != "" {
					merchantID, err := uuid.Parse(header)
					if err != nil {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid merchant ID format")
					}
					ctx, err = tenant.WithMerchant(ctx, merchantID)
					if err != nil {
						return echo.NewHTTPError(http.StatusBadRequest, "Invalid merchant ID")
					}
					c.Set("merchant_id", merchantID)
				} else {
					ctx = tenant.WithAdmin(ctx)
				}
				c.SetRequest(c.Request().WithContext(ctx))
				return next(c)
			}

			if claims.MerchantID != nil {
				boundCtx, err := tenant.WithMerchant(ctx, *claims.MerchantID)
				if err != nil {
					return echo.NewHTTPError(http.StatusForbidden, "Merchant context required")
				}
				c.SetRequest(c.Request().WithContext(boundCtx))
			}

			return next(c)
		}
	}
}

// RequireMerchant ensures the request has a merchant bound. System admins
// pass without one; merchant roles without a merchant are misissued tokens
// and get rejected rather than silently scoped to nothing.
func RequireMerchant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			if tenant.IsAdmin(ctx) {
				return next(c)
			}
			if role, _ := c.Get("user_role").(string); role == models.RoleSystemAdmin {
				return next(c)
			}
			if _, ok := tenant.MerchantID(ctx); !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Merchant context required")
			}

			return next(c)
		}
	}
}
