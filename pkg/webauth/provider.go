package webauth

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/healthvault/sdk/pkg/hverror"
)

const sessionContextKey = "webauth.session"

// TokenExchanger turns the shell's wctoken callback parameter into an
// authenticated session.
type TokenExchanger func(ctx context.Context, wctoken string) (*Session, error)

// Provider wires the shell-redirect sign-in flow into an echo application.
type Provider struct {
	codec    *CookieCodec
	appID    uuid.UUID
	services *ServiceInfoProvider
	exchange TokenExchanger
	logger   zerolog.Logger
}

// NewProvider creates a sign-in provider for the given application id.
func NewProvider(codec *CookieCodec, appID uuid.UUID, services *ServiceInfoProvider, exchange TokenExchanger) (*Provider, error) {
	if codec == nil || services == nil || exchange == nil {
		return nil, hverror.Validationf("codec, services and exchange are all required")
	}
	if appID == uuid.Nil {
		return nil, hverror.Validationf("application id is required")
	}
	return &Provider{
		codec:    codec,
		appID:    appID,
		services: services,
		exchange: exchange,
		logger:   zerolog.Nop(),
	}, nil
}

// SetLogger attaches a zerolog logger.
func (p *Provider) SetLogger(logger zerolog.Logger) { p.logger = logger }

// FromContext returns the session the middleware stored for this request.
func FromContext(c echo.Context) (*Session, bool) {
	session, ok := c.Get(sessionContextKey).(*Session)
	return session, ok
}

// RequireSession is echo middleware. Requests with a valid session cookie
// proceed with the session in context; everything else is redirected to the
// shell sign-in page.
func (p *Provider) RequireSession() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(p.codec.Name())
			if err == nil {
				session, decodeErr := p.codec.Decode(cookie)
				if decodeErr == nil {
					c.Set(sessionContextKey, session)
					return next(c)
				}
				p.logger.Debug().Err(decodeErr).Msg("webauth: rejecting session cookie")
			}
			return p.redirectToSignIn(c)
		}
	}
}

func (p *Provider) redirectToSignIn(c echo.Context) error {
	info, err := p.services.Get(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "sign-in target unavailable")
	}
	target := info.ShellURL + "/redirect.aspx?target=AUTH&targetqs=" + url.QueryEscape("?appid="+p.appID.String())
	return c.Redirect(http.StatusFound, target)
}

// HandleCallback is the handler for the shell's post-sign-in redirect. It
// exchanges the wctoken parameter for a session, sets the cookie and sends
// the browser to the original path (the "redirect" parameter, or "/").
func (p *Provider) HandleCallback(c echo.Context) error {
	wctoken := c.QueryParam("wctoken")
	if wctoken == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "wctoken is required")
	}

	session, err := p.exchange(c.Request().Context(), wctoken)
	if err != nil {
		p.logger.Warn().Err(err).Msg("webauth: token exchange failed")
		return echo.NewHTTPError(http.StatusUnauthorized, "sign-in failed")
	}

	cookie, err := p.codec.Encode(*session)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not establish session")
	}
	c.SetCookie(cookie)

	// Only same-site paths; anything else (absolute or protocol-relative
	// URLs) falls back to the root.
	dest := c.QueryParam("redirect")
	if dest == "" || dest[0] != '/' || strings.HasPrefix(dest, "//") {
		dest = "/"
	}
	return c.Redirect(http.StatusFound, dest)
}

// HandleSignOut clears the session cookie and sends the browser to the
// shell sign-out page.
func (p *Provider) HandleSignOut(c echo.Context) error {
	c.SetCookie(p.codec.Clear())

	info, err := p.services.Get(c.Request().Context())
	if err != nil {
		return c.Redirect(http.StatusFound, "/")
	}
	target := info.ShellURL + "/redirect.aspx?target=APPSIGNOUT&targetqs=" + url.QueryEscape("?appid="+p.appID.String())
	return c.Redirect(http.StatusFound, target)
}
