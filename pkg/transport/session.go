package transport

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/healthvault/sdk/pkg/hverror"
)

// SessionCredential is the token issued by CreateAuthenticatedSessionToken.
// Token refresh after expiry is intentionally not handled here; an expired
// session surfaces as StatusAuthSessionTokenExpired and the caller decides
// whether to re-authenticate.
type SessionCredential struct {
	Token        string
	SharedSecret string
	ExpiresAt    time.Time
}

type sessionTokenResponse struct {
	Token struct {
		Value   string `xml:",chardata"`
		Expires string `xml:"expires,attr"`
	} `xml:"token"`
	SharedSecret string `xml:"shared-secret"`
}

// EnsureSession establishes a session credential if none is present. It is
// safe for concurrent use: the first caller performs the network call while
// subsequent callers block on the same lock and then read the cached
// credential.
func (c *HTTPConnection) EnsureSession(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.credential() != nil {
		return nil
	}

	cred, err := c.authenticate(ctx)
	if err != nil {
		return err
	}
	c.setCredential(cred)
	return nil
}

// authenticate issues CreateAuthenticatedSessionToken with the application
// identity alone (the anonymous application flow).
func (c *HTTPConnection) authenticate(ctx context.Context) (*SessionCredential, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	authInfo := xml.StartElement{Name: xml.Name{Local: "auth-info"}}
	if err := enc.EncodeToken(authInfo); err != nil {
		return nil, fmt.Errorf("transport: encode auth-info: %w", err)
	}
	if err := enc.EncodeElement(c.appID.String(), xml.StartElement{Name: xml.Name{Local: "app-id"}}); err != nil {
		return nil, fmt.Errorf("transport: encode app-id: %w", err)
	}
	if err := enc.EncodeToken(authInfo.End()); err != nil {
		return nil, fmt.Errorf("transport: encode auth-info end: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("transport: flush auth-info: %w", err)
	}

	info, err := c.Execute(ctx, MethodCreateAuthenticatedSessionToken, RequestParams{InfoXML: buf.Bytes()})
	if err != nil {
		return nil, fmt.Errorf("transport: create session token: %w", err)
	}

	var resp sessionTokenResponse
	if err := xml.Unmarshal(wrapInfo(info.InfoXML), &resp); err != nil {
		return nil, hverror.Parsef(err, "session token response")
	}
	if resp.Token.Value == "" {
		return nil, hverror.Parsef(nil, "session token response carried no token")
	}

	cred := &SessionCredential{Token: resp.Token.Value, SharedSecret: resp.SharedSecret}
	if resp.Token.Expires != "" {
		if t, err := time.Parse(time.RFC3339, resp.Token.Expires); err == nil {
			cred.ExpiresAt = t
		}
	}
	return cred, nil
}

// wrapInfo re-wraps raw inner info XML so it unmarshals as one document.
func wrapInfo(inner []byte) []byte {
	wrapped := make([]byte, 0, len(inner)+13)
	wrapped = append(wrapped, "<info>"...)
	wrapped = append(wrapped, inner...)
	wrapped = append(wrapped, "</info>"...)
	return wrapped
}
