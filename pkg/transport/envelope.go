package transport

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
)

const (
	requestNamespace = "urn:com.microsoft.wc.request"

	// msgTTL is the request validity window the platform enforces,
	// in seconds.
	msgTTL = 1800

	sdkVersion = "HV-Go-SDK/1.0"
)

// RequestParams carries the per-call inputs to Connection.Execute beyond the
// method descriptor itself. InfoXML is the method-specific parameter body,
// already serialized; it is spliced into the envelope verbatim.
type RequestParams struct {
	InfoXML       []byte
	RecordID      *uuid.UUID
	CorrelationID *uuid.UUID
}

// ResponseInfo is the successful result of an executed method: the inner XML
// of the response <info> element plus the namespace that qualified it.
type ResponseInfo struct {
	InfoXML   []byte
	Namespace string
}

// buildRequestEnvelope serializes the full <wc-request:request> document.
// The header is written through a streaming encoder; the opaque info body is
// spliced in after a flush so its markup is not re-escaped.
func buildRequestEnvelope(method Method, params RequestParams, appID uuid.UUID, cred *SessionCredential, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	enc := xml.NewEncoder(&buf)

	root := xml.StartElement{
		Name: xml.Name{Local: "wc-request:request"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "xmlns:wc-request"}, Value: requestNamespace}},
	}
	if err := enc.EncodeToken(root); err != nil {
		return nil, fmt.Errorf("transport: encode request root: %w", err)
	}

	header := xml.StartElement{Name: xml.Name{Local: "header"}}
	if err := enc.EncodeToken(header); err != nil {
		return nil, fmt.Errorf("transport: encode header: %w", err)
	}

	writeText := func(local, value string) error {
		el := xml.StartElement{Name: xml.Name{Local: local}}
		return enc.EncodeElement(value, el)
	}

	if err := writeText("method", method.Name); err != nil {
		return nil, fmt.Errorf("transport: encode method: %w", err)
	}
	if err := writeText("method-version", strconv.Itoa(method.Version)); err != nil {
		return nil, fmt.Errorf("transport: encode method-version: %w", err)
	}
	if params.RecordID != nil {
		if err := writeText("record-id", params.RecordID.String()); err != nil {
			return nil, fmt.Errorf("transport: encode record-id: %w", err)
		}
	}
	if cred != nil && cred.Token != "" {
		auth := xml.StartElement{Name: xml.Name{Local: "auth-session"}}
		if err := enc.EncodeToken(auth); err != nil {
			return nil, fmt.Errorf("transport: encode auth-session: %w", err)
		}
		if err := writeText("auth-token", cred.Token); err != nil {
			return nil, fmt.Errorf("transport: encode auth-token: %w", err)
		}
		if err := enc.EncodeToken(auth.End()); err != nil {
			return nil, fmt.Errorf("transport: encode auth-session end: %w", err)
		}
	} else {
		if err := writeText("app-id", appID.String()); err != nil {
			return nil, fmt.Errorf("transport: encode app-id: %w", err)
		}
	}
	if params.CorrelationID != nil {
		if err := writeText("correlation-id", params.CorrelationID.String()); err != nil {
			return nil, fmt.Errorf("transport: encode correlation-id: %w", err)
		}
	}
	if err := writeText("language", "en"); err != nil {
		return nil, fmt.Errorf("transport: encode language: %w", err)
	}
	if err := writeText("country", "US"); err != nil {
		return nil, fmt.Errorf("transport: encode country: %w", err)
	}
	if err := writeText("msg-time", now.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("transport: encode msg-time: %w", err)
	}
	if err := writeText("msg-ttl", strconv.Itoa(msgTTL)); err != nil {
		return nil, fmt.Errorf("transport: encode msg-ttl: %w", err)
	}
	if err := writeText("version", sdkVersion); err != nil {
		return nil, fmt.Errorf("transport: encode version: %w", err)
	}

	if err := enc.EncodeToken(header.End()); err != nil {
		return nil, fmt.Errorf("transport: encode header end: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("transport: flush header: %w", err)
	}

	buf.WriteString("<info>")
	buf.Write(params.InfoXML)
	buf.WriteString("</info>")

	if err := enc.EncodeToken(root.End()); err != nil {
		return nil, fmt.Errorf("transport: encode request end: %w", err)
	}
	if err := enc.Flush(); err != nil {
		return nil, fmt.Errorf("transport: flush request: %w", err)
	}

	return buf.Bytes(), nil
}

// responseEnvelope maps the outer response document. The info element is
// captured with its namespace-qualified name so callers can check the
// method-specific URN.
type responseEnvelope struct {
	XMLName xml.Name       `xml:"response"`
	Status  responseStatus `xml:"status"`
	Info    *responseBody  `xml:"info"`
}

type responseStatus struct {
	Code  int            `xml:"code"`
	Error *responseError `xml:"error"`
}

type responseError struct {
	Message string `xml:"message"`
	Context string `xml:"context"`
}

type responseBody struct {
	XMLName  xml.Name
	InnerXML []byte `xml:",innerxml"`
}

// parseResponseEnvelope validates the status element and extracts the info
// payload. A non-zero status code becomes a server error with the mapped
// semantic status.
func parseResponseEnvelope(body []byte) (*ResponseInfo, error) {
	var env responseEnvelope
	if err := xml.Unmarshal(body, &env); err != nil {
		return nil, hverror.Parsef(err, "response envelope")
	}
	if env.Status.Code != 0 {
		message := ""
		if env.Status.Error != nil {
			message = env.Status.Error.Message
		}
		return nil, hverror.FromStatusCode(env.Status.Code, message)
	}
	info := &ResponseInfo{}
	if env.Info != nil {
		info.InfoXML = env.Info.InnerXML
		info.Namespace = env.Info.XMLName.Space
	}
	return info, nil
}
