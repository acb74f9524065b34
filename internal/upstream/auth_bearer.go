package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// Authenticator turns caller credentials into a session handle.
type Authenticator interface {
	Authenticate(ctx context.Context, creds Credentials) (Session, error)
}

// Encoding selects how a login payload is serialized
type Encoding int

const (
	EncodeJSON Encoding = iota
	EncodeForm
)

// TokenPredicate inspects a decoded token response. It returns the session
// when the agency-specific success marker is present and false otherwise.
type TokenPredicate func(body map[string]any) (BearerSession, bool)

// BearerExchange posts credentials to a token endpoint and extracts a bearer
// token. The success predicate is per agency; there is no shared schema.
type BearerExchange struct {
	Agency   string
	URL      string
	Encoding Encoding
	// Payload builds the login body. An error aborts before any network call.
	Payload   func(Credentials) (map[string]any, error)
	Predicate TokenPredicate

	transport *Transport
	logger    *logrus.Logger
}

const opAuthenticate = "authenticate"

// Authenticate performs the token exchange
func (b *BearerExchange) Authenticate(ctx context.Context, creds Credentials) (Session, error) {
	fields, err := b.Payload(creds)
	if err != nil {
		return nil, InvalidRequest(b.Agency, opAuthenticate, err.Error())
	}

	req := &Request{
		Agency: b.Agency,
		Op:     opAuthenticate,
		Method: http.MethodPost,
		URL:    b.URL,
	}
	switch b.Encoding {
	case EncodeForm:
		req.ContentType = "application/x-www-form-urlencoded"
		req.Body = []byte(formValues(fields).Encode())
	default:
		req.ContentType = "application/json"
		req.Body, err = json.Marshal(fields)
		if err != nil {
			return nil, fmt.Errorf("failed to encode token payload: %w", err)
		}
	}

	resp, err := b.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Status != http.StatusOK {
		return nil, unavailable(b.Agency, opAuthenticate, resp.Status, "token endpoint returned non-200", resp.Body, nil)
	}

	body, ok := decodeObject(resp.Body)
	if !ok {
		return nil, rejected(b.Agency, opAuthenticate, resp.Status, "token response is not a JSON object", resp.Body)
	}
	session, ok := b.Predicate(body)
	if !ok {
		b.logger.WithFields(logrus.Fields{
			"agency": b.Agency,
			"status": resp.Status,
		}).Warn("Token exchange rejected by upstream")
		return nil, rejected(b.Agency, opAuthenticate, resp.Status, "success marker missing from token response", resp.Body)
	}
	return session, nil
}

func formValues(fields map[string]any) url.Values {
	values := url.Values{}
	for k, v := range fields {
		values.Set(k, fmt.Sprint(v))
	}
	return values
}

// tokenAndKey accepts {token, chave}: both must be present (FEAM).
func tokenAndKey(secondaryHeader string) TokenPredicate {
	return func(body map[string]any) (BearerSession, bool) {
		token, ok := stringField(body, "token")
		if !ok {
			return BearerSession{}, false
		}
		key, ok := stringField(body, "chave")
		if !ok {
			return BearerSession{}, false
		}
		return BearerSession{Token: token, SecondaryKey: key, SecondaryHeader: secondaryHeader}, true
	}
}

// tokenWithReturnCode accepts {retornoCodigo: 0, token} (SEMAD).
func tokenWithReturnCode(body map[string]any) (BearerSession, bool) {
	if !numberIs(body, "retornoCodigo", 0) {
		return BearerSession{}, false
	}
	token, ok := stringField(body, "token")
	if !ok {
		return BearerSession{}, false
	}
	return BearerSession{Token: token}, true
}

// objectResponseToken accepts {erro: false, objetoResposta: "Bearer ..."}
// (SINIR family). objetoResposta already carries the scheme.
func objectResponseToken(body map[string]any) (BearerSession, bool) {
	if failed, present := boolField(body, "erro"); present && failed {
		return BearerSession{}, false
	}
	token, ok := stringField(body, "objetoResposta")
	if !ok {
		return BearerSession{}, false
	}
	if len(token) > 7 && (token[:7] == "Bearer " || token[:7] == "bearer ") {
		return BearerSession{Token: token, Raw: true}, true
	}
	return BearerSession{Token: token}, true
}
