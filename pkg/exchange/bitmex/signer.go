package bitmex

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"omniex/pkg/core"
)

const signatureTTL = int64(3600)

// signer implements the platform's expiring HMAC signature: hex
// HMAC-SHA256 over method + path + expires + body, sent in the api-expires,
// api-key, and api-signature headers.
type signer struct {
	// now returns the synchronized time in epoch milliseconds.
	now func() int64
}

func newSigner() *signer {
	return &signer{now: func() int64 { return time.Now().UnixMilli() }}
}

func (s *signer) Sign(req *core.Request, creds core.Credentials) error {
	if creds.APIKey == "" || creds.SecretKey == "" {
		return core.NewError(core.PlatformBitMEX, core.ErrCodeUnauthorized, "api credentials are not set")
	}

	// The query string participates in the signature, so it is fixed into
	// the URL here and the transport must not reorder it.
	if len(req.Query) > 0 {
		values := make(url.Values, len(req.Query))
		for k, v := range req.Query {
			values.Set(k, fmt.Sprint(v))
		}
		req.URL += "?" + values.Encode()
		req.Query = nil
	}

	body := ""
	if req.Body != nil {
		raw, err := sonic.Marshal(req.Body)
		if err != nil {
			return err
		}
		body = string(raw)
		req.Body = body
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return err
	}
	path := u.Path
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}

	expires := s.now()/1000 + signatureTTL
	req.Headers["api-expires"] = strconv.FormatInt(expires, 10)
	req.Headers["api-key"] = creds.APIKey
	req.Headers["api-signature"] = signature(creds.SecretKey, req.Method+path+strconv.FormatInt(expires, 10)+body)
	return nil
}

// wsAuthHeaders signs the socket dial with the same expiring scheme over
// the literal realtime path.
func wsAuthHeaders(creds core.Credentials, now func() int64) (expires string, sig string) {
	exp := now()/1000 + signatureTTL
	expires = strconv.FormatInt(exp, 10)
	return expires, signature(creds.SecretKey, "GET/realtime"+expires)
}

func signature(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}
