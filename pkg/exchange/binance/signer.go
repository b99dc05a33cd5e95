package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"omniex/pkg/core"
)

const apiKeyHeader = "X-MBX-APIKEY"

// signer implements the platform's HMAC-SHA256 request signature: the
// sorted query string plus a timestamp is signed with the secret key and
// appended as a signature parameter. The historical trades endpoint is an
// outlier wanting the key header alone, with no signature.
type signer struct {
	// now returns the platform-synchronized time in epoch milliseconds.
	// Wired to the session clock so signatures survive local clock skew.
	now func() int64
}

func newSigner() *signer {
	return &signer{now: func() int64 { return time.Now().UnixMilli() }}
}

func (s *signer) Sign(req *core.Request, creds core.Credentials) error {
	if creds.APIKey == "" {
		return core.NewError(core.PlatformBinance, core.ErrCodeUnauthorized, "api key is not set")
	}
	req.Headers[apiKeyHeader] = creds.APIKey
	if req.Endpoint == core.EndpointTradeHistory {
		return nil
	}
	if creds.SecretKey == "" {
		return core.NewError(core.PlatformBinance, core.ErrCodeUnauthorized, "secret key is not set")
	}

	values := make(url.Values, len(req.Query)+1)
	for k, v := range req.Query {
		values.Set(k, fmt.Sprint(v))
	}
	values.Set("timestamp", fmt.Sprint(s.now()))

	// Encode sorts keys, so the signed string and the sent string cannot
	// diverge.
	query := values.Encode()
	mac := hmac.New(sha256.New, []byte(creds.SecretKey))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	req.URL += "?" + query + "&signature=" + signature
	req.Query = nil
	return nil
}
