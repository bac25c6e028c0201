// Package payment verifies gateway callback signatures. Each supported
// gateway signs the alphabetically sorted, URL-encoded parameter set with
// an HMAC over a shared secret; only the hash algorithm and the field
// conventions differ.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"sort"
	"strings"
)

const (
	GatewayVNPay = "vnpay"
	GatewayMoMo  = "momo"
)

// Verifier recomputes and checks a callback signature.
type Verifier struct {
	gateway string
	secret  []byte
	newHash func() hash.Hash
	// sigParam is the parameter carrying the signature itself; it is
	// excluded from the signed set.
	sigParam string
}

// NewVerifier builds the verifier for one gateway.
func NewVerifier(gateway, secret string) (*Verifier, error) {
	switch gateway {
	case GatewayVNPay:
		return &Verifier{
			gateway:  gateway,
			secret:   []byte(secret),
			newHash:  sha512.New,
			sigParam: "vnp_SecureHash",
		}, nil
	case GatewayMoMo:
		return &Verifier{
			gateway:  gateway,
			secret:   []byte(secret),
			newHash:  sha256.New,
			sigParam: "signature",
		}, nil
	default:
		return nil, fmt.Errorf("unsupported gateway %q", gateway)
	}
}

func (v *Verifier) Gateway() string { return v.gateway }

// SignatureParam names the callback parameter holding the signature.
func (v *Verifier) SignatureParam() string { return v.sigParam }

// Sign computes the signature over the canonicalized parameter set. The
// signature parameter itself and secure-hash bookkeeping fields are
// skipped.
func (v *Verifier) Sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == v.sigParam || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}

	mac := hmac.New(v.newHash, v.secret)
	mac.Write([]byte(b.String()))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether the signature embedded in params matches the
// recomputed one.
func (v *Verifier) Verify(params map[string]string) bool {
	provided, ok := params[v.sigParam]
	if !ok || provided == "" {
		return false
	}
	expected := v.Sign(params)
	return hmac.Equal([]byte(strings.ToLower(provided)), []byte(expected))
}

// Succeeded reports whether the gateway's response code means payment
// success.
func (v *Verifier) Succeeded(params map[string]string) bool {
	switch v.gateway {
	case GatewayVNPay:
		return params["vnp_ResponseCode"] == "00"
	case GatewayMoMo:
		return params["resultCode"] == "0"
	}
	return false
}

// OrderInfoParam names the parameter carrying the order reference with
// the embedded phase id.
func (v *Verifier) OrderInfoParam() string {
	if v.gateway == GatewayVNPay {
		return "vnp_OrderInfo"
	}
	return "orderInfo"
}

// TxnRefParam names the gateway's unique transaction reference, used for
// the replay guard.
func (v *Verifier) TxnRefParam() string {
	if v.gateway == GatewayVNPay {
		return "vnp_TxnRef"
	}
	return "requestId"
}
