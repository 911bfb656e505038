package middleware

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/manager"
	"github.com/GoPolymarket/namegate/internal/pkg/apperrors"
	"github.com/GoPolymarket/namegate/internal/signer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
)

const (
	HeaderCallerAddress   = "X-Caller-Address"
	HeaderCallerSignature = "X-Caller-Signature"
	HeaderCallerTimestamp = "X-Caller-Timestamp"
	ContextCallerKey      = "caller"
	ContextAuthMethodKey  = "caller_auth"
)

// AuthMethod records how CallerMiddleware established the caller.
type AuthMethod string

const (
	AuthAdminKey  AuthMethod = "admin_key"
	AuthSignature AuthMethod = "signature"
	// AuthHeader is a bare X-Caller-Address, only accepted with signatures off.
	AuthHeader AuthMethod = "header"
)

// ContractSignatureVerifier checks a signature on behalf of a contract wallet.
type ContractSignatureVerifier interface {
	Verify(ctx context.Context, contract common.Address, digest common.Hash, signature string) (bool, error)
}

// CallerAuth holds the optional checks applied to signed requests.
type CallerAuth struct {
	// Replay rejects a signature that was already accepted.
	Replay *manager.ReplayGuard
	// Contracts is asked when the signature does not recover to the caller.
	Contracts ContractSignatureVerifier
}

// CallerFrom returns the authenticated caller set by CallerMiddleware.
func CallerFrom(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(ContextCallerKey)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}

// CallerAuthMethod returns how the caller was authenticated, empty if it was not.
func CallerAuthMethod(c *gin.Context) AuthMethod {
	v, ok := c.Get(ContextAuthMethodKey)
	if !ok {
		return ""
	}
	m, _ := v.(AuthMethod)
	return m
}

// CallerMiddleware establishes who is calling. A valid admin key acts as the
// operator; a wrong or unconfigured one is rejected. Otherwise X-Caller-Address
// names the caller and, when signatures are required, X-Caller-Signature must
// personal-sign the request digest or be accepted by the caller's contract wallet.
func CallerMiddleware(cfg *config.Config, operator common.Address, auth CallerAuth) gin.HandlerFunc {
	maxSkew := 5 * time.Minute
	if cfg != nil && cfg.Auth.MaxSkewSeconds > 0 {
		maxSkew = time.Duration(cfg.Auth.MaxSkewSeconds) * time.Second
	}

	return func(c *gin.Context) {
		if key := c.GetHeader(HeaderAdminKey); key != "" {
			if cfg == nil || cfg.Auth.AdminKey == "" || key != cfg.Auth.AdminKey {
				abortAuth(c, "invalid admin key")
				return
			}
			c.Set(ContextCallerKey, operator)
			c.Set(ContextAuthMethodKey, AuthAdminKey)
			c.Next()
			return
		}

		raw := strings.TrimSpace(c.GetHeader(HeaderCallerAddress))
		if !common.IsHexAddress(raw) {
			abortAuth(c, "missing or invalid caller address")
			return
		}
		caller := common.HexToAddress(raw)
		if caller == (common.Address{}) {
			abortAuth(c, "zero caller address")
			return
		}

		method := AuthHeader
		if cfg != nil && cfg.Auth.RequireSignature {
			if err := verifyCaller(c, caller, maxSkew, auth); err != nil {
				c.Error(err)
				c.Abort()
				return
			}
			method = AuthSignature
		}

		c.Set(ContextCallerKey, caller)
		c.Set(ContextAuthMethodKey, method)
		c.Next()
	}
}

func verifyCaller(c *gin.Context, caller common.Address, maxSkew time.Duration, auth CallerAuth) error {
	// 1. Timestamp freshness
	ts, err := strconv.ParseInt(c.GetHeader(HeaderCallerTimestamp), 10, 64)
	if err != nil {
		return apperrors.New(apperrors.ErrAuthFailed, "missing or invalid caller timestamp", nil)
	}
	skew := time.Since(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > maxSkew {
		return apperrors.New(apperrors.ErrAuthFailed, "caller timestamp outside allowed skew", nil)
	}

	// 2. Read body (and put it back for binding)
	var body []byte
	if c.Request.Body != nil {
		body, _ = io.ReadAll(c.Request.Body)
		c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
	}

	// 3. Recover signer, then fall back to the contract wallet
	sig := c.GetHeader(HeaderCallerSignature)
	digest := signer.RequestDigest(c.Request.Method, c.Request.URL.RequestURI(), ts, body)
	recovered, err := signer.RecoverAddress(digest, sig)
	if err != nil || recovered != caller {
		if auth.Contracts == nil {
			if err != nil {
				return apperrors.New(apperrors.ErrAuthFailed, "invalid caller signature", err)
			}
			return apperrors.New(apperrors.ErrAuthFailed, "signature does not match caller address", nil)
		}
		valid, verr := auth.Contracts.Verify(c.Request.Context(), caller, digest, sig)
		if verr != nil {
			return apperrors.New(apperrors.ErrAuthFailed, "contract signature check failed", verr)
		}
		if !valid {
			return apperrors.New(apperrors.ErrAuthFailed, "signature does not match caller address", nil)
		}
	}

	// 4. One use per signature
	if auth.Replay != nil && !auth.Replay.Claim(crypto.Keccak256Hash([]byte(strings.ToLower(sig)))) {
		return apperrors.New(apperrors.ErrAuthFailed, "signature already used", nil)
	}
	return nil
}

func abortAuth(c *gin.Context, msg string) {
	c.Error(apperrors.New(apperrors.ErrAuthFailed, msg, nil))
	c.Abort()
}
