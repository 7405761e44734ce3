// Package verify probes each network's RPC endpoint and checks that the
// chain it serves matches the configured chain ID. It is opt-in and
// read-only: only eth_chainId is ever called.
package verify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/eugenenazirov/chainconf/internal/resolver"
)

// DefaultTimeout bounds a probe when the network sets no timeout of its own.
const DefaultTimeout = 10 * time.Second

var (
	// ErrUnreachable is returned when the endpoint cannot be dialled or queried.
	ErrUnreachable = errors.New("rpc endpoint unreachable")
	// ErrChainIDMismatch is returned when the endpoint reports a different chain.
	ErrChainIDMismatch = errors.New("chain ID mismatch")
)

// Result is the outcome of probing one network.
type Result struct {
	Network  string        `json:"network"`
	Expected uint64        `json:"expected_chain_id"`
	Actual   uint64        `json:"actual_chain_id,omitempty"`
	Passed   bool          `json:"passed"`
	Message  string        `json:"message"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Verifier probes networks one at a time, throttled by a token bucket.
type Verifier struct {
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithRate limits probes to rps per second with the given burst. A
// non-positive rps disables throttling.
func WithRate(rps float64, burst int) Option {
	return func(v *Verifier) {
		if rps <= 0 {
			v.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		v.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithTimeout sets the per-probe timeout used when a network has none.
func WithTimeout(timeout time.Duration) Option {
	return func(v *Verifier) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

// New creates a Verifier. A nil logger is replaced by a no-op one.
func New(logger *zap.Logger, opts ...Option) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Verifier{
		limiter: rate.NewLimiter(rate.Limit(2), 1),
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify probes every profile in order. It always returns one Result per
// profile that was reached before ctx ended, together with the joined
// failures.
func (v *Verifier) Verify(ctx context.Context, profiles []resolver.NetworkProfile) ([]Result, error) {
	results := make([]Result, 0, len(profiles))
	var errs []error

	for _, p := range profiles {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				errs = append(errs, fmt.Errorf("network %q: %w", p.Name, err))
				break
			}
		}

		res, err := v.probe(ctx, p)
		results = append(results, res)
		if err != nil {
			v.logger.Warn("network verification failed",
				zap.String("network", p.Name),
				zap.Uint64("expected_chain_id", p.ChainID),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("network %q: %w", p.Name, err))
			continue
		}
		v.logger.Info("network verified",
			zap.String("network", p.Name),
			zap.Uint64("chain_id", res.Actual),
			zap.Duration("elapsed", res.Elapsed),
		)
	}

	return results, errors.Join(errs...)
}

func (v *Verifier) probe(ctx context.Context, p resolver.NetworkProfile) (Result, error) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = v.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := Result{Network: p.Name, Expected: p.ChainID}
	start := time.Now()

	client, err := ethclient.DialContext(ctx, p.RPCURL)
	if err != nil {
		res.Message = "dial failed"
		res.Elapsed = time.Since(start)
		return res, fmt.Errorf("%w: dial failed", ErrUnreachable)
	}
	defer client.Close()

	id, err := client.ChainID(ctx)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Message = "eth_chainId failed"
		return res, fmt.Errorf("%w: eth_chainId: %v", ErrUnreachable, redact(err, p.RPCURL))
	}
	if !id.IsUint64() {
		res.Message = "chain ID out of range"
		return res, fmt.Errorf("%w: got %s", ErrChainIDMismatch, id)
	}

	res.Actual = id.Uint64()
	if res.Actual != p.ChainID {
		res.Message = fmt.Sprintf("expected %d, got %d", p.ChainID, res.Actual)
		return res, fmt.Errorf("%w: expected %d, got %d", ErrChainIDMismatch, p.ChainID, res.Actual)
	}

	res.Passed = true
	res.Message = "ok"
	return res, nil
}

// urlPattern matches absolute URLs as transport errors print them.
var urlPattern = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+.-]*://[^\s"'<>]+`)

// redact reduces every URL in a transport error to scheme://host and strips
// any remaining fragment of rpcURL's userinfo, path or query. Provider URLs
// often carry API keys there, and net/http prints them with the password
// masked, so an exact match on rpcURL is not enough.
func redact(err error, rpcURL string) string {
	msg := urlPattern.ReplaceAllStringFunc(err.Error(), func(raw string) string {
		u, perr := url.Parse(strings.TrimRight(raw, ".,:;)"))
		if perr != nil || u.Host == "" {
			return "<rpc-url>"
		}
		return u.Scheme + "://" + u.Host
	})

	u, perr := url.Parse(rpcURL)
	if perr != nil {
		return strings.ReplaceAll(msg, rpcURL, "<rpc-url>")
	}
	var fragments []string
	if u.User != nil {
		fragments = append(fragments, u.User.Username())
		if pw, ok := u.User.Password(); ok {
			fragments = append(fragments, pw)
		}
	}
	if p := strings.Trim(u.EscapedPath(), "/"); p != "" {
		fragments = append(fragments, p)
	}
	if u.RawQuery != "" {
		fragments = append(fragments, u.RawQuery)
	}
	for _, f := range fragments {
		if f != "" {
			msg = strings.ReplaceAll(msg, f, "<redacted>")
		}
	}
	return msg
}
