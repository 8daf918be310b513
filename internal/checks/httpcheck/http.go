// Package httpcheck implements an HTTP endpoint check that maps response
// status codes to severities.
package httpcheck

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/clustergate/cloudcheck/internal/checks"
	"github.com/clustergate/cloudcheck/internal/timer"
)

// DefaultTimeout bounds a request when Config.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// Config describes the request an http check sends and how response
// codes map to severities.
type Config struct {
	URL    string
	Method string
	// StatusOkay defaults to [200]. A code in StatusCritical wins over
	// StatusWarning, which wins over StatusOkay. Unlisted codes are critical.
	StatusOkay     []int
	StatusWarning  []int
	StatusCritical []int
	Timeout        time.Duration
	// Insecure disables certificate verification.
	Insecure bool
	// CAFile is a PEM bundle trusted instead of the system roots.
	CAFile  string
	Headers map[string]string

	Thresholds checks.Thresholds
}

// Check performs one request per Run.
type Check struct {
	name   string
	cfg    Config
	client *http.Client
}

var _ checks.Checker = &Check{}

// New validates cfg and returns a Check.
func New(name string, cfg Config) (*Check, error) {
	if cfg.Method == "" {
		cfg.Method = http.MethodGet
	}
	cfg.Method = strings.ToUpper(cfg.Method)
	if len(cfg.StatusOkay) == 0 {
		cfg.StatusOkay = []int{http.StatusOK}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client, err := httpClientFor(cfg)
	if err != nil {
		return nil, err
	}
	return &Check{name: name, cfg: cfg, client: client}, nil
}

// httpClientFor returns an HTTP client configured for the check.
func httpClientFor(cfg Config) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cfg.Insecure {
		tlsConfig.InsecureSkipVerify = true //nolint:gosec
	}
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	transport.TLSClientConfig = tlsConfig
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}, nil
}

func (c *Check) Name() string { return c.name }

func (c *Check) Run(ctx context.Context) checks.Result {
	details := map[string]string{
		"url":    c.cfg.URL,
		"method": c.cfg.Method,
	}

	req, err := http.NewRequestWithContext(ctx, c.cfg.Method, c.cfg.URL, nil)
	if err != nil {
		return checks.Result{
			Severity: checks.SeverityUnknown,
			Message:  fmt.Sprintf("Invalid request: %v", err),
			Details:  details,
		}
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}

	t := timer.Start(nil, 0)
	resp, err := c.client.Do(req)
	elapsed := t.Elapsed()
	details["responseTime"] = elapsed.String()
	if err != nil {
		log.FromContext(ctx).V(1).Info("HTTP request failed", "check", c.name, "url", c.cfg.URL, "error", err.Error())
		return checks.Result{
			Severity: checks.SeverityCritical,
			Message:  requestFailure(err),
			Elapsed:  checks.Timed(elapsed),
			Details:  details,
		}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	details["statusCode"] = strconv.Itoa(resp.StatusCode)
	return checks.Result{
		Severity: checks.Classify(c.severityFor(resp.StatusCode), elapsed, c.cfg.Thresholds),
		Message:  fmt.Sprintf("[%d] %s", resp.StatusCode, reason(resp)),
		Elapsed:  checks.Timed(elapsed),
		Details:  details,
	}
}

func (c *Check) severityFor(code int) checks.Severity {
	switch {
	case slices.Contains(c.cfg.StatusCritical, code):
		return checks.SeverityCritical
	case slices.Contains(c.cfg.StatusWarning, code):
		return checks.SeverityWarning
	case slices.Contains(c.cfg.StatusOkay, code):
		return checks.SeverityOK
	default:
		return checks.SeverityCritical
	}
}

func reason(resp *http.Response) string {
	if r := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); r != "" && r != resp.Status {
		return r
	}
	return http.StatusText(resp.StatusCode)
}

func requestFailure(err error) string {
	var verifyErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &verifyErr) || errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return "Certificate verification failed"
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "Timeout"
	}
	return fmt.Sprintf("Request failed: %v", err)
}
