// Package interceptor hooks the game's API responses out of a MITM proxy and
// hands the raw bodies to the relay.
package interceptor

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elazarl/goproxy"
	"github.com/klauspost/compress/gzip"

	"github.com/gravitas-games/sekaiscout/internal/relay"
)

var (
	hostPattern = regexp.MustCompile(`(^|\.)colorfulpalette\.org(:\d+)?$`)

	// capturePatterns are the two endpoints whose responses carry harvest maps.
	capturePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^https://.*\.colorfulpalette\.org/.*/mysekai\?isForceAllReloadOnlyMysekai=(True|False)`),
		regexp.MustCompile(`^https://.*\.colorfulpalette\.org/api/user/\d+/mysekai/.*delivery.*`),
	}
)

// Matches reports whether responses for url should be captured.
func Matches(url string) bool {
	for _, re := range capturePatterns {
		if re.MatchString(url) {
			return true
		}
	}
	return false
}

// Offerer accepts captured packets without blocking.
type Offerer interface {
	Offer(relay.Packet) bool
}

// Options configures the MITM proxy.
type Options struct {
	// CACert and CAKey are PEM files. Without them goproxy's built-in CA is
	// used, which the device must trust instead.
	CACert string
	CAKey  string
}

type Interceptor struct {
	sink   Offerer
	logger *log.Logger
	now    func() time.Time
}

func New(sink Offerer, logger *log.Logger) *Interceptor {
	if logger == nil {
		logger = log.Default()
	}
	return &Interceptor{sink: sink, logger: logger, now: time.Now}
}

// Proxy builds a goproxy server that decrypts TLS to the game's hosts only
// and tunnels everything else untouched.
func (i *Interceptor) Proxy(opts Options) (*goproxy.ProxyHttpServer, error) {
	proxy := goproxy.NewProxyHttpServer()
	proxy.Logger = i.logger

	connect := goproxy.AlwaysMitm
	if opts.CACert != "" || opts.CAKey != "" {
		ca, err := tls.LoadX509KeyPair(opts.CACert, opts.CAKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load proxy CA: %w", err)
		}
		action := &goproxy.ConnectAction{
			Action:    goproxy.ConnectMitm,
			TLSConfig: goproxy.TLSConfigFromCA(&ca),
		}
		connect = goproxy.FuncHttpsHandler(func(host string, ctx *goproxy.ProxyCtx) (*goproxy.ConnectAction, string) {
			return action, host
		})
	}

	games := goproxy.ReqHostMatches(hostPattern)
	proxy.OnRequest(games).HandleConnect(connect)
	proxy.OnResponse(games).DoFunc(i.HandleResponse)
	return proxy, nil
}

// HandleResponse offers the body of a matching response to the relay and
// always returns resp with an unread body for the client.
func (i *Interceptor) HandleResponse(resp *http.Response, ctx *goproxy.ProxyCtx) *http.Response {
	if resp == nil || resp.Body == nil || ctx == nil || ctx.Req == nil {
		return resp
	}
	url := ctx.Req.URL.String()
	i.logger.Debug("game response", "url", url, "status", resp.StatusCode)
	if !Matches(url) {
		return resp
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		i.logger.Warn("failed to read captured response", "url", url, "err", err)
		return resp
	}

	data, err := decodeBody(resp.Header.Get("Content-Encoding"), body)
	if err != nil {
		i.logger.Warn("failed to decompress captured response", "url", url, "err", err)
		return resp
	}
	if len(data) == 0 {
		return resp
	}

	pkt := relay.Packet{URL: url, Data: data, CapturedAt: i.now()}
	if i.sink.Offer(pkt) {
		i.logger.Info("captured response", "url", url, "bytes", len(data))
	}
	return resp
}

func decodeBody(encoding string, body []byte) ([]byte, error) {
	if !strings.EqualFold(strings.TrimSpace(encoding), "gzip") {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
