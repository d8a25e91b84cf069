package interceptor

import (
	"bytes"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/elazarl/goproxy"
	"github.com/klauspost/compress/gzip"

	"github.com/gravitas-games/sekaiscout/internal/relay"
)

const (
	syncURL     = "https://production-game-api.sekai.colorfulpalette.org/api/user/123456/mysekai?isForceAllReloadOnlyMysekai=True"
	deliveryURL = "https://production-game-api.sekai.colorfulpalette.org/api/user/123456/mysekai/delivery/2/finish"
)

type recordingSink struct {
	packets []relay.Packet
	accept  bool
}

func (s *recordingSink) Offer(p relay.Packet) bool {
	s.packets = append(s.packets, p)
	return s.accept
}

func TestMatches(t *testing.T) {
	cases := map[string]bool{
		syncURL: true,
		"https://production-game-api.sekai.colorfulpalette.org/api/user/1/mysekai?isForceAllReloadOnlyMysekai=False": true,
		deliveryURL: true,
		"https://production-game-api.sekai.colorfulpalette.org/api/user/123456/mysekai":                                   false,
		"https://production-game-api.sekai.colorfulpalette.org/api/user/123456/home":                                      false,
		"http://production-game-api.sekai.colorfulpalette.org/api/user/1/mysekai?isForceAllReloadOnlyMysekai=True":         false,
		"https://example.com/api/user/1/mysekai?isForceAllReloadOnlyMysekai=True":                                         false,
	}
	for url, want := range cases {
		if got := Matches(url); got != want {
			t.Errorf("Matches(%q) = %v, want %v", url, got, want)
		}
	}
}

func newResponse(t *testing.T, url string, body []byte, encoding string) (*http.Response, *goproxy.ProxyCtx) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader(body)),
		Request:    req,
	}
	if encoding != "" {
		resp.Header.Set("Content-Encoding", encoding)
	}
	return resp, &goproxy.ProxyCtx{Req: req}
}

func newInterceptor(sink Offerer) *Interceptor {
	i := New(sink, log.New(io.Discard))
	i.now = func() time.Time { return time.Unix(1700000000, 0) }
	return i
}

func TestHandleResponseCapturesAndRestoresBody(t *testing.T) {
	sink := &recordingSink{accept: true}
	resp, ctx := newResponse(t, syncURL, []byte("encrypted"), "")

	out := newInterceptor(sink).HandleResponse(resp, ctx)

	if len(sink.packets) != 1 {
		t.Fatalf("expected one packet, got %d", len(sink.packets))
	}
	p := sink.packets[0]
	if p.URL != syncURL || string(p.Data) != "encrypted" || p.CapturedAt.Unix() != 1700000000 {
		t.Fatalf("unexpected packet: %+v", p)
	}
	body, _ := io.ReadAll(out.Body)
	if string(body) != "encrypted" {
		t.Fatalf("client body not restored, got %q", body)
	}
}

func TestHandleResponseDecompressesGzip(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("payload"))
	zw.Close()
	compressed := buf.Bytes()

	sink := &recordingSink{accept: true}
	resp, ctx := newResponse(t, deliveryURL, compressed, "gzip")
	out := newInterceptor(sink).HandleResponse(resp, ctx)

	if len(sink.packets) != 1 || string(sink.packets[0].Data) != "payload" {
		t.Fatalf("unexpected packets: %+v", sink.packets)
	}
	body, _ := io.ReadAll(out.Body)
	if !bytes.Equal(body, compressed) {
		t.Fatal("client must receive the original compressed body")
	}
}

func TestHandleResponseIgnoresOtherTraffic(t *testing.T) {
	sink := &recordingSink{accept: true}
	resp, ctx := newResponse(t, "https://production-game-api.sekai.colorfulpalette.org/api/system", []byte("x"), "")
	newInterceptor(sink).HandleResponse(resp, ctx)

	resp, ctx = newResponse(t, syncURL, nil, "")
	newInterceptor(sink).HandleResponse(resp, ctx)

	if len(sink.packets) != 0 {
		t.Fatalf("expected no packets, got %+v", sink.packets)
	}
}

func TestHandleResponseSurvivesRefusedOffer(t *testing.T) {
	sink := &recordingSink{accept: false}
	resp, ctx := newResponse(t, syncURL, []byte("data"), "")
	out := newInterceptor(sink).HandleResponse(resp, ctx)
	body, _ := io.ReadAll(out.Body)
	if string(body) != "data" {
		t.Fatalf("client body not restored, got %q", body)
	}
}

func TestProxyRejectsMissingCA(t *testing.T) {
	_, err := New(&recordingSink{}, log.New(io.Discard)).Proxy(Options{CACert: "/nonexistent/ca.pem", CAKey: "/nonexistent/ca.key"})
	if err == nil {
		t.Fatal("expected an error for unreadable CA files")
	}
}
