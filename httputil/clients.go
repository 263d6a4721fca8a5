package httputil

import (
	"crypto/tls"
	"net/http"
	"time"
)

type Clients struct {
	Probe *http.Client // for city scope URL checks, no redirect following
}

func NewClients() *Clients {
	transport := &http.Transport{
		ForceAttemptHTTP2: false,
		TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
	}

	probe := &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &Clients{Probe: probe}
}
