package worker

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// deliveryTimeout is the hard outbound call ceiling (spec.md §4.4 step 4).
	deliveryTimeout = 30 * time.Second
	maxRedirects    = 5
	userAgent       = "scheduler-service/1.0 (+delivery-worker)"
)

// newDeliveryClient returns an http.Client configured per spec.md's outbound
// contract: 30s timeout, max 5 redirects, and a cookie jar so a target that
// sets session cookies across a redirect chain behaves the way a browser
// client would (targets are operator-registered, not adversarial).
func newDeliveryClient() *http.Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &http.Client{
		Timeout: deliveryTimeout,
		Jar:     jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// outboundLimiter throttles total delivery throughput across all in-flight
// workers so a burst of due jobs targeting unrelated hosts can't saturate
// the process's outbound connections. Limit chosen generously relative to
// the 5-concurrent-delivery cap (§5): it is a safety valve, not a per-target
// rate contract.
var outboundLimiter = rate.NewLimiter(rate.Limit(50), 10)
