package catalog

import (
	"fmt"
	"net/http"
	"time"

	"github.com/klingon-exchange/tradeledger/pkg/logging"
)

// HTTPNotifier posts an invalidation to the front-end's /invalidate/<name>
// route. Invalidate is fire-and-forget: it returns immediately and the
// actual POST happens on its own goroutine with a bounded timeout, because
// spec.md §4.1 requires the catalog not depend on the front-end's
// liveness or speed.
type HTTPNotifier struct {
	baseURL string
	client  *http.Client
	log     *logging.Logger
}

// NewHTTPNotifier builds a notifier that posts to frontEndBaseURL (e.g.
// "http://127.0.0.1:8000").
func NewHTTPNotifier(frontEndBaseURL string) *HTTPNotifier {
	return &HTTPNotifier{
		baseURL: frontEndBaseURL,
		client:  &http.Client{Timeout: 2 * time.Second},
		log:     logging.GetDefault().Component("catalog-notifier"),
	}
}

func (n *HTTPNotifier) Invalidate(name string) {
	go func() {
		url := fmt.Sprintf("%s/invalidate/%s", n.baseURL, name)
		resp, err := n.client.Post(url, "application/json", nil)
		if err != nil {
			// Swallowed: the cache is an accelerator, not a source of
			// truth (spec.md §4.1).
			n.log.Debug("invalidation delivery failed", "name", name, "error", err)
			return
		}
		resp.Body.Close()
	}()
}
