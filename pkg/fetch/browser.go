package fetch

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// Browser renders pages in headless Chrome before returning their markup, for
// listings that only fill in their product grid client-side.
type Browser struct {
	timeout time.Duration
	log     *slog.Logger
}

func NewBrowser(timeout time.Duration, log *slog.Logger) *Browser {
	return &Browser{timeout: timeout, log: log}
}

func (b *Browser) Fetch(ctx context.Context, pageURL string) string {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(RandomUserAgent()),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, b.timeout)
	defer cancelRun()

	headers := network.Headers{}
	for k, v := range BaseHeaders() {
		headers[k] = v
	}

	var html string
	start := time.Now()
	err := chromedp.Run(runCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady(`body`, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	)
	if err != nil {
		b.log.Error("browser fetch failed", "url", pageURL, "err", err, "duration", time.Since(start))
		return ""
	}

	b.log.Debug("rendered page", "url", pageURL, "bytes", len(html), "duration", time.Since(start))
	return html
}
