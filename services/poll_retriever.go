package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fenilmodi00/flight-deals-backend/shared"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

const maxResponseBytes = 16 << 20

// RetrievalState names the steps of one retrieval
type RetrievalState string

const (
	StateInit              RetrievalState = "init"
	StateRequestingInitial RetrievalState = "requesting_initial"
	StateExtractingSession RetrievalState = "extracting_session"
	StatePolling           RetrievalState = "polling"
	StateFinished          RetrievalState = "finished"
	StateRetryExhausted    RetrievalState = "retry_exhausted"
)

// RetrievalResult is what a finished retrieval hands to the parser
type RetrievalResult struct {
	Payload PollPayload
	// Retries counts the unfinished poll responses seen before the final one
	Retries int
	Cookies string
	Session SessionFields
}

// PollRetriever drives a provider from the bootstrap page to a finished poll
type PollRetriever struct {
	client       *http.Client
	limiter      *shared.HTTPRequestRateLimiter
	pollInterval time.Duration
	maxRetries   int
	sleep        func(ctx context.Context, d time.Duration) error
	now          func() time.Time
}

// RetrieverOption customizes a PollRetriever
type RetrieverOption func(*PollRetriever)

// WithSleep replaces the wait between polls
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetrieverOption {
	return func(r *PollRetriever) { r.sleep = sleep }
}

// WithClock replaces the clock used for the session nonce
func WithClock(now func() time.Time) RetrieverOption {
	return func(r *PollRetriever) { r.now = now }
}

// WithRateLimiter spaces out every provider request through limiter
func WithRateLimiter(limiter *shared.HTTPRequestRateLimiter) RetrieverOption {
	return func(r *PollRetriever) { r.limiter = limiter }
}

// NewPollRetriever creates a retriever using the poll interval and budget from cfg
func NewPollRetriever(client *http.Client, cfg shared.ProviderConfig, opts ...RetrieverOption) *PollRetriever {
	cfg.ApplyDefaults()
	r := &PollRetriever{
		client:       client,
		limiter:      shared.NewHTTPRequestRateLimiter(cfg.RequestRateLimit),
		pollInterval: cfg.PollInterval,
		maxRetries:   cfg.MaxPollRetries,
		sleep:        shared.SleepContext,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve loads the search page, extracts the session and polls until the
// provider reports finished. Transport failures are never retried.
func (r *PollRetriever) Retrieve(ctx context.Context, provider Provider, searchURL, pollURL string) (*RetrievalResult, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "PollRetriever",
		"method":    "Retrieve",
		"provider":  provider.Name,
	})
	transition := func(state RetrievalState, fields logrus.Fields) {
		logger.WithFields(fields).WithField("state", state).Debug("Retrieval state changed")
	}

	transition(StateInit, logrus.Fields{"search_url": searchURL})

	transition(StateRequestingInitial, nil)
	conn := r.newProviderConn(ctx, searchURL)
	html, cookies, err := r.fetchBootstrap(ctx, conn, searchURL)
	if err != nil {
		return nil, err
	}

	transition(StateExtractingSession, logrus.Fields{"has_cookies": cookies != ""})
	session, err := ExtractSessionFields(html, provider.SessionFields, r.now())
	if err != nil {
		return nil, err
	}

	transition(StatePolling, logrus.Fields{"poll_url": pollURL, "max_retries": r.maxRetries})
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		body, setCookies, err := r.postPoll(ctx, conn, pollURL, session, cookies, attempt)
		if err != nil {
			return nil, err
		}
		cookies = shared.MergeCookies(cookies, setCookies)

		payload, err := ParsePollPayload(body, provider.AlwaysFinished)
		if err != nil {
			return nil, err
		}

		if payload.Finished {
			transition(StateFinished, logrus.Fields{"attempt": attempt, "progress": payload.Progress})
			return &RetrievalResult{
				Payload: payload,
				Retries: attempt - 1,
				Cookies: cookies,
				Session: session,
			}, nil
		}

		logger.WithFields(logrus.Fields{
			"attempt":  attempt,
			"progress": payload.Progress,
		}).Debug("Results not ready yet")

		if attempt < r.maxRetries {
			if err := r.sleep(ctx, r.pollInterval); err != nil {
				return nil, fmt.Errorf("waiting between polls: %w", err)
			}
		}
	}

	transition(StateRetryExhausted, logrus.Fields{"max_retries": r.maxRetries})
	return nil, &shared.RetryBudgetExhaustedError{URL: pollURL, MaxRetries: r.maxRetries}
}

const bootstrapAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// providerConn is the collector for one retrieval. Cookies are carried by
// hand so the merged header is exactly what the provider sees.
type providerConn struct {
	collector *colly.Collector
	referer   string
	cookies   string
	response  *colly.Response
}

func (r *PollRetriever) newProviderConn(ctx context.Context, referer string) *providerConn {
	conn := &providerConn{referer: referer}

	c := colly.NewCollector(colly.AllowURLRevisit())
	c.DisableCookies()
	c.ParseHTTPErrorResponse = true
	c.MaxBodySize = maxResponseBytes
	c.WithTransport(&contextTransport{ctx: ctx, base: transportOf(r.client)})
	c.SetRequestTimeout(r.client.Timeout)

	c.OnRequest(func(req *colly.Request) {
		if req.Method == http.MethodPost {
			shared.SetXHRHeaders(*req.Headers, originOf(req.URL.String()), conn.referer, conn.cookies)
			return
		}
		shared.SetBrowserLikeHeaders(*req.Headers, bootstrapAccept)
	})
	c.OnResponse(func(resp *colly.Response) {
		conn.response = resp
	})

	conn.collector = c
	return conn
}

func (r *PollRetriever) fetchBootstrap(ctx context.Context, conn *providerConn, searchURL string) (string, string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", "", &shared.TransportError{URL: searchURL, Attempt: 0, Cause: err}
	}

	body, header, err := conn.send(searchURL, 0, func() error {
		return conn.collector.Visit(searchURL)
	})
	if err != nil {
		return "", "", err
	}
	return body, shared.ExtractSetCookies(header), nil
}

func (r *PollRetriever) postPoll(ctx context.Context, conn *providerConn, pollURL string, session SessionFields, cookies string, attempt int) (string, string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", "", &shared.TransportError{URL: pollURL, Attempt: attempt, Cause: err}
	}

	conn.cookies = cookies
	body, header, err := conn.send(pollURL, attempt, func() error {
		return conn.collector.PostRaw(pollURL, []byte(session.Encode()))
	})
	if err != nil {
		return "", "", err
	}
	return body, shared.ExtractSetCookies(header), nil
}

func (conn *providerConn) send(target string, attempt int, request func() error) (string, http.Header, error) {
	conn.response = nil
	if err := request(); err != nil {
		return "", nil, &shared.TransportError{URL: target, Attempt: attempt, Cause: err}
	}

	resp := conn.response
	if resp == nil {
		return "", nil, &shared.TransportError{URL: target, Attempt: attempt, Cause: errors.New("no response received")}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, &shared.TransportError{
			URL:        target,
			Attempt:    attempt,
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("unexpected status %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
		}
	}

	var header http.Header
	if resp.Headers != nil {
		header = *resp.Headers
	}
	return string(resp.Body), header, nil
}

// contextTransport ties every collector request to the retrieval's context
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func transportOf(client *http.Client) http.RoundTripper {
	if client.Transport != nil {
		return client.Transport
	}
	return http.DefaultTransport
}

func originOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
