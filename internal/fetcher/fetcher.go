package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"feed_aggregator/internal/logger"
	"feed_aggregator/internal/models"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	defaultUserAgent     = "feed-aggregator/1.0"
	defaultMaxBodySize   = 10 << 20
)

// ErrBodyTooLarge — тело ответа больше MaxBodySize.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// Options задаёт бюджет и поведение загрузки одного источника.
type Options struct {
	// Timeout ограничивает всю загрузку источника, включая повторы.
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	UserAgent     string
	// MaxBodySize — предельный размер тела ответа в байтах.
	MaxBodySize   int64
	Client        *http.Client
	Decoder       Decoder
}

// Fetcher параллельно загружает ленты; ошибка одного источника не влияет на другие.
type Fetcher struct {
	client        *http.Client
	decoder       Decoder
	timeout       time.Duration
	maxRetries    int
	retryInterval time.Duration
	userAgent     string
	maxBodySize   int64
}

// New создаёт Fetcher, подставляя значения по умолчанию для незаданных опций.
func New(opts Options) *Fetcher {
	f := &Fetcher{
		client:        opts.Client,
		decoder:       opts.Decoder,
		timeout:       opts.Timeout,
		maxRetries:    opts.MaxRetries,
		retryInterval: opts.RetryInterval,
		userAgent:     opts.UserAgent,
		maxBodySize:   opts.MaxBodySize,
	}
	if f.client == nil {
		f.client = &http.Client{}
	}
	if f.decoder == nil {
		f.decoder = GofeedDecoder{}
	}
	if f.timeout <= 0 {
		f.timeout = defaultTimeout
	}
	if f.maxRetries < 0 {
		f.maxRetries = 0
	}
	if f.retryInterval <= 0 {
		f.retryInterval = defaultRetryInterval
	}
	if f.userAgent == "" {
		f.userAgent = defaultUserAgent
	}
	if f.maxBodySize <= 0 {
		f.maxBodySize = defaultMaxBodySize
	}
	return f
}

// FetchAll запускает по горутине на источник и возвращается, когда все завершились.
// results[i] всегда соответствует sources[i], порядок завершения значения не имеет.
func (f *Fetcher) FetchAll(ctx context.Context, sources []models.FeedSource) []models.RawFeedResult {
	results := make([]models.RawFeedResult, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src models.FeedSource) {
			defer wg.Done()
			results[i] = f.safeFetch(ctx, i, src)
		}(i, src)
	}
	wg.Wait()

	return results
}

func (f *Fetcher) safeFetch(ctx context.Context, index int, src models.FeedSource) (res models.RawFeedResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithField("url", src.URL).Errorf("Feed fetch panicked: %v", r)
			res = models.RawFeedResult{
				Source:    src,
				Index:     index,
				FetchedAt: time.Now(),
				Err:       &models.DecodeError{URL: src.URL, Err: fmt.Errorf("panic: %v", r)},
			}
		}
	}()
	return f.Fetch(ctx, index, src)
}

// Fetch загружает и декодирует один источник в пределах бюджета Timeout.
// Ошибка возвращается внутри RawFeedResult, никогда отдельно.
func (f *Fetcher) Fetch(ctx context.Context, index int, src models.FeedSource) models.RawFeedResult {
	start := time.Now()
	log := logger.Log.WithFields(logger.Fields{
		"url":          src.URL,
		"source_index": index,
	})
	result := models.RawFeedResult{Source: src, Index: index}

	fctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	body, err := f.download(fctx, src.URL, log)
	if err == nil {
		feed, derr := f.decoder.Decode(fctx, bytes.NewReader(body))
		switch {
		case derr == nil:
			result.FeedTitle = feed.Title
			for _, item := range feed.Items {
				if item != nil {
					result.Items = append(result.Items, item)
				}
			}
		case fctx.Err() != nil:
			err = contextError(fctx, src.URL)
		default:
			err = &models.DecodeError{URL: src.URL, Err: derr}
		}
	}

	result.FetchedAt = time.Now()
	duration := result.FetchedAt.Sub(start)
	fetchDuration.WithLabelValues(src.URL).Observe(duration.Seconds())

	if err != nil {
		result.Err = err
		result.Items = nil
		fetchTotal.WithLabelValues(src.URL, outcome(err)).Inc()
		log.WithField("duration", duration.String()).Warnf("Feed failed: %v", err)
		return result
	}

	fetchTotal.WithLabelValues(src.URL, outcomeOK).Inc()
	log.WithFields(logger.Fields{
		"items_count": len(result.Items),
		"duration":    duration.String(),
	}).Debug("Feed fetched")
	return result
}

// download выполняет GET с экспоненциальными повторами, пока не исчерпан контекст.
// 4xx (кроме 429) повторять бессмысленно.
func (f *Fetcher) download(ctx context.Context, url string, log *logger.Entry) ([]byte, error) {
	var body []byte
	attempt := 0

	operation := func() error {
		attempt++
		fetchAttempts.WithLabelValues(url).Inc()

		b, err := f.get(ctx, url)
		if err == nil {
			body = b
			return nil
		}

		log.WithField("attempt", attempt).Debugf("Fetch attempt failed: %v", err)
		var fe *models.FetchError
		if errors.As(err, &fe) && fe.StatusCode != 0 && !retryableStatus(fe.StatusCode) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.retryInterval
	b.MaxElapsedTime = 0 // ограничено контекстом

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, uint64(f.maxRetries)), ctx))
	if err == nil {
		return body, nil
	}
	if ctx.Err() != nil {
		return nil, contextError(ctx, url)
	}
	var fe *models.FetchError
	if errors.As(err, &fe) {
		return nil, fe
	}
	return nil, &models.FetchError{URL: url, Err: err}
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(&models.FetchError{URL: url, Err: err})
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &models.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &models.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	// Лишний байт отличает документ ровно на пределе от обрезанного.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize+1))
	if err != nil {
		return nil, &models.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > f.maxBodySize {
		return nil, backoff.Permanent(&models.FetchError{URL: url, Err: fmt.Errorf("%w: limit %d bytes", ErrBodyTooLarge, f.maxBodySize)})
	}
	return body, nil
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func contextError(ctx context.Context, url string) *models.FetchError {
	return &models.FetchError{
		URL:     url,
		Timeout: errors.Is(ctx.Err(), context.DeadlineExceeded),
		Err:     ctx.Err(),
	}
}

func outcome(err error) string {
	var fe *models.FetchError
	if errors.As(err, &fe) {
		switch {
		case fe.Timeout:
			return outcomeTimeout
		case errors.Is(fe.Err, context.Canceled):
			return outcomeCanceled
		}
		return outcomeFetchError
	}
	return outcomeDecodeError
}
