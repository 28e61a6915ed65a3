package fetcher

import (
	"context"
	"io"

	"github.com/mmcdole/gofeed"
)

// Decoder разбирает тело ответа в нативную структуру ленты.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*gofeed.Feed, error)
}

// GofeedDecoder понимает RSS, Atom и JSON Feed.
type GofeedDecoder struct{}

// gofeed.Parser хранит состояние разбора, поэтому на каждый документ создаётся новый.
func (GofeedDecoder) Decode(ctx context.Context, r io.Reader) (*gofeed.Feed, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return gofeed.NewParser().Parse(r)
}
