package mpd

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/danmuck/mpdctl/internal/protocol"
	"github.com/danmuck/mpdctl/internal/protocol/session"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// Picture is a cover image. MimeType comes from the server when it sent one
// and from content sniffing otherwise.
type Picture struct {
	Data     []byte
	MimeType string
}

// AlbumArt fetches the cover file stored next to uri.
func (c *Client) AlbumArt(ctx context.Context, uri string) (Picture, bool, error) {
	return c.readPicture(ctx, "albumart "+protocol.Quote(uri))
}

// ReadPicture fetches the picture embedded in uri's tags.
func (c *Client) ReadPicture(ctx context.Context, uri string) (Picture, bool, error) {
	return c.readPicture(ctx, "readpicture "+protocol.Quote(uri))
}

// FindAlbumArt prefers an embedded picture and falls back to the directory
// cover. ok=false means neither exists.
func (c *Client) FindAlbumArt(ctx context.Context, uri string) (Picture, bool, error) {
	pic, ok, err := c.ReadPicture(ctx, uri)
	if err != nil && !isServerFailure(err) {
		return Picture{}, false, err
	}
	if ok {
		return pic, true, nil
	}
	if err != nil {
		log.Debug().Err(err).Str("uri", uri).Msg("mpd.Client readpicture failed, trying albumart")
	}

	pic, ok, err = c.AlbumArt(ctx, uri)
	var failure *protocol.FailureResponse
	if errors.As(err, &failure) && failure.Code == protocol.ErrorNoExist {
		return Picture{}, false, nil
	}
	return pic, ok, err
}

func (c *Client) readPicture(ctx context.Context, command string) (pic Picture, ok bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.observe(command, time.Now(), &err)
	tx, err := c.engine.ExecuteBinary(ctx, command)
	if err != nil {
		return Picture{}, false, err
	}
	payload, ok, err := tx.ReadBinary()
	if err != nil || !ok {
		return Picture{}, false, err
	}
	observability.RecordBinaryBytes(len(payload.Data))
	return newPicture(payload), true, nil
}

func newPicture(p session.BinaryPayload) Picture {
	mime := p.MimeType
	if mime == "" {
		mime = mimetype.Detect(p.Data).String()
	}
	return Picture{Data: p.Data, MimeType: mime}
}

func isServerFailure(err error) bool {
	var failure *protocol.FailureResponse
	return errors.As(err, &failure)
}
