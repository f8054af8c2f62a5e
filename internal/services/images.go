package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Zahur13/ConnectSphere/internal/media"
)

// offloadImage moves an inline data-URI into the media store and returns
// its URL. Non-data-URI values, a nil store, or a failed upload leave the
// value unchanged; storage of the owning entity must not fail because an
// image could not be offloaded.
func offloadImage(ctx context.Context, store media.Store, value string) string {
	if store == nil || value == "" || !media.IsDataURI(value) {
		return value
	}

	contentType, data, err := media.DecodeDataURI(value)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to decode image data-URI, keeping inline")
		return value
	}

	url, err := store.Put(ctx, uuid.New().String(), contentType, data)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to offload image, keeping inline")
		return value
	}
	return url
}
