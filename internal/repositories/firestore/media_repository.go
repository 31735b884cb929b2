package firestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	pfirestore "github.com/catalix/pim-api/internal/platform/firestore"
	"github.com/catalix/pim-api/internal/platform/media"
)

const mediaCollection = "media"

type mediaDocument struct {
	ID            int64             `firestore:"id"`
	Titles        map[string]string `firestore:"titles,omitempty"`
	ObjectPath    string            `firestore:"objectPath"`
	ThumbnailPath string            `firestore:"thumbnailPath,omitempty"`
	MimeType      string            `firestore:"mimeType,omitempty"`
	Width         int               `firestore:"width,omitempty"`
	Height        int               `firestore:"height,omitempty"`
}

// MediaRepository loads media records referenced by products.
type MediaRepository struct {
	base *pfirestore.BaseRepository[mediaDocument]
}

// NewMediaRepository constructs a Firestore-backed media repository.
func NewMediaRepository(provider *pfirestore.Provider) (*MediaRepository, error) {
	if provider == nil {
		return nil, errors.New("media repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[mediaDocument](provider, mediaCollection, nil, nil)
	return &MediaRepository{base: base}, nil
}

// Get fetches a single media record.
func (r *MediaRepository) Get(ctx context.Context, mediaID int64) (media.Object, error) {
	if r == nil || r.base == nil {
		return media.Object{}, errors.New("media repository not initialised")
	}
	if mediaID <= 0 {
		return media.Object{}, pfirestore.NotFoundError("media.get", fmt.Errorf("invalid media id %d", mediaID))
	}
	doc, err := r.base.Get(ctx, strconv.FormatInt(mediaID, 10))
	if err != nil {
		return media.Object{}, err
	}
	return media.Object{
		ID:            doc.Data.ID,
		Titles:        doc.Data.Titles,
		ObjectPath:    doc.Data.ObjectPath,
		ThumbnailPath: doc.Data.ThumbnailPath,
		MimeType:      doc.Data.MimeType,
		Width:         doc.Data.Width,
		Height:        doc.Data.Height,
	}, nil
}
