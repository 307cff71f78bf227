package pipeline

import (
	"context"

	"pixivdl/internal/artwork"
	"pixivdl/internal/provider"
)

// MetadataProvider resolves work ids and series pages.
type MetadataProvider interface {
	Fetch(ctx context.Context, req provider.FetchRequest) (*artwork.Work, error)
	FetchSeries(ctx context.Context, seriesID string, page int) (*artwork.Series, error)
}

// Store is the persistence surface the pipeline writes through.
type Store interface {
	ImageSaveName(ctx context.Context, imageID string) (string, bool, error)
	FileExists(name string) bool
	InsertImage(ctx context.Context, memberID int64, imageID string, mode artwork.Mode, caption string) error
	UpdateImage(ctx context.Context, imageID, title, filename string, mode artwork.Mode) error
	InsertMangaImages(ctx context.Context, files []artwork.MangaFile) error
	InsertTag(ctx context.Context, tagID string) error
	InsertImageToTag(ctx context.Context, imageID, tagID string) error
	InsertTagTranslation(ctx context.Context, tagID, translationType, translation string) error
	InsertNewMember(ctx context.Context, memberID int64, token string) error
	UpdateMemberName(ctx context.Context, memberID int64, name, token string) error
}

// Encoder converts a downloaded ugoira bundle into the configured codecs.
// work may be nil for self-describing ".ugoira" bundles.
type Encoder interface {
	Encode(ctx context.Context, work *artwork.Work, bundlePath string) error
}

// Request describes one work to process.
type Request struct {
	WorkID string
	// UserDir overrides root_directory as the target directory.
	UserDir       string
	FromBookmark  bool
	SearchTags    string
	Parent        *artwork.Artist
	BookmarkCount int
	// MinBookmarks rejects works with fewer bookmarks; negative disables.
	MinBookmarks int
	SeriesOrder  int
	SeriesParent *artwork.Series
	Unlisted     bool
	UseBlacklist bool
	// ExtensionFilter overrides the configured filter when non-nil.
	ExtensionFilter *string
	// Reencoding bypasses the already-downloaded short-circuit.
	Reencoding bool
	// TitlePrefix is prepended to the progress label.
	TitlePrefix string
}

// NewRequest returns a request with blacklists enabled and the bookmark and
// series settings unset.
func NewRequest(workID string) Request {
	return Request{
		WorkID:        workID,
		UseBlacklist:  true,
		BookmarkCount: -1,
		MinBookmarks:  -1,
		SeriesOrder:   -1,
	}
}

func (r Request) fetchRequest() provider.FetchRequest {
	return provider.FetchRequest{
		WorkID:        r.WorkID,
		Parent:        r.Parent,
		FromBookmark:  r.FromBookmark,
		BookmarkCount: r.BookmarkCount,
		SeriesOrder:   r.SeriesOrder,
		SeriesParent:  r.SeriesParent,
		Unlisted:      r.Unlisted,
	}
}
