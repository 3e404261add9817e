package playout

import (
	"github.com/google/uuid"
	"github.com/lumen-tv/lumen/internal/models"
)

// AssetPlayout is the descriptor handed to the playout engine: the asset
// that should be airing now and, when configured, the preroll to play in
// front of it. The preroll never extends the scheduled slot; it is overlay
// metadata only.
type AssetPlayout struct {
	AssetID           uuid.UUID `json:"id"`
	Title             string    `json:"title"`
	HlsURL            string    `json:"hlsUrl"`
	PrerollURL        *string   `json:"prerollUrl,omitempty"`
	PrerollDurationMs *int64    `json:"prerollDurationMs,omitempty"`
}

// newAssetPlayout builds the playout descriptor from a VOD. Preroll fields
// are surfaced only when both the URL and duration are present.
func newAssetPlayout(vod *models.VOD) *AssetPlayout {
	p := &AssetPlayout{
		AssetID: vod.ID,
		Title:   vod.Title,
		HlsURL:  vod.HlsURL,
	}
	if vod.PrerollURL != nil && vod.PrerollDurationMs != nil {
		p.PrerollURL = vod.PrerollURL
		p.PrerollDurationMs = vod.PrerollDurationMs
	}
	return p
}
