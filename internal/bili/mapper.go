package bili

import (
	"time"

	"github.com/ajisaka/favtune/internal/domain"
)

// mapFolders converts the folder list payload, assigning SortOrder from
// response order. CachedAt is left zero; the caching policy stamps it.
func mapFolders(dtos []folderDTO) []domain.FavFolder {
	folders := make([]domain.FavFolder, 0, len(dtos))
	for i, d := range dtos {
		folders = append(folders, domain.FavFolder{
			ID:         d.ID,
			FID:        d.FID,
			Mid:        d.Mid,
			Title:      d.Title,
			Cover:      d.Cover,
			MediaCount: d.MediaCount,
			Attr:       d.Attr,
			CTime:      d.CTime,
			MTime:      d.MTime,
			SortOrder:  i,
		})
	}
	return folders
}

// mapMedias converts one page of folder contents. Position is left zero;
// the caching policy assigns page-relative positions.
func mapMedias(folderID int64, dtos []mediaDTO) []domain.FavMediaItem {
	items := make([]domain.FavMediaItem, 0, len(dtos))
	for _, d := range dtos {
		item := domain.FavMediaItem{
			FolderID: folderID,
			AVID:     d.ID,
			BVID:     d.BVID,
			Type:     d.Type,
			Title:    d.Title,
			Cover:    d.Cover,
			Intro:    d.Intro,
			Duration: time.Duration(d.Duration) * time.Second,
			CTime:    d.CTime,
			PubTime:  d.PubTime,
		}
		if d.FavTime != 0 {
			item.CTime = d.FavTime
		}
		if d.Upper != nil {
			item.UpMid = d.Upper.Mid
			item.UpName = d.Upper.Name
			item.UpFace = d.Upper.Face
		}
		items = append(items, item)
	}
	return items
}

// bestAudio picks the highest-bandwidth audio stream, preferring lossless
// when the server offers it.
func bestAudio(data *playURLData) (dashAudio, bool) {
	if data.Dash == nil {
		return dashAudio{}, false
	}
	if data.Dash.Flac != nil && data.Dash.Flac.Audio != nil && data.Dash.Flac.Audio.url() != "" {
		return *data.Dash.Flac.Audio, true
	}
	var best dashAudio
	found := false
	for _, a := range data.Dash.Audio {
		if a.url() == "" {
			continue
		}
		if !found || a.Bandwidth > best.Bandwidth {
			best = a
			found = true
		}
	}
	return best, found
}
