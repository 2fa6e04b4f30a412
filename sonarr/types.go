package sonarr

import (
	"fmt"

	"golift.io/starr/sonarr"
)

// Episode is a wanted episode as seen by one scan. It is rebuilt every cycle.
type Episode struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"series_id"`
	SeriesTitle   string `json:"series_title"`
	Title         string `json:"title"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
	Monitored     bool   `json:"monitored"`
	HasFile       bool   `json:"has_file"`
}

// Missing reports whether Sonarr monitors the episode but has no file for it
func (e Episode) Missing() bool {
	return e.Monitored && !e.HasFile
}

// Label formats the episode the way it appears in the activity log
func (e Episode) Label() string {
	return fmt.Sprintf("%s - S%02dE%02d - %s", e.SeriesTitle, e.SeasonNumber, e.EpisodeNumber, e.Title)
}

// newEpisode converts a Sonarr episode. series may be nil.
func newEpisode(series *sonarr.Series, ep *sonarr.Episode) Episode {
	e := Episode{
		ID:            int64(ep.ID),
		SeriesID:      int64(ep.SeriesID),
		Title:         ep.Title,
		SeasonNumber:  int(ep.SeasonNumber),
		EpisodeNumber: int(ep.EpisodeNumber),
		Monitored:     ep.Monitored,
		HasFile:       ep.HasFile,
	}
	if series != nil {
		e.SeriesTitle = series.Title
	}
	return e
}

// MissingPage is one page of the wanted/missing listing
type MissingPage struct {
	Page         int             `json:"page"`
	PageSize     int             `json:"pageSize"`
	TotalRecords int             `json:"totalRecords"`
	Records      []MissingRecord `json:"records"`
}

// MissingRecord is an episode entry of the wanted/missing listing, with the
// series embedded because the request asks for includeSeries=true.
type MissingRecord struct {
	ID            int64          `json:"id"`
	SeriesID      int64          `json:"seriesId"`
	Title         string         `json:"title"`
	SeasonNumber  int            `json:"seasonNumber"`
	EpisodeNumber int            `json:"episodeNumber"`
	Monitored     bool           `json:"monitored"`
	HasFile       bool           `json:"hasFile"`
	Series        *sonarr.Series `json:"series"`
}

// Episode converts the record
func (r MissingRecord) Episode() Episode {
	e := Episode{
		ID:            r.ID,
		SeriesID:      r.SeriesID,
		Title:         r.Title,
		SeasonNumber:  r.SeasonNumber,
		EpisodeNumber: r.EpisodeNumber,
		Monitored:     r.Monitored,
		HasFile:       r.HasFile,
	}
	if r.Series != nil {
		e.SeriesTitle = r.Series.Title
	}
	return e
}

// DispatchResult counts the outcome of one Dispatch call
type DispatchResult struct {
	Sent   int
	Failed int
}
