package models

// OwnerSettings is the per-owner access policy. Nil pointers mean "not set".
type OwnerSettings struct {
	OwnerID         int64
	FSubChannel     *int64
	FilenameURL     *string
	ShortenerURL    *string
	ShortenerAPIKey *string
}

// Setting names accepted by the settings repository Update.
const (
	SettingFSubChannel     = "fsub_channel"
	SettingFilenameURL     = "filename_url"
	SettingShortenerURL    = "shortener_url"
	SettingShortenerAPIKey = "shortener_api_key"
)
