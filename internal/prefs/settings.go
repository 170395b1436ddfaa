package prefs

import (
	"encoding/json"
	"fmt"
	"slices"
)

type CardSize string

const (
	CardSmall  CardSize = "small"
	CardMedium CardSize = "medium"
	CardLarge  CardSize = "large"
)

var CardSizes = []CardSize{CardSmall, CardMedium, CardLarge}

func (c CardSize) Valid() bool { return slices.Contains(CardSizes, c) }

// ItemsPerPageChoices are the allowed page sizes.
var ItemsPerPageChoices = []int{6, 12, 24, 48, 96}

// Settings are the viewer's display options.
type Settings struct {
	ItemsPerPage int      `json:"itemsPerPage"`
	CardSize     CardSize `json:"cardSize"`
	ShowPreview  bool     `json:"showPreview"`
	AutoSave     bool     `json:"autoSave"`
	CompactMode  bool     `json:"compactMode"`
}

func DefaultSettings() Settings {
	return Settings{
		ItemsPerPage: 12,
		CardSize:     CardMedium,
		ShowPreview:  true,
		AutoSave:     true,
		CompactMode:  false,
	}
}

func (s Settings) Validate() error {
	if !slices.Contains(ItemsPerPageChoices, s.ItemsPerPage) {
		return fmt.Errorf("itemsPerPage must be one of %v", ItemsPerPageChoices)
	}
	if !s.CardSize.Valid() {
		return fmt.Errorf("cardSize must be one of %v", CardSizes)
	}
	return nil
}

// decodeSettings overlays every valid field of raw onto the defaults.
// Fields that are missing or invalid keep their default value.
func decodeSettings(raw json.RawMessage) Settings {
	out := DefaultSettings()
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out
	}

	if v, ok := fields["itemsPerPage"]; ok {
		var n int
		if json.Unmarshal(v, &n) == nil && slices.Contains(ItemsPerPageChoices, n) {
			out.ItemsPerPage = n
		}
	}
	if v, ok := fields["cardSize"]; ok {
		var c CardSize
		if json.Unmarshal(v, &c) == nil && c.Valid() {
			out.CardSize = c
		}
	}
	boolField := func(name string, dst *bool) {
		v, ok := fields[name]
		if !ok {
			return
		}
		var b bool
		if json.Unmarshal(v, &b) == nil {
			*dst = b
		}
	}
	boolField("showPreview", &out.ShowPreview)
	boolField("autoSave", &out.AutoSave)
	boolField("compactMode", &out.CompactMode)
	return out
}

func (s *Store) Settings() Settings {
	raw, ok := s.Get(SettingsKey)
	if !ok {
		return DefaultSettings()
	}
	return decodeSettings(raw)
}

func (s *Store) SetSettings(v Settings) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return s.Set(SettingsKey, v)
}

// UpdateSettings applies fn to the stored settings. The result is persisted
// only while AutoSave is on (before or after fn runs, so that switching
// AutoSave off is itself saved); the updated value is returned either way.
func (s *Store) UpdateSettings(fn func(*Settings)) (Settings, error) {
	cur := s.Settings()
	next := cur
	fn(&next)
	if err := next.Validate(); err != nil {
		return cur, err
	}
	if cur.AutoSave || next.AutoSave {
		if err := s.Set(SettingsKey, next); err != nil {
			return next, err
		}
	}
	return next, nil
}

// ResetSettings removes stored settings so defaults apply again.
func (s *Store) ResetSettings() error {
	return s.Delete(SettingsKey)
}
