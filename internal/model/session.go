package model

// Session describes the identity a client is operating as.
// IsMock sessions live in local storage only and are never synced remotely.
type Session struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	IsMock      bool   `json:"is_mock"`
}

func (s Session) Empty() bool {
	return s.UID == ""
}

// Same reports whether both sessions address the same data partition.
func (s Session) Same(other Session) bool {
	return s.UID == other.UID && s.IsMock == other.IsMock
}

type Profile struct {
	DisplayName     string     `json:"display_name,omitempty"`
	PhotoURL        string     `json:"photo_url,omitempty"`
	NativeLanguage  Language   `json:"native_language,omitempty"`
	TargetLanguages []Language `json:"target_languages,omitempty"`
	DailyGoal       int        `json:"daily_goal,omitempty"`
	UpdatedAt       int64      `json:"updated_at,omitempty"`
}

// MergeProfile applies the non-zero fields of patch over base.
func MergeProfile(base, patch Profile) Profile {
	out := base
	if patch.DisplayName != "" {
		out.DisplayName = patch.DisplayName
	}
	if patch.PhotoURL != "" {
		out.PhotoURL = patch.PhotoURL
	}
	if patch.NativeLanguage != "" {
		out.NativeLanguage = patch.NativeLanguage
	}
	if patch.TargetLanguages != nil {
		out.TargetLanguages = append([]Language(nil), patch.TargetLanguages...)
	}
	if patch.DailyGoal != 0 {
		out.DailyGoal = patch.DailyGoal
	}
	if patch.UpdatedAt != 0 {
		out.UpdatedAt = patch.UpdatedAt
	}
	return out
}

// Muse is a daily writing prompt card.
type Muse struct {
	Title    string   `json:"title"`
	Prompt   string   `json:"prompt"`
	Hint     string   `json:"hint,omitempty"`
	Language Language `json:"language"`
}
