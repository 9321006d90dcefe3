package model

// Preferences holds the per-user display settings.
type Preferences struct {
	UserID     string `json:"userId"`
	ColorTheme string `json:"colorTheme"`
	FontTheme  string `json:"fontTheme"`
}

const (
	DefaultColorTheme = "blue"
	DefaultFontTheme  = "inter"
)

// DefaultPreferences is what a user sees before saving anything.
func DefaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:     userID,
		ColorTheme: DefaultColorTheme,
		FontTheme:  DefaultFontTheme,
	}
}
