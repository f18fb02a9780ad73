package session

import "fmt"

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"

	DefaultTheme = ThemeLight
)

func (t Theme) IsValid() bool {
	return t == ThemeLight || t == ThemeDark
}

// LoadTheme returns the stored theme, or the default when none or an unknown
// value is stored.
func LoadTheme(store TokenStore) Theme {
	v, err := store.Get(KeyTheme)
	if err != nil {
		return DefaultTheme
	}
	if t := Theme(v); t.IsValid() {
		return t
	}
	return DefaultTheme
}

func SaveTheme(store TokenStore, t Theme) error {
	if !t.IsValid() {
		return &InvalidThemeError{Value: string(t)}
	}
	return store.Set(map[string]string{KeyTheme: string(t)})
}

// ToggleTheme flips between light and dark and stores the result.
func ToggleTheme(store TokenStore) (Theme, error) {
	next := ThemeDark
	if LoadTheme(store) == ThemeDark {
		next = ThemeLight
	}
	return next, SaveTheme(store, next)
}

type InvalidThemeError struct {
	Value string
}

func (e *InvalidThemeError) Error() string {
	return fmt.Sprintf("unknown theme %q, expected light or dark", e.Value)
}
