package models

import (
	"encoding/json"
	"fmt"
)

// Master data categories requested by the console.
const (
	CategoryGenders           = "genders"
	CategoryAreas             = "areas"
	CategoryBuildings         = "buildings"
	CategoryReligiousStudies  = "religiousStudies"
	CategoryNotificationTypes = "notificationTypes"
	CategoryNativePlaces      = "nativePlaces"
	CategoryDikshas           = "dikshas"
)

// nameFields lists, in lookup order, the per-category display name keys.
var nameFields = []string{
	"GenderName",
	"AreaName",
	"BuildingName",
	"StudyName",
	"TypeName",
	"PlaceName",
	"DikshaName",
	"Name",
}

// Entity is one reference-list row. Only RecCode and the display name are
// typed; everything else the backend sends is kept in Attrs.
type Entity struct {
	RecCode string
	Name    string
	Attrs   map[string]any
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	attrs := make(map[string]any, len(raw))
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("master data attribute %s: %w", k, err)
		}
		attrs[k] = val
	}

	e.RecCode = rawCode(raw["RecCode"])
	e.Name = ""
	for _, key := range nameFields {
		if s, ok := attrs[key].(string); ok && s != "" {
			e.Name = s
			break
		}
	}
	e.Attrs = attrs
	return nil
}

func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attrs)+1)
	for k, v := range e.Attrs {
		out[k] = v
	}
	out["RecCode"] = e.RecCode
	if e.Name != "" && !hasNameField(out) {
		out["Name"] = e.Name
	}
	return json.Marshal(out)
}

func hasNameField(attrs map[string]any) bool {
	for _, key := range nameFields {
		if _, ok := attrs[key]; ok {
			return true
		}
	}
	return false
}

// Attr returns a string attribute or "".
func (e Entity) Attr(key string) string {
	s, _ := e.Attrs[key].(string)
	return s
}

// Label renders the entity the way selection inputs show it: study levels
// as "Name - Level", buildings with their area in parentheses.
func (e Entity) Label() string {
	if level := e.Attr("StudyLevel"); level != "" {
		return fmt.Sprintf("%s - %s", e.Name, level)
	}
	if e.Attr("BuildingName") != "" {
		if area, ok := e.Attrs["area"].(map[string]any); ok {
			if name, _ := area["AreaName"].(string); name != "" {
				return fmt.Sprintf("%s (%s)", e.Name, name)
			}
		}
	}
	if e.Name == "" {
		return e.RecCode
	}
	return e.Name
}
