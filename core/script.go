package core

import (
	"encoding/json"
	"time"

	"github.com/jsccast/yaml"
)

// ScriptContent is the authored configuration of an experience.  The
// kernel only reads it.
type ScriptContent struct {
	Roles     []*Role     `json:"roles,omitempty" yaml:"roles,omitempty"`
	Scenes    []*Scene    `json:"scenes,omitempty" yaml:"scenes,omitempty"`
	Pages     []*Page     `json:"pages,omitempty" yaml:"pages,omitempty"`
	Triggers  []*Trigger  `json:"triggers,omitempty" yaml:"triggers,omitempty"`
	Waypoints []*Waypoint `json:"waypoints,omitempty" yaml:"waypoints,omitempty"`
	Geofences []*Geofence `json:"geofences,omitempty" yaml:"geofences,omitempty"`
	Times     []*Time     `json:"times,omitempty" yaml:"times,omitempty"`
	Messages  []*Message  `json:"messages,omitempty" yaml:"messages,omitempty"`
	Clips     []*Clip     `json:"clips,omitempty" yaml:"clips,omitempty"`
	Audio     []*Audio    `json:"audio,omitempty" yaml:"audio,omitempty"`
	Cues      []*Cue      `json:"cues,omitempty" yaml:"cues,omitempty"`
	Inboxes   []*Inbox    `json:"inboxes,omitempty" yaml:"inboxes,omitempty"`
}

type Role struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`

	// Type is "traveler" for roles played by participants.
	Type      string `json:"type,omitempty"`
	Actor     bool   `json:"actor,omitempty"`
	Interface string `json:"interface,omitempty"`
}

type Scene struct {
	Name     string `json:"name"`
	Title    string `json:"title,omitempty"`
	Global   bool   `json:"global,omitempty"`
	ActiveIf Cond   `json:"active_if,omitempty"`
}

type Page struct {
	Name      string `json:"name"`
	Title     string `json:"title,omitempty"`
	Scene     string `json:"scene,omitempty"`
	Interface string `json:"interface,omitempty"`
	Directive string `json:"directive,omitempty"`
}

type Waypoint struct {
	Name    string            `json:"name"`
	Title   string            `json:"title,omitempty"`
	Options []*WaypointOption `json:"options,omitempty"`
}

// WaypointOption is one selectable variant of a Waypoint.  Coords is
// [latitude, longitude].
type WaypointOption struct {
	Name    string                 `json:"name"`
	Title   string                 `json:"title,omitempty"`
	Address string                 `json:"address,omitempty"`
	Coords  []float64              `json:"coords,omitempty"`
	Values  map[string]interface{} `json:"values,omitempty"`
}

// Geofence is a circle of Distance meters around the Center
// waypoint.
type Geofence struct {
	Name     string  `json:"name"`
	Title    string  `json:"title,omitempty"`
	Center   string  `json:"center"`
	Distance float64 `json:"distance"`
}

type Time struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

type Message struct {
	Name    string `json:"name"`
	Title   string `json:"title,omitempty"`
	Medium  string `json:"medium,omitempty"`
	Content string `json:"content,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Read    bool   `json:"read,omitempty"`
}

type Clip struct {
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Transcript string `json:"transcript,omitempty"`
	Voice      string `json:"voice,omitempty"`
	AudioPath  string `json:"audio,omitempty"`
}

type Audio struct {
	Name     string  `json:"name"`
	Title    string  `json:"title,omitempty"`
	Path     string  `json:"path,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type Cue struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// Inbox is an email address owned by a role.
type Inbox struct {
	Name    string `json:"name"`
	Role    string `json:"role"`
	Address string `json:"address"`
}

func (c *ScriptContent) Role(name string) *Role {
	if c == nil {
		return nil
	}
	for _, r := range c.Roles {
		if r.Name == name {
			return r
		}
	}
	return nil
}

func (c *ScriptContent) Scene(name string) *Scene {
	if c == nil {
		return nil
	}
	for _, s := range c.Scenes {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (c *ScriptContent) Page(name string) *Page {
	if c == nil {
		return nil
	}
	for _, p := range c.Pages {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (c *ScriptContent) Waypoint(name string) *Waypoint {
	if c == nil {
		return nil
	}
	for _, w := range c.Waypoints {
		if w.Name == name {
			return w
		}
	}
	return nil
}

func (c *ScriptContent) Geofence(name string) *Geofence {
	if c == nil {
		return nil
	}
	for _, g := range c.Geofences {
		if g.Name == name {
			return g
		}
	}
	return nil
}

func (c *ScriptContent) Time(name string) *Time {
	if c == nil {
		return nil
	}
	for _, t := range c.Times {
		if t.Name == name {
			return t
		}
	}
	return nil
}

func (c *ScriptContent) Message(name string) *Message {
	if c == nil {
		return nil
	}
	for _, m := range c.Messages {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (c *ScriptContent) Clip(name string) *Clip {
	if c == nil {
		return nil
	}
	for _, x := range c.Clips {
		if x.Name == name {
			return x
		}
	}
	return nil
}

func (c *ScriptContent) AudioNamed(name string) *Audio {
	if c == nil {
		return nil
	}
	for _, a := range c.Audio {
		if a.Name == name {
			return a
		}
	}
	return nil
}

func (c *ScriptContent) Inbox(name string) *Inbox {
	if c == nil {
		return nil
	}
	for _, x := range c.Inboxes {
		if x.Name == name {
			return x
		}
	}
	return nil
}

// ParseScript decodes script content from JSON, parsing every
// condition and action tree along the way.
func ParseScript(js []byte) (*ScriptContent, error) {
	var c ScriptContent
	if err := json.Unmarshal(js, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// ParseScriptYAML decodes script content from YAML.
//
// The YAML is first read generically and then rendered as JSON so
// that every custom decoder only has to deal with JSON.
func ParseScriptYAML(src []byte) (*ScriptContent, error) {
	var x interface{}
	if err := yaml.Unmarshal(src, &x); err != nil {
		return nil, err
	}
	x, err := Canonicalize(StringMaps(x))
	if err != nil {
		return nil, err
	}
	js, err := json.Marshal(x)
	if err != nil {
		return nil, err
	}
	return ParseScript(js)
}

// Trip is one running instance of a script.
type Trip struct {
	ID               string                 `json:"id"`
	ScriptName       string                 `json:"scriptName,omitempty"`
	Date             string                 `json:"date,omitempty"`
	Timezone         string                 `json:"timezone,omitempty"`
	CurrentSceneName string                 `json:"currentSceneName,omitempty"`
	Values           map[string]interface{} `json:"values,omitempty"`
	Customizations   map[string]interface{} `json:"customizations,omitempty"`
	Schedule         map[string]time.Time   `json:"schedule,omitempty"`
	History          map[string]time.Time   `json:"history,omitempty"`
	WaypointOptions  map[string]string      `json:"waypointOptions,omitempty"`
	Players          []*Player              `json:"players,omitempty"`
}

// Player finds a player by id.
func (t *Trip) Player(id string) *Player {
	for _, p := range t.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PlayerForRole returns the first player occupying the role.
func (t *Trip) PlayerForRole(roleName string) *Player {
	for _, p := range t.Players {
		if p.RoleName == roleName {
			return p
		}
	}
	return nil
}

// Player is one role occupant.
type Player struct {
	ID              string                 `json:"id"`
	RoleName        string                 `json:"roleName"`
	CurrentPageName string                 `json:"currentPageName,omitempty"`
	Values          map[string]interface{} `json:"values,omitempty"`
	Audio           map[string]interface{} `json:"audio,omitempty"`
	User            *User                  `json:"user,omitempty"`
	Profile         *Profile               `json:"profile,omitempty"`
}

type User struct {
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	Location    *Location `json:"location,omitempty"`
}

// Profile holds per-experience contact details, which take
// precedence over the User's.
type Profile struct {
	Email            string                 `json:"email,omitempty"`
	Photo            string                 `json:"photo,omitempty"`
	FacetimeUsername string                 `json:"facetimeUsername,omitempty"`
	SkypeUsername    string                 `json:"skypeUsername,omitempty"`
	PhoneNumber      string                 `json:"phoneNumber,omitempty"`
	Values           map[string]interface{} `json:"values,omitempty"`
}

type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Env carries deployment details that leak into evaluation contexts.
type Env struct {
	Host string `json:"host"`
}
