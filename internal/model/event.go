package model

// EventDefinition describes one offered event.  Events are identified by
// their position in the catalog's ordered list; the index is what gets
// persisted in a registration's events column, so reordering the catalog
// changes the meaning of stored data.
//
// Fields:
//  Name    – display name, used in "full" messages.
//  Type    – kind of session (Workshop, Talk, ...).
//  Speaker – presenter name.
//  Date    – human readable date, not parsed.
//  Time    – human readable time range, not parsed.
//  Seats   – seat capacity; always positive.
type EventDefinition struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Speaker string `json:"speaker" yaml:"speaker"`
	Date    string `json:"date" yaml:"date"`
	Time    string `json:"time" yaml:"time"`
	Seats   int    `json:"seats" yaml:"seats"`
}
