package model

import "time"

// Registration represents one attendee's submitted record as stored in the
// `registrations` table.  Records are created once per successful
// submission and never updated or deleted by this service.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – attendee name.
//  Email     – contact email, validated before insert.
//  Phone     – exactly ten digits.
//  College   – one of the catalog's colleges.
//  Branch    – free text (CS, IS, EC ...).
//  Year      – year of study, "1" through "5".
//  Events    – selected catalog indices, stored as a JSON array.
//  CreatedAt – insertion timestamp.
type Registration struct {
	ID        uint64    `json:"id"`         // registrations.id
	Name      string    `json:"name"`       // registrations.name
	Email     string    `json:"email"`      // registrations.email
	Phone     string    `json:"phone"`      // registrations.phone
	College   string    `json:"college"`    // registrations.college
	Branch    string    `json:"branch"`     // registrations.branch
	Year      string    `json:"year"`       // registrations.year
	Events    []int     `json:"events"`     // registrations.events (JSON text)
	CreatedAt time.Time `json:"created_at"` // registrations.created_at
}
