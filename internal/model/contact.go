package model

import (
	"encoding/json"
	"time"
)

// AltTrackTag is the reserved tag that routes a contact onto the alternate
// drip template family.
const AltTrackTag = "alt_track"

const (
	FamilyDefault = "default"
	FamilyAlt     = "alt"
)

type Contact struct {
	ID             int64      `db:"id"`
	TenantID       int64      `db:"tenant_id"`
	Address        string     `db:"address"`
	DisplayName    string     `db:"display_name"`
	TagsRaw        []byte     `db:"tags"`       // JSON array of strings
	AttributesRaw  []byte     `db:"attributes"` // JSON object, template variables
	Subscribed     bool       `db:"subscribed"`
	LastOutgoingAt *time.Time `db:"last_outgoing_at"`
	LastInboundAt  *time.Time `db:"last_inbound_at"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

func (c *Contact) Tags() []string {
	if len(c.TagsRaw) == 0 {
		return nil
	}
	var tags []string
	if err := json.Unmarshal(c.TagsRaw, &tags); err != nil {
		return nil
	}
	return tags
}

func (c *Contact) HasTag(tag string) bool {
	for _, t := range c.Tags() {
		if t == tag {
			return true
		}
	}
	return false
}

// Attributes returns the variable map used for template rendering. The
// contact's display name and address are always present.
func (c *Contact) Attributes() map[string]string {
	attrs := map[string]string{}
	if len(c.AttributesRaw) > 0 {
		_ = json.Unmarshal(c.AttributesRaw, &attrs)
	}
	if _, ok := attrs["name"]; !ok {
		attrs["name"] = c.DisplayName
	}
	if _, ok := attrs["phone"]; !ok {
		attrs["phone"] = c.Address
	}
	return attrs
}

// TemplateFamily selects the drip template family for this contact.
func (c *Contact) TemplateFamily() string {
	if c.HasTag(AltTrackTag) {
		return FamilyAlt
	}
	return FamilyDefault
}
