package domain

import "strings"

// DisplayName is the pair of titles shown for a merged record.
// Secondary is nil when there is no counterpart or it equals Primary.
type DisplayName struct {
	Primary   string  `json:"primary"`
	Secondary *string `json:"secondary"`
}

// NewDisplayName applies the display-name rule to a primary title and an
// optional secondary record.
func NewDisplayName(primary string, secondary Record) DisplayName {
	if secondary == nil {
		return DisplayName{Primary: primary}
	}
	return DisplayNameOf(primary, secondary.Name())
}

// DisplayNameOf is NewDisplayName over titles. An empty secondary counts as
// absent.
func DisplayNameOf(primary, secondary string) DisplayName {
	dn := DisplayName{Primary: primary}
	if secondary == "" || strings.TrimSpace(secondary) == strings.TrimSpace(primary) {
		return dn
	}
	dn.Secondary = &secondary
	return dn
}

// Block is a grouped sub-object (weapon, armor). Empty groups are nil so
// they drop out of the encoded output.
type Block struct {
	Common    map[string]any `json:"common,omitempty"`
	Primary   map[string]any `json:"primary,omitempty"`
	Secondary map[string]any `json:"secondary,omitempty"`
}

// Empty reports whether all three groups are nil.
func (b Block) Empty() bool {
	return b.Common == nil && b.Primary == nil && b.Secondary == nil
}

// FluffContent is the descriptive text and images of a record.
type FluffContent struct {
	Entries []any `json:"entries,omitempty"`
	Images  []any `json:"images,omitempty"`
}

// Full pairs the fluff content of both languages.
type Full struct {
	Primary   *FluffContent `json:"primary,omitempty"`
	Secondary *FluffContent `json:"secondary,omitempty"`
}

// MergedRecord is one output record of a content kind.
type MergedRecord struct {
	DataType        string           `json:"dataType"`
	UID             string           `json:"uid"`
	ID              string           `json:"id"`
	DisplayName     DisplayName      `json:"displayName"`
	MainSource      SourceRef        `json:"mainSource"`
	AllSources      []SourceRef      `json:"allSources"`
	RelatedVersions []string         `json:"relatedVersions,omitempty"`
	Common          map[string]any   `json:"common"`
	Primary         map[string]any   `json:"primary"`
	Secondary       map[string]any   `json:"secondary"`
	Blocks          map[string]Block `json:"blocks,omitempty"`
	Full            *Full            `json:"full,omitempty"`
	BaseItem        string           `json:"baseItem,omitempty"`
	Items           []any            `json:"items,omitempty"`
	Origin          string           `json:"origin,omitempty"`
	Attributes      map[string]any   `json:"attributes,omitempty"`
}

// NewMergedRecord fills the identity fields. AllSources is never nil so it
// encodes as an empty array.
func NewMergedRecord(dataType, id string) MergedRecord {
	return MergedRecord{
		DataType:   dataType,
		UID:        dataType + "_" + id,
		ID:         id,
		AllSources: []SourceRef{},
		Common:     map[string]any{},
	}
}

// Title returns the name used for file naming: the primary display name,
// else the secondary, else the id.
func (m MergedRecord) Title() string {
	if m.DisplayName.Primary != "" {
		return m.DisplayName.Primary
	}
	if m.DisplayName.Secondary != nil && *m.DisplayName.Secondary != "" {
		return *m.DisplayName.Secondary
	}
	return m.ID
}
