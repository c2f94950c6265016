package cardano

import "encoding/json"

// AssetMetadata models the on-chain metadata blob the ledger indexer returns
// for a unit. The handful of fields the platform actually renders are typed;
// everything else is preserved verbatim in Extra so no minting project's
// custom fields are lost on round-trip.
type AssetMetadata struct {
	Name        string `json:"name,omitempty"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
	MediaType   string `json:"mediaType,omitempty"`

	Extra map[string]interface{} `json:"-"`
}

// UnmarshalJSON splits the blob into the typed fields and Extra.
func (m *AssetMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = AssetMetadata{}
	for key, value := range raw {
		switch key {
		case "name":
			if json.Unmarshal(value, &m.Name) != nil {
				if err := m.stashExtra(key, value); err != nil {
					return err
				}
			}
		case "image":
			// image may be a string or a list of string chunks on chain
			if json.Unmarshal(value, &m.Image) != nil {
				var chunks []string
				if json.Unmarshal(value, &chunks) == nil {
					m.Image = joinChunks(chunks)
				} else if err := m.stashExtra(key, value); err != nil {
					return err
				}
			}
		case "description":
			if json.Unmarshal(value, &m.Description) != nil {
				var chunks []string
				if json.Unmarshal(value, &chunks) == nil {
					m.Description = joinChunks(chunks)
				} else if err := m.stashExtra(key, value); err != nil {
					return err
				}
			}
		case "mediaType":
			if json.Unmarshal(value, &m.MediaType) != nil {
				if err := m.stashExtra(key, value); err != nil {
					return err
				}
			}
		default:
			if err := m.stashExtra(key, value); err != nil {
				return err
			}
		}
	}

	return nil
}

// stashExtra preserves a value the typed fields could not hold.
func (m *AssetMetadata) stashExtra(key string, value json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(value, &v); err != nil {
		return err
	}
	if m.Extra == nil {
		m.Extra = make(map[string]interface{})
	}
	m.Extra[key] = v
	return nil
}

// MarshalJSON merges the typed fields and Extra back into one object. A
// typed field wins over a stashed Extra entry under the same key.
func (m AssetMetadata) MarshalJSON() ([]byte, error) {
	merged := make(map[string]interface{}, len(m.Extra)+4)
	for key, value := range m.Extra {
		merged[key] = value
	}
	if m.Name != "" {
		merged["name"] = m.Name
	}
	if m.Image != "" {
		merged["image"] = m.Image
	}
	if m.Description != "" {
		merged["description"] = m.Description
	}
	if m.MediaType != "" {
		merged["mediaType"] = m.MediaType
	}
	return json.Marshal(merged)
}

// IsZero reports whether no metadata was recorded at all.
func (m AssetMetadata) IsZero() bool {
	return m.Name == "" && m.Image == "" && m.Description == "" &&
		m.MediaType == "" && len(m.Extra) == 0
}

func joinChunks(chunks []string) string {
	out := ""
	for _, c := range chunks {
		out += c
	}
	return out
}
