// Package fleet replays the discovered fleet-data endpoint from inside the
// page and decodes the tabular payload the site returns.
package fleet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// BlockIndicator is the exact error value the site returns when its anti-bot
// layer rejects a request. The space before the bang is part of the value.
const BlockIndicator = "Attack !"

// Number decodes a JSON scalar that the endpoint serves inconsistently as a
// bare number, a quoted number, null, or an empty string. Unparseable values
// decode to zero rather than failing the whole payload.
type Number int64

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		*n = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	if s == "" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Number(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*n = Number(int64(v))
		return nil
	}
	*n = 0
	return nil
}

// Int64 returns the decoded value.
func (n Number) Int64() int64 {
	return int64(n)
}

// Text decodes a JSON scalar into its string form: strings pass through,
// numbers keep their literal text, null becomes empty. The site quotes the
// same field differently between rows.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		*t = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("decode text scalar: %w", err)
		}
		*t = Text(s)
		return nil
	}
	*t = Text(trimmed)
	return nil
}

// String returns the decoded value.
func (t Text) String() string {
	return string(t)
}

// Payload is the data-grid response returned by the fleet endpoint.
type Payload struct {
	Draw            Number      `json:"draw"`
	RecordsTotal    Number      `json:"recordsTotal"`
	RecordsFiltered Number      `json:"recordsFiltered"`
	Error           string      `json:"error,omitempty"`
	Data            []VesselRow `json:"data"`
}

// Blocked reports whether the payload carries the anti-bot block indicator.
func (p *Payload) Blocked() bool {
	return p.Error == BlockIndicator
}

// VesselRow mirrors one row of the fleet endpoint payload. The name field is
// an HTML fragment; everything else is a scalar the site may or may not quote.
type VesselRow struct {
	IMO  Number `json:"vessel_imo"`
	MMSI Number `json:"vessel_mmsi"`
	Name Text   `json:"vessel_name"`
	Type Text   `json:"vessel_type"`

	RegisteredOwner             Text   `json:"registered_owner"`
	RegisteredOwnerCompanyIMO   Number `json:"registered_owner_company_imo"`
	RegisteredOwnerCountrySlug  Text   `json:"registered_owner_company_country_slug"`
	RegisteredOwnerNameSlug     Text   `json:"registered_owner_company_name_slug"`
	RegisteredOwnerTotalVessels Number `json:"registered_owner_total_distinct_vessels"`

	CommercialManager             Text   `json:"commercial_manager"`
	CommercialManagerCompanyIMO   Number `json:"commercial_manager_company_imo"`
	CommercialManagerCountrySlug  Text   `json:"commercial_manager_company_country_slug"`
	CommercialManagerNameSlug     Text   `json:"commercial_manager_company_name_slug"`
	CommercialManagerTotalVessels Number `json:"commercial_manager_total_distinct_vessels"`

	ISMManager             Text   `json:"ism_manager"`
	ISMManagerCompanyIMO   Number `json:"ism_manager_company_imo"`
	ISMManagerCountrySlug  Text   `json:"ism_manager_company_country_slug"`
	ISMManagerNameSlug     Text   `json:"ism_manager_company_name_slug"`
	ISMManagerTotalVessels Number `json:"ism_manager_total_distinct_vessels"`

	CoreTypesKey       Text `json:"core_vessel_types_key"`
	CoreTypesName      Text `json:"core_vessel_types_name"`
	DWT                Text `json:"dwt"`
	Flag               Text `json:"flag"`
	LastPositionUpdate Text `json:"last_position_update"`
}
