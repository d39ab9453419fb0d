package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.DirectorySource = (*AnnuaireClient)(nil)

// practitionerRoleNameExtension carries the practitioner's name on
// PractitionerRole resources; the Practitioner resources themselves are
// anonymized in this deployment.
const practitionerRoleNameExtension = "https://annuaire.sante.gouv.fr/fhir/StructureDefinition/PractitionerRole-Name"

// AnnuaireConfig configures the health directory client.
type AnnuaireConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AnnuaireClient queries the Annuaire Santé FHIR directory for
// practitioners and care organizations.
type AnnuaireClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewAnnuaireClient creates a directory client.
func NewAnnuaireClient(cfg AnnuaireConfig) *AnnuaireClient {
	return &AnnuaireClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// FHIR wire shapes, reduced to the fields this client consumes.
type fhirBundle struct {
	ResourceType string `json:"resourceType"`
	Total        int    `json:"total"`
	Entry        []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

type fhirPractitionerRole struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Active       bool   `json:"active"`
	Code         []struct {
		Coding []struct {
			System  string `json:"system"`
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"coding"`
	} `json:"code"`
	Organization struct {
		Display string `json:"display"`
	} `json:"organization"`
	Extension []struct {
		URL            string `json:"url"`
		ValueHumanName *struct {
			Family string   `json:"family"`
			Given  []string `json:"given"`
		} `json:"valueHumanName"`
	} `json:"extension"`
	Location []struct {
		Display string `json:"display"`
	} `json:"location"`
}

type fhirOrganization struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	Type         []struct {
		Coding []struct {
			Code    string `json:"code"`
			Display string `json:"display"`
		} `json:"coding"`
	} `json:"type"`
	Address []struct {
		Text       string   `json:"text"`
		Line       []string `json:"line"`
		City       string   `json:"city"`
		PostalCode string   `json:"postalCode"`
	} `json:"address"`
	Meta struct {
		LastUpdated string `json:"lastUpdated"`
	} `json:"meta"`
}

// PractitionersBySpecialty searches PractitionerRole entries by their role
// code (60 généraliste, 40 kiné, 86 dentiste, ...).
func (c *AnnuaireClient) PractitionersBySpecialty(ctx context.Context, roleCode string, limit int) ([]entities.PractitionerRecord, error) {
	params := url.Values{}
	params.Set("role", roleCode)
	params.Set("_count", strconv.Itoa(fetchCount(limit)))

	bundle, err := c.search(ctx, "PractitionerRole", params)
	if err != nil {
		return nil, err
	}
	return c.collectPractitioners(bundle, "", limit), nil
}

// PractitionersByName searches for a named practitioner. The upstream
// search parameter only covers the anonymized Practitioner resource, so the
// match runs client-side over the PractitionerRole name extension.
func (c *AnnuaireClient) PractitionersByName(ctx context.Context, family, given string, limit int) ([]entities.PractitionerRecord, error) {
	params := url.Values{}
	params.Set("_count", "200")

	bundle, err := c.search(ctx, "PractitionerRole", params)
	if err != nil {
		return nil, err
	}
	needle := entities.Normalize(strings.TrimSpace(family + " " + given))
	if needle == "" {
		return nil, nil
	}
	return c.collectPractitioners(bundle, needle, limit), nil
}

// Organizations searches care structures by name.
func (c *AnnuaireClient) Organizations(ctx context.Context, name string, limit int) ([]entities.OrganizationRecord, error) {
	params := url.Values{}
	if name != "" {
		params.Set("name", name)
	}
	params.Set("_count", strconv.Itoa(fetchCount(limit)))

	bundle, err := c.search(ctx, "Organization", params)
	if err != nil {
		return nil, err
	}

	records := make([]entities.OrganizationRecord, 0, len(bundle.Entry))
	for _, entry := range bundle.Entry {
		var org fhirOrganization
		if err := json.Unmarshal(entry.Resource, &org); err != nil || org.ResourceType != "Organization" {
			continue
		}
		rec := entities.OrganizationRecord{
			ID:          org.ID,
			Name:        org.Name,
			Active:      org.Active,
			LastUpdated: org.Meta.LastUpdated,
		}
		if len(org.Type) > 0 && len(org.Type[0].Coding) > 0 {
			rec.Type = org.Type[0].Coding[0].Display
			rec.TypeCode = org.Type[0].Coding[0].Code
		}
		if len(org.Address) > 0 {
			addr := org.Address[0]
			rec.Address = entities.Address{
				Text:       addr.Text,
				Lines:      addr.Line,
				City:       addr.City,
				PostalCode: addr.PostalCode,
			}
		}
		records = append(records, rec)
		if len(records) >= limit {
			break
		}
	}
	return records, nil
}

func (c *AnnuaireClient) search(ctx context.Context, resource string, params url.Values) (*fhirBundle, error) {
	endpoint := c.baseURL + "/" + resource + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("annuaire: building request: %v: %w", err, ErrPermanent)
	}
	req.Header.Set("Accept", "application/fhir+json")
	req.Header.Set("ESANTE-API-KEY", c.apiKey)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyHTTPError("annuaire", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus("annuaire", httpResp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, classifyHTTPError("annuaire", err)
	}

	var bundle fhirBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("annuaire: malformed payload: %v: %w", err, ErrPermanent)
	}
	if bundle.ResourceType != "Bundle" {
		return nil, fmt.Errorf("annuaire: unexpected resource type %q: %w", bundle.ResourceType, ErrPermanent)
	}
	return &bundle, nil
}

// collectPractitioners normalizes PractitionerRole entries. A non-empty
// needle keeps only roles whose name extension contains it.
func (c *AnnuaireClient) collectPractitioners(bundle *fhirBundle, needle string, limit int) []entities.PractitionerRecord {
	records := make([]entities.PractitionerRecord, 0, limit)
	for _, entry := range bundle.Entry {
		var role fhirPractitionerRole
		if err := json.Unmarshal(entry.Resource, &role); err != nil || role.ResourceType != "PractitionerRole" {
			continue
		}

		rec := entities.PractitionerRecord{
			ID:           role.ID,
			Active:       role.Active,
			Organization: role.Organization.Display,
		}
		if len(role.Code) > 0 && len(role.Code[0].Coding) > 0 {
			rec.Specialty = role.Code[0].Coding[0].Display
			rec.SpecialtyCode = role.Code[0].Coding[0].Code
		}
		for _, ext := range role.Extension {
			if ext.URL == practitionerRoleNameExtension && ext.ValueHumanName != nil {
				rec.Family = ext.ValueHumanName.Family
				if len(ext.ValueHumanName.Given) > 0 {
					rec.Given = ext.ValueHumanName.Given[0]
				}
				break
			}
		}
		if len(role.Location) > 0 {
			rec.City, rec.PostalCode = splitLocationDisplay(role.Location[0].Display)
		}

		if needle != "" {
			haystack := entities.Normalize(rec.Family + " " + rec.Given)
			if !containsAllWords(haystack, needle) {
				continue
			}
		}

		records = append(records, rec)
		if len(records) >= limit {
			break
		}
	}
	return records
}

// splitLocationDisplay parses location displays like "75008 Paris".
func splitLocationDisplay(display string) (city, postal string) {
	fields := strings.Fields(display)
	for _, f := range fields {
		if len(f) == 5 && isDigits(f) && postal == "" {
			postal = f
			continue
		}
		if city == "" {
			city = f
		} else {
			city += " " + f
		}
	}
	return city, postal
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// containsAllWords reports whether every word of needle occurs in haystack.
// Both inputs must already be normalized.
func containsAllWords(haystack, needle string) bool {
	for _, word := range strings.Fields(needle) {
		if !strings.Contains(haystack, word) {
			return false
		}
	}
	return true
}

// fetchCount over-fetches against the requested limit to leave room for the
// orchestrator's geographic post-filter.
func fetchCount(limit int) int {
	count := limit * 5
	if count < 50 {
		count = 50
	}
	if count > 200 {
		count = 200
	}
	return count
}
