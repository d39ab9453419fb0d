package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Compile-time check
var _ interfaces.StatsSource = (*OdisseClient)(nil)

// Datasets consumed from the Odissé catalog.
const (
	datasetDensity = "densites_professionnels_sante"
	datasetDelays  = "delais_rendezvous_specialistes"
)

// OdisseConfig configures the regional statistics client.
type OdisseConfig struct {
	BaseURL string
	Timeout time.Duration
}

// OdisseClient queries the Santé Publique France Odissé API for
// access-to-care indicators: professional density per department and
// specialist appointment delays.
type OdisseClient struct {
	baseURL string
	http    *http.Client
}

// NewOdisseClient creates a regional statistics client.
func NewOdisseClient(cfg OdisseConfig) *OdisseClient {
	return &OdisseClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// odisseRecords is the record-search response shape shared by the datasets.
type odisseRecords struct {
	TotalCount int `json:"total_count"`
	Records    []struct {
		Fields map[string]any `json:"fields"`
	} `json:"records"`
}

// Specialist delay multipliers applied to the departmental base delay when
// the delays dataset has no row for the requested specialty.
var delayMultipliers = map[string]float64{
	"médecin généraliste": 0.4,
	"dermatologue":        2.5,
	"ophtalmologue":       3.0,
	"cardiologue":         1.8,
	"rhumatologue":        2.0,
	"psychiatre":          1.6,
	"kinésithérapeute":    0.6,
	"dentiste":            1.0,
}

const baseDelayDays = 14

// Indicators fetches density and delay indicators for one department,
// refined by specialty when the delays dataset covers it. The density
// dataset is required; a missing delay row degrades to the multiplier
// estimate instead of failing the call.
func (c *OdisseClient) Indicators(ctx context.Context, department, specialty string) (entities.RegionalStatsRecord, error) {
	density, err := c.fetchDataset(ctx, datasetDensity, department, "")
	if err != nil {
		return entities.RegionalStatsRecord{}, err
	}

	rec := entities.RegionalStatsRecord{
		Department: department,
		Region:     RegionForDepartment(department),
		Specialty:  specialty,
	}

	if len(density.Records) > 0 {
		fields := density.Records[0].Fields
		rec.GPPer1000 = floatField(fields, "densite_generalistes", "gp_per_1000")
		rec.SpecialistsPer1000 = floatField(fields, "densite_specialistes", "specialists_per_1000")
	}
	rec.DensityLevel = densityLevel(rec.GPPer1000, rec.SpecialistsPer1000)

	delayDays := 0
	if delays, err := c.fetchDataset(ctx, datasetDelays, department, specialty); err == nil && len(delays.Records) > 0 {
		delayDays = int(floatField(delays.Records[0].Fields, "delai_moyen_jours", "avg_delay_days"))
	}
	if delayDays == 0 {
		multiplier := delayMultipliers[strings.ToLower(specialty)]
		if multiplier == 0 {
			multiplier = 1.5
		}
		delayDays = int(baseDelayDays * multiplier)
	}
	rec.AvgDelayDays = delayDays
	rec.DelayCategory = delayCategory(delayDays)

	return rec, nil
}

func (c *OdisseClient) fetchDataset(ctx context.Context, dataset, department, specialty string) (*odisseRecords, error) {
	params := url.Values{}
	params.Set("refine.departement", department)
	if specialty != "" {
		params.Set("refine.specialite", specialty)
	}
	params.Set("rows", "1")

	endpoint := c.baseURL + "/records/1.0/search/?dataset=" + url.QueryEscape(dataset) + "&" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("odisse: building request: %v: %w", err, ErrPermanent)
	}
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyHTTPError("odisse", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus("odisse", httpResp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return nil, classifyHTTPError("odisse", err)
	}

	var records odisseRecords
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("odisse: malformed payload: %v: %w", err, ErrPermanent)
	}
	return &records, nil
}

func floatField(fields map[string]any, names ...string) float64 {
	for _, name := range names {
		if v, ok := fields[name]; ok {
			switch n := v.(type) {
			case float64:
				return n
			case json.Number:
				f, _ := n.Float64()
				return f
			}
		}
	}
	return 0
}

func densityLevel(gp, specialists float64) string {
	total := gp + specialists
	switch {
	case total >= 1.6:
		return "high"
	case total >= 1.0:
		return "medium"
	default:
		return "low"
	}
}

func delayCategory(days int) string {
	switch {
	case days <= 7:
		return "short"
	case days <= 21:
		return "moderate"
	default:
		return "long"
	}
}

// regionByDepartmentPrefix maps metropolitan department codes to their
// region for narrative context. Unlisted codes report an empty region.
var regionByDepartmentPrefix = map[string]string{
	"75": "Île-de-France", "77": "Île-de-France", "78": "Île-de-France",
	"91": "Île-de-France", "92": "Île-de-France", "93": "Île-de-France",
	"94": "Île-de-France", "95": "Île-de-France",
	"13": "Provence-Alpes-Côte d'Azur", "83": "Provence-Alpes-Côte d'Azur",
	"06": "Provence-Alpes-Côte d'Azur",
	"69": "Auvergne-Rhône-Alpes", "38": "Auvergne-Rhône-Alpes",
	"42": "Auvergne-Rhône-Alpes", "63": "Auvergne-Rhône-Alpes",
	"59": "Hauts-de-France", "62": "Hauts-de-France", "80": "Hauts-de-France",
	"33": "Nouvelle-Aquitaine", "64": "Nouvelle-Aquitaine",
	"31": "Occitanie", "34": "Occitanie", "30": "Occitanie",
	"44": "Pays de la Loire", "49": "Pays de la Loire",
	"35": "Bretagne", "29": "Bretagne",
	"67": "Grand Est", "51": "Grand Est", "54": "Grand Est",
	"21": "Bourgogne-Franche-Comté", "25": "Bourgogne-Franche-Comté",
	"76": "Normandie", "14": "Normandie",
	"37": "Centre-Val de Loire", "45": "Centre-Val de Loire",
	"20": "Corse",
}

// RegionForDepartment maps a department code (or a postal code, using its
// first two digits) to its region.
func RegionForDepartment(department string) string {
	if len(department) > 2 {
		department = department[:2]
	}
	return regionByDepartmentPrefix[department]
}
