// Package sources contains the external data clients of the assistant:
// the BDPM medication database, the Annuaire Santé directory and the Odissé
// regional statistics API. Clients normalize upstream payloads into the
// entities records and classify their failures so the orchestrator can
// decide on retries.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/interfaces"
)

// Evidence source names, matching the quality-score registry in the
// reference tables.
const (
	SourceBDPM     = "bdpm"
	SourceAnnuaire = "annuaire_sante"
	SourceOdisse   = "odisse"
	SourceBaremes  = "baremes_officiels"
)

// Compile-time check
var _ interfaces.MedicationSource = (*BdpmClient)(nil)

// BdpmConfig configures the medication database client. All fields come
// from the application config at startup; the client never reads the
// environment.
type BdpmConfig struct {
	BaseURL string
	Timeout time.Duration
}

// BdpmClient queries the public French medication database over its
// GraphQL endpoint.
type BdpmClient struct {
	baseURL string
	http    *http.Client
}

// NewBdpmClient creates a medication database client.
func NewBdpmClient(cfg BdpmConfig) *BdpmClient {
	return &BdpmClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

const medicamentFields = `
	CIS
	denomination
	forme_pharmaceutique
	voies_administration
	surveillance_renforcee
	conditions_prescription
	substances {
		code_substance
		denominations
		dosage_substance
		reference_dosage
	}
	presentations {
		CIP13
		libelle
		taux_remboursement
		prix_sans_honoraires
		prix_avec_honoraires
	}`

var searchByNameQuery = `
query SearchByName($name: StringFilter!, $limit: Int) {
	medicaments(denomination: $name, limit: $limit) {` + medicamentFields + `
	}
}`

var searchBySubstanceQuery = `
query SearchBySubstance($substance: StringFilter!, $limit: Int) {
	substances(denomination: $substance, limit: 10) {
		code_substance
		denominations
		medicaments(limit: $limit) {` + medicamentFields + `
		}
	}
}`

var fetchByCISQuery = `
query FetchByCIS($cis: [ID!]) {
	medicaments(CIS: $cis) {` + medicamentFields + `
		groupes_generiques {
			id
			libelle
			princeps {
				CIS
				denomination
			}
			generiques {
				CIS
				denomination
			}
		}
	}
}`

// Wire shapes of the GraphQL responses.
type bdpmMedicament struct {
	CIS                   string   `json:"CIS"`
	Denomination          string   `json:"denomination"`
	FormePharmaceutique   string   `json:"forme_pharmaceutique"`
	VoiesAdministration   []string `json:"voies_administration"`
	SurveillanceRenforcee bool     `json:"surveillance_renforcee"`
	ConditionsPrescript   []string `json:"conditions_prescription"`
	Substances            []struct {
		CodeSubstance   int      `json:"code_substance"`
		Denominations   []string `json:"denominations"`
		DosageSubstance string   `json:"dosage_substance"`
		ReferenceDosage string   `json:"reference_dosage"`
	} `json:"substances"`
	Presentations []struct {
		CIP13              string   `json:"CIP13"`
		Libelle            string   `json:"libelle"`
		TauxRemboursement  *string  `json:"taux_remboursement"`
		PrixSansHonoraires *float64 `json:"prix_sans_honoraires"`
		PrixAvecHonoraires *float64 `json:"prix_avec_honoraires"`
	} `json:"presentations"`
	GroupesGeneriques []struct {
		ID       json.Number `json:"id"`
		Libelle  string      `json:"libelle"`
		Princeps []struct {
			CIS          string `json:"CIS"`
			Denomination string `json:"denomination"`
		} `json:"princeps"`
		Generiques []struct {
			CIS          string `json:"CIS"`
			Denomination string `json:"denomination"`
		} `json:"generiques"`
	} `json:"groupes_generiques"`
}

type bdpmResponse struct {
	Data struct {
		Medicaments []bdpmMedicament `json:"medicaments"`
		Substances  []struct {
			CodeSubstance int              `json:"code_substance"`
			Denominations []string         `json:"denominations"`
			Medicaments   []bdpmMedicament `json:"medicaments"`
		} `json:"substances"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// SearchByName searches medications by denomination.
func (c *BdpmClient) SearchByName(ctx context.Context, name string, limit int) ([]entities.MedicationRecord, error) {
	resp, err := c.execute(ctx, searchByNameQuery, map[string]any{
		"name":  map[string]any{"contains_one_of": []string{strings.ToLower(name)}},
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	records := make([]entities.MedicationRecord, 0, len(resp.Data.Medicaments))
	for _, med := range resp.Data.Medicaments {
		records = append(records, c.normalize(med, ""))
	}
	return records, nil
}

// SearchBySubstance searches medications carrying an active substance. The
// upstream groups medications under each matching substance; results are
// flattened with the matched substance marked on each record.
func (c *BdpmClient) SearchBySubstance(ctx context.Context, substance string, limit int) ([]entities.MedicationRecord, error) {
	resp, err := c.execute(ctx, searchBySubstanceQuery, map[string]any{
		"substance": map[string]any{"contains_one_of": []string{strings.ToLower(substance)}},
		"limit":     limit,
	})
	if err != nil {
		return nil, err
	}

	var records []entities.MedicationRecord
	seen := make(map[int]bool)
	for _, sub := range resp.Data.Substances {
		matched := ""
		if len(sub.Denominations) > 0 {
			matched = sub.Denominations[0]
		}
		for _, med := range sub.Medicaments {
			rec := c.normalize(med, matched)
			if seen[rec.Cis] {
				continue
			}
			seen[rec.Cis] = true
			records = append(records, rec)
			if len(records) >= limit {
				return records, nil
			}
		}
	}
	return records, nil
}

// FetchByCIS fetches one medication with its generic group.
func (c *BdpmClient) FetchByCIS(ctx context.Context, cis int) (entities.MedicationRecord, error) {
	resp, err := c.execute(ctx, fetchByCISQuery, map[string]any{
		"cis": []string{strconv.Itoa(cis)},
	})
	if err != nil {
		return entities.MedicationRecord{}, err
	}
	if len(resp.Data.Medicaments) == 0 {
		return entities.MedicationRecord{}, fmt.Errorf("bdpm: CIS %d: %w", cis, ErrNotFound)
	}
	return c.normalize(resp.Data.Medicaments[0], ""), nil
}

func (c *BdpmClient) execute(ctx context.Context, query string, variables map[string]any) (*bdpmResponse, error) {
	body, err := json.Marshal(map[string]any{"query": query, "variables": variables})
	if err != nil {
		return nil, fmt.Errorf("bdpm: encoding request: %v: %w", err, ErrPermanent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("bdpm: building request: %v: %w", err, ErrPermanent)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyHTTPError("bdpm", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyStatus("bdpm", httpResp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 10<<20))
	if err != nil {
		return nil, classifyHTTPError("bdpm", err)
	}

	var resp bdpmResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("bdpm: malformed payload: %v: %w", err, ErrPermanent)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("bdpm: graphql error: %s: %w", resp.Errors[0].Message, ErrPermanent)
	}
	return &resp, nil
}

// normalize converts one upstream medication into the internal record. The
// price and reimbursement rate come from the best priced presentation,
// preferring the public price with dispensing fees.
func (c *BdpmClient) normalize(med bdpmMedicament, matchedSubstance string) entities.MedicationRecord {
	cis, _ := strconv.Atoi(med.CIS)
	rec := entities.MedicationRecord{
		Cis:                    cis,
		Name:                   med.Denomination,
		Form:                   med.FormePharmaceutique,
		Routes:                 med.VoiesAdministration,
		PrescriptionConditions: med.ConditionsPrescript,
		EnhancedSurveillance:   med.SurveillanceRenforcee,
	}

	for _, sub := range med.Substances {
		name := ""
		if len(sub.Denominations) > 0 {
			name = sub.Denominations[0]
		}
		rec.Substances = append(rec.Substances, entities.Substance{
			Code:         sub.CodeSubstance,
			Name:         name,
			Dosage:       sub.DosageSubstance,
			RefDosage:    sub.ReferenceDosage,
			MatchedQuery: matchedSubstance != "" && containsFold(sub.Denominations, matchedSubstance),
		})
	}

	for _, pres := range med.Presentations {
		price := pres.PrixAvecHonoraires
		if price == nil {
			price = pres.PrixSansHonoraires
		}
		if price == nil {
			continue
		}
		if rec.PriceEuros == nil || *price < *rec.PriceEuros {
			rec.PriceEuros = price
			rec.Cip13 = pres.CIP13
			rec.PresentationLabel = pres.Libelle
			rec.ReimbursementRate = parseRate(pres.TauxRemboursement)
		}
	}

	if len(med.GroupesGeneriques) > 0 {
		group := med.GroupesGeneriques[0]
		info := &entities.GenericInfo{
			GroupID: group.ID.String(),
			Label:   group.Libelle,
		}
		for _, p := range group.Princeps {
			info.Princeps = append(info.Princeps, p.Denomination)
		}
		for _, g := range group.Generiques {
			info.Generics = append(info.Generics, g.Denomination)
		}
		info.GroupSize = len(info.Princeps) + len(info.Generics)
		rec.GenericGroup = info
	}

	return rec
}

// parseRate converts a reimbursement rate like "65 %" to its percentage.
func parseRate(raw *string) *int {
	if raw == nil {
		return nil
	}
	cleaned := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(*raw), "%"))
	rate, err := strconv.Atoi(cleaned)
	if err != nil || rate < 0 || rate > 100 {
		return nil
	}
	return &rate
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) || strings.Contains(strings.ToLower(s), strings.ToLower(needle)) {
			return true
		}
	}
	return false
}
