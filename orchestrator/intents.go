package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/pathway"
	"github.com/mediflux/assistant-api/reimbursement"
	"github.com/mediflux/assistant-api/sources"
)

// ===== medication_search =====

func (o *Orchestrator) medicationSearch(ctx context.Context, cls entities.Classification, ents []entities.ExtractedEntity) entities.Result {
	med, ok := entities.BestEntity(ents, entities.KindMedication)
	if !ok {
		return entities.Result{
			Confidence:    cls.Confidence,
			NarrativeText: "Quel médicament recherchez-vous ? Indiquez son nom commercial ou sa substance active.",
			Clarification: true,
		}
	}

	t := newTracker()
	records, err := o.fetchMedications(ctx, med.CanonicalValue)
	t.record(sources.SourceBDPM, err)

	if err == nil && len(records) == 1 {
		records[0] = o.enrichMedication(ctx, records[0])
	}
	if len(records) > o.limit {
		records = records[:o.limit]
	}

	return entities.Result{
		Confidence:    t.degrade(cls.Confidence),
		Records:       wrapMedications(records),
		Evidence:      t.evidence(o.store.GetIndex()),
		NarrativeText: medicationNarrative(med.CanonicalValue, records, err),
	}
}

// fetchMedications routes the lookup through the substance query when the
// reference table marks the entity as a substance or drug class; brand
// names keep the denomination query.
func (o *Orchestrator) fetchMedications(ctx context.Context, canonical string) ([]entities.MedicationRecord, error) {
	idx := o.store.GetIndex()
	if entry, known := idx.MedicationByName[canonical]; known && entry.Class && entry.Substance != "" {
		return fetchCached(ctx, o, sources.SourceBDPM, "substance:"+entry.Substance, func(ctx context.Context) ([]entities.MedicationRecord, error) {
			return o.medications.SearchBySubstance(ctx, entry.Substance, o.limit)
		})
	}
	return fetchCached(ctx, o, sources.SourceBDPM, "name:"+canonical, func(ctx context.Context) ([]entities.MedicationRecord, error) {
		return o.medications.SearchByName(ctx, canonical, o.limit)
	})
}

// enrichMedication completes a single-result answer with the CIS detail
// (generic group, prescription conditions). Failure keeps the search record.
func (o *Orchestrator) enrichMedication(ctx context.Context, med entities.MedicationRecord) entities.MedicationRecord {
	if med.Cis == 0 {
		return med
	}
	detail, err := fetchCached(ctx, o, sources.SourceBDPM, "cis:"+strconv.Itoa(med.Cis), func(ctx context.Context) (entities.MedicationRecord, error) {
		return o.medications.FetchByCIS(ctx, med.Cis)
	})
	if err != nil {
		return med
	}
	return detail
}

func medicationNarrative(name string, records []entities.MedicationRecord, err error) string {
	if err != nil {
		return fmt.Sprintf("La base publique des médicaments est momentanément indisponible, je n'ai pas pu chercher « %s ». Réessayez dans quelques instants.", name)
	}
	if len(records) == 0 {
		return fmt.Sprintf("Aucun médicament trouvé pour « %s ». Vérifiez l'orthographe ou essayez la substance active.", name)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "J'ai trouvé %d médicament(s) pour « %s ».", len(records), name)
	first := records[0]
	if first.PriceEuros != nil {
		fmt.Fprintf(&b, " %s : %.2f €", first.Name, *first.PriceEuros)
		if first.ReimbursementRate != nil {
			fmt.Fprintf(&b, ", remboursé à %d %% par la Sécurité Sociale", *first.ReimbursementRate)
		}
		b.WriteString(".")
	}
	if g := first.GenericGroup; g != nil && g.GroupSize > 1 {
		fmt.Fprintf(&b, " Un groupe générique existe (%d spécialités).", g.GroupSize)
	}
	return b.String()
}

// ===== reimbursement_simulation =====

func (o *Orchestrator) reimbursementSimulation(ctx context.Context, q entities.Query, cls entities.Classification, ents []entities.ExtractedEntity) entities.Result {
	level := q.Profile.Mutuelle
	t := newTracker()

	med, hasMed := entities.BestEntity(ents, entities.KindMedication)
	if !hasMed {
		// Consultation simulation: pure barème computation, no external
		// call needed.
		kind := reimbursement.ConsultationGP
		if sp, ok := entities.BestEntity(ents, entities.KindSpecialty); ok {
			kind = consultationKind(sp.CanonicalValue)
		}
		breakdown := reimbursement.Consultation(kind, level)
		t.record(sources.SourceBaremes, nil)
		return entities.Result{
			Confidence:    t.degrade(cls.Confidence),
			Evidence:      t.evidence(o.store.GetIndex()),
			Breakdown:     &breakdown,
			NarrativeText: breakdownNarrative(breakdown, level),
		}
	}

	records, err := o.fetchMedications(ctx, med.CanonicalValue)
	t.record(sources.SourceBDPM, err)
	t.record(sources.SourceBaremes, nil)

	if err != nil || len(records) == 0 {
		return entities.Result{
			Confidence:    t.degrade(cls.Confidence),
			Evidence:      t.evidence(o.store.GetIndex()),
			NarrativeText: fmt.Sprintf("Je n'ai pas pu obtenir le prix public de « %s », la simulation de remboursement est indisponible pour le moment.", med.CanonicalValue),
		}
	}

	best := o.enrichMedication(ctx, pickPriced(records))
	breakdown, priced := reimbursement.Medication(best, level)
	if !priced {
		return entities.Result{
			Confidence:    t.degrade(cls.Confidence),
			Records:       wrapMedications([]entities.MedicationRecord{best}),
			Evidence:      t.evidence(o.store.GetIndex()),
			NarrativeText: fmt.Sprintf("« %s » n'a pas de prix public référencé (médicament non remboursable ou prix libre) : impossible de simuler le remboursement.", best.Name),
		}
	}

	return entities.Result{
		Confidence:    t.degrade(cls.Confidence),
		Records:       wrapMedications([]entities.MedicationRecord{best}),
		Evidence:      t.evidence(o.store.GetIndex()),
		Breakdown:     &breakdown,
		NarrativeText: breakdownNarrative(breakdown, level),
	}
}

// pickPriced prefers the first record carrying a public price.
func pickPriced(records []entities.MedicationRecord) entities.MedicationRecord {
	for _, r := range records {
		if r.PriceEuros != nil {
			return r
		}
	}
	return records[0]
}

func consultationKind(specialty string) reimbursement.ConsultationKind {
	switch specialty {
	case "kinésithérapeute":
		return reimbursement.ConsultationPhysiotherapy
	case "médecin généraliste":
		return reimbursement.ConsultationGP
	default:
		return reimbursement.ConsultationSpecialist
	}
}

func breakdownNarrative(b entities.CostBreakdown, level entities.MutuelleLevel) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s : prix de base %.2f €. La Sécurité Sociale prend en charge %.2f € (%.0f %%)", b.Label, b.BaseEuros, b.SecuEuros, b.SecuRate*100)
	if level != entities.MutuelleNone {
		fmt.Fprintf(&sb, ", votre mutuelle (%s) %.2f €", b.MutuelleLevel, b.MutuelleEuros)
	}
	fmt.Fprintf(&sb, ". Reste à charge : %.2f €.", b.RemainderEuros)

	if level != entities.MutuellePremium {
		remainders := reimbursement.CompareLevels(b.BaseEuros, b.SecuRate)
		if premium := remainders[entities.MutuellePremium]; premium < b.RemainderEuros {
			fmt.Fprintf(&sb, " Avec une mutuelle premium, le reste à charge tomberait à %.2f €.", premium)
		}
	}
	for _, tip := range b.SavingsTips {
		sb.WriteString(" ")
		sb.WriteString(tip)
	}
	return sb.String()
}

// ===== practitioner_search =====

func (o *Orchestrator) practitionerSearch(ctx context.Context, q entities.Query, cls entities.Classification, ents []entities.ExtractedEntity) entities.Result {
	idx := o.store.GetIndex()
	geo := geoConstraint(ents, q.Profile)
	t := newTracker()

	// Specialty and name are mutually exclusive strategies; specialty wins
	// when both entities exist.
	var (
		recs  []entities.PractitionerRecord
		err   error
		label string
	)
	fetchLimit := o.limit
	if !geo.IsZero() {
		// Over-fetch so the client-side geographic filter has material.
		fetchLimit = o.limit * 3
	}

	if sp, ok := entities.BestEntity(ents, entities.KindSpecialty); ok {
		code := idx.SpecialtyCode[sp.CanonicalValue]
		label = sp.CanonicalValue
		recs, err = fetchCached(ctx, o, sources.SourceAnnuaire, "role:"+code+":"+strconv.Itoa(fetchLimit), func(ctx context.Context) ([]entities.PractitionerRecord, error) {
			return o.directory.PractitionersBySpecialty(ctx, code, fetchLimit)
		})
	} else if nm, ok := entities.BestEntity(ents, entities.KindName); ok {
		family, given := splitPersonName(nm.CanonicalValue)
		label = nm.CanonicalValue
		recs, err = fetchCached(ctx, o, sources.SourceAnnuaire, "name:"+entities.Normalize(nm.CanonicalValue), func(ctx context.Context) ([]entities.PractitionerRecord, error) {
			return o.directory.PractitionersByName(ctx, family, given, fetchLimit)
		})
	} else {
		return entities.Result{
			Confidence:    cls.Confidence,
			NarrativeText: "Quel praticien cherchez-vous ? Précisez une spécialité (dentiste, cardiologue, ...) ou un nom.",
			Clarification: true,
		}
	}
	t.record(sources.SourceAnnuaire, err)

	filtered := filterPractitioners(recs, geo)
	if len(filtered) > o.limit {
		filtered = filtered[:o.limit]
	}

	return entities.Result{
		Confidence:    t.degrade(cls.Confidence),
		Records:       wrapPractitioners(filtered),
		Evidence:      t.evidence(idx),
		NarrativeText: practitionerNarrative(label, filtered, geo, err),
	}
}

// splitPersonName reads the last word as the family name, the rest as given
// names.
func splitPersonName(full string) (family, given string) {
	words := strings.Fields(full)
	switch len(words) {
	case 0:
		return "", ""
	case 1:
		return words[0], ""
	default:
		return words[len(words)-1], strings.Join(words[:len(words)-1], " ")
	}
}

func practitionerNarrative(label string, recs []entities.PractitionerRecord, geo entities.GeoFilter, err error) string {
	if err != nil {
		return "L'annuaire santé est momentanément indisponible, je n'ai pas pu effectuer la recherche. Réessayez dans quelques instants."
	}
	area := ""
	switch {
	case geo.City != "":
		area = " à " + upperFirst(geo.City)
	case geo.PostalCode != "":
		area = " autour de " + geo.PostalCode
	}
	if len(recs) == 0 {
		return fmt.Sprintf("Aucun praticien trouvé pour « %s »%s. Essayez d'élargir la zone de recherche.", label, area)
	}
	return fmt.Sprintf("J'ai trouvé %d praticien(s) pour « %s »%s.", len(recs), label, area)
}

// ===== organization_search =====

func (o *Orchestrator) organizationSearch(ctx context.Context, q entities.Query, cls entities.Classification, ents []entities.ExtractedEntity) entities.Result {
	geo := geoConstraint(ents, q.Profile)
	name := ""
	if nm, ok := entities.BestEntity(ents, entities.KindName); ok {
		name = nm.CanonicalValue
	}

	fetchLimit := o.limit
	if !geo.IsZero() {
		fetchLimit = o.limit * 3
	}

	t := newTracker()
	recs, err := fetchCached(ctx, o, sources.SourceAnnuaire, "org:"+entities.Normalize(name)+":"+strconv.Itoa(fetchLimit), func(ctx context.Context) ([]entities.OrganizationRecord, error) {
		return o.directory.Organizations(ctx, name, fetchLimit)
	})
	t.record(sources.SourceAnnuaire, err)

	filtered := filterOrganizations(recs, geo)
	if len(filtered) > o.limit {
		filtered = filtered[:o.limit]
	}

	narrative := ""
	switch {
	case err != nil:
		narrative = "L'annuaire santé est momentanément indisponible, je n'ai pas pu chercher d'établissement."
	case len(filtered) == 0:
		narrative = "Aucun établissement de santé trouvé pour cette recherche."
	default:
		narrative = fmt.Sprintf("J'ai trouvé %d établissement(s) de santé.", len(filtered))
	}

	return entities.Result{
		Confidence:    t.degrade(cls.Confidence),
		Records:       wrapOrganizations(filtered),
		Evidence:      t.evidence(o.store.GetIndex()),
		NarrativeText: narrative,
	}
}

// ===== care_pathway =====

// stepSpecialty maps specialist step types to the specialty label used by
// the regional statistics source.
var stepSpecialty = map[string]string{
	"specialist_rheumatology": "rhumatologue",
	"cardiology_consultation": "cardiologue",
	"endocrinology":           "endocrinologue",
}

func (o *Orchestrator) carePathway(ctx context.Context, q entities.Query, cls entities.Classification, ents []entities.ExtractedEntity) entities.Result {
	idx := o.store.GetIndex()
	level := q.Profile.Mutuelle

	condition := ""
	if c, ok := entities.BestEntity(ents, entities.KindCondition); ok {
		condition = c.CanonicalValue
	} else if len(q.Profile.KnownConditions) > 0 {
		condition = q.Profile.KnownConditions[0]
	}
	tpl := pathway.ForCondition(idx, condition)

	department := departmentOf(ents, q.Profile)
	geo := geoConstraint(ents, q.Profile)
	specialty := ""
	for _, s := range tpl.Steps {
		if sp, ok := stepSpecialty[s.Type]; ok {
			specialty = sp
			break
		}
	}

	t := newTracker()
	var (
		wg       sync.WaitGroup
		statsRec *entities.RegionalStatsRecord
		orgs     []entities.OrganizationRecord
	)

	if department != "" && o.stats != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := fetchCached(ctx, o, sources.SourceOdisse, "stats:"+department+":"+specialty, func(ctx context.Context) (entities.RegionalStatsRecord, error) {
				return o.stats.Indicators(ctx, department, specialty)
			})
			t.record(sources.SourceOdisse, err)
			if err == nil {
				statsRec = &rec
			}
		}()
	}
	if !geo.IsZero() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := fetchCached(ctx, o, sources.SourceAnnuaire, "org::"+strconv.Itoa(o.limit*3), func(ctx context.Context) ([]entities.OrganizationRecord, error) {
				return o.directory.Organizations(ctx, "", o.limit*3)
			})
			t.record(sources.SourceAnnuaire, err)
			if err == nil {
				orgs = filterOrganizations(recs, geo)
				if len(orgs) > 3 {
					orgs = orgs[:3]
				}
			}
		}()
	}
	wg.Wait()
	t.record(sources.SourceBaremes, nil)

	steps := pathway.Build(tpl, level, statsRec)
	tips := pathway.Tips(steps, level, statsRec)

	records := wrapPathwaySteps(steps)
	if statsRec != nil {
		records = append(records, entities.ExternalRecord{
			Source:        sources.SourceOdisse,
			FetchedAt:     time.Now(),
			Kind:          entities.RecordRegionalStats,
			RegionalStats: statsRec,
		})
	}
	records = append(records, wrapOrganizations(orgs)...)

	return entities.Result{
		Confidence:    t.degrade(cls.Confidence),
		Records:       records,
		Evidence:      t.evidence(idx),
		NarrativeText: pathwayNarrative(condition, tpl, steps, tips, statsRec),
	}
}

func pathwayNarrative(condition string, tpl entities.PathwayTemplate, steps []entities.PathwayStepRecord, tips []string, stats *entities.RegionalStatsRecord) string {
	var b strings.Builder
	if condition != "" {
		fmt.Fprintf(&b, "Parcours de soins recommandé (%s), en %d étape(s)", strings.ReplaceAll(condition, "_", " "), len(steps))
	} else {
		fmt.Fprintf(&b, "Parcours de soins général, en %d étape(s)", len(steps))
	}
	fmt.Fprintf(&b, " sur environ %.1f semaine(s). Reste à charge estimé : %.2f €.",
		pathway.TotalWeeks(steps), pathway.TotalRemainder(steps))
	if stats != nil {
		fmt.Fprintf(&b, " Densité médicale de votre région : %s, délai moyen de rendez-vous : %d jours.", stats.DensityLevel, stats.AvgDelayDays)
	}
	for _, tip := range tips {
		b.WriteString(" ")
		b.WriteString(tip)
	}
	return b.String()
}

// ===== document_analysis / general_query =====

func (o *Orchestrator) documentAnalysis(cls entities.Classification) entities.Result {
	return entities.Result{
		Confidence: cls.Confidence,
		NarrativeText: "Je peux analyser vos documents de santé : carte de tiers payant, feuille de soins ou ordonnance. " +
			"Transmettez le document depuis l'application ; j'en extrairai les garanties et les montants remboursables.",
	}
}

func (o *Orchestrator) generalQuery(cls entities.Classification) entities.Result {
	return entities.Result{
		Confidence: cls.Confidence,
		NarrativeText: "Je peux vous aider sur le prix et le remboursement d'un médicament, la recherche d'un praticien ou d'un établissement, " +
			"et les parcours de soins. Par exemple : « Combien coûte le Doliprane avec ma mutuelle ? » ou « Trouver un cardiologue à Lyon ».",
	}
}

// ===== geography and record wrapping =====

// geoConstraint picks the geographic narrowing for directory lookups: a
// location entity first (postal code or known city), the session profile
// otherwise.
func geoConstraint(ents []entities.ExtractedEntity, p entities.Profile) entities.GeoFilter {
	if loc, ok := entities.BestEntity(ents, entities.KindLocation); ok {
		if isPostalCode(loc.CanonicalValue) {
			return entities.GeoFilter{PostalCode: loc.CanonicalValue}
		}
		return entities.GeoFilter{City: loc.CanonicalValue}
	}
	if p.City != "" {
		return entities.GeoFilter{City: p.City}
	}
	if p.Department != "" {
		return entities.GeoFilter{PostalCode: p.Department}
	}
	return entities.GeoFilter{}
}

// departmentOf extracts the department code for regional statistics.
func departmentOf(ents []entities.ExtractedEntity, p entities.Profile) string {
	if loc, ok := entities.BestEntity(ents, entities.KindLocation); ok && isPostalCode(loc.CanonicalValue) {
		return loc.CanonicalValue[:2]
	}
	if p.Department != "" {
		return p.Department
	}
	return ""
}

// upperFirst capitalizes a lowercase city name for display.
func upperFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func isPostalCode(s string) bool {
	if len(s) != 5 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// matchGeo applies the client-side filter: postal codes match exactly, or by
// department prefix when the constraint is a 2-digit department; cities
// match accent- and case-insensitively.
func matchGeo(city, postal string, geo entities.GeoFilter) bool {
	if geo.IsZero() {
		return true
	}
	if geo.PostalCode != "" {
		if len(geo.PostalCode) == 2 {
			return strings.HasPrefix(postal, geo.PostalCode)
		}
		return postal == geo.PostalCode
	}
	return entities.Normalize(city) == entities.Normalize(geo.City)
}

func filterPractitioners(recs []entities.PractitionerRecord, geo entities.GeoFilter) []entities.PractitionerRecord {
	if geo.IsZero() {
		return recs
	}
	out := make([]entities.PractitionerRecord, 0, len(recs))
	for _, r := range recs {
		if matchGeo(r.City, r.PostalCode, geo) {
			out = append(out, r)
		}
	}
	return out
}

func filterOrganizations(recs []entities.OrganizationRecord, geo entities.GeoFilter) []entities.OrganizationRecord {
	if geo.IsZero() {
		return recs
	}
	out := make([]entities.OrganizationRecord, 0, len(recs))
	for _, r := range recs {
		if matchGeo(r.Address.City, r.Address.PostalCode, geo) {
			out = append(out, r)
		}
	}
	return out
}

func wrapMedications(recs []entities.MedicationRecord) []entities.ExternalRecord {
	out := make([]entities.ExternalRecord, 0, len(recs))
	for i := range recs {
		out = append(out, entities.ExternalRecord{
			Source:     sources.SourceBDPM,
			FetchedAt:  time.Now(),
			Kind:       entities.RecordMedication,
			Medication: &recs[i],
		})
	}
	return out
}

func wrapPractitioners(recs []entities.PractitionerRecord) []entities.ExternalRecord {
	out := make([]entities.ExternalRecord, 0, len(recs))
	for i := range recs {
		out = append(out, entities.ExternalRecord{
			Source:       sources.SourceAnnuaire,
			FetchedAt:    time.Now(),
			Kind:         entities.RecordPractitioner,
			Practitioner: &recs[i],
		})
	}
	return out
}

func wrapOrganizations(recs []entities.OrganizationRecord) []entities.ExternalRecord {
	out := make([]entities.ExternalRecord, 0, len(recs))
	for i := range recs {
		out = append(out, entities.ExternalRecord{
			Source:       sources.SourceAnnuaire,
			FetchedAt:    time.Now(),
			Kind:         entities.RecordOrganization,
			Organization: &recs[i],
		})
	}
	return out
}

func wrapPathwaySteps(steps []entities.PathwayStepRecord) []entities.ExternalRecord {
	out := make([]entities.ExternalRecord, 0, len(steps))
	for i := range steps {
		out = append(out, entities.ExternalRecord{
			Source:      sources.SourceBaremes,
			FetchedAt:   time.Now(),
			Kind:        entities.RecordPathwayStep,
			PathwayStep: &steps[i],
		})
	}
	return out
}
