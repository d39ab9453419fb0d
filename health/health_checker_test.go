package health

import (
	"net/http"
	"testing"
	"time"

	"github.com/mediflux/assistant-api/entities"
)

// fakeStore controls reference age and reload state for threshold tests.
type fakeStore struct {
	ref        entities.Reference
	idx        *entities.ReferenceIndex
	lastLoaded time.Time
	reloading  bool
}

func (f *fakeStore) GetReference() entities.Reference   { return f.ref }
func (f *fakeStore) GetIndex() *entities.ReferenceIndex { return f.idx }
func (f *fakeStore) GetLastLoaded() time.Time           { return f.lastLoaded }
func (f *fakeStore) IsReloading() bool                  { return f.reloading }
func (f *fakeStore) GetServerStartTime() time.Time      { return time.Time{} }
func (f *fakeStore) SetServerStartTime(time.Time)       {}
func (f *fakeStore) UpdateReference(ref entities.Reference, idx *entities.ReferenceIndex) {
	f.ref, f.idx = ref, idx
}
func (f *fakeStore) BeginReload() bool { return true }
func (f *fakeStore) EndReload()        {}

func populatedStore(age time.Duration) *fakeStore {
	return &fakeStore{
		ref: entities.Reference{
			Conditions:  []entities.ConditionEntry{{Canonical: "mal de dos"}},
			Medications: []entities.MedicationEntry{{Canonical: "Doliprane"}},
			Specialties: []entities.SpecialtyEntry{{Canonical: "dentiste", Code: "86"}},
			Pathways:    []entities.PathwayTemplate{{Name: "general"}},
		},
		idx: &entities.ReferenceIndex{
			Keywords: map[string][]entities.KeywordTarget{"doliprane": nil},
		},
		lastLoaded: time.Now().Add(-age),
	}
}

// ===== Status thresholds =====

func TestHealthCheckHealthyWithFreshReference(t *testing.T) {
	checker := NewHealthChecker(populatedStore(time.Hour))

	status, data, httpStatus := checker.HealthCheck()

	if status != "healthy" {
		t.Errorf("Expected healthy, got %s", status)
	}
	if httpStatus != http.StatusOK {
		t.Errorf("Expected status 200, got %d", httpStatus)
	}
	if data["conditions"] != 1 {
		t.Errorf("Expected 1 condition reported, got %v", data["conditions"])
	}
	if data["is_reloading"] != false {
		t.Errorf("Expected is_reloading false, got %v", data["is_reloading"])
	}
}

func TestHealthCheckUnhealthyWithEmptyReference(t *testing.T) {
	store := &fakeStore{idx: &entities.ReferenceIndex{}, lastLoaded: time.Now()}
	checker := NewHealthChecker(store)

	status, _, httpStatus := checker.HealthCheck()

	if status != "unhealthy" {
		t.Errorf("Expected unhealthy, got %s", status)
	}
	if httpStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", httpStatus)
	}
}

func TestHealthCheckDegradedAfterMissedReload(t *testing.T) {
	checker := NewHealthChecker(populatedStore(30 * time.Hour))

	status, _, httpStatus := checker.HealthCheck()

	if status != "degraded" {
		t.Errorf("Expected degraded, got %s", status)
	}
	if httpStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", httpStatus)
	}
}

func TestHealthCheckUnhealthyAfterTwoMissedReloads(t *testing.T) {
	checker := NewHealthChecker(populatedStore(50 * time.Hour))

	status, _, _ := checker.HealthCheck()

	if status != "unhealthy" {
		t.Errorf("Expected unhealthy, got %s", status)
	}
}

func TestHealthCheckDegradedWhileLongReload(t *testing.T) {
	store := populatedStore(7 * time.Hour)
	store.reloading = true
	checker := NewHealthChecker(store)

	status, _, _ := checker.HealthCheck()

	if status != "degraded" {
		t.Errorf("Expected degraded during a long reload, got %s", status)
	}
}

func TestHealthCheckReportsAge(t *testing.T) {
	checker := NewHealthChecker(populatedStore(2 * time.Hour))

	_, data, _ := checker.HealthCheck()

	age, ok := data["reference_age_hours"].(float64)
	if !ok {
		t.Fatalf("Expected a numeric reference age, got %T", data["reference_age_hours"])
	}
	if age < 1.9 || age > 2.1 {
		t.Errorf("Expected an age around 2 hours, got %v", age)
	}
}

// ===== Next reload =====

func TestCalculateNextReloadIsUpcomingSixAM(t *testing.T) {
	checker := NewHealthChecker(populatedStore(time.Hour))

	next := checker.CalculateNextReload()

	if !next.After(time.Now()) {
		t.Error("Expected the next reload in the future")
	}
	if next.Hour() != 6 || next.Minute() != 0 {
		t.Errorf("Expected a 06:00 reload slot, got %s", next.Format("15:04"))
	}
	if time.Until(next) > 24*time.Hour {
		t.Errorf("Expected the next reload within 24 hours, got %s", time.Until(next))
	}
}
