package fhirsync

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ehr/healthsync/internal/domain/healthrecord"
	"github.com/ehr/healthsync/internal/domain/identity"
)

func strp(s string) *string { return &s }

// -- Mock Patient Repository --

type mockPatientRepo struct {
	mu          sync.Mutex
	patients    map[uuid.UUID]*identity.Patient
	userEntered int
	deletes     int
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[uuid.UUID]*identity.Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *identity.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.patients {
		if p.Linked() && cur.RemoteID() == p.RemoteID() {
			return errors.New("duplicate fhir_id")
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*identity.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, identity.ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByFHIRID(_ context.Context, fhirID string) (*identity.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.RemoteID() == fhirID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, identity.ErrPatientNotFound
}

func (m *mockPatientRepo) GetByUserID(_ context.Context, userID string) (*identity.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, identity.ErrPatientNotFound
}

func (m *mockPatientRepo) UpdateDemographics(_ context.Context, p *identity.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.patients[p.ID]
	if !ok {
		return identity.ErrPatientNotFound
	}
	cur.SetDemographics(p.Demographics())
	return nil
}

func (m *mockPatientRepo) UpdateProfile(_ context.Context, p *identity.Patient) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.patients[p.ID]
	if !ok {
		return identity.ErrPatientNotFound
	}
	cur.SetProfile(p.Profile())
	return nil
}

func (m *mockPatientRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.patients[id]; !ok {
		return identity.ErrPatientNotFound
	}
	delete(m.patients, id)
	m.deletes++
	return nil
}

func (m *mockPatientRepo) CountUserEntered(context.Context, uuid.UUID) (int, error) {
	return m.userEntered, nil
}

func (m *mockPatientRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.patients)
}

// -- Mock Linked Store --

type storeKey struct {
	patient uuid.UUID
	fhirID  string
}

// mockStore keeps linked rows keyed by (patient, fhir_id) and user-entered
// rows separately; the linked API never sees the latter.
type mockStore[R healthrecord.Record] struct {
	mu          sync.Mutex
	rows        map[storeKey]R
	userEntered map[uuid.UUID][]R
	failCreate  error
	writes      int
}

func newMockStore[R healthrecord.Record]() *mockStore[R] {
	return &mockStore[R]{rows: make(map[storeKey]R), userEntered: make(map[uuid.UUID][]R)}
}

func (s *mockStore[R]) GetByFHIRID(_ context.Context, patientID uuid.UUID, fhirID string) (R, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[storeKey{patientID, fhirID}]
	if !ok {
		var zero R
		return zero, healthrecord.ErrNotFound
	}
	return r, nil
}

func (s *mockStore[R]) ListFHIRIDs(_ context.Context, patientID uuid.UUID) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for k := range s.rows {
		if k.patient == patientID {
			ids = append(ids, k.fhirID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *mockStore[R]) List(_ context.Context, patientID uuid.UUID) ([]R, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []R
	for k, r := range s.rows {
		if k.patient == patientID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *mockStore[R]) Create(_ context.Context, r R) error {
	if err := healthrecord.CheckLinked(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate != nil {
		return s.failCreate
	}
	b := r.Base()
	k := storeKey{b.PatientID, b.RemoteID()}
	if _, dup := s.rows[k]; dup {
		return errors.New("unique violation")
	}
	b.ID = uuid.New()
	s.rows[k] = r
	s.writes++
	return nil
}

func (s *mockStore[R]) UpdateByFHIRID(_ context.Context, r R) error {
	if err := healthrecord.CheckLinked(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := r.Base()
	k := storeKey{b.PatientID, b.RemoteID()}
	cur, ok := s.rows[k]
	if !ok {
		return healthrecord.ErrNotFound
	}
	b.ID = cur.Base().ID
	s.rows[k] = r
	s.writes++
	return nil
}

func (s *mockStore[R]) DeleteByFHIRID(_ context.Context, patientID uuid.UUID, fhirID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := storeKey{patientID, fhirID}
	if _, ok := s.rows[k]; !ok {
		return healthrecord.ErrNotFound
	}
	delete(s.rows, k)
	s.writes++
	return nil
}

func (s *mockStore[R]) DeleteAllLinked(_ context.Context, patientID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k := range s.rows {
		if k.patient == patientID {
			delete(s.rows, k)
			n++
		}
	}
	return n, nil
}

func (s *mockStore[R]) ids(patientID uuid.UUID) []string {
	ids, _ := s.ListFHIRIDs(context.Background(), patientID)
	return ids
}

func (s *mockStore[R]) get(patientID uuid.UUID, fhirID string) R {
	r, _ := s.GetByFHIRID(context.Background(), patientID, fhirID)
	return r
}

func (s *mockStore[R]) put(r R) {
	b := r.Base()
	b.ID = uuid.New()
	s.rows[storeKey{b.PatientID, b.RemoteID()}] = r
}

type mockStores struct {
	conditions  *mockStore[*healthrecord.Condition]
	allergies   *mockStore[*healthrecord.Allergy]
	medications *mockStore[*healthrecord.Medication]
	hospital    *mockStore[*healthrecord.Hospitalization]
	surgeries   *mockStore[*healthrecord.SurgeryProcedure]
	discharges  *mockStore[*healthrecord.DischargeInstruction]
	goals       *mockStore[*healthrecord.Goal]
}

func newMockStores() *mockStores {
	return &mockStores{
		conditions:  newMockStore[*healthrecord.Condition](),
		allergies:   newMockStore[*healthrecord.Allergy](),
		medications: newMockStore[*healthrecord.Medication](),
		hospital:    newMockStore[*healthrecord.Hospitalization](),
		surgeries:   newMockStore[*healthrecord.SurgeryProcedure](),
		discharges:  newMockStore[*healthrecord.DischargeInstruction](),
		goals:       newMockStore[*healthrecord.Goal](),
	}
}

func (m *mockStores) stores() *healthrecord.Stores {
	return &healthrecord.Stores{
		Conditions:            m.conditions,
		Allergies:             m.allergies,
		Medications:           m.medications,
		Hospitalizations:      m.hospital,
		SurgeryProcedures:     m.surgeries,
		DischargeInstructions: m.discharges,
		Goals:                 m.goals,
	}
}

// -- Mock Status Repository --

type mockStatusRepo struct {
	mu   sync.Mutex
	rows map[string]*SyncStatus
}

func newMockStatusRepo() *mockStatusRepo {
	return &mockStatusRepo{rows: make(map[string]*SyncStatus)}
}

func (m *mockStatusRepo) Get(_ context.Context, fhirID string) (*SyncStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[fhirID]
	if !ok {
		return nil, ErrStatusNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockStatusRepo) Upsert(_ context.Context, fhirID string, at time.Time, ok bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[fhirID] = &SyncStatus{PatientFHIRID: fhirID, LastSyncedAt: &at, Status: ok}
	return nil
}

func (m *mockStatusRepo) Delete(_ context.Context, fhirID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, fhirID)
	return nil
}

// -- Transactions --

type directTx struct{ calls int }

func (d *directTx) InTx(ctx context.Context, fn func(context.Context) error) error {
	d.calls++
	return fn(ctx)
}

// -- Fake Source --

// fakeSource serves canned remote state and counts calls per resource.
type fakeSource struct {
	mu      sync.Mutex
	patient *identity.Patient
	found   bool
	patErr  error

	conditions  []*healthrecord.Condition
	allergies   []*healthrecord.Allergy
	medications []*healthrecord.Medication
	hospital    []*healthrecord.Hospitalization
	discharges  []*healthrecord.DischargeInstruction
	surgeries   []*healthrecord.SurgeryProcedure
	goals       []*healthrecord.Goal

	errs  map[string]error
	calls map[string]int
}

func newFakeSource(fhirID string) *fakeSource {
	return &fakeSource{
		patient: &identity.Patient{FHIRID: strp(fhirID), FirstName: strp("Ada"), LastName: strp("Byron")},
		found:   true,
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeSource) hit(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.errs[name]
}

func (f *fakeSource) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSource) totalCollectionCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k, v := range f.calls {
		if k != "Patient" {
			n += v
		}
	}
	return n
}

func (f *fakeSource) Patient(context.Context, string) (*identity.Patient, bool, error) {
	if err := f.hit("Patient"); err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patErr != nil {
		return nil, false, f.patErr
	}
	if !f.found {
		return nil, false, nil
	}
	cp := *f.patient
	return &cp, true, nil
}

func (f *fakeSource) setFound(found bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.found = found
}

// cloneFor copies remote items the way a fresh fetch would, injecting the
// local patient id.
func cloneFor[T any, R interface {
	*T
	healthrecord.Record
}](items []R, patientID uuid.UUID) []R {
	out := make([]R, 0, len(items))
	for _, it := range items {
		cp := new(T)
		*cp = *(*T)(it)
		r := R(cp)
		r.Base().PatientID = patientID
		out = append(out, r)
	}
	return out
}

func (f *fakeSource) Conditions(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.Condition, error) {
	if err := f.hit("Condition"); err != nil {
		return nil, err
	}
	return cloneFor(f.conditions, pid), nil
}

func (f *fakeSource) Allergies(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.Allergy, error) {
	if err := f.hit("AllergyIntolerance"); err != nil {
		return nil, err
	}
	return cloneFor(f.allergies, pid), nil
}

func (f *fakeSource) Medications(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.Medication, error) {
	if err := f.hit("MedicationStatement"); err != nil {
		return nil, err
	}
	return cloneFor(f.medications, pid), nil
}

func (f *fakeSource) Hospitalizations(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.Hospitalization, error) {
	if err := f.hit("Encounter"); err != nil {
		return nil, err
	}
	return cloneFor(f.hospital, pid), nil
}

func (f *fakeSource) DischargeInstructions(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.DischargeInstruction, error) {
	if err := f.hit("ClinicalImpression"); err != nil {
		return nil, err
	}
	return cloneFor(f.discharges, pid), nil
}

func (f *fakeSource) SurgeryProcedures(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.SurgeryProcedure, error) {
	if err := f.hit("Procedure"); err != nil {
		return nil, err
	}
	return cloneFor(f.surgeries, pid), nil
}

func (f *fakeSource) Goals(_ context.Context, _ string, pid uuid.UUID) ([]*healthrecord.Goal, error) {
	if err := f.hit("Goal"); err != nil {
		return nil, err
	}
	return cloneFor(f.goals, pid), nil
}

// -- Fake Clock --

type waiter struct {
	at time.Time
	ch chan time.Time
}

// fakeClock only moves when Advance is called.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []waiter
	added   chan struct{}
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start, added: make(chan struct{}, 100)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, waiter{at: c.now.Add(d), ch: ch})
	c.mu.Unlock()
	c.added <- struct{}{}
	return ch
}

// waitForSleeper blocks until some goroutine calls After.
func (c *fakeClock) waitForSleeper(timeout time.Duration) bool {
	select {
	case <-c.added:
		return true
	case <-time.After(timeout):
		return false
	}
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}
