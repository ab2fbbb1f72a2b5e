package issuance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clearance-networks/cnd-service/internal/cnd"
	"github.com/clearance-networks/cnd-service/internal/cnd/store"
	"github.com/clearance-networks/cnd-service/internal/entity"
	"github.com/clearance-networks/cnd-service/internal/render"
)

// captureScheduler records enqueued IDs; accept controls the return value
type captureScheduler struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	accept   bool
}

func (s *captureScheduler) Enqueue(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enqueued = append(s.enqueued, id)
	return s.accept
}

// sequenceCodeGenerator returns a fixed sequence of codes, then repeats the
// last one. Used to force validation code collisions.
type sequenceCodeGenerator struct {
	codes []string
	next  int
}

func (g *sequenceCodeGenerator) Generate(now time.Time) string {
	if g.next < len(g.codes)-1 {
		code := g.codes[g.next]
		g.next++
		return code
	}
	return g.codes[len(g.codes)-1]
}

func testOptions() Options {
	return Options{
		Validity:          720 * time.Hour,
		Window:            time.Hour,
		Threshold:         5,
		CodeMaxRetries:    3,
		ValidationBaseURL: "https://cnd.example.com",
	}
}

func seedUnit(t *testing.T, entities entity.Store) *entity.Unit {
	t.Helper()
	ctx := context.Background()

	condominium := &entity.Condominium{
		Name:   "Edifício Aurora",
		Street: "Rua das Flores",
		Number: "120",
		City:   "São Paulo",
		State:  "SP",
		Active: true,
	}
	if err := entities.CreateCondominium(ctx, condominium); err != nil {
		t.Fatalf("CreateCondominium() returned error: %v", err)
	}

	unit := &entity.Unit{CondominiumID: condominium.ID, Code: "101", Block: "A", Active: true}
	if err := entities.CreateUnit(ctx, unit); err != nil {
		t.Fatalf("CreateUnit() returned error: %v", err)
	}
	return unit
}

func newTestCoordinator(t *testing.T) (*Coordinator, entity.Store, *store.InMemoryStore, *captureScheduler, *entity.Unit) {
	t.Helper()
	entities := entity.NewInMemoryStore()
	records := store.NewInMemoryStore()
	scheduler := &captureScheduler{accept: true}
	unit := seedUnit(t, entities)

	coordinator := NewCoordinator(entities, records, NewRandomCodeGenerator(),
		render.NewCanonicalJSONRenderer(), scheduler, testOptions())
	return coordinator, entities, records, scheduler, unit
}

func TestIssue(t *testing.T) {
	coordinator, _, records, scheduler, unit := newTestCoordinator(t)
	ctx := context.Background()

	resp, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{WithSignature: true, Channel: "WEB"}, "203.0.113.7")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}

	if resp.Status != cnd.StatusPending {
		t.Errorf("status = %s, want %s", resp.Status, cnd.StatusPending)
	}
	if resp.ValidationCode == "" {
		t.Error("response has no validation code")
	}
	if resp.DocumentHash == "" {
		t.Error("response has no document hash")
	}
	if want := "https://cnd.example.com/api/cnd/validate/" + resp.ValidationCode; resp.ValidationURL != want {
		t.Errorf("validation URL = %s, want %s", resp.ValidationURL, want)
	}
	if !resp.ExpiresAt.Equal(resp.IssuedAt.Add(720 * time.Hour)) {
		t.Error("expiry is not issuance time plus validity")
	}

	// a record was persisted and handed to the signing pipeline
	record, err := records.GetByCode(ctx, resp.ValidationCode)
	if err != nil {
		t.Fatalf("GetByCode() returned error: %v", err)
	}
	if record.Status != cnd.StatusPending {
		t.Errorf("stored status = %s, want PENDING", record.Status)
	}
	if record.OriginAddress != "203.0.113.7" {
		t.Errorf("origin address = %s, want 203.0.113.7", record.OriginAddress)
	}
	if len(scheduler.enqueued) != 1 || scheduler.enqueued[0] != record.ID {
		t.Error("record was not enqueued for signing")
	}
}

func TestIssueUnknownUnit(t *testing.T) {
	coordinator, _, _, _, _ := newTestCoordinator(t)

	_, err := coordinator.Issue(context.Background(), uuid.New(), cnd.IssueRequest{Channel: "WEB"}, "")
	if !cnd.HasCode(err, cnd.ErrCodeNotFound) {
		t.Errorf("Issue() returned %v, want not_found", err)
	}
}

func TestIssueInactiveUnit(t *testing.T) {
	coordinator, entities, _, _, unit := newTestCoordinator(t)
	ctx := context.Background()

	if err := entities.SetUnitActive(ctx, unit.ID, false); err != nil {
		t.Fatalf("SetUnitActive() returned error: %v", err)
	}

	_, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{Channel: "WEB"}, "")
	if !cnd.HasCode(err, cnd.ErrCodeNotFound) {
		t.Errorf("Issue() returned %v, want not_found", err)
	}
}

func TestIssueIneligibleUnit(t *testing.T) {
	coordinator, entities, records, _, unit := newTestCoordinator(t)
	ctx := context.Background()

	debt := &entity.Debt{UnitID: unit.ID, Description: "condo fee", AmountCents: 85000, DueDate: time.Now().UTC()}
	if err := entities.AddDebt(ctx, debt); err != nil {
		t.Fatalf("AddDebt() returned error: %v", err)
	}

	_, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{Channel: "WEB"}, "")
	if !cnd.HasCode(err, cnd.ErrCodeIneligible) {
		t.Errorf("Issue() returned %v, want ineligible", err)
	}

	// settling the debt makes the unit eligible again
	if err := entities.SettleDebt(ctx, debt.ID); err != nil {
		t.Fatalf("SettleDebt() returned error: %v", err)
	}
	if _, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{Channel: "WEB"}, ""); err != nil {
		t.Errorf("Issue() after settlement returned error: %v", err)
	}

	// the ineligible attempt must not have left a record behind
	if _, err := records.GetByCode(ctx, "no-such-code"); err == nil {
		t.Error("unexpected record for rejected issuance")
	}
}

// a duplicate request inside the window re-surfaces the existing record: same
// validation code, incremented counter, no second record
func TestIssueDuplicateReSurfacesRecord(t *testing.T) {
	coordinator, _, records, scheduler, unit := newTestCoordinator(t)
	ctx := context.Background()
	req := cnd.IssueRequest{WithSignature: true, Channel: "WEB"}

	first, err := coordinator.Issue(ctx, unit.ID, req, "")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}

	second, err := coordinator.Issue(ctx, unit.ID, req, "")
	if err != nil {
		t.Fatalf("duplicate Issue() returned error: %v", err)
	}

	if second.ValidationCode != first.ValidationCode {
		t.Errorf("duplicate got code %s, want %s", second.ValidationCode, first.ValidationCode)
	}
	if second.DocumentHash != first.DocumentHash {
		t.Error("duplicate got a different document hash")
	}

	record, err := records.GetByCode(ctx, first.ValidationCode)
	if err != nil {
		t.Fatalf("GetByCode() returned error: %v", err)
	}
	if record.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", record.AttemptCount)
	}

	// only the first request reaches the signing queue
	if len(scheduler.enqueued) != 1 {
		t.Errorf("enqueued %d records, want 1", len(scheduler.enqueued))
	}
}

// different request options are different fingerprints, so both get records
func TestIssueDifferentOptionsAreNotDuplicates(t *testing.T) {
	coordinator, _, _, scheduler, unit := newTestCoordinator(t)
	ctx := context.Background()

	first, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{WithPeriod: false, Channel: "WEB"}, "")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}
	second, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{WithPeriod: true, Channel: "WEB"}, "")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}

	if first.ValidationCode == second.ValidationCode {
		t.Error("distinct requests re-surfaced the same record")
	}
	if len(scheduler.enqueued) != 2 {
		t.Errorf("enqueued %d records, want 2", len(scheduler.enqueued))
	}
}

func TestIssueRateLimited(t *testing.T) {
	coordinator, _, _, _, unit := newTestCoordinator(t)
	ctx := context.Background()
	req := cnd.IssueRequest{Channel: "WEB"}

	// the first request creates the record at attempt 1; the next four are
	// admitted duplicates
	for i := 0; i < 5; i++ {
		if _, err := coordinator.Issue(ctx, unit.ID, req, ""); err != nil {
			t.Fatalf("Issue() %d returned error: %v", i+1, err)
		}
	}

	_, err := coordinator.Issue(ctx, unit.ID, req, "")
	if !cnd.HasCode(err, cnd.ErrCodeRateLimited) {
		t.Errorf("Issue() past the threshold returned %v, want rate_limited", err)
	}
}

// collisions regenerate the code; the retried request still succeeds
// concurrent identical first-time requests must collapse onto one record:
// with threshold 5, exactly five are accepted and all carry the same code
func TestIssueConcurrentIdenticalRequests(t *testing.T) {
	coordinator, _, records, scheduler, unit := newTestCoordinator(t)
	ctx := context.Background()
	req := cnd.IssueRequest{Channel: "WEB"}

	const requests = 16
	start := make(chan struct{})
	var wg sync.WaitGroup
	responses := make(chan *cnd.IssueResponse, requests)
	rejections := make(chan error, requests)
	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			resp, err := coordinator.Issue(ctx, unit.ID, req, "")
			if err != nil {
				rejections <- err
				return
			}
			responses <- resp
		}()
	}
	close(start)
	wg.Wait()
	close(responses)
	close(rejections)

	codes := make(map[string]bool)
	accepted := 0
	for resp := range responses {
		accepted++
		codes[resp.ValidationCode] = true
	}
	if accepted != 5 {
		t.Errorf("accepted = %d, want 5", accepted)
	}
	if len(codes) != 1 {
		t.Fatalf("accepted responses carry %d distinct codes, want 1", len(codes))
	}

	for err := range rejections {
		if !cnd.HasCode(err, cnd.ErrCodeRateLimited) {
			t.Errorf("rejected request returned %v, want rate_limited", err)
		}
	}

	for code := range codes {
		record, err := records.GetByCode(ctx, code)
		if err != nil {
			t.Fatalf("GetByCode() returned error: %v", err)
		}
		if record.AttemptCount != 5 {
			t.Errorf("attempt count = %d, want 5", record.AttemptCount)
		}
	}

	// only the winning record reached the signing pipeline
	if len(scheduler.enqueued) != 1 {
		t.Errorf("enqueued %d records, want 1", len(scheduler.enqueued))
	}
}

func TestIssueRetriesCodeCollision(t *testing.T) {
	entities := entity.NewInMemoryStore()
	records := store.NewInMemoryStore()
	scheduler := &captureScheduler{accept: true}
	unit := seedUnit(t, entities)
	ctx := context.Background()

	// pre-occupy the first code the generator will produce
	taken := newOccupyingRecord("CND260831001")
	if err := records.Create(ctx, taken); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}

	generator := &sequenceCodeGenerator{codes: []string{"CND260831001", "CND260831002"}}
	coordinator := NewCoordinator(entities, records, generator,
		render.NewCanonicalJSONRenderer(), scheduler, testOptions())

	resp, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{Channel: "WEB"}, "")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}
	if resp.ValidationCode != "CND260831002" {
		t.Errorf("validation code = %s, want CND260831002", resp.ValidationCode)
	}
}

func TestIssueCodeGenerationExhausted(t *testing.T) {
	entities := entity.NewInMemoryStore()
	records := store.NewInMemoryStore()
	unit := seedUnit(t, entities)
	ctx := context.Background()

	if err := records.Create(ctx, newOccupyingRecord("CND260831001")); err != nil {
		t.Fatalf("Create() returned error: %v", err)
	}

	// every attempt collides
	generator := &sequenceCodeGenerator{codes: []string{"CND260831001"}}
	coordinator := NewCoordinator(entities, records, generator,
		render.NewCanonicalJSONRenderer(), &captureScheduler{accept: true}, testOptions())

	_, err := coordinator.Issue(ctx, unit.ID, cnd.IssueRequest{Channel: "WEB"}, "")
	if !cnd.HasCode(err, cnd.ErrCodeCodeGenerationExhausted) {
		t.Errorf("Issue() returned %v, want code_generation_exhausted", err)
	}
}

// a full signing queue is not an issuance failure - the record stays PENDING
func TestIssueQueueFullStillSucceeds(t *testing.T) {
	entities := entity.NewInMemoryStore()
	records := store.NewInMemoryStore()
	unit := seedUnit(t, entities)

	coordinator := NewCoordinator(entities, records, NewRandomCodeGenerator(),
		render.NewCanonicalJSONRenderer(), &captureScheduler{accept: false}, testOptions())

	resp, err := coordinator.Issue(context.Background(), unit.ID, cnd.IssueRequest{Channel: "WEB"}, "")
	if err != nil {
		t.Fatalf("Issue() returned error: %v", err)
	}
	if resp.Status != cnd.StatusPending {
		t.Errorf("status = %s, want PENDING", resp.Status)
	}
}

// record occupying a validation code, unrelated to the unit under test
func newOccupyingRecord(code string) *cnd.Certificate {
	return &cnd.Certificate{
		ValidationCode:     code,
		UnitID:             uuid.New(),
		RequestFingerprint: "occupied",
		Status:             cnd.StatusPending,
		Channel:            "WEB",
		RawDocument:        []byte(`{}`),
		AttemptCount:       1,
		ExpiresAt:          time.Now().UTC().Add(time.Hour),
	}
}
