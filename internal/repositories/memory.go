package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"salespipeline/internal/models"
)

// MemoryStore keeps every table in process memory behind a single mutex, so
// each repository call, including a lead conversion touching two
// aggregates, is atomic. It backs the "memory" storage driver and tests.
type MemoryStore struct {
	mu  sync.Mutex
	now func() time.Time

	opportunities map[int64]*models.Opportunity
	leads         map[int64]*models.Lead
	companies     map[int64]*models.Company
	quotations    map[int64]*models.Quotation
	acks          map[int64]*models.OrderAcknowledgement
	history       []models.StageTransition
	lastID        map[string]int64
	sequences     map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:           time.Now,
		opportunities: make(map[int64]*models.Opportunity),
		leads:         make(map[int64]*models.Lead),
		companies:     make(map[int64]*models.Company),
		quotations:    make(map[int64]*models.Quotation),
		acks:          make(map[int64]*models.OrderAcknowledgement),
		lastID:        make(map[string]int64),
		sequences:     make(map[string]int64),
	}
}

func (s *MemoryStore) Opportunities() OpportunityRepository { return memOpportunities{s} }
func (s *MemoryStore) Leads() LeadRepository                 { return memLeads{s} }
func (s *MemoryStore) Companies() CompanyRepository          { return memCompanies{s} }
func (s *MemoryStore) Quotations() QuotationRepository       { return memQuotations{s} }
func (s *MemoryStore) OrderAcks() OrderAckRepository         { return memOrderAcks{s} }

// NextValue makes the store usable as an idgen.Sequencer.
func (s *MemoryStore) NextValue(_ context.Context, prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[prefix]++
	return s.sequences[prefix], nil
}

func (s *MemoryStore) nextID(table string) int64 {
	s.lastID[table]++
	return s.lastID[table]
}

// snapshot returns a copy of opp with derived fields filled in. Callers hold mu.
func (s *MemoryStore) snapshot(opp *models.Opportunity) *models.Opportunity {
	c := opp.Clone()
	c.HasQuotation = false
	for _, q := range s.quotations {
		if q.OpportunityID == opp.ID {
			c.HasQuotation = true
			break
		}
	}
	return c
}

func (s *MemoryStore) insertOpportunity(opp *models.Opportunity) {
	now := s.now()
	opp.ID = s.nextID("opportunities")
	if opp.CreatedAt.IsZero() {
		opp.CreatedAt = now
	}
	opp.UpdatedAt = now
	opp.Version = 1
	s.opportunities[opp.ID] = opp.Clone()
}

// ---- opportunities

type memOpportunities struct{ s *MemoryStore }

func (r memOpportunities) Create(_ context.Context, opp *models.Opportunity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.insertOpportunity(opp)
	return nil
}

func (r memOpportunities) GetByID(_ context.Context, id int64) (*models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	opp, ok := r.s.opportunities[id]
	if !ok {
		return nil, nil
	}
	return r.s.snapshot(opp), nil
}

func matchOpportunity(o *models.Opportunity, f models.OpportunityFilter) bool {
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if len(f.Stages) > 0 && !containsStage(f.Stages, o.CurrentStage) {
		return false
	}
	if f.OwnerID > 0 && o.OwnerID != f.OwnerID {
		return false
	}
	return true
}

func containsStage(stages []int, order int) bool {
	for _, s := range stages {
		if s == order {
			return true
		}
	}
	return false
}

// filtered returns matching opportunities newest first. Callers hold mu.
func (r memOpportunities) filtered(f models.OpportunityFilter) []*models.Opportunity {
	var out []*models.Opportunity
	for _, o := range r.s.opportunities {
		if matchOpportunity(o, f) {
			out = append(out, r.s.snapshot(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (r memOpportunities) List(_ context.Context, f models.OpportunityFilter, limit, offset int) ([]*models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return page(r.filtered(f), limit, offset), nil
}

func (r memOpportunities) Count(_ context.Context, f models.OpportunityFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.filtered(f)), nil
}

func (r memOpportunities) KPIs(_ context.Context, f models.OpportunityFilter) (*models.OpportunityKPIs, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k := &models.OpportunityKPIs{}
	for _, o := range r.filtered(f) {
		k.Add(o)
	}
	return k, nil
}

func (r memOpportunities) Mutate(_ context.Context, id int64, fn func(opp *models.Opportunity) error) (*models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.opportunities[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := r.s.snapshot(stored)
	prevStage := working.CurrentStage
	if err := fn(working); err != nil {
		return nil, err
	}
	now := r.s.now()
	working.ID = stored.ID
	working.Version = stored.Version + 1
	working.UpdatedAt = now
	r.s.opportunities[id] = working.Clone()

	if working.CurrentStage != prevStage {
		r.s.history = append(r.s.history, models.StageTransition{
			ID:            r.s.nextID("history"),
			OpportunityID: id,
			FromStage:     prevStage,
			ToStage:       working.CurrentStage,
			ActorID:       working.UpdatedBy,
			CreatedAt:     now,
		})
	}
	return r.s.snapshot(working), nil
}

func (r memOpportunities) History(_ context.Context, opportunityID int64) ([]models.StageTransition, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.StageTransition
	for _, h := range r.s.history {
		if h.OpportunityID == opportunityID {
			out = append(out, h)
		}
	}
	return out, nil
}

// ---- leads

type memLeads struct{ s *MemoryStore }

func (r memLeads) Create(_ context.Context, lead *models.Lead) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	lead.ID = r.s.nextID("leads")
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	r.s.leads[lead.ID] = lead.Clone()
	return nil
}

func (r memLeads) GetByID(_ context.Context, id int64) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lead, ok := r.s.leads[id]
	if !ok {
		return nil, nil
	}
	return lead.Clone(), nil
}

func (r memLeads) List(_ context.Context, f models.LeadFilter, limit, offset int) ([]*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Lead
	for _, l := range r.s.leads {
		if f.ApprovalStatus != "" && l.ApprovalStatus != f.ApprovalStatus {
			continue
		}
		if f.OwnerID > 0 && l.OwnerID != f.OwnerID {
			continue
		}
		if f.Converted != nil && l.Converted != *f.Converted {
			continue
		}
		out = append(out, l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

func (r memLeads) Mutate(_ context.Context, id int64, fn func(lead *models.Lead) error) (*models.Lead, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := stored.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id
	working.UpdatedAt = r.s.now()
	r.s.leads[id] = working.Clone()
	return working, nil
}

func (r memLeads) Convert(_ context.Context, id int64, fn func(lead *models.Lead) (*models.Opportunity, error)) (*models.Lead, *models.Opportunity, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.leads[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	working := stored.Clone()
	opp, err := fn(working)
	if err != nil {
		return nil, nil, err
	}
	r.s.insertOpportunity(opp)

	working.ID = id
	working.Converted = true
	oppID := opp.ID
	working.OpportunityID = &oppID
	working.UpdatedAt = r.s.now()
	r.s.leads[id] = working.Clone()
	return working, r.s.snapshot(opp), nil
}

// ---- companies

type memCompanies struct{ s *MemoryStore }

func (r memCompanies) Create(_ context.Context, c *models.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.nextID("companies")
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.now()
	}
	cp := *c
	r.s.companies[c.ID] = &cp
	return nil
}

func (r memCompanies) GetByID(_ context.Context, id int64) (*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.companies[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (r memCompanies) List(_ context.Context, limit, offset int) ([]*models.Company, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Company
	for _, c := range r.s.companies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return page(out, limit, offset), nil
}

// ---- quotations

type memQuotations struct{ s *MemoryStore }

func (r memQuotations) Create(_ context.Context, q *models.Quotation, guard func(opp *models.Opportunity) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	opp, ok := r.s.opportunities[q.OpportunityID]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(r.s.snapshot(opp)); err != nil {
			return err
		}
	}
	q.ID = r.s.nextID("quotations")
	if q.CreatedAt.IsZero() {
		q.CreatedAt = r.s.now()
	}
	cp := *q
	r.s.quotations[q.ID] = &cp
	return nil
}

func (r memQuotations) GetByDisplayID(_ context.Context, displayID string) (*models.Quotation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, q := range r.s.quotations {
		if q.DisplayID == displayID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, nil
}

func (r memQuotations) ListByOpportunity(_ context.Context, opportunityID int64) ([]*models.Quotation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Quotation
	for _, q := range r.s.quotations {
		if q.OpportunityID == opportunityID {
			cp := *q
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- order acknowledgements

type memOrderAcks struct{ s *MemoryStore }

func (r memOrderAcks) Create(_ context.Context, oa *models.OrderAcknowledgement, guard func(opp *models.Opportunity) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	opp, ok := r.s.opportunities[oa.OpportunityID]
	if !ok {
		return ErrNotFound
	}
	if guard != nil {
		if err := guard(r.s.snapshot(opp)); err != nil {
			return err
		}
	}
	oa.ID = r.s.nextID("order_acknowledgements")
	if oa.CreatedAt.IsZero() {
		oa.CreatedAt = r.s.now()
	}
	cp := *oa
	r.s.acks[oa.ID] = &cp
	return nil
}

func (r memOrderAcks) GetByID(_ context.Context, id int64) (*models.OrderAcknowledgement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	oa, ok := r.s.acks[id]
	if !ok {
		return nil, nil
	}
	cp := *oa
	return &cp, nil
}

func (r memOrderAcks) ListByOpportunity(_ context.Context, opportunityID int64) ([]*models.OrderAcknowledgement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.OrderAcknowledgement
	for _, oa := range r.s.acks {
		if oa.OpportunityID == opportunityID {
			cp := *oa
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
