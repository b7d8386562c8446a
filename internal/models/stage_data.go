package models

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StagePayload is the record captured for one stage. Each stage has its own
// concrete type; StageDataSet holds at most one of each.
type StagePayload interface {
	StageOrder() int
	// MissingFields lists required fields that are empty, in schema order.
	MissingFields() []string
}

// L1
type ProspectData struct {
	Region            string `json:"region"`
	ProductInterest   string `json:"product_interest"`
	RepresentativeIDs []int  `json:"representative_ids"`
	Industry          string `json:"industry,omitempty"`
	Source            string `json:"source,omitempty"`
}

func (ProspectData) StageOrder() int { return StageProspect }

func (d ProspectData) MissingFields() []string {
	var missing []string
	if blank(d.Region) {
		missing = append(missing, "region")
	}
	if blank(d.ProductInterest) {
		missing = append(missing, "product_interest")
	}
	if len(d.RepresentativeIDs) == 0 {
		missing = append(missing, "representative_ids")
	}
	return missing
}

func (d *ProspectData) merge(in *ProspectData) {
	mergeString(&d.Region, in.Region)
	mergeString(&d.ProductInterest, in.ProductInterest)
	if len(in.RepresentativeIDs) > 0 {
		d.RepresentativeIDs = append([]int(nil), in.RepresentativeIDs...)
	}
	mergeString(&d.Industry, in.Industry)
	mergeString(&d.Source, in.Source)
}

// BANTScorecard is the L2 qualification scorecard.
type BANTScorecard struct {
	Budget    string `json:"budget"`
	Authority string `json:"authority"`
	Need      string `json:"need"`
	Timeline  string `json:"timeline"`
}

// L2
type QualificationData struct {
	Scorecard BANTScorecard `json:"scorecard"`
	Notes     string        `json:"notes,omitempty"`
}

func (QualificationData) StageOrder() int { return StageQualification }

func (d QualificationData) MissingFields() []string {
	var missing []string
	if blank(d.Scorecard.Budget) {
		missing = append(missing, "scorecard.budget")
	}
	if blank(d.Scorecard.Authority) {
		missing = append(missing, "scorecard.authority")
	}
	if blank(d.Scorecard.Need) {
		missing = append(missing, "scorecard.need")
	}
	if blank(d.Scorecard.Timeline) {
		missing = append(missing, "scorecard.timeline")
	}
	return missing
}

func (d *QualificationData) merge(in *QualificationData) {
	mergeString(&d.Scorecard.Budget, in.Scorecard.Budget)
	mergeString(&d.Scorecard.Authority, in.Scorecard.Authority)
	mergeString(&d.Scorecard.Need, in.Scorecard.Need)
	mergeString(&d.Scorecard.Timeline, in.Scorecard.Timeline)
	mergeString(&d.Notes, in.Notes)
}

// L3
type ProposalData struct {
	ProposalDocuments []string `json:"proposal_documents"`
	SubmissionDate    Date     `json:"submission_date"`
	Summary           string   `json:"summary,omitempty"`
}

func (ProposalData) StageOrder() int { return StageProposal }

func (d ProposalData) MissingFields() []string {
	var missing []string
	docs := 0
	for _, doc := range d.ProposalDocuments {
		if !blank(doc) {
			docs++
		}
	}
	if docs == 0 {
		missing = append(missing, "proposal_documents")
	}
	if d.SubmissionDate.IsZero() {
		missing = append(missing, "submission_date")
	}
	return missing
}

func (d *ProposalData) merge(in *ProposalData) {
	if len(in.ProposalDocuments) > 0 {
		d.ProposalDocuments = append([]string(nil), in.ProposalDocuments...)
	}
	if !in.SubmissionDate.IsZero() {
		d.SubmissionDate = in.SubmissionDate
	}
	mergeString(&d.Summary, in.Summary)
}

// QuotationSelection is the L4 record. The reference is opaque here; its
// existence is checked against the quotation store by the validator.
type QuotationSelection struct {
	QuotationID string `json:"quotation_id"`
}

func (QuotationSelection) StageOrder() int { return StageQuotation }

func (d QuotationSelection) MissingFields() []string {
	if blank(d.QuotationID) {
		return []string{"quotation_id"}
	}
	return nil
}

func (d *QuotationSelection) merge(in *QuotationSelection) {
	mergeString(&d.QuotationID, strings.TrimSpace(in.QuotationID))
}

// L5
type PurchaseOrderData struct {
	PONumber string  `json:"po_number"`
	PODate   Date    `json:"po_date"`
	POAmount float64 `json:"po_amount,omitempty"`
}

func (PurchaseOrderData) StageOrder() int { return StagePurchaseOrder }

func (d PurchaseOrderData) MissingFields() []string {
	var missing []string
	if blank(d.PONumber) {
		missing = append(missing, "po_number")
	}
	if d.PODate.IsZero() {
		missing = append(missing, "po_date")
	}
	return missing
}

func (d *PurchaseOrderData) merge(in *PurchaseOrderData) {
	mergeString(&d.PONumber, in.PONumber)
	if !in.PODate.IsZero() {
		d.PODate = in.PODate
	}
	if in.POAmount != 0 {
		d.POAmount = in.POAmount
	}
}

// ClosureData is recorded when an opportunity is closed as Lost (L7) or
// Dropped (L8).
type ClosureData struct {
	Stage  int    `json:"-"`
	Reason string `json:"reason"`
}

func (d ClosureData) StageOrder() int { return d.Stage }

func (d ClosureData) MissingFields() []string {
	if blank(d.Reason) {
		return []string{"reason"}
	}
	return nil
}

// StageDataSet maps stage order to that stage's record. It serializes as a
// JSON object keyed by the order ("1".."8").
type StageDataSet struct {
	Prospect      *ProspectData       `json:"1,omitempty"`
	Qualification *QualificationData  `json:"2,omitempty"`
	Proposal      *ProposalData       `json:"3,omitempty"`
	Quotation     *QuotationSelection `json:"4,omitempty"`
	PurchaseOrder *PurchaseOrderData  `json:"5,omitempty"`
	Lost          *ClosureData        `json:"7,omitempty"`
	Dropped       *ClosureData        `json:"8,omitempty"`
}

// Get returns the record for order, or nil when nothing was captured.
func (s *StageDataSet) Get(order int) StagePayload {
	switch order {
	case StageProspect:
		if s.Prospect != nil {
			return *s.Prospect
		}
	case StageQualification:
		if s.Qualification != nil {
			return *s.Qualification
		}
	case StageProposal:
		if s.Proposal != nil {
			return *s.Proposal
		}
	case StageQuotation:
		if s.Quotation != nil {
			return *s.Quotation
		}
	case StagePurchaseOrder:
		if s.PurchaseOrder != nil {
			return *s.PurchaseOrder
		}
	case StageLost:
		if s.Lost != nil {
			return *s.Lost
		}
	case StageDropped:
		if s.Dropped != nil {
			return *s.Dropped
		}
	}
	return nil
}

// Merged returns what the slot for p's stage would hold after Merge(p),
// without modifying s.
func (s *StageDataSet) Merged(p StagePayload) StagePayload {
	tmp := s.Clone()
	tmp.Merge(p)
	return tmp.Get(p.StageOrder())
}

// Merge overlays the non-empty fields of p onto the stored record.
func (s *StageDataSet) Merge(p StagePayload) {
	switch v := p.(type) {
	case ProspectData:
		if s.Prospect == nil {
			s.Prospect = &ProspectData{}
		}
		s.Prospect.merge(&v)
	case QualificationData:
		if s.Qualification == nil {
			s.Qualification = &QualificationData{}
		}
		s.Qualification.merge(&v)
	case ProposalData:
		if s.Proposal == nil {
			s.Proposal = &ProposalData{}
		}
		s.Proposal.merge(&v)
	case QuotationSelection:
		if s.Quotation == nil {
			s.Quotation = &QuotationSelection{}
		}
		s.Quotation.merge(&v)
	case PurchaseOrderData:
		if s.PurchaseOrder == nil {
			s.PurchaseOrder = &PurchaseOrderData{}
		}
		s.PurchaseOrder.merge(&v)
	case ClosureData:
		c := v
		c.Reason = strings.TrimSpace(c.Reason)
		if v.Stage == StageLost {
			s.Lost = &c
		} else if v.Stage == StageDropped {
			s.Dropped = &c
		}
	}
}

// Clone returns a deep copy.
func (s StageDataSet) Clone() StageDataSet {
	var out StageDataSet
	if s.Prospect != nil {
		p := *s.Prospect
		p.RepresentativeIDs = append([]int(nil), s.Prospect.RepresentativeIDs...)
		out.Prospect = &p
	}
	if s.Qualification != nil {
		q := *s.Qualification
		out.Qualification = &q
	}
	if s.Proposal != nil {
		p := *s.Proposal
		p.ProposalDocuments = append([]string(nil), s.Proposal.ProposalDocuments...)
		out.Proposal = &p
	}
	if s.Quotation != nil {
		q := *s.Quotation
		out.Quotation = &q
	}
	if s.PurchaseOrder != nil {
		p := *s.PurchaseOrder
		out.PurchaseOrder = &p
	}
	if s.Lost != nil {
		c := *s.Lost
		out.Lost = &c
	}
	if s.Dropped != nil {
		c := *s.Dropped
		out.Dropped = &c
	}
	return out
}

func (s *StageDataSet) UnmarshalJSON(b []byte) error {
	type plain StageDataSet
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	if p.Lost != nil {
		p.Lost.Stage = StageLost
	}
	if p.Dropped != nil {
		p.Dropped.Stage = StageDropped
	}
	*s = StageDataSet(p)
	return nil
}

func (s StageDataSet) Value() (driver.Value, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StageDataSet) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*s = StageDataSet{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StageDataSet", src)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		*s = StageDataSet{}
		return nil
	}
	return json.Unmarshal(b, s)
}

var ErrNoStagePayload = errors.New("stage carries no data")

// DecodeStagePayload decodes raw JSON into the concrete record type of the
// given stage. An empty or null payload decodes to that type's zero value.
func DecodeStagePayload(order int, raw json.RawMessage) (StagePayload, error) {
	raw = bytes.TrimSpace(raw)
	empty := len(raw) == 0 || bytes.Equal(raw, []byte("null"))
	decode := func(dst interface{}) error {
		if empty {
			return nil
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			return fmt.Errorf("stage_data for %s: %w", StageCode(order), err)
		}
		return nil
	}

	switch order {
	case StageProspect:
		var d ProspectData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case StageQualification:
		var d QualificationData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case StageProposal:
		var d ProposalData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case StageQuotation:
		var d QuotationSelection
		if err := decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case StagePurchaseOrder:
		var d PurchaseOrderData
		if err := decode(&d); err != nil {
			return nil, err
		}
		return d, nil
	case StageLost, StageDropped:
		d := ClosureData{Stage: order}
		if err := decode(&d); err != nil {
			return nil, err
		}
		d.Stage = order
		return d, nil
	case StageWon:
		return nil, ErrNoStagePayload
	}
	return nil, fmt.Errorf("unknown stage %s", StageCode(order))
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func mergeString(dst *string, in string) {
	if !blank(in) {
		*dst = in
	}
}
