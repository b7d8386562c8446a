package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salespipeline/internal/authz"
	"salespipeline/internal/events"
	"salespipeline/internal/handlers"
	"salespipeline/internal/idgen"
	"salespipeline/internal/middleware"
	"salespipeline/internal/pdf"
	"salespipeline/internal/repositories"
	"salespipeline/internal/routes"
	"salespipeline/internal/services"
)

var secret = []byte("test-secret")

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := repositories.NewMemoryStore()
	ids := idgen.NewAllocator(store)
	pub := events.NoopPublisher{}
	opps := services.NewOpportunityService(store.Opportunities(), ids, services.NewStageValidator(store.Quotations()), pub, logger)
	quotes := services.NewQuotationService(store.Quotations(), ids, logger)
	acks := services.NewOrderAckService(store.OrderAcks(), store.Opportunities(), ids, pdf.NewDocumentGenerator("", ""), logger)

	r := gin.New()
	r.Use(middleware.RequestID())
	routes.SetupRoutes(
		r,
		secret,
		handlers.NewOpportunityHandler(opps, quotes, acks),
		handlers.NewLeadHandler(services.NewLeadService(store.Leads(), ids, pub, logger)),
		handlers.NewCompanyHandler(services.NewCompanyService(store.Companies(), logger)),
		handlers.NewOrderAckHandler(acks),
	)
	return &testServer{t: t, router: r}
}

func token(t *testing.T, userID, roleID int) string {
	t.Helper()
	tok, err := middleware.NewToken(secret, userID, roleID, time.Hour)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, tok, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createOpportunity(tok string) int {
	s.t.Helper()
	w := s.do(http.MethodPost, "/opportunities", tok, `{"title":"Packaging line","expected_revenue":40000,"currency":"inr"}`)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return int(decode(s.t, w)["id"].(float64))
}

func (s *testServer) changeStage(tok string, id int, target string, data string) *httptest.ResponseRecorder {
	s.t.Helper()
	body := fmt.Sprintf(`{"target_stage":%s,"stage_data":%s}`, target, data)
	return s.do(http.MethodPost, fmt.Sprintf("/opportunities/%d/change-stage", id), tok, body)
}

const (
	prospect      = `{"region":"South","product_interest":"Conveyors","representative_ids":[3]}`
	qualification = `{"scorecard":{"budget":"yes","authority":"COO","need":"throughput","timeline":"Q2"}}`
	proposal      = `{"proposal_documents":["p1.pdf"],"submission_date":"2026-02-10"}`
	purchaseOrder = `{"po_number":"PO-77","po_date":"2026-03-10","po_amount":38000}`
)

func TestRequiresToken(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/opportunities", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodGet, "/opportunities", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownPathIsNotFound(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/no-such-endpoint", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/opportunities/1/no-such-action", token(t, 7, authz.RoleSales), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStagesArePublic(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/stages", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stages []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stages))
	require.Len(t, stages, 8)
	assert.Equal(t, "L1", stages[0]["code"])
	assert.Equal(t, true, stages[5]["terminal"])
}

func TestTransitionErrorsMapToStatus(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 7, authz.RoleSales)
	id := s.createOpportunity(tok)

	w := s.changeStage(tok, id, `"L3"`, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "InvalidTransition", decode(t, w)["kind"])

	w = s.changeStage(tok, id, `2`, `{"region":"South"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	body := decode(t, w)
	assert.Equal(t, "IncompleteData", body["kind"])
	assert.ElementsMatch(t, []interface{}{"product_interest", "representative_ids"}, body["details"])

	w = s.changeStage(tok, id, `"L2"`, prospect)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode(t, w)
	assert.Equal(t, float64(2), body["current_stage"])
	assert.Equal(t, "L2", body["stage_code"])

	w = s.changeStage(tok, id, `"L9"`, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/opportunities/999/change-stage", tok, `{"target_stage":2}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NotFound", decode(t, w)["kind"])
}

func TestLockedStagesOnGet(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 7, authz.RoleSales)
	id := s.createOpportunity(tok)

	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `2`, prospect).Code)
	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `3`, qualification).Code)
	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `4`, proposal).Code)

	w := s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d", id), tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{float64(1), float64(2), float64(3)}, decode(t, w)["locked_stages"])

	w = s.do(http.MethodPut, fmt.Sprintf("/opportunities/%d/stages/L2", id), tok, qualification)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Locked", decode(t, w)["kind"])

	w = s.changeStage(tok, id, `5`, `{"quotation_id":"QUO-0000ZZZ"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestWonOpportunityOrderAcknowledgement(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 7, authz.RoleSales)
	id := s.createOpportunity(tok)

	w := s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d/can-create-oa", id), tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["valid"])

	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `2`, prospect).Code)
	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `3`, qualification).Code)
	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `4`, proposal).Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/opportunities/%d/quotations", id), tok, `{"reference":"rev A","amount":38000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	quotationID := decode(t, w)["display_id"].(string)

	require.Equal(t, http.StatusOK, s.changeStage(tok, id, `5`, fmt.Sprintf(`{"quotation_id":%q}`, quotationID)).Code)
	w = s.changeStage(tok, id, `6`, purchaseOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Won", body["status"])
	assert.Equal(t, float64(100), body["win_probability"])

	w = s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d/can-create-order-ack", id), tok, "")
	assert.Equal(t, true, decode(t, w)["valid"])

	w = s.do(http.MethodPost, fmt.Sprintf("/opportunities/%d/order-acknowledgements", id), tok, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	oa := decode(t, w)
	assert.Equal(t, float64(38000), oa["amount"])

	w = s.do(http.MethodGet, fmt.Sprintf("/order-acknowledgements/%d/pdf", int(oa["id"].(float64))), tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d/history", id), tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["items"], 5)

	w = s.changeStage(tok, id, `6`, `{}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Locked", decode(t, w)["kind"])
}

func TestAuditorIsReadOnly(t *testing.T) {
	s := newTestServer(t)
	id := s.createOpportunity(token(t, 7, authz.RoleSales))
	audit := token(t, 2, authz.RoleAudit)

	w := s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d", id), audit, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.changeStage(audit, id, `2`, prospect)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOwnerScoping(t *testing.T) {
	s := newTestServer(t)
	id := s.createOpportunity(token(t, 7, authz.RoleSales))

	w := s.do(http.MethodGet, fmt.Sprintf("/opportunities/%d", id), token(t, 8, authz.RoleSales), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Forbidden", decode(t, w)["kind"])

	w = s.do(http.MethodGet, "/opportunities", token(t, 8, authz.RoleSales), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), decode(t, w)["total"])

	w = s.do(http.MethodGet, "/opportunities?stage=L1,L2", token(t, 1, authz.RoleManagement), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = s.do(http.MethodGet, "/opportunities/kpis?stage=L1", token(t, 1, authz.RoleManagement), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["total"])

	w = s.do(http.MethodGet, "/opportunities?stage=L12", token(t, 1, authz.RoleManagement), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLeadConversionOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 7, authz.RoleSales)

	w := s.do(http.MethodPost, "/leads", tok, `{"company":{"name":"Acme Foods","employee_count":300,"annual_revenue":2000000,"is_domestic":true}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["kind"])

	w = s.do(http.MethodPost, "/leads", tok, `{"company":{"name":"Acme Foods","employee_count":300,"annual_revenue":2000000,"is_domestic":true,"pan_number":"AAAPL1234C"},"expected_revenue":50000}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	lead := decode(t, w)
	id := int(lead["id"].(float64))
	assert.Equal(t, "Pending", lead["approval_status"])

	w = s.do(http.MethodPost, fmt.Sprintf("/leads/%d/convert", id), tok, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPatch, fmt.Sprintf("/leads/%d/status", id), tok, `{"status":"Rejected"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, fmt.Sprintf("/leads/%d/status", id), tok, `{"status":"Pending"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = s.do(http.MethodPost, fmt.Sprintf("/leads/%d/status", id), tok, `{"status":"Approved"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Approved", decode(t, w)["approval_status"])

	w = s.do(http.MethodPost, fmt.Sprintf("/leads/%d/convert", id), tok, `{"opportunity_date":"2026-06-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	opp := body["opportunity"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(opp["display_id"].(string), "OPP-"))
	assert.Equal(t, float64(1), opp["current_stage"])
	assert.Equal(t, float64(25), opp["win_probability"])
	assert.Equal(t, "2026-06-01", opp["opportunity_date"])
	assert.Equal(t, true, body["lead"].(map[string]interface{})["converted"])

	w = s.do(http.MethodPost, fmt.Sprintf("/leads/%d/convert", id), tok, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	again := decode(t, w)
	assert.Equal(t, "AlreadyConverted", again["kind"])
	assert.Contains(t, again["error"], "already converted")
}

func TestCloseOverHTTP(t *testing.T) {
	s := newTestServer(t)
	tok := token(t, 7, authz.RoleSales)
	id := s.createOpportunity(tok)

	w := s.do(http.MethodPost, fmt.Sprintf("/opportunities/%d/close", id), tok, `{"outcome":"won"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, fmt.Sprintf("/opportunities/%d/close", id), tok, `{"outcome":"Lost","reason":"price"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Lost", body["status"])
	assert.Equal(t, float64(0), body["win_probability"])

	w = s.do(http.MethodPut, fmt.Sprintf("/opportunities/%d", id), tok, `{"expected_revenue":1}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Locked", decode(t, w)["kind"])
}

func TestMeRejectsUnknownRole(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/me", token(t, 5, 99), "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/me", token(t, 5, authz.RoleAudit), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["can_write"])
}
