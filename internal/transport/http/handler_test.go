package http

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"template-foundry/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type fakeFulfillment struct {
	err error
}

func (f fakeFulfillment) Transition(ctx context.Context, actorID uuid.UUID, orderID uuid.UUID, newStatus domain.OrderStatus) error {
	return f.err
}

type fakeLedger struct {
	key *domain.LicenseKey
	err error
}

func (f fakeLedger) IssuePurchase(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem) (*domain.Purchase, error) {
	return nil, f.err
}

func (f fakeLedger) ActiveKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error) {
	return f.key, f.err
}

func (f fakeLedger) RevokeKeys(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (int, error) {
	return 0, f.err
}

func (f fakeLedger) RotateKey(ctx context.Context, actorID uuid.UUID, purchaseID uuid.UUID) (*domain.LicenseKey, error) {
	return f.key, f.err
}

type fakeProvisioner struct {
	site *domain.CustomerSite
	job  *domain.DeploymentJob
	err  error
}

func (f fakeProvisioner) ProvisionSite(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, order *domain.Order, item domain.OrderItem, purchase *domain.Purchase) (*domain.CustomerSite, error) {
	return f.site, f.err
}

func (f fakeProvisioner) RequestLifecycle(ctx context.Context, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error) {
	return f.job, f.err
}

func (f fakeProvisioner) GetSite(ctx context.Context, siteID uuid.UUID) (*domain.CustomerSite, error) {
	return f.site, f.err
}

type fakeQueue struct {
	claimed *domain.ClaimedJob
	job     *domain.DeploymentJob
	err     error
}

func (f fakeQueue) Enqueue(ctx context.Context, tx *sql.Tx, actorID uuid.UUID, siteID uuid.UUID, jobType domain.JobType) (*domain.DeploymentJob, error) {
	return f.job, f.err
}

func (f fakeQueue) ClaimNext(ctx context.Context) (*domain.ClaimedJob, error) {
	return f.claimed, f.err
}

func (f fakeQueue) Report(ctx context.Context, actorID uuid.UUID, jobID uuid.UUID, status domain.JobStatus, errorMessage *string) error {
	return f.err
}

func (f fakeQueue) List(ctx context.Context, limit, offset int) ([]domain.DeploymentJob, error) {
	return nil, f.err
}

func (f fakeQueue) Get(ctx context.Context, jobID uuid.UUID) (*domain.DeploymentJob, error) {
	return f.job, f.err
}

type fakeHealth struct {
	status string
}

func (f fakeHealth) Health() map[string]string { return map[string]string{"status": f.status} }
func (f fakeHealth) Close() error              { return nil }

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return h.Router(nil)
}

func do(router *gin.Engine, method, path, actor, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if actor != "" {
		req.Header.Set(actorHeader, actor)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testHandler() *Handler {
	return NewHandler(fakeFulfillment{}, fakeLedger{}, fakeProvisioner{}, fakeQueue{}, fakeHealth{status: "up"})
}

func TestRequireActor(t *testing.T) {
	router := newTestRouter(testHandler())
	id := uuid.NewString()

	w := do(router, http.MethodGet, "/jobs/"+id, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing")

	w = do(router, http.MethodGet, "/jobs/"+id, "not-a-uuid", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "malformed")
}

func TestMalformedIDParam(t *testing.T) {
	router := newTestRouter(testHandler())

	w := do(router, http.MethodGet, "/sites/banana", uuid.NewString(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_id")
}

func TestUpdateOrderStatusMapping(t *testing.T) {
	actor := uuid.NewString()
	path := "/orders/" + uuid.NewString() + "/status"

	router := newTestRouter(testHandler())
	w := do(router, http.MethodPatch, path, actor, `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPatch, path, actor, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	h := NewHandler(fakeFulfillment{err: domain.ErrInvalidTransition}, fakeLedger{}, fakeProvisioner{}, fakeQueue{}, fakeHealth{status: "up"})
	w = do(newTestRouter(h), http.MethodPatch, path, actor, `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	h = NewHandler(fakeFulfillment{err: domain.ErrOrderNotFound}, fakeLedger{}, fakeProvisioner{}, fakeQueue{}, fakeHealth{status: "up"})
	w = do(newTestRouter(h), http.MethodPatch, path, actor, `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSiteLifecycleMapping(t *testing.T) {
	actor := uuid.NewString()
	siteID := uuid.New()
	job := &domain.DeploymentJob{
		ID:            uuid.New(),
		SiteID:        siteID,
		Type:          domain.JobStop,
		Status:        domain.JobQueued,
		CorrelationID: uuid.New(),
		Meta:          domain.Meta{CreatedAt: time.Now()},
	}

	h := NewHandler(fakeFulfillment{}, fakeLedger{}, fakeProvisioner{job: job}, fakeQueue{}, fakeHealth{status: "up"})
	w := do(newTestRouter(h), http.MethodPost, "/sites/"+siteID.String()+"/stop", actor, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), job.ID.String())

	h = NewHandler(fakeFulfillment{}, fakeLedger{}, fakeProvisioner{err: domain.ErrJobNotAllowed}, fakeQueue{}, fakeHealth{status: "up"})
	w = do(newTestRouter(h), http.MethodPost, "/sites/"+siteID.String()+"/stop", actor, "")
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetActiveKeyNilIsNotFound(t *testing.T) {
	router := newTestRouter(testHandler())

	w := do(router, http.MethodGet, "/purchases/"+uuid.NewString()+"/key", uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "no active license key")
}

func TestClaimJobEmptyQueue(t *testing.T) {
	router := newTestRouter(testHandler())

	w := do(router, http.MethodPost, "/worker/jobs/claim", uuid.NewString(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestHealthDown(t *testing.T) {
	h := NewHandler(fakeFulfillment{}, fakeLedger{}, fakeProvisioner{}, fakeQueue{}, fakeHealth{status: "down"})
	router := newTestRouter(h)

	w := do(router, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
