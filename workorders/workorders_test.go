package workorders

import (
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/solarops/httpclient"
	"github.com/kroma-labs/solarops/service"
	"github.com/kroma-labs/solarops/service/mocks"
)

func newMockedService(t *testing.T, opts ...Option) (*Service, *mocks.Doer) {
	t.Helper()
	doer := mocks.NewDoer(t)
	return New(service.New("workorders", doer), opts...), doer
}

// recorder captures request bodies seen by a MockTransport.
type recorder struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (r *recorder) hook(req *http.Request) {
	if req.Body == nil {
		return
	}
	b, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bodies[req.Method+" "+req.URL.Path] = string(b)
}

func (r *recorder) body(key string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[key]
}

func newWiredService(t *testing.T, mock *httpclient.MockTransport) (*Service, *recorder) {
	t.Helper()
	rec := &recorder{bodies: map[string]string{}}
	mock.OnRequest(rec.hook)

	client := httpclient.New(
		httpclient.WithBaseURL("https://api.solarops.example"),
		httpclient.WithMockTransport(mock),
		httpclient.WithoutHeartbeat(),
	)
	return New(service.New("workorders", client)), rec
}

func TestService_List(t *testing.T) {
	tests := []struct {
		name     string
		filter   Filter
		endpoint string
	}{
		{name: "given no filter, then collection path", endpoint: "/workorders"},
		{
			name:     "given filter, then sorted query",
			filter:   Filter{PlantID: "7", Status: StatusOpen, Priority: PriorityHigh},
			endpoint: "/workorders?plantId=7&priority=high&status=open",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, doer := newMockedService(t)
			doer.EXPECT().
				Call(mock.Anything, http.MethodGet, tt.endpoint, nil).
				Return([]byte(`[{"id":"wo-1","plantId":"7","title":"Clean panels","dueDate":"09-03-2024"}]`), nil).Once()

			res := svc.List(context.Background(), tt.filter)

			require.True(t, res.OK())
			assert.Equal(t, []WorkOrder{{ID: "wo-1", PlantID: "7", Title: "Clean panels", DueDate: "09-03-2024"}}, res.Data)
		})
	}
}

func TestService_ReadFallback(t *testing.T) {
	t.Run("given list failure with fallback, then empty synthetic list", func(t *testing.T) {
		svc, doer := newMockedService(t, WithFallback(Empty{}))
		doer.EXPECT().
			Call(mock.Anything, http.MethodGet, "/workorders", nil).
			Return(nil, &httpclient.Error{Kind: httpclient.KindTransient, StatusCode: 502}).Once()

		res := svc.List(context.Background(), Filter{})

		assert.True(t, res.Fallback)
		assert.Equal(t, []WorkOrder{}, res.Data)
		assert.ErrorIs(t, res.Err, httpclient.ErrTransient)
	})

	t.Run("given get forbidden without fallback, then access denied", func(t *testing.T) {
		svc, doer := newMockedService(t)
		doer.EXPECT().
			Call(mock.Anything, http.MethodGet, "/workorders/wo-9", nil).
			Return(nil, &httpclient.Error{Kind: httpclient.KindClientError, StatusCode: 403}).Once()

		res := svc.Get(context.Background(), "wo-9")

		assert.False(t, res.Fallback)
		assert.ErrorIs(t, res.Err, service.ErrForbidden)
		assert.EqualError(t, res.Err, "Access denied")
	})

	t.Run("given get failure with fallback, then placeholder", func(t *testing.T) {
		svc, doer := newMockedService(t, WithFallback(Empty{}))
		doer.EXPECT().
			Call(mock.Anything, http.MethodGet, "/workorders/wo-9", nil).
			Return(nil, &httpclient.Error{Kind: httpclient.KindServiceUnavailable}).Once()

		res := svc.Get(context.Background(), "wo-9")

		assert.True(t, res.Fallback)
		assert.Equal(t, "wo-9", res.Data.ID)
	})
}

func TestService_Create(t *testing.T) {
	mt := httpclient.NewMockTransport().
		StubPath("/workorders", http.StatusCreated, `{"success":true,"data":{"id":"wo-2","plantId":"7","title":"Replace inverter","dueDate":"09-03-2024"}}`)
	svc, rec := newWiredService(t, mt)

	due := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	start := time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC)

	got, err := svc.Create(context.Background(), NewWorkOrder{
		PlantID:   "7",
		Title:     "Replace inverter",
		Priority:  PriorityHigh,
		StartDate: &start,
		DueDate:   &due,
	})

	require.NoError(t, err)
	assert.Equal(t, "wo-2", got.ID)
	assert.JSONEq(t,
		`{"plantId":"7","title":"Replace inverter","priority":"high","startDate":"05-03-2024","dueDate":"09-03-2024"}`,
		rec.body("POST /workorders"))
}

func TestService_CreateClearsCache(t *testing.T) {
	mt := httpclient.NewMockTransport().
		StubFunc(func(r *http.Request) bool {
			return r.Method == http.MethodGet && r.URL.Path == "/workorders/wo-1"
		}, httpclient.MockReply{Status: http.StatusOK, Body: `{"id":"wo-1","status":"open"}`}).
		StubFunc(func(r *http.Request) bool {
			return r.Method == http.MethodPost
		}, httpclient.MockReply{Status: http.StatusCreated, Body: `{"id":"wo-2"}`})
	svc, _ := newWiredService(t, mt)
	ctx := context.Background()

	require.True(t, svc.Get(ctx, "wo-1").OK())
	require.True(t, svc.Get(ctx, "wo-1").OK())
	require.Equal(t, 1, mt.RequestCount())

	_, err := svc.Create(ctx, NewWorkOrder{PlantID: "7", Title: "Inspect"})
	require.NoError(t, err)

	require.True(t, svc.Get(ctx, "wo-1").OK())
	assert.Equal(t, 3, mt.RequestCount(), "unrelated read refetched after the write")
}

func TestService_Update(t *testing.T) {
	mt := httpclient.NewMockTransport().
		StubPath("/workorders/wo-1", http.StatusOK, `{"id":"wo-1","status":"completed","completionDate":"08-03-2024"}`)
	svc, rec := newWiredService(t, mt)

	status := StatusCompleted
	done := time.Date(2024, 3, 8, 16, 45, 0, 0, time.UTC)

	got, err := svc.Update(context.Background(), "wo-1", Update{Status: &status, CompletionDate: &done})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "08-03-2024", got.CompletionDate)
	assert.Equal(t, http.MethodPatch, mt.LastRequest().Method)
	assert.JSONEq(t, `{"status":"completed","completionDate":"08-03-2024"}`, rec.body("PATCH /workorders/wo-1"))
}

func TestService_Delete(t *testing.T) {
	tests := []struct {
		name    string
		body    []byte
		err     error
		wantErr error
	}{
		{name: "given empty answer, then ok", body: nil},
		{name: "given bare true, then ok", body: []byte(`true`)},
		{name: "given wrapped success, then ok", body: []byte(`{"success":true}`)},
		{
			name:    "given wrapped failure, then envelope error",
			body:    []byte(`{"success":false,"message":"Work order is locked"}`),
			wantErr: service.ErrEnvelope,
		},
		{
			name:    "given not found, then friendly error",
			err:     &httpclient.Error{Kind: httpclient.KindClientError, StatusCode: 404},
			wantErr: service.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, doer := newMockedService(t)
			doer.EXPECT().
				Call(mock.Anything, http.MethodDelete, "/workorders/wo-1", nil).
				Return(tt.body, tt.err).Once()

			err := svc.Delete(context.Background(), "wo-1")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
