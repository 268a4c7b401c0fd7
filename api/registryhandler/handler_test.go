package registryhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/university-ledger/api"
	"github.com/ruteri/university-ledger/grade"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/ruteri/university-ledger/registry"
	"github.com/ruteri/university-ledger/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	lecturer = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	student  = common.HexToAddress("0x90F79bf6EB2c4f870365E785982E1f101E93b906")
	stranger = common.HexToAddress("0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65")
)

type testEnv struct {
	suite  *registry.Suite
	server *httptest.Server
	client *Client
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New(ledger.NewManualClock(time.Date(2025, 2, 3, 9, 0, 0, 0, time.UTC)), logger)

	suite, err := registry.Deploy(context.Background(), l, registry.Options{
		Deployer: admin,
		Grade:    grade.Config{Strategy: grade.WeightedByMaxScore{}},
	}, logger)
	require.NoError(t, err)

	docs, err := storage.NewFileBackend(t.TempDir(), logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	NewHandler(suite, docs, logger).RegisterRoutes(r)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &testEnv{
		suite:  suite,
		server: server,
		client: NewClient(server.URL, admin).WithHTTPClient(server.Client()),
	}
}

func (e *testEnv) registerLecturer(t *testing.T) {
	t.Helper()
	_, err := e.client.RegisterUser(context.Background(), api.RegisterUserRequest{
		Address:  lecturer,
		UserID:   "LEC001",
		FullName: "Ada Lovelace",
		Email:    "ada@example.edu",
		Role:     interfaces.RoleLecturer,
	})
	require.NoError(t, err)
}

func TestHandleGetAuthority(t *testing.T) {
	env := setup(t)

	resp, err := env.client.Authority(context.Background())
	require.NoError(t, err)
	assert.Equal(t, env.suite.Authority.Address(), resp.Address)
	assert.Equal(t, admin, resp.Owner)
	assert.True(t, resp.Initialized)
	require.NotNil(t, resp.Components)
	assert.Equal(t, env.suite.Grades.Address(), resp.Components.Grade)
	assert.Equal(t, uint64(1), resp.TotalUsers)
}

func TestUsers(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.registerLecturer(t)

	user, err := env.client.GetUser(ctx, lecturer)
	require.NoError(t, err)
	assert.Equal(t, "LEC001", user.UserID)
	assert.Equal(t, interfaces.RoleLecturer, user.Role)
	assert.True(t, user.IsActive)

	_, err = env.client.UpdateUser(ctx, lecturer, "Ada King", "ada.king@example.edu")
	require.NoError(t, err)
	user, err = env.client.GetUser(ctx, lecturer)
	require.NoError(t, err)
	assert.Equal(t, "Ada King", user.FullName)

	role, err := env.client.GetUserRole(ctx, lecturer)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RoleLecturer, role)

	has, err := env.client.HasRole(ctx, lecturer, interfaces.RoleLecturer)
	require.NoError(t, err)
	assert.True(t, has)

	count, err := env.client.GetRoleCount(ctx, interfaces.RoleLecturer)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	users, err := env.client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = env.client.DeactivateUser(ctx, lecturer)
	require.NoError(t, err)
	has, err = env.client.HasRole(ctx, lecturer, interfaces.RoleLecturer)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestErrorMapping(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.registerLecturer(t)

	tests := []struct {
		name string
		call func() error
		kind error
	}{
		{
			name: "authorization",
			call: func() error {
				_, err := env.client.As(lecturer).DeactivateUser(ctx, admin)
				return err
			},
			kind: interfaces.ErrAuthorization,
		},
		{
			name: "not found",
			call: func() error {
				_, err := env.client.GetUser(ctx, stranger)
				return err
			},
			kind: interfaces.ErrNotFound,
		},
		{
			name: "validation",
			call: func() error {
				_, err := env.client.RegisterUser(ctx, api.RegisterUserRequest{Address: lecturer, UserID: "LEC002", Role: interfaces.RoleLecturer})
				return err
			},
			kind: interfaces.ErrValidation,
		},
		{
			name: "state",
			call: func() error {
				_, err := env.client.DeactivateUser(ctx, admin)
				return err
			},
			kind: interfaces.ErrState,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.kind)
		})
	}
}

func TestStatusCodes(t *testing.T) {
	env := setup(t)

	tests := []struct {
		name   string
		method string
		path   string
		caller string
		body   string
		status int
		kind   string
	}{
		{"missing caller", http.MethodPost, "/api/users", "", `{}`, http.StatusBadRequest, ""},
		{"malformed body", http.MethodPost, "/api/users", admin.Hex(), `{"address":`, http.StatusBadRequest, ""},
		{"unknown field", http.MethodPost, "/api/grades", admin.Hex(), `{"grade":"A"}`, http.StatusBadRequest, ""},
		{"invalid role", http.MethodGet, "/api/roles/DEAN/count", "", "", http.StatusBadRequest, ""},
		{"invalid id", http.MethodGet, "/api/grades/abc", "", "", http.StatusBadRequest, ""},
		{"forbidden", http.MethodPost, "/api/users/" + admin.Hex() + "/deactivate", stranger.Hex(), "", http.StatusForbidden, "authorization"},
		{"missing grade", http.MethodGet, "/api/grades/42", "", "", http.StatusNotFound, "not_found"},
		{"initialize twice", http.MethodPost, "/api/authority/initialize", admin.Hex(), `{}`, http.StatusBadRequest, "validation"},
		{"deactivate owner", http.MethodPost, "/api/users/" + admin.Hex() + "/deactivate", admin.Hex(), "", http.StatusConflict, "state"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.caller != "" {
				req.Header.Set(api.CallerHeader, tt.caller)
			}
			w := httptest.NewRecorder()
			env.server.Config.Handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			var er api.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &er))
			assert.NotEmpty(t, er.Error)
			assert.Equal(t, tt.kind, er.Kind)
		})
	}
}

func TestCredentialsWithDocument(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	doc, err := env.client.StoreDocument(ctx, []byte("%PDF degree certificate"), interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc.DocumentRef, interfaces.DocumentRefPrefix))

	tx, err := env.client.IssueCredential(ctx, api.IssueCredentialRequest{
		Student:        student,
		CredentialType: "DEGREE",
		DocumentRef:    doc.DocumentRef,
		ExpiresAt:      time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tx.ID)
	require.Len(t, tx.Notifications, 1)
	assert.Equal(t, "CredentialIssued", tx.Notifications[0].Name)

	valid, err := env.client.VerifyCredential(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, valid)

	cred, err := env.client.GetCredential(ctx, tx.ID)
	require.NoError(t, err)
	data, err := env.client.FetchDocument(ctx, cred.DocumentRef, interfaces.CredentialDocumentType)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF degree certificate"), data)

	ids, err := env.client.GetStudentCredentials(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)

	_, err = env.client.RevokeCredential(ctx, tx.ID)
	require.NoError(t, err)
	valid, err = env.client.VerifyCredential(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = env.client.RevokeCredential(ctx, tx.ID)
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	valid, err = env.client.VerifyCredential(ctx, 99)
	require.NoError(t, err)
	assert.False(t, valid)
}

func TestDocuments_Rejections(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	_, err := env.client.As(stranger).StoreDocument(ctx, []byte("forged"), interfaces.CredentialDocumentType)
	assert.ErrorIs(t, err, interfaces.ErrAuthorization)

	_, err = env.client.FetchDocument(ctx, interfaces.ComputeID([]byte("missing")).DocumentRef(), interfaces.CredentialDocumentType)
	assert.Error(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(nil))
	req.Header.Set(api.CallerHeader, admin.Hex())
	w := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/nothex", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAttendance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.registerLecturer(t)
	lec := env.client.As(lecturer)

	tx, err := lec.MarkAttendance(ctx, api.MarkAttendanceRequest{
		ClassID:     1,
		Student:     student,
		SessionDate: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC),
		Status:      interfaces.AttendanceAbsent,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tx.ID)

	_, err = lec.UpdateAttendance(ctx, tx.ID, interfaces.AttendanceExcused, "Medical certificate")
	require.NoError(t, err)

	record, err := env.client.GetAttendanceRecord(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.AttendanceExcused, record.Status)
	assert.Equal(t, "Medical certificate", record.Note)

	count, err := env.client.ClassAttendanceCount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	ids, err := env.client.GetStudentAttendance(ctx, 1, student)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ids)

	_, err = env.client.As(student).MarkAttendance(ctx, api.MarkAttendanceRequest{ClassID: 1, Student: student})
	assert.ErrorIs(t, err, interfaces.ErrAuthorization)
}

func TestGrades(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	env.registerLecturer(t)
	lec := env.client.As(lecturer)

	tx, err := lec.RecordGrade(ctx, api.RecordGradeRequest{
		ClassID:       1,
		Student:       student,
		ComponentName: "Midterm",
		Score:         8550,
		MaxScore:      10000,
	})
	require.NoError(t, err)

	_, err = lec.UpdateGrade(ctx, tx.ID, 11000)
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	_, err = lec.ApproveGrade(ctx, tx.ID)
	assert.ErrorIs(t, err, interfaces.ErrAuthorization)

	_, err = env.client.ApproveGrade(ctx, tx.ID)
	require.NoError(t, err)

	_, err = lec.UpdateGrade(ctx, tx.ID, 9000)
	assert.ErrorIs(t, err, interfaces.ErrState)

	record, err := env.client.GetGrade(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(8550), record.Score)
	assert.Equal(t, interfaces.GradeStatusApproved, record.Status)

	ids, err := env.client.GetStudentGrades(ctx, 1, student)
	require.NoError(t, err)
	assert.Equal(t, []uint64{tx.ID}, ids)

	final, err := env.client.CalculateFinalGrade(ctx, 1, student)
	require.NoError(t, err)
	assert.Equal(t, grade.WeightedByMaxScoreName, final.Strategy)
	assert.Equal(t, uint64(8550), final.FinalGrade)
}

func TestNotifications(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	all, err := env.client.Notifications(ctx, 0)
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.Equal(t, "AuthorityInitialized", all[len(all)-1].Name)

	env.registerLecturer(t)
	next, err := env.client.Notifications(ctx, all[len(all)-1].Seq+1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, "UserRegistered", next[0].Name)

	var payload struct {
		Account common.Address `json:"account"`
	}
	require.NoError(t, json.Unmarshal(next[0].Payload, &payload))

	w := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications?from=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
