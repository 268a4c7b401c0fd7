package registryhandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/university-ledger/api"
	"github.com/ruteri/university-ledger/interfaces"
	"github.com/ruteri/university-ledger/ledger"
	"github.com/ruteri/university-ledger/registry"
)

// MaxDocumentSize bounds uploads to the document store.
const MaxDocumentSize = 16 << 20

// Handler serves the registry API for one deployed suite.
type Handler struct {
	suite     *registry.Suite
	documents interfaces.StorageBackend
	log       *slog.Logger
}

// NewHandler creates a handler for suite. documents may be nil, in which case
// the document endpoints answer 503.
func NewHandler(suite *registry.Suite, documents interfaces.StorageBackend, log *slog.Logger) *Handler {
	return &Handler{
		suite:     suite,
		documents: documents,
		log:       log,
	}
}

// RegisterRoutes mounts every registry endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/authority", h.HandleGetAuthority)
	r.Post("/api/authority/initialize", h.HandleInitialize)

	r.Get("/api/users", h.HandleListUsers)
	r.Post("/api/users", h.HandleRegisterUser)
	r.Get("/api/users/{address}", h.HandleGetUser)
	r.Put("/api/users/{address}", h.HandleUpdateUser)
	r.Post("/api/users/{address}/deactivate", h.HandleDeactivateUser)
	r.Get("/api/users/{address}/role", h.HandleGetUserRole)
	r.Get("/api/roles/{role}/count", h.HandleGetRoleCount)

	r.Post("/api/credentials", h.HandleIssueCredential)
	r.Get("/api/credentials/{id}", h.HandleGetCredential)
	r.Get("/api/credentials/{id}/verify", h.HandleVerifyCredential)
	r.Post("/api/credentials/{id}/revoke", h.HandleRevokeCredential)
	r.Get("/api/students/{address}/credentials", h.HandleGetStudentCredentials)

	r.Post("/api/attendance", h.HandleMarkAttendance)
	r.Get("/api/attendance/{id}", h.HandleGetAttendance)
	r.Put("/api/attendance/{id}", h.HandleUpdateAttendance)
	r.Get("/api/classes/{class_id}/attendance", h.HandleClassAttendanceCount)
	r.Get("/api/classes/{class_id}/students/{address}/attendance", h.HandleGetStudentAttendance)

	r.Post("/api/grades", h.HandleRecordGrade)
	r.Get("/api/grades/{id}", h.HandleGetGrade)
	r.Put("/api/grades/{id}", h.HandleUpdateGrade)
	r.Post("/api/grades/{id}/approve", h.HandleApproveGrade)
	r.Get("/api/classes/{class_id}/students/{address}/grades", h.HandleGetStudentGrades)
	r.Get("/api/classes/{class_id}/students/{address}/final-grade", h.HandleFinalGrade)

	r.Post("/api/documents", h.HandleStoreDocument)
	r.Get("/api/documents/{content_id}", h.HandleFetchDocument)

	r.Get("/api/notifications", h.HandleNotifications)
}

// Authority

func (h *Handler) HandleGetAuthority(w http.ResponseWriter, r *http.Request) {
	auth := h.suite.Authority
	resp := api.AuthorityResponse{
		Address:     auth.Address(),
		Owner:       auth.Owner(),
		Initialized: auth.Initialized(),
		TotalUsers:  auth.TotalUsers(),
		Height:      h.suite.Ledger.Height(),
	}
	if components, err := auth.Components(); err == nil {
		resp.Components = &components
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req interfaces.ComponentAddresses
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Authority.Initialize(r.Context(), caller, req)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.suite.Authority.ListUsers())
}

func (h *Handler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.RegisterUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Authority.RegisterUser(r.Context(), caller, req.Address, req.UserID, req.FullName, req.Email, req.Role)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.suite.Authority.GetUser(account)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := addressParam(r, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Authority.UpdateUser(r.Context(), caller, account, req.FullName, req.Email)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	account, err := addressParam(r, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Authority.DeactivateUser(r.Context(), caller, account)
	h.writeTx(w, r, receipt, 0, err)
}

// HandleGetUserRole answers GET /api/users/{address}/role. With ?role=NAME
// the response also reports whether the account is active with that role.
func (h *Handler) HandleGetUserRole(w http.ResponseWriter, r *http.Request) {
	account, err := addressParam(r, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp := api.RoleResponse{
		Address: account,
		Role:    h.suite.Authority.GetUserRole(account),
	}
	if s := r.URL.Query().Get("role"); s != "" {
		role, err := interfaces.ParseRole(s)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		has := h.suite.Authority.HasRole(account, role)
		resp.HasRole = &has
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGetRoleCount(w http.ResponseWriter, r *http.Request) {
	role, err := interfaces.ParseRole(r.PathValue("role"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	h.writeJSON(w, http.StatusOK, api.CountResponse{Count: h.suite.Authority.GetRoleCount(role)})
}

// Credentials

func (h *Handler) HandleIssueCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.IssueCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, receipt, err := h.suite.Credentials.IssueCredential(r.Context(), caller, req.Student, req.CredentialType, req.DocumentRef, req.ExpiresAt)
	h.writeTx(w, r, receipt, id, err)
}

func (h *Handler) HandleGetCredential(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	cred, err := h.suite.Credentials.GetCredential(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cred)
}

func (h *Handler) HandleVerifyCredential(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.VerifyResponse{ID: id, Valid: h.suite.Credentials.VerifyCredential(id)})
}

func (h *Handler) HandleRevokeCredential(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Credentials.RevokeCredential(r.Context(), caller, id)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleGetStudentCredentials(w http.ResponseWriter, r *http.Request) {
	student, err := addressParam(r, "address")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.IDsResponse{IDs: h.suite.Credentials.GetStudentCredentials(student)})
}

// Attendance

func (h *Handler) HandleMarkAttendance(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.MarkAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, receipt, err := h.suite.Attendance.MarkAttendance(r.Context(), caller, req.ClassID, req.Student, req.SessionDate, req.Status, req.Note)
	h.writeTx(w, r, receipt, id, err)
}

func (h *Handler) HandleGetAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.suite.Attendance.GetAttendanceRecord(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) HandleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.UpdateAttendanceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Attendance.UpdateAttendance(r.Context(), caller, id, req.Status, req.Note)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleClassAttendanceCount(w http.ResponseWriter, r *http.Request) {
	classID, err := classParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.CountResponse{Count: h.suite.Attendance.ClassAttendanceCount(classID)})
}

func (h *Handler) HandleGetStudentAttendance(w http.ResponseWriter, r *http.Request) {
	classID, student, err := classStudentParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.IDsResponse{IDs: h.suite.Attendance.GetStudentAttendance(classID, student)})
}

// Grades

func (h *Handler) HandleRecordGrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.RecordGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, receipt, err := h.suite.Grades.RecordGrade(r.Context(), caller, req.ClassID, req.Student, req.ComponentName, req.Score, req.MaxScore)
	h.writeTx(w, r, receipt, id, err)
}

func (h *Handler) HandleGetGrade(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	record, err := h.suite.Grades.GetGrade(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) HandleUpdateGrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req api.UpdateGradeRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Grades.UpdateGrade(r.Context(), caller, id, req.Score)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleApproveGrade(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	receipt, err := h.suite.Grades.ApproveGrade(r.Context(), caller, id)
	h.writeTx(w, r, receipt, 0, err)
}

func (h *Handler) HandleGetStudentGrades(w http.ResponseWriter, r *http.Request) {
	classID, student, err := classStudentParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.IDsResponse{IDs: h.suite.Grades.GetStudentGrades(classID, student)})
}

func (h *Handler) HandleFinalGrade(w http.ResponseWriter, r *http.Request) {
	classID, student, err := classStudentParams(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.FinalGradeResponse{
		ClassID:    classID,
		Student:    student,
		Strategy:   h.suite.Grades.Strategy().Name(),
		FinalGrade: h.suite.Grades.CalculateFinalGrade(classID, student),
	})
}

// Documents

// HandleStoreDocument stores the raw request body. Only active registered
// users may upload.
//
// URL format: POST /api/documents?type=document|evidence
func (h *Handler) HandleStoreDocument(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		h.writeError(w, r, interfaces.ErrBackendUnavailable)
		return
	}
	caller, err := callerFrom(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if user, err := h.suite.Authority.GetUser(caller); err != nil || !user.IsActive {
		h.writeError(w, r, interfaces.AuthorizationError("caller is not an active user"))
		return
	}
	contentType, err := interfaces.ParseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxDocumentSize))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: reading document: %v", errBadRequest, err))
		return
	}
	if len(data) == 0 {
		h.writeError(w, r, fmt.Errorf("%w: empty document", errBadRequest))
		return
	}

	id, err := h.documents.Store(r.Context(), data, contentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.log.Info("Document stored",
		slog.String("content_id", id.String()),
		slog.String("content_type", contentType.String()),
		slog.String("caller", caller.Hex()))

	h.writeJSON(w, http.StatusCreated, api.DocumentResponse{
		ContentID:   id.String(),
		DocumentRef: id.DocumentRef(),
		ContentType: contentType.String(),
		Size:        len(data),
	})
}

// HandleFetchDocument accepts either a bare hex content id or a full
// "sha256:<hex>" reference.
func (h *Handler) HandleFetchDocument(w http.ResponseWriter, r *http.Request) {
	if h.documents == nil {
		h.writeError(w, r, interfaces.ErrBackendUnavailable)
		return
	}
	raw := r.PathValue("content_id")
	id, err := interfaces.ParseDocumentRef(raw)
	if err != nil {
		id, err = interfaces.NewContentIDFromHex(raw)
	}
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: invalid content id", errBadRequest))
		return
	}
	contentType, err := interfaces.ParseContentType(r.URL.Query().Get("type"))
	if err != nil {
		h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	data, err := h.documents.Fetch(r.Context(), id, contentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.log.Debug("Failed to write document", "err", err)
	}
}

// HandleNotifications returns the committed notification log starting at
// ?from= (default 1).
func (h *Handler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	var from uint64
	if s := r.URL.Query().Get("from"); s != "" {
		var err error
		if from, err = strconv.ParseUint(s, 10, 64); err != nil {
			h.writeError(w, r, fmt.Errorf("%w: invalid from %q", errBadRequest, s))
			return
		}
	}

	ns := h.suite.Ledger.Notifications(from)
	resp := make([]api.Notification, 0, len(ns))
	for _, n := range ns {
		an, err := api.NewNotification(n)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		resp = append(resp, an)
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// helpers

func callerFrom(r *http.Request) (common.Address, error) {
	s := r.Header.Get(api.CallerHeader)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: missing or invalid %s header", errBadRequest, api.CallerHeader)
	}
	return common.HexToAddress(s), nil
}

func addressParam(r *http.Request, name string) (common.Address, error) {
	s := r.PathValue(name)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: invalid address %q", errBadRequest, s)
	}
	return common.HexToAddress(s), nil
}

func idParam(r *http.Request, name string) (uint64, error) {
	id, err := strconv.ParseUint(r.PathValue(name), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, r.PathValue(name))
	}
	return id, nil
}

func classParam(r *http.Request) (interfaces.ClassID, error) {
	id, err := idParam(r, "class_id")
	return interfaces.ClassID(id), err
}

func classStudentParams(r *http.Request) (interfaces.ClassID, common.Address, error) {
	classID, err := classParam(r)
	if err != nil {
		return 0, common.Address{}, err
	}
	student, err := addressParam(r, "address")
	return classID, student, err
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func (h *Handler) writeTx(w http.ResponseWriter, r *http.Request, receipt *ledger.Receipt, id uint64, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	resp, err := api.NewTxResponse(receipt, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	msg := err.Error()
	var le *interfaces.LedgerError
	if errors.As(err, &le) {
		msg = le.Msg
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "err", err, slog.String("path", r.URL.Path))
	} else {
		h.log.Debug("Request rejected", "err", err, slog.Int("status", status), slog.String("path", r.URL.Path))
	}
	h.writeJSON(w, status, api.ErrorResponse{Error: msg, Kind: kind})
}
