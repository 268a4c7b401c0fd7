package registryhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/university-ledger/api"
	"github.com/ruteri/university-ledger/interfaces"
)

// Client calls a registry API server. Mutations are sent as Caller.
type Client struct {
	baseURL string
	http    *http.Client
	caller  common.Address
}

func NewClient(baseURL string, caller common.Address) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		caller:  caller,
	}
}

// WithHTTPClient replaces the underlying http.Client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.http = hc
	return &cp
}

// As returns a copy of the client acting as caller.
func (c *Client) As(caller common.Address) *Client {
	cp := *c
	cp.caller = caller
	return &cp
}

func (c *Client) Caller() common.Address { return c.caller }

// Authority

func (c *Client) Authority(ctx context.Context) (*api.AuthorityResponse, error) {
	var resp api.AuthorityResponse
	return &resp, c.do(ctx, http.MethodGet, "/api/authority", nil, &resp)
}

func (c *Client) Initialize(ctx context.Context, components interfaces.ComponentAddresses) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/authority/initialize", components)
}

func (c *Client) ListUsers(ctx context.Context) ([]interfaces.User, error) {
	var users []interfaces.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) RegisterUser(ctx context.Context, req api.RegisterUserRequest) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/users", req)
}

func (c *Client) GetUser(ctx context.Context, account common.Address) (*interfaces.User, error) {
	var user interfaces.User
	return &user, c.do(ctx, http.MethodGet, "/api/users/"+account.Hex(), nil, &user)
}

func (c *Client) UpdateUser(ctx context.Context, account common.Address, fullName, email string) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPut, "/api/users/"+account.Hex(), api.UpdateUserRequest{FullName: fullName, Email: email})
}

func (c *Client) DeactivateUser(ctx context.Context, account common.Address) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/users/"+account.Hex()+"/deactivate", nil)
}

func (c *Client) GetUserRole(ctx context.Context, account common.Address) (interfaces.Role, error) {
	var resp api.RoleResponse
	err := c.do(ctx, http.MethodGet, "/api/users/"+account.Hex()+"/role", nil, &resp)
	return resp.Role, err
}

func (c *Client) HasRole(ctx context.Context, account common.Address, role interfaces.Role) (bool, error) {
	var resp api.RoleResponse
	path := "/api/users/" + account.Hex() + "/role?role=" + url.QueryEscape(role.String())
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.HasRole != nil && *resp.HasRole, nil
}

func (c *Client) GetRoleCount(ctx context.Context, role interfaces.Role) (uint64, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodGet, "/api/roles/"+role.String()+"/count", nil, &resp)
	return resp.Count, err
}

// Credentials

func (c *Client) IssueCredential(ctx context.Context, req api.IssueCredentialRequest) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/credentials", req)
}

func (c *Client) GetCredential(ctx context.Context, id uint64) (*interfaces.Credential, error) {
	var cred interfaces.Credential
	return &cred, c.do(ctx, http.MethodGet, "/api/credentials/"+strconv.FormatUint(id, 10), nil, &cred)
}

func (c *Client) VerifyCredential(ctx context.Context, id uint64) (bool, error) {
	var resp api.VerifyResponse
	err := c.do(ctx, http.MethodGet, "/api/credentials/"+strconv.FormatUint(id, 10)+"/verify", nil, &resp)
	return resp.Valid, err
}

func (c *Client) RevokeCredential(ctx context.Context, id uint64) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/credentials/"+strconv.FormatUint(id, 10)+"/revoke", nil)
}

func (c *Client) GetStudentCredentials(ctx context.Context, student common.Address) ([]uint64, error) {
	var resp api.IDsResponse
	err := c.do(ctx, http.MethodGet, "/api/students/"+student.Hex()+"/credentials", nil, &resp)
	return resp.IDs, err
}

// Attendance

func (c *Client) MarkAttendance(ctx context.Context, req api.MarkAttendanceRequest) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/attendance", req)
}

func (c *Client) GetAttendanceRecord(ctx context.Context, id uint64) (*interfaces.AttendanceRecord, error) {
	var record interfaces.AttendanceRecord
	return &record, c.do(ctx, http.MethodGet, "/api/attendance/"+strconv.FormatUint(id, 10), nil, &record)
}

func (c *Client) UpdateAttendance(ctx context.Context, id uint64, status interfaces.AttendanceStatus, note string) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPut, "/api/attendance/"+strconv.FormatUint(id, 10), api.UpdateAttendanceRequest{Status: status, Note: note})
}

func (c *Client) ClassAttendanceCount(ctx context.Context, classID interfaces.ClassID) (uint64, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/classes/%d/attendance", classID), nil, &resp)
	return resp.Count, err
}

func (c *Client) GetStudentAttendance(ctx context.Context, classID interfaces.ClassID, student common.Address) ([]uint64, error) {
	var resp api.IDsResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/classes/%d/students/%s/attendance", classID, student.Hex()), nil, &resp)
	return resp.IDs, err
}

// Grades

func (c *Client) RecordGrade(ctx context.Context, req api.RecordGradeRequest) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/grades", req)
}

func (c *Client) GetGrade(ctx context.Context, id uint64) (*interfaces.GradeRecord, error) {
	var record interfaces.GradeRecord
	return &record, c.do(ctx, http.MethodGet, "/api/grades/"+strconv.FormatUint(id, 10), nil, &record)
}

func (c *Client) UpdateGrade(ctx context.Context, id uint64, score uint64) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPut, "/api/grades/"+strconv.FormatUint(id, 10), api.UpdateGradeRequest{Score: score})
}

func (c *Client) ApproveGrade(ctx context.Context, id uint64) (*api.TxResponse, error) {
	return c.tx(ctx, http.MethodPost, "/api/grades/"+strconv.FormatUint(id, 10)+"/approve", nil)
}

func (c *Client) GetStudentGrades(ctx context.Context, classID interfaces.ClassID, student common.Address) ([]uint64, error) {
	var resp api.IDsResponse
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/classes/%d/students/%s/grades", classID, student.Hex()), nil, &resp)
	return resp.IDs, err
}

func (c *Client) CalculateFinalGrade(ctx context.Context, classID interfaces.ClassID, student common.Address) (*api.FinalGradeResponse, error) {
	var resp api.FinalGradeResponse
	return &resp, c.do(ctx, http.MethodGet, fmt.Sprintf("/api/classes/%d/students/%s/final-grade", classID, student.Hex()), nil, &resp)
}

// Documents

func (c *Client) StoreDocument(ctx context.Context, data []byte, contentType interfaces.ContentType) (*api.DocumentResponse, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/documents?type="+contentType.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	var resp api.DocumentResponse
	return &resp, c.send(req, &resp)
}

// FetchDocument accepts a "sha256:<hex>" reference or a bare hex id.
func (c *Client) FetchDocument(ctx context.Context, ref string, contentType interfaces.ContentType) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/documents/"+url.PathEscape(ref)+"?type="+contentType.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch document: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read document: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, responseError(resp, body)
	}
	return body, nil
}

func (c *Client) Notifications(ctx context.Context, from uint64) ([]api.Notification, error) {
	var ns []api.Notification
	if err := c.do(ctx, http.MethodGet, "/api/notifications?from="+strconv.FormatUint(from, 10), nil, &ns); err != nil {
		return nil, err
	}
	return ns, nil
}

func (c *Client) tx(ctx context.Context, method, path string, body any) (*api.TxResponse, error) {
	var resp api.TxResponse
	if err := c.do(ctx, method, path, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("could not initialize request: %w", err)
	}
	if c.caller != (common.Address{}) {
		req.Header.Set(api.CallerHeader, c.caller.Hex())
	}
	return req, nil
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not send %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response, body []byte) error {
	var er api.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		return fmt.Errorf("%s %s: unexpected status %d", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode)
	}
	if err := kindError(er.Kind, er.Error); err != nil {
		return err
	}
	return fmt.Errorf("%s %s: %d: %s", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, er.Error)
}
