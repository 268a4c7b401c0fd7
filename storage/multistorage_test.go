package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/university-ledger/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockStorageBackend struct {
	mock.Mock
	name string
}

func (m *MockStorageBackend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	args := m.Called(ctx, id, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorageBackend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	args := m.Called(ctx, data, contentType)
	return args.Get(0).(interfaces.ContentID), args.Error(1)
}

func (m *MockStorageBackend) Available(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}

func (m *MockStorageBackend) Name() string { return m.name }

func (m *MockStorageBackend) LocationURI() string { return "mock://" + m.name }

func newMock(name string, available bool) *MockStorageBackend {
	m := &MockStorageBackend{name: name}
	m.On("Available", mock.Anything).Return(available)
	return m
}

func TestMultiStorageBackend_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{"all backends available", []bool{true, true, true}, true},
		{"some backends available", []bool{false, true, false}, true},
		{"no backends available", []bool{false, false, false}, false},
		{"no backends", []bool{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.StorageBackend
			for i, available := range tt.backends {
				m := &MockStorageBackend{name: fmt.Sprintf("mock-%d", i)}
				m.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, m)
			}

			multi := NewMultiStorageBackend(backends, slog.New(slog.NewTextHandler(io.Discard, nil)))
			assert.Equal(t, tt.expected, multi.Available(context.Background()))
		})
	}
}

func TestMultiStorageBackend_Fetch(t *testing.T) {
	data := []byte("diploma.pdf")
	id := interfaces.ComputeID(data)
	ct := interfaces.CredentialDocumentType
	backendErr := errors.New("connection reset")

	tests := []struct {
		name       string
		setupMocks func() []*MockStorageBackend
		wantData   []byte
		wantErr    error
	}{
		{
			name: "first backend successful",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Fetch", mock.Anything, id, ct).Return(data, nil)
				return []*MockStorageBackend{a, {name: "b"}}
			},
			wantData: data,
		},
		{
			name: "first backend fails, second succeeds",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Fetch", mock.Anything, id, ct).Return(nil, backendErr)
				b := newMock("b", true)
				b.On("Fetch", mock.Anything, id, ct).Return(data, nil)
				return []*MockStorageBackend{a, b}
			},
			wantData: data,
		},
		{
			name: "missing everywhere",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Fetch", mock.Anything, id, ct).Return(nil, interfaces.ErrContentNotFound)
				b := newMock("b", true)
				b.On("Fetch", mock.Anything, id, ct).Return(nil, interfaces.ErrContentNotFound)
				return []*MockStorageBackend{a, b}
			},
			wantErr: interfaces.ErrContentNotFound,
		},
		{
			name: "backend error is not reported as missing",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Fetch", mock.Anything, id, ct).Return(nil, interfaces.ErrContentNotFound)
				b := newMock("b", true)
				b.On("Fetch", mock.Anything, id, ct).Return(nil, backendErr)
				return []*MockStorageBackend{a, b}
			},
			wantErr: backendErr,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", false)
				b := newMock("b", true)
				b.On("Fetch", mock.Anything, id, ct).Return(data, nil)
				return []*MockStorageBackend{a, b}
			},
			wantData: data,
		},
		{
			name: "nothing available",
			setupMocks: func() []*MockStorageBackend {
				return []*MockStorageBackend{newMock("a", false)}
			},
			wantErr: interfaces.ErrBackendUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := tt.setupMocks()
			backends := make([]interfaces.StorageBackend, len(mocks))
			for i, m := range mocks {
				backends[i] = m
			}
			multi := NewMultiStorageBackend(backends, slog.New(slog.NewTextHandler(io.Discard, nil)))

			got, err := multi.Fetch(context.Background(), id, ct)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantData, got)

			for _, m := range mocks {
				m.AssertExpectations(t)
			}
		})
	}
}

func TestMultiStorageBackend_Store(t *testing.T) {
	data := []byte("medical certificate")
	id := interfaces.ComputeID(data)
	ct := interfaces.EvidenceType
	backendErr := errors.New("access denied")

	tests := []struct {
		name       string
		setupMocks func() []*MockStorageBackend
		wantErr    bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Store", mock.Anything, data, ct).Return(id, nil)
				b := newMock("b", true)
				b.On("Store", mock.Anything, data, ct).Return(id, nil)
				return []*MockStorageBackend{a, b}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Store", mock.Anything, data, ct).Return(id, nil)
				b := newMock("b", true)
				b.On("Store", mock.Anything, data, ct).Return(interfaces.ContentID{}, backendErr)
				return []*MockStorageBackend{a, b}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", true)
				a.On("Store", mock.Anything, data, ct).Return(interfaces.ContentID{}, backendErr)
				return []*MockStorageBackend{a}
			},
			wantErr: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []*MockStorageBackend {
				a := newMock("a", false)
				b := newMock("b", true)
				b.On("Store", mock.Anything, data, ct).Return(id, nil)
				return []*MockStorageBackend{a, b}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := tt.setupMocks()
			backends := make([]interfaces.StorageBackend, len(mocks))
			for i, m := range mocks {
				backends[i] = m
			}
			multi := NewMultiStorageBackend(backends, slog.New(slog.NewTextHandler(io.Discard, nil)))

			got, err := multi.Store(context.Background(), data, ct)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, id, got)

			for _, m := range mocks {
				m.AssertExpectations(t)
			}
		})
	}
}
